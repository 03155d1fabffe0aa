package monitor

import (
	"time"

	"go.uber.org/atomic"
)

type Errors struct {
	DbError     atomic.Int64 `json:"db"`
	FabricError atomic.Int64 `json:"fabric"`
	ChainError  atomic.Int64 `json:"chain"`
	AuthError   atomic.Int64 `json:"auth"`
	AttestError atomic.Int64 `json:"attest"`
}

type Report struct {
	// State
	StartTimestamp atomic.Int64  `json:"start_timestamp"`
	UpForSeconds   atomic.Uint64 `json:"up_for_seconds"`

	RecordsSubmitted    atomic.Uint64 `json:"records_submitted"`
	AnchorsFresh        atomic.Uint64 `json:"anchors_fresh"`
	AnchorsDuplicate    atomic.Uint64 `json:"anchors_duplicate"`
	MintsSucceeded      atomic.Uint64 `json:"mints_succeeded"`
	MintsFailed         atomic.Uint64 `json:"mints_failed"`
	MintsDuplicate      atomic.Uint64 `json:"mints_duplicate"`
	MintConflicts       atomic.Uint64 `json:"mint_conflicts"`
	LeasesExpired       atomic.Uint64 `json:"leases_expired"`
	AttestationsApplied atomic.Uint64 `json:"attestations_applied"`
	EventsPublished     atomic.Uint64 `json:"events_published"`

	AverageRecordsSubmittedPerMinute atomic.Float64 `json:"average_records_submitted_per_minute"`
	AverageMintsPerMinute            atomic.Float64 `json:"average_mints_per_minute"`

	Errors Errors `json:"errors"`
}

func (self *Report) Fill() {
	self.UpForSeconds.Store(uint64(time.Now().Unix() - self.StartTimestamp.Load()))
}
