package model

import (
	"time"

	"github.com/jackc/pgtype"
)

const TableAnchorEntry = "anchor_entries"

// AnchorEntry is one ledger-anchored copy of a record's canonical
// fields. At most one row per record id, immutable after insert.
type AnchorEntry struct {
	RecordId string `gorm:"primaryKey" json:"record_id"`

	// Canonical payload written to the permissioned ledger
	Payload pgtype.JSONB `gorm:"type:jsonb" json:"payload"`

	AnchoredAt time.Time `json:"anchored_at"`
}

func (AnchorEntry) TableName() string {
	return TableAnchorEntry
}
