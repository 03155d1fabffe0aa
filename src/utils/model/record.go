package model

import (
	"database/sql"
	"time"

	"github.com/jackc/pgtype"
)

const TableRecord = "records"

type SubmitterType string

const (
	SubmitterAdmin       SubmitterType = "admin"
	SubmitterInstitution SubmitterType = "institution"
)

// Record is a submitted tokenization request.
// Rows are never deleted, only the proof of reserve sub-document
// may be updated by verification.
type Record struct {
	Id            string        `gorm:"primaryKey" json:"id"`
	SubmitterType SubmitterType `json:"submitter_type"`
	WalletAddress string        `json:"wallet_address"`

	// Set only for institution-submitted records
	ApiKey sql.NullString `json:"api_key"`

	// Target token contract description, carried through unchanged
	Deploy pgtype.JSONB `gorm:"type:jsonb" json:"deploy"`

	// Canonical proof of reserve document, stored structured,
	// never as a string that needs re-parsing
	ProofOfReserve pgtype.JSONB `gorm:"type:jsonb" json:"proof_of_reserve"`

	// Fingerprint of the proof of reserve balances,
	// the unit of mint dedup
	RwaHash string `gorm:"index" json:"rwa_hash"`

	// Mirrors proof_of_reserve.verified so the attestation poller
	// doesn't need JSON operators to find pending records
	Verified bool `gorm:"index" json:"verified"`

	CreatedAt time.Time `json:"created_at"`
}

func (Record) TableName() string {
	return TableRecord
}
