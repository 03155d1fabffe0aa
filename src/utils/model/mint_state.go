package model

import (
	"time"
)

const TableMintState = "mint_states"

type FingerprintState string

const (
	// Transient lock, held while a chain submission is in flight
	FingerprintMinting FingerprintState = "minting"
	// Terminal, a success row exists in mint_transactions
	FingerprintMinted FingerprintState = "minted"
)

// MintState is the per-fingerprint row backing the mint gate's
// atomic check-and-set. Absence of a row means unminted.
// The claim is an insert-if-absent on the primary key, so two
// concurrent requests for the same fingerprint can't both win.
type MintState struct {
	RwaHash string           `gorm:"primaryKey" json:"rwa_hash"`
	State   FingerprintState `json:"state"`

	// Identifies the request holding the minting lease
	LockedBy string `json:"locked_by"`

	// A minting lease unresolved past this point may be retaken,
	// so an abandoned request never deadlocks the fingerprint
	LeaseExpiresAt time.Time `json:"lease_expires_at"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (MintState) TableName() string {
	return TableMintState
}
