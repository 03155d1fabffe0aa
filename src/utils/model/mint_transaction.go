package model

import (
	"time"
)

const TableMintTransaction = "mint_transactions"

type MintOutcome string

const (
	MintOutcomeSuccess MintOutcome = "success"
	MintOutcomeFailed  MintOutcome = "failed"
)

// MintTransaction is the result of one mint attempt, failed attempts
// included for audit. Append-only, at most one success row per rwa hash
// for the lifetime of the system.
type MintTransaction struct {
	Id             int         `gorm:"primaryKey" json:"id"`
	WalletAddress  string      `json:"wallet_address"`
	MintedAmount   float64     `json:"minted_amount"`
	EthTxHash      string      `json:"eth_tx_hash"`
	MintedAt       time.Time   `json:"minted_at"`
	RwaHash        string      `gorm:"index" json:"rwa_hash"`
	SourceRecordId string      `json:"source_record_id"`
	Outcome        MintOutcome `json:"outcome"`

	// Underlying chain error for failed attempts
	ChainError string `json:"chain_error"`
}

func (MintTransaction) TableName() string {
	return TableMintTransaction
}
