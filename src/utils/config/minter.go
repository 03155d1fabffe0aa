package config

import (
	"time"

	"github.com/spf13/viper"
)

type Minter struct {
	// Ethereum JSON-RPC endpoint
	RpcProviderUrl string

	ChainId int64

	// Token contract that exposes mint(address,uint256)
	ContractAddress string

	// Hex-encoded private key of the minter account
	PrivateKey string

	// Decimals used to scale reserve amounts to token units
	TokenDecimals int

	// Max wall-clock time spent waiting for tx confirmation,
	// after that the attempt is recorded as failed and the
	// fingerprint is released for retry
	ConfirmationTimeout time.Duration

	// Backoff for transient RPC errors before the tx is broadcast
	MaxElapsedTime time.Duration
	MaxInterval    time.Duration

	// Lease on the minting state, an abandoned attempt may be
	// retaken after it expires
	LockLeaseDuration time.Duration

	// How often expired minting leases are cleaned up
	JanitorPeriod time.Duration

	// Records must be anchored on the permissioned ledger before minting
	RequireAnchored bool
}

func setMinterDefaults() {
	viper.SetDefault("Minter.RpcProviderUrl", "https://ethereum-sepolia-rpc.publicnode.com")
	viper.SetDefault("Minter.ChainId", "11155111")
	viper.SetDefault("Minter.ContractAddress", "")
	viper.SetDefault("Minter.PrivateKey", "")
	viper.SetDefault("Minter.TokenDecimals", "6")
	viper.SetDefault("Minter.ConfirmationTimeout", "3m")
	viper.SetDefault("Minter.MaxElapsedTime", "30s")
	viper.SetDefault("Minter.MaxInterval", "10s")
	viper.SetDefault("Minter.LockLeaseDuration", "5m")
	viper.SetDefault("Minter.JanitorPeriod", "1m")
	viper.SetDefault("Minter.RequireAnchored", "true")
}
