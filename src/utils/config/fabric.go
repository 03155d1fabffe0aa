package config

import (
	"time"

	"github.com/spf13/viper"
)

type Fabric struct {
	// Connection profile path, empty disables the Fabric transport
	// and anchors are only persisted in the database
	ConnectionProfilePath string

	ChannelName   string
	ChaincodeName string
	MspId         string
	CertPath      string
	KeyPath       string
	WalletPath    string
	Identity      string

	// Num of concurrent chaincode submissions
	MaxWorkers int

	// Max num of queued submissions
	MaxQueueSize int

	// Backoff for ledger writes, after MaxElapsedTime the write
	// is reported as LedgerUnavailable
	MaxElapsedTime time.Duration
	MaxInterval    time.Duration

	// How long the anchored id set may be served from cache
	AnchoredCacheTTL time.Duration
}

func setFabricDefaults() {
	viper.SetDefault("Fabric.ConnectionProfilePath", "")
	viper.SetDefault("Fabric.ChannelName", "rwa-main-channel")
	viper.SetDefault("Fabric.ChaincodeName", "rwa-anchor")
	viper.SetDefault("Fabric.MspId", "Org1MSP")
	viper.SetDefault("Fabric.WalletPath", "wallet")
	viper.SetDefault("Fabric.Identity", "appUser")
	viper.SetDefault("Fabric.MaxWorkers", "5")
	viper.SetDefault("Fabric.MaxQueueSize", "50")
	viper.SetDefault("Fabric.MaxElapsedTime", "1m")
	viper.SetDefault("Fabric.MaxInterval", "10s")
	viper.SetDefault("Fabric.AnchoredCacheTTL", "30s")
}
