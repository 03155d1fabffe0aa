package config

import (
	"time"

	"github.com/spf13/viper"
)

type Attestor struct {
	// Reserve attestation API, empty disables the poller
	Url   string
	Token string

	// How often unverified records are checked
	Period time.Duration

	// Per-call HTTP timeout
	RequestTimeout time.Duration

	// Max records verified per polling round
	BatchSize int
}

func setAttestorDefaults() {
	viper.SetDefault("Attestor.Url", "")
	viper.SetDefault("Attestor.Token", "")
	viper.SetDefault("Attestor.Period", "30s")
	viper.SetDefault("Attestor.RequestTimeout", "15s")
	viper.SetDefault("Attestor.BatchSize", "50")
}
