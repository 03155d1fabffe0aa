package config

import (
	"time"

	"github.com/spf13/viper"
)

type Gateway struct {
	// REST API address
	RESTListenAddress string

	// Max duration of a single request, the mint endpoint may
	// wait for chain confirmation for most of this time
	ServerRequestTimeout time.Duration

	// Enables gin's pprof endpoints
	IsProfilerEnabled bool
}

func setGatewayDefaults() {
	viper.SetDefault("Gateway.RESTListenAddress", "0.0.0.0:5000")
	viper.SetDefault("Gateway.ServerRequestTimeout", "5m")
	viper.SetDefault("Gateway.IsProfilerEnabled", "false")
}
