package config

import (
	"github.com/spf13/viper"
)

type Auth struct {
	// HMAC secret used to verify admin bearer tokens.
	// Tokens are issued by an external auth service.
	AdminJwtSecret string

	// Expected subject claim of admin tokens
	AdminSubject string
}

func setAuthDefaults() {
	viper.SetDefault("Auth.AdminJwtSecret", "")
	viper.SetDefault("Auth.AdminSubject", "admin")
}
