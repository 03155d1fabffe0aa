package common

import (
	"context"

	"github.com/rwa-portal/anchorgate/src/utils/config"
)

type contextKey int

const configKey contextKey = iota

// SetConfig puts the global configuration into the context
func SetConfig(ctx context.Context, config *config.Config) context.Context {
	return context.WithValue(ctx, configKey, config)
}

func GetConfig(ctx context.Context) *config.Config {
	out, ok := ctx.Value(configKey).(*config.Config)
	if !ok {
		return nil
	}
	return out
}
