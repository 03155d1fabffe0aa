package serve

import (
	"context"

	"github.com/rwa-portal/anchorgate/src/utils/apperr"
)

// disabledChain stands in for the chain client when no token contract
// is configured, every mint attempt is rejected as unavailable
type disabledChain struct{}

func (disabledChain) Mint(ctx context.Context, to string, amount float64) (string, error) {
	return "", apperr.ErrChainUnavailable
}
