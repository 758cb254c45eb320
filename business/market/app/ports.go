// Package app contains the reference price guard and its ports.
package app

import (
	"context"

	"github.com/fd1az/poolctl/business/market/domain"
)

// ReferenceProvider fetches an external price for a ticker symbol.
type ReferenceProvider interface {
	ReferencePrice(ctx context.Context, symbol string) (*domain.ReferencePrice, error)
}
