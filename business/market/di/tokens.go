// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/poolctl/business/market/app"
	"github.com/fd1az/poolctl/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Guard = di.NewToken[*app.Guard]("market.Guard")
)

// Private dependency tokens - internal to market module
var (
	ReferenceProvider = di.NewToken[app.ReferenceProvider]("market:referenceProvider")
)

func GetGuard(c di.ServiceRegistry) *app.Guard {
	return di.GetToken(c, Guard)
}

func GetReferenceProvider(c di.ServiceRegistry) app.ReferenceProvider {
	return di.GetToken(c, ReferenceProvider)
}
