// Package di contains dependency injection tokens for the pool context.
package di

import (
	"github.com/fd1az/poolctl/business/pool/app"
	"github.com/fd1az/poolctl/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("pool.Service")
	Watcher = di.NewToken[*app.Watcher]("pool.Watcher")
)

// Private dependency tokens - internal to pool module
var (
	Reader  = di.NewToken[app.PoolReader]("pool:reader")
	Invoker = di.NewToken[app.PoolInvoker]("pool:invoker")
	Journal = di.NewToken[app.Journal]("pool:journal")
)

func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}

func GetWatcher(c di.ServiceRegistry) *app.Watcher {
	return di.GetToken(c, Watcher)
}

func GetReader(c di.ServiceRegistry) app.PoolReader {
	return di.GetToken(c, Reader)
}

func GetInvoker(c di.ServiceRegistry) app.PoolInvoker {
	return di.GetToken(c, Invoker)
}

func GetJournal(c di.ServiceRegistry) app.Journal {
	return di.GetToken(c, Journal)
}
