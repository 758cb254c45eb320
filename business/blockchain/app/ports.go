// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/poolctl/business/blockchain/domain"
)

// BlockSubscriber streams new chain heads.
type BlockSubscriber interface {
	// Subscribe starts listening for new blocks and returns a channel of blocks.
	// The channel closes when ctx is done.
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)

	// LatestBlock retrieves the most recent block.
	LatestBlock(ctx context.Context) (*domain.Block, error)

	// State returns the current connection state.
	State() domain.ConnectionState
}

// GasOracle defines the interface for fee and gas information.
type GasOracle interface {
	FeeQuote(ctx context.Context) (*domain.FeeQuote, error)
	EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error)
}

// TxSender signs, broadcasts and tracks transactions for one account.
type TxSender interface {
	Address() common.Address
	Send(ctx context.Context, req domain.TxRequest) (common.Hash, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error)
}
