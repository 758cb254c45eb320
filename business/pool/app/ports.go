package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	blockchainDomain "github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/business/pool/domain"
	"github.com/fd1az/poolctl/internal/asset"
)

// Tokens is the pool's token metadata.
type Tokens struct {
	A     *asset.Asset
	B     *asset.Asset
	Share *asset.Asset
}

// Snapshot is the pool state a withdrawal is sized against, read at one block.
type Snapshot struct {
	Block    uint64
	Reserves domain.Reserves
	Position domain.SharePosition
}

// PoolReader reads pool state.
type PoolReader interface {
	// Tokens returns metadata for token A, token B and the share token.
	Tokens(ctx context.Context) (*Tokens, error)

	// Reserves returns the current raw reserves.
	Reserves(ctx context.Context) (domain.Reserves, error)

	// Snapshot reads reserves and the account's position at the same block.
	Snapshot(ctx context.Context, account common.Address) (*Snapshot, error)
}

// PoolInvoker submits requests to the pool and reports the settled outcome.
type PoolInvoker interface {
	Swap(ctx context.Context, req *domain.SwapRequest) (*domain.Outcome, error)
	Withdraw(ctx context.Context, req *domain.WithdrawRequest) (*domain.Outcome, error)
}

// Journal persists submission records.
type Journal interface {
	Record(ctx context.Context, sub *domain.Submission) error
}

// PriceGuard vets the pool's spot rate of token A in token B before submitting.
type PriceGuard interface {
	CheckSpot(ctx context.Context, poolAInB decimal.Decimal) error
}

// FeeSource quotes current network fees.
type FeeSource interface {
	FeeQuote(ctx context.Context) (*blockchainDomain.FeeQuote, error)
}

// BlockSource provides new chain heads to the watcher.
type BlockSource interface {
	SubscribeBlocks(ctx context.Context) (<-chan *blockchainDomain.Block, error)
}
