package app

import (
	"context"
	"time"

	blockchainDomain "github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/internal/asset"
	"github.com/fd1az/poolctl/internal/logger"
)

// Watcher logs the pool's indicative spot rates on every new block.
type Watcher struct {
	blocks  BlockSource
	service *Service
	log     logger.LoggerInterface
}

// NewWatcher creates a new Watcher.
func NewWatcher(blocks BlockSource, service *Service, log logger.LoggerInterface) *Watcher {
	return &Watcher{blocks: blocks, service: service, log: log}
}

// Run blocks until ctx is done or the block stream closes.
func (w *Watcher) Run(ctx context.Context) error {
	tokens, err := w.service.Tokens(ctx)
	if err != nil {
		return err
	}

	blocks, err := w.blocks.SubscribeBlocks(ctx)
	if err != nil {
		return err
	}

	w.log.Info(ctx, "watching pool", "token_a", tokens.A.Symbol(), "token_b", tokens.B.Symbol())

	for {
		select {
		case <-ctx.Done():
			w.log.Info(ctx, "watcher stopping", "reason", ctx.Err())
			return nil
		case block, ok := <-blocks:
			if !ok {
				return nil
			}
			if block != nil {
				w.onNewBlock(ctx, tokens, block)
			}
		}
	}
}

func (w *Watcher) onNewBlock(ctx context.Context, tokens *Tokens, block *blockchainDomain.Block) {
	reserves, spot, err := w.service.SpotPrice(ctx)
	if err != nil {
		w.log.Warn(ctx, "spot price unavailable", "block", block.Number, "error", err)
		return
	}

	rate, err := asset.NewPriceFromReserves(tokens.A, tokens.B, reserves.A, reserves.B, block.Timestamp)
	if err != nil {
		w.log.Warn(ctx, "rate normalisation failed", "block", block.Number, "error", err)
		return
	}

	w.log.Info(ctx, "pool price",
		"block", block.Number,
		"reserve_a", asset.NewAmount(tokens.A, reserves.A).String(),
		"reserve_b", asset.NewAmount(tokens.B, reserves.B).String(),
		"a_in_b", rate.Rate().StringFixed(7),
		"b_in_a", rate.Invert().Rate().StringFixed(7),
		"raw_a_in_b", spot.Rounded().AInB.String(),
		"age", time.Since(block.Timestamp).Round(time.Millisecond).String())
}
