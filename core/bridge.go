package core

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Bridge owns both scheduled tasks spec.md §4E describes: gather (L1->L2)
// and settle (L2->L1). They run as two cooperative goroutines under one
// errgroup so a failure or cancellation in either stops both without
// leaking the other.
type Bridge struct {
	gather *GatherTask
	settle *SettleTask
	store  *ChainStore
	config BridgeConfig
	logger *log.Logger
}

// NewBridge wires a Bridge from its two tasks and the chain store it reads
// sealed blocks from for settlement.
func NewBridge(gather *GatherTask, settle *SettleTask, store *ChainStore, config BridgeConfig, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Bridge{gather: gather, settle: settle, store: store, config: config, logger: logger}
}

// Run blocks until ctx is canceled or either task returns a non-transient
// error. Cancellation is cooperative: in-flight RPC calls observe ctx.Done
// at their next suspension point; an L1 tx already mined when cancellation
// arrives is not rolled back.
func (b *Bridge) Run(ctx context.Context, onL1HandlerBatch func([]Transaction)) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.runGatherLoop(gctx, onL1HandlerBatch)
	})
	g.Go(func() error {
		return b.runSettleLoop(gctx)
	})

	return g.Wait()
}

func (b *Bridge) runGatherLoop(ctx context.Context, onBatch func([]Transaction)) error {
	ticker := time.NewTicker(time.Duration(b.config.IntervalBlocks) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			from := b.gather.LastScannedBlock()
			_, txs, err := b.gather.GatherMessages(ctx, from, 1000)
			if err != nil {
				var eerr *ExecError
				if errors.As(err, &eerr) && eerr.Kind == ErrKindRpcTransient {
					b.logger.WithError(err).Warn("gather: transient error, will retry next interval")
					continue
				}
				return err
			}
			if len(txs) > 0 && onBatch != nil {
				onBatch(txs)
			}
		}
	}
}

func (b *Bridge) runSettleLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(b.config.IntervalBlocks) * time.Second)
	defer ticker.Stop()

	var lastSettled BlockNumber
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			latest, ok := b.store.LatestNumber()
			if !ok || latest <= lastSettled {
				continue
			}
			settledThrough := lastSettled
			for n := lastSettled + 1; n <= latest; n++ {
				hash, ok := b.store.BlockHashOf(NumberBlockID(n))
				if !ok {
					settledThrough = n
					continue
				}
				block, err := b.store.Block(hash)
				if err != nil {
					settledThrough = n
					continue
				}
				var msgs []Message
				for _, r := range block.Outputs {
					msgs = append(msgs, r.MessagesToL1...)
				}
				if len(msgs) > 0 {
					if _, eerr := b.settle.Settle(ctx, msgs); eerr != nil {
						if eerr.Kind == ErrKindRpcTransient {
							b.logger.WithError(eerr).Warn("settle: transient error, will retry this block next interval")
							break
						}
						return eerr
					}
				}
				settledThrough = n
			}
			lastSettled = settledThrough
		}
	}
}
