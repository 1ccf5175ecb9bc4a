package core

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// SettleTask submits L2->L1 message hashes to the L1 messaging contract in
// batches, retrying transient failures with exponential backoff and
// classifying reverts as permanent per spec.md §4E/§7.
type SettleTask struct {
	provider L1Provider
	contract [20]byte
	logger   *log.Logger
}

// NewSettleTask constructs the task bound to the L1 messaging contract.
func NewSettleTask(provider L1Provider, contract [20]byte, logger *log.Logger) *SettleTask {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &SettleTask{provider: provider, contract: contract, logger: logger}
}

// SettleResult reports, per message hash, whether it was accepted.
type SettleResult struct {
	Hash    [32]byte
	Settled bool
	Err     error
}

// Settle computes the keccak message hash for every message in msgs, submits
// them to the L1 contract in one batch, and retries transient RPC failures
// with a bounded exponential backoff. A permanent failure (contract revert)
// is surfaced without retry.
func (s *SettleTask) Settle(ctx context.Context, msgs []Message) ([]SettleResult, *ExecError) {
	if len(msgs) == 0 {
		return nil, nil
	}

	hashes := make([][32]byte, len(msgs))
	for i, m := range msgs {
		hashes[i] = L1MessageHash(m.From, m.To, m.Payload)
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	var lastErr error
	var permanent *ExecError

	op := func() error {
		err := s.provider.AddMessageHashesFromL2(ctx, s.contract, hashes)
		if err == nil {
			return nil
		}
		if isRevert(err) {
			permanent = newExecError(ErrKindRpcPermanent, err)
			return backoff.Permanent(err)
		}
		lastErr = err
		s.logger.WithError(err).Warn("settle batch failed, retrying")
		return err
	}

	if err := backoff.Retry(op, policy); err != nil {
		if permanent != nil {
			return nil, permanent
		}
		return nil, newExecError(ErrKindRpcTransient, lastErr)
	}

	results := make([]SettleResult, len(hashes))
	for i, h := range hashes {
		results[i] = SettleResult{Hash: h, Settled: true}
	}
	s.logger.WithFields(log.Fields{"count": len(results)}).Info("settled L2->L1 messages")
	return results, nil
}

// isRevert classifies a failure as permanent. go-ethereum's JSON-RPC error
// type exposes ErrorCode() int for server-returned errors, which covers
// reverts; anything else (timeouts, connection resets) is treated as
// transient and retried.
func isRevert(err error) bool {
	type reverted interface{ ErrorCode() int }
	var r reverted
	return errors.As(err, &r)
}
