package core

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// BridgeConfig holds the bridge's five configuration fields; private_key is
// kept as an opaque hex string here and is parsed only by NewEthProvider,
// which derives the transact signer the L1 provider holds.
type BridgeConfig struct {
	RPCURL          string
	PrivateKey      string
	ContractAddress [20]byte
	IntervalBlocks  uint64
	FromBlock       uint64
}

// L1Log is the subset of a LogMessageToL2 event gather_messages consumes,
// already ABI-decoded by the L1 provider.
type L1Log struct {
	BlockNumber  uint64
	LogIndex     uint64
	FromAddress  ContractAddress
	ToAddress    ContractAddress
	Selector     Felt
	Payload      []Felt
	Nonce        Felt
	FeeOnL1      uint64
}

// L1Provider is the external collaborator §6 names: get_logs, get_block_number,
// plus the messaging contract's settlement call.
type L1Provider interface {
	BlockNumber(ctx context.Context) (uint64, error)
	LogMessagesToL2(ctx context.Context, contract [20]byte, fromBlock, toBlock uint64) ([]L1Log, error)
	AddMessageHashesFromL2(ctx context.Context, contract [20]byte, hashes [][32]byte) error
}

// logKey identifies a log uniquely across overlapping scan windows.
type logKey struct {
	block uint64
	index uint64
}

// GatherTask polls L1 once per interval and turns LogMessageToL2 events into
// L1Handler transactions. last_scanned_block plus a dedup set of
// (block_number, log_index) make repeated/overlapping scans idempotent,
// per spec.md §4E's ordering and idempotence requirement.
type GatherTask struct {
	mu        sync.Mutex
	provider  L1Provider
	contract  [20]byte
	seen      map[logKey]struct{}
	lastBlock uint64
	logger    *log.Logger
}

// NewGatherTask constructs the task with its starting scan position.
func NewGatherTask(provider L1Provider, contract [20]byte, fromBlock uint64, logger *log.Logger) *GatherTask {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &GatherTask{
		provider:  provider,
		contract:  contract,
		seen:      make(map[logKey]struct{}),
		lastBlock: fromBlock,
		logger:    logger,
	}
}

// GatherMessages computes to_block = min(from + max, chain_tip), fetches
// logs in [from, to_block], and converts each into an L1HandlerTx. Logs
// already seen from a prior overlapping call are skipped.
func (g *GatherTask) GatherMessages(ctx context.Context, from, max uint64) (uint64, []Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tip, err := g.provider.BlockNumber(ctx)
	if err != nil {
		return 0, nil, newExecError(ErrKindRpcTransient, err)
	}
	toBlock := from + max
	if toBlock > tip {
		toBlock = tip
	}
	if toBlock < from {
		return from, nil, nil
	}

	logs, err := g.provider.LogMessagesToL2(ctx, g.contract, from, toBlock)
	if err != nil {
		return 0, nil, newExecError(ErrKindRpcTransient, err)
	}

	var txs []Transaction
	for _, l := range logs {
		key := logKey{block: l.BlockNumber, index: l.LogIndex}
		if _, dup := g.seen[key]; dup {
			continue
		}
		g.seen[key] = struct{}{}
		txs = append(txs, l1HandlerFromLog(l))
	}

	g.lastBlock = toBlock
	g.logger.WithFields(log.Fields{"from": from, "to": toBlock, "count": len(txs)}).Debug("gathered L1 messages")
	return toBlock, txs, nil
}

// LastScannedBlock reports the scan cursor, to be persisted by the caller
// across restarts.
func (g *GatherTask) LastScannedBlock() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastBlock
}

func l1HandlerFromLog(l L1Log) Transaction {
	calldata := append([]Felt{l.FromAddress.Felt()}, l.Payload...)
	tx := Transaction{
		Variant:            TxL1Handler,
		Version:            1,
		Nonce:              l.Nonce,
		ContractAddress:    l.ToAddress,
		EntryPointSelector: l.Selector,
		Calldata:           calldata,
		PaidFeeOnL1:        l.FeeOnL1,
	}
	tx.Hash = L1HandlerTxHash(l.Nonce, l.ToAddress)
	return tx
}
