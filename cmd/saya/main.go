// Command saya runs the L1<->L2 messaging bridge: gathering L1 messages
// into L1Handler transactions, and settling L2 messages back to L1 by
// mirroring sealed blocks from a katana node over HTTP.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/stark-stack/core/core"
	"github.com/stark-stack/core/pkg/config"
	"github.com/stark-stack/core/pkg/utils"
)

// mirrorChainStore pulls sealed blocks from a katana node's HTTP API and
// replays them into a local *core.ChainStore, giving the settle loop the
// BlockHashOf/Block/LatestNumber surface it needs without requiring saya to
// run in-process with katana.
type mirrorChainStore struct {
	store   *core.ChainStore
	baseURL string
	client  *http.Client
	logger  *log.Logger
	next    core.BlockNumber
}

func newMirrorChainStore(baseURL string, logger *log.Logger) *mirrorChainStore {
	return &mirrorChainStore{
		store:   core.NewChainStore(256, 16, logger),
		baseURL: baseURL,
		client:  http.DefaultClient,
		logger:  logger,
	}
}

// sync fetches every block from the last mirrored number onward and appends
// it locally, stopping at katana's current tip (a 404 past the last sealed
// block).
func (m *mirrorChainStore) sync(ctx context.Context) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/block?number=%d", m.baseURL, uint64(m.next)), nil)
		if err != nil {
			m.logger.WithError(err).Warn("mirror: build request")
			return
		}
		resp, err := m.client.Do(req)
		if err != nil {
			m.logger.WithError(err).Warn("mirror: fetch block")
			return
		}
		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return
		}
		var block core.Block
		decodeErr := json.NewDecoder(resp.Body).Decode(&block)
		resp.Body.Close()
		if decodeErr != nil {
			m.logger.WithError(decodeErr).Warn("mirror: decode block")
			return
		}
		if _, err := m.store.AppendBlock(block.Header.Hash, &block, core.NewStateDiff(), nil); err != nil {
			m.logger.WithError(err).Warn("mirror: append block")
			return
		}
		m.next++
	}
}

func (m *mirrorChainStore) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	m.sync(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sync(ctx)
		}
	}
}

func main() {
	logger := log.StandardLogger()

	if _, err := config.LoadFromEnv(); err != nil {
		logger.WithError(err).Warn("no config file found, continuing with defaults")
	}
	cfg := config.AppConfig

	rpcURL := cfg.Bridge.RPCURL
	if rpcURL == "" {
		rpcURL = utils.EnvOrDefault("SAYA_L1_RPC_URL", "http://127.0.0.1:8545")
	}
	privateKey := cfg.Bridge.PrivateKey
	if privateKey == "" {
		privateKey = os.Getenv("SAYA_L1_PRIVATE_KEY")
	}
	if privateKey == "" {
		logger.Fatal("SAYA_L1_PRIVATE_KEY (or bridge.private_key) is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := core.NewEthProvider(ctx, rpcURL, privateKey)
	if err != nil {
		logger.WithError(err).Fatal("connect to L1")
	}

	contractHex := cfg.Bridge.ContractAddress
	if contractHex == "" {
		contractHex = utils.EnvOrDefault("SAYA_MESSAGING_CONTRACT", "")
	}
	contract, err := decodeContractAddress(contractHex)
	if err != nil {
		logger.WithError(err).Fatal("parse messaging contract address")
	}

	katanaURL := utils.EnvOrDefault("SAYA_KATANA_URL", "http://127.0.0.1:5050")
	mirror := newMirrorChainStore(katanaURL, logger)
	go mirror.run(ctx, 5*time.Second)

	fromBlock := cfg.Bridge.FromBlock
	intervalBlocks := cfg.Bridge.IntervalBlocks
	if intervalBlocks == 0 {
		intervalBlocks = utils.EnvOrDefaultUint64("SAYA_INTERVAL_BLOCKS", 15)
	}

	gather := core.NewGatherTask(provider, contract, fromBlock, logger)
	settle := core.NewSettleTask(provider, contract, logger)
	bridgeCfg := core.BridgeConfig{
		RPCURL:          rpcURL,
		PrivateKey:      privateKey,
		ContractAddress: contract,
		IntervalBlocks:  intervalBlocks,
		FromBlock:       fromBlock,
	}
	bridge := core.NewBridge(gather, settle, mirror.store, bridgeCfg, logger)

	logger.Info("saya bridge starting")
	if err := bridge.Run(ctx, func(txs []core.Transaction) {
		logger.Infof("gathered %d L1Handler transactions from L1", len(txs))
	}); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("bridge stopped")
	}
	logger.Info("saya bridge shut down")
}

func decodeContractAddress(s string) ([20]byte, error) {
	var out [20]byte
	b, err := hex.DecodeString(trimHex(s))
	if err != nil {
		return out, err
	}
	copy(out[20-len(b):], b)
	return out, nil
}

func trimHex(s string) string {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
