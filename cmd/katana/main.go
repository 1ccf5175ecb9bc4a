// Command katana runs a standalone chain node: it builds genesis block
// storage and serves the latest and individual sealed blocks over HTTP. It
// runs no pending block and no messaging bridge.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/stark-stack/core/core"
	"github.com/stark-stack/core/pkg/config"
	"github.com/stark-stack/core/pkg/utils"
)

func main() {
	logger := log.StandardLogger()

	if _, err := config.LoadFromEnv(); err != nil {
		logger.WithError(err).Warn("no config file found, continuing with defaults")
	}
	cfg := config.AppConfig

	inMemoryLimit := cfg.Chain.InMemoryLimit
	if inMemoryLimit == 0 {
		inMemoryLimit = utils.EnvOrDefaultInt("KATANA_IN_MEMORY_LIMIT", 256)
	}
	minInMemoryLimit := cfg.Chain.MinInMemoryLimit
	if minInMemoryLimit == 0 {
		minInMemoryLimit = utils.EnvOrDefaultInt("KATANA_MIN_IN_MEMORY_LIMIT", 16)
	}

	store := core.NewChainStore(inMemoryLimit, minInMemoryLimit, logger)

	chainID := cfg.Chain.ID
	if chainID == "" {
		chainID = utils.EnvOrDefault("KATANA_CHAIN_ID", "SN_SEPOLIA")
	}
	spec := core.ChainSpec{
		ChainID:          chainID,
		GasPrice:         orDefaultUint64(cfg.Chain.GasPrice, 1),
		Timestamp:        0,
		SequencerAddress: core.AddressFromFelt(mustFelt(cfg.Chain.SequencerAddress, "0x1")),
	}
	var genesisState core.StateRef
	if _, err := store.NewGenesis(spec, genesisState); err != nil {
		logger.WithError(err).Fatal("build genesis block")
	}

	listenAddr := cfg.Chain.RPCListenAddr
	if listenAddr == "" {
		listenAddr = utils.EnvOrDefault("KATANA_RPC_ADDR", "127.0.0.1:5050")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		number, ok := store.LatestNumber()
		hash, _ := store.LatestHash()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"number": number,
			"hash":   hash.Hex(),
			"known":  ok,
		})
	})
	mux.HandleFunc("/block", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.ParseUint(r.URL.Query().Get("number"), 10, 64)
		if err != nil {
			http.Error(w, "invalid number", http.StatusBadRequest)
			return
		}
		hash, ok := store.BlockHashOf(core.NumberBlockID(core.BlockNumber(n)))
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		block, err := store.Block(hash)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(block)
	})

	server := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		logger.Infof("katana listening on %s", listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("rpc server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutting down")
	_ = server.Shutdown(context.Background())
}

func mustFelt(s, fallback string) core.Felt {
	if s == "" {
		s = fallback
	}
	f, err := core.FeltFromHexOrDec(s)
	if err != nil {
		f, _ = core.FeltFromHexOrDec(fallback)
	}
	return f
}

func orDefaultUint64(v, fallback uint64) uint64 {
	if v == 0 {
		return fallback
	}
	return v
}
