// Command torii runs the world-state indexer: a staged pipeline that reads
// sealed blocks from a katana node over HTTP and writes canonical rows to a
// relational store.
package main

import (
	"context"
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

// httpBlockSource reads sealed blocks from a katana node's /block endpoint.
type httpBlockSource struct {
	baseURL string
	client  *http.Client
}

func (s *httpBlockSource) BlockByNumber(ctx context.Context, number core.BlockNumber) (*core.Block, bool, error) {
	url := fmt.Sprintf("%s/block?number=%d", s.baseURL, uint64(number))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("torii: katana returned %s for block %d", resp.Status, number)
	}
	var block core.Block
	if err := json.NewDecoder(resp.Body).Decode(&block); err != nil {
		return nil, false, err
	}
	return &block, true, nil
}

func (s *httpBlockSource) LatestNumber(ctx context.Context) (core.BlockNumber, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/latest", nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	var out struct {
		Number core.BlockNumber `json:"number"`
		Known  bool              `json:"known"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, false, err
	}
	return out.Number, out.Known, nil
}

// indexStage adapts an Indexer into the pipeline's Stage contract, walking
// the chunk's block-number range one block at a time.
type indexStage struct {
	source *httpBlockSource
	index  *core.Indexer
}

func (s *indexStage) ID() string { return "world" }

func (s *indexStage) Execute(ctx context.Context, input core.StageInput) error {
	for n := input.From; n <= input.To; n++ {
		block, ok, err := s.source.BlockByNumber(ctx, n)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := s.index.ProcessBlock(ctx, block); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	logger := log.StandardLogger()

	if _, err := config.LoadFromEnv(); err != nil {
		logger.WithError(err).Warn("no config file found, continuing with defaults")
	}
	cfg := config.AppConfig

	dbPath := cfg.Store.DBPath
	if dbPath == "" {
		dbPath = utils.EnvOrDefault("TORII_DB_PATH", "torii.db")
	}
	store, err := core.OpenStore(dbPath)
	if err != nil {
		logger.WithError(err).Fatal("open store")
	}
	defer store.Close()

	registry := core.NewRegistry()
	if cfg.Store.WorldAddress != "" {
		if f, err := core.FeltFromHexOrDec(cfg.Store.WorldAddress); err == nil {
			registry.WatchWorld(core.AddressFromFelt(f))
		}
	}
	registry.RegisterEventProcessor(core.NewModelRegisteredProcessor(store, nil))
	registry.RegisterEventProcessor(core.NewContractDeployedProcessor(store, nil))
	registry.RegisterEventProcessor(core.NewContractUpgradedProcessor(store, nil))

	indexer := core.NewIndexer(store, registry, logger)

	katanaURL := utils.EnvOrDefault("TORII_KATANA_URL", "http://127.0.0.1:5050")
	source := &httpBlockSource{baseURL: katanaURL, client: http.DefaultClient}
	stage := &indexStage{source: source, index: indexer}

	chunkSize := core.BlockNumber(cfg.Pipeline.ChunkSize)
	if chunkSize == 0 {
		chunkSize = core.BlockNumber(utils.EnvOrDefaultUint64("TORII_CHUNK_SIZE", 1000))
	}

	pipeline := core.NewPipeline([]core.Stage{stage}, store, chunkSize, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go pollTip(ctx, pipeline, source, logger)
	go func() {
		if err := pipeline.Run(ctx); err != nil {
			logger.WithError(err).Error("indexing pipeline stopped")
		}
	}()

	listenAddr := utils.EnvOrDefault("TORII_HTTP_ADDR", "127.0.0.1:8080")
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": pipeline.Status().String()})
	})

	server := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		logger.Infof("torii listening on %s", listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	pipeline.Close()
	_ = server.Shutdown(context.Background())
}

// pollTip periodically reads katana's tip and feeds it to the pipeline's
// watched-tip slot, since torii has no push subscription to the chain node.
func pollTip(ctx context.Context, pipeline *core.Pipeline, source *httpBlockSource, logger *log.Logger) {
	interval := time.Duration(utils.EnvOrDefaultInt("TORII_POLL_INTERVAL_MS", 2000)) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			number, ok, err := source.LatestNumber(ctx)
			if err != nil {
				logger.WithError(err).Warn("poll katana tip")
				continue
			}
			if ok {
				pipeline.SetTip(number)
			}
		}
	}
}
