// Command gemini-keypool-proxy runs the authenticating reverse proxy: it
// loads the credential pool and usage ledger, builds the gin engine, and
// serves until an interrupt or termination signal arrives.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	_ "github.com/joho/godotenv/autoload"

	"github.com/Laisky/gemini-keypool-proxy/common/client"
	"github.com/Laisky/gemini-keypool-proxy/common/config"
	"github.com/Laisky/gemini-keypool-proxy/common/logger"
	"github.com/Laisky/gemini-keypool-proxy/common/metrics"
	"github.com/Laisky/gemini-keypool-proxy/controller"
	"github.com/Laisky/gemini-keypool-proxy/pool"
	"github.com/Laisky/gemini-keypool-proxy/router"
)

func main() {
	cfg := config.Load()

	log, err := logger.Init(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %+v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server failed", zap.Error(err))
		os.Exit(1)
	}

	log.Info("server shut down cleanly")
}

func run(ctx context.Context, cfg *config.Config, log glog.Logger) error {
	store, err := pool.LoadStore(cfg.KeyFilePath)
	if err != nil {
		return err
	}
	log.Info("loaded credential pool", zap.Int("count", store.Count()))

	ledger := pool.NewLedger(cfg.UsageFilePath, log)
	selector := pool.NewSelector(store, ledger)

	if cfg.EnableMetrics {
		metrics.GlobalRecorder = metrics.NewPrometheusRecorder()
	}

	httpClient := client.New(cfg.UpstreamTimeout)
	pipeline := controller.New(store, ledger, selector, cfg, httpClient)
	engine := router.New(cfg, log, pipeline)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
