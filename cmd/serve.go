package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dzakarias/orderbook-replayer/internal/replay"
	"github.com/dzakarias/orderbook-replayer/pkg/cache"
	"github.com/dzakarias/orderbook-replayer/pkg/config"
	"github.com/dzakarias/orderbook-replayer/pkg/healthprobe"
	"github.com/dzakarias/orderbook-replayer/pkg/httpserver"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the replay API over HTTP",
	Long: `Starts the replay HTTP server. Compressed transcripts are discovered in
DATA_DIR; the API mirrors the traverser operations: list markets, select a
market, then step, skip, goto, move and reset through its history.`,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	listingCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create listing cache: %w", err)
	}
	defer listingCache.Close()

	service := replay.New(replay.Config{
		DataDir:               cfg.DataDir,
		Depth:                 cfg.MaxOutputDepth,
		CacheFrequencySeconds: cfg.CacheFrequencySeconds,
		ListingCacheTTL:       cfg.ListingCacheTTL,
		ListingCache:          listingCache,
		Logger:                logger,
	})

	healthChecker := healthprobe.New()
	server := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		ReplayService: service,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	healthChecker.SetReady(true)

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	healthChecker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	return <-errCh
}
