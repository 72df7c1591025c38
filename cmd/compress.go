package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dzakarias/orderbook-replayer/internal/compress"
	"github.com/dzakarias/orderbook-replayer/internal/storage"
	"github.com/dzakarias/orderbook-replayer/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var compressCmd = &cobra.Command{
	Use:   "compress",
	Short: "Compress a raw orderbook file into a top-N transcript",
	Long: `Reads a raw snapshot+delta file (as recorded from the exchange, ob500 in
the name) and writes the compressed transcript next to it with the ob500
token rewritten to the output depth. The run summary is persisted via the
configured storage backend.`,
	RunE: runCompress,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(compressCmd)
	compressCmd.Flags().StringP("file", "f", "", "Path of the raw input file")
	compressCmd.Flags().IntP("depth", "d", 0, "Maximum depth of the output transcript (default from config)")
	_ = compressCmd.MarkFlagRequired("file")
}

func runCompress(cmd *cobra.Command, args []string) error {
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

	inputFile, _ := cmd.Flags().GetString("file")
	depth, _ := cmd.Flags().GetInt("depth")
	if depth == 0 {
		depth = cfg.MaxOutputDepth
	}

	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := compress.ProcessFile(ctx, inputFile, depth, logger)
	if err != nil {
		return fmt.Errorf("compress %s: %w", inputFile, err)
	}

	err = store.StoreRun(ctx, summary)
	if err != nil {
		logger.Error("store-run-error", zap.Error(err))
	}

	return nil
}

func newStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		return storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}
	return storage.NewConsoleStorage(logger), nil
}
