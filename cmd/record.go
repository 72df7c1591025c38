package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dzakarias/orderbook-replayer/internal/feed"
	"github.com/dzakarias/orderbook-replayer/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a raw orderbook stream from the exchange",
	Long: `Subscribes to the Bybit v5 public orderbook stream for one symbol and
appends each message as a raw line to the dated ob-depth file in DATA_DIR.
The output is the input format of the compress subcommand.`,
	RunE: runRecord,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringP("symbol", "s", "BTCUSDT", "Symbol to record, e.g. BTCUSDT")
	recordCmd.Flags().DurationP("duration", "t", 0, "How long to record (0 = until interrupted)")
}

func runRecord(cmd *cobra.Command, args []string) error {
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

	symbol, _ := cmd.Flags().GetString("symbol")
	duration, _ := cmd.Flags().GetDuration("duration")

	recorder := feed.NewRecorder(feed.Config{
		URL:                   cfg.BybitWSURL,
		Symbol:                symbol,
		Depth:                 cfg.FeedDepth,
		OutDir:                cfg.DataDir,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		Logger:                logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	err = recorder.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
