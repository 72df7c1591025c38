package storage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dzakarias/orderbook-replayer/internal/compress"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger}
}

// StoreRun pretty-prints a compression run summary to console.
func (c *ConsoleStorage) StoreRun(ctx context.Context, run *compress.Summary) error {
	rule := strings.Repeat("━", 72)

	fmt.Println("\n" + rule)
	fmt.Printf("COMPRESSION RUN COMPLETE\n")
	fmt.Println(rule)
	fmt.Printf("ID:        %s\n", run.ID[:8])
	fmt.Printf("Symbol:    %s\n", run.Symbol)
	fmt.Printf("Input:     %s\n", run.InputFile)
	fmt.Printf("Output:    %s (depth %d)\n", run.OutputFile, run.MaxDepth)
	fmt.Printf("Started:   %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Elapsed:   %s\n", run.FinishedAt.Sub(run.StartedAt))
	fmt.Println(rule)
	fmt.Printf("  Messages in:   %d\n", run.MessagesIn)
	fmt.Printf("  Records out:   %d\n", run.RecordsOut)
	fmt.Printf("  Bytes in:      %d\n", run.BytesIn)
	fmt.Printf("  Bytes out:     %d\n", run.BytesOut)
	fmt.Printf("  Ratio:         %.4f\n", run.Ratio())
	fmt.Println(rule)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
