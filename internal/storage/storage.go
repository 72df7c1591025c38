// Package storage persists compression run summaries.
package storage

import (
	"context"

	"github.com/dzakarias/orderbook-replayer/internal/compress"
)

// Storage is the interface for recording compression runs.
type Storage interface {
	// StoreRun records one completed file compression.
	StoreRun(ctx context.Context, run *compress.Summary) error

	// Close closes the storage connection.
	Close() error
}
