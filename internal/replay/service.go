// Package replay manages traverser sessions for the HTTP surface: market
// discovery on disk, market selection, and operation dispatch.
package replay

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dzakarias/orderbook-replayer/internal/book"
	"github.com/dzakarias/orderbook-replayer/internal/traverse"
	"github.com/dzakarias/orderbook-replayer/pkg/cache"
)

var (
	// ErrNoMarketSelected is returned by operations before SelectMarket.
	ErrNoMarketSelected = errors.New("no market selected")
	// ErrMarketNotFound is returned when no transcript exists for the
	// requested symbol and date.
	ErrMarketNotFound = errors.New("market data not found")
)

const dateLayout = "2006-01-02"

// Config holds replay service configuration.
type Config struct {
	DataDir               string
	Depth                 int // depth token of transcript filenames
	CacheFrequencySeconds int
	ListingCacheTTL       time.Duration
	ListingCache          cache.Cache // optional
	Logger                *zap.Logger
}

// Service owns at most one live traverser and serializes operations on it.
// The traverser itself is single-owner; the service interposes at operation
// granularity.
type Service struct {
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	traverser *traverse.Traverser
}

// New creates a new replay service.
func New(cfg Config) *Service {
	return &Service{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// AvailableMarkets lists the symbols with a transcript for the given date.
// Listings are served from the TTL cache when one is configured.
func (s *Service) AvailableMarkets(date time.Time) ([]string, error) {
	day := date.Format(dateLayout)
	cacheKey := "listing:" + day

	if s.cfg.ListingCache != nil {
		if cached, ok := s.cfg.ListingCache.Get(cacheKey); ok {
			if symbols, ok := cached.([]string); ok {
				return symbols, nil
			}
		}
	}

	entries, err := os.ReadDir(s.cfg.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	suffix := fmt.Sprintf("_ob%d.data", s.cfg.Depth)
	symbols := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, day+"_") || !strings.HasSuffix(name, suffix) {
			continue
		}
		parts := strings.Split(name, "_")
		if len(parts) != 3 {
			continue
		}
		symbols = append(symbols, parts[1])
	}

	if s.cfg.ListingCache != nil {
		s.cfg.ListingCache.Set(cacheKey, symbols, s.cfg.ListingCacheTTL)
	}
	return symbols, nil
}

// SelectMarket loads the transcript for a symbol and date, replacing any
// previously selected market.
func (s *Service) SelectMarket(symbol string, date time.Time) error {
	filename := filepath.Join(s.cfg.DataDir,
		fmt.Sprintf("%s_%s_ob%d.data", date.Format(dateLayout), symbol, s.cfg.Depth))

	if _, err := os.Stat(filename); err != nil {
		return fmt.Errorf("%w: %s", ErrMarketNotFound, filename)
	}

	traverser, err := traverse.New(symbol, filename, s.cfg.CacheFrequencySeconds, s.logger)
	if err != nil {
		return fmt.Errorf("open market %s: %w", symbol, err)
	}

	s.mu.Lock()
	s.traverser = traverser
	s.mu.Unlock()

	MarketsSelectedTotal.Inc()
	s.logger.Info("market-selected",
		zap.String("symbol", symbol),
		zap.String("date", date.Format(dateLayout)))
	return nil
}

// Step advances one update set and returns the resulting view.
func (s *Service) Step() (*book.OrderBook, error) {
	return s.do(func(t *traverse.Traverser) error { return t.Step() })
}

// Skip moves by seconds (negative rewinds) and returns the resulting view.
func (s *Service) Skip(seconds float64) (*book.OrderBook, error) {
	return s.do(func(t *traverse.Traverser) error { return t.Skip(seconds) })
}

// Goto seeks to a millisecond timestamp via Traverser.At and returns the
// view.
func (s *Service) Goto(timestampMilli int64) (*book.OrderBook, error) {
	return s.do(func(t *traverse.Traverser) error { return t.At(timestampMilli) })
}

// Reset reloads the initial snapshot and returns the view.
func (s *Service) Reset() (*book.OrderBook, error) {
	return s.do(func(t *traverse.Traverser) error { return t.Reset() })
}

// Move advances by a positive interval, returning the observed price range
// along with the resulting view.
func (s *Service) Move(seconds float64) (*book.PriceRange, *book.OrderBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.traverser == nil {
		return nil, nil, ErrNoMarketSelected
	}
	priceRange, err := s.traverser.Move(seconds)
	if err != nil {
		OperationErrorsTotal.Inc()
		return nil, nil, err
	}
	return priceRange, s.traverser.Orderbook(), nil
}

// Orderbook returns the current view without moving.
func (s *Service) Orderbook() (*book.OrderBook, error) {
	return s.do(func(t *traverse.Traverser) error { return nil })
}

func (s *Service) do(op func(*traverse.Traverser) error) (*book.OrderBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.traverser == nil {
		return nil, ErrNoMarketSelected
	}
	err := op(s.traverser)
	if err != nil {
		OperationErrorsTotal.Inc()
		return nil, err
	}
	return s.traverser.Orderbook(), nil
}
