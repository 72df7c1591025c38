package traverse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dzakarias/orderbook-replayer/internal/book"
	"github.com/dzakarias/orderbook-replayer/internal/codec"
)

// DefaultCacheFrequencySeconds is the minimum logical-time spacing between
// checkpoints inserted while reading forward.
const DefaultCacheFrequencySeconds = 10

// ErrNonPositiveInterval is returned by Move for a non-positive interval.
var ErrNonPositiveInterval = errors.New("move requires a positive interval")

// Checkpoint is a cached (state, file offset) pair allowing the traverser
// to rewind or jump without replaying from the snapshot.
type Checkpoint struct {
	State  *book.State
	Offset int64
}

// Clone deep-copies the checkpoint, satisfying the cache's Cloner.
func (c Checkpoint) Clone() Checkpoint {
	return Checkpoint{State: c.State.Clone(), Offset: c.Offset}
}

// Traverser is a random-access reader over a compressed transcript. It
// reconstructs the book by applying delta records forward from the nearest
// checkpoint at or before the requested time.
//
// Invariant: state.Timestamp <= currentTS < timestamp of the record at pos.
// currentTS is the logical time the caller asked to observe; it may sit in
// the gap between two records.
//
// A Traverser is owned by a single caller; concurrent use is undefined.
// After a failed operation the state is unspecified and the caller should
// Reset.
type Traverser struct {
	symbol         string
	filename       string
	cacheFreqMilli int64

	state     *book.State
	pos       int64 // byte offset of the next record to apply
	currentTS int64
	initialTS int64

	cache  *FPCache[Checkpoint]
	logger *zap.Logger
}

// stopFunc is consulted for each record before it is applied; returning
// true terminates the read loop without applying the record or advancing
// the position.
type stopFunc func(rec *codec.Record) bool

// New opens a compressed transcript and loads its initial snapshot.
// cacheFrequencySeconds <= 0 selects the default.
func New(symbol, filename string, cacheFrequencySeconds int, logger *zap.Logger) (*Traverser, error) {
	if cacheFrequencySeconds <= 0 {
		cacheFrequencySeconds = DefaultCacheFrequencySeconds
	}
	t := &Traverser{
		symbol:         symbol,
		filename:       filename,
		cacheFreqMilli: int64(cacheFrequencySeconds) * 1000,
		cache:          NewFPCache[Checkpoint](),
		logger:         logger,
	}

	err := t.loadInitialSnapshot()
	if err != nil {
		return nil, err
	}
	t.initialTS = t.currentTS

	logger.Info("traverser-initialized",
		zap.String("symbol", symbol),
		zap.String("file", filename),
		zap.Int64("initial-ts", t.initialTS))
	return t, nil
}

// Symbol returns the symbol this traverser replays.
func (t *Traverser) Symbol() string {
	return t.symbol
}

// State returns the currently reconstructed state. The returned value is
// live and mutated by subsequent operations.
func (t *Traverser) State() *book.State {
	return t.state
}

// CurrentTimestamp returns the logical observation time in milliseconds.
func (t *Traverser) CurrentTimestamp() int64 {
	return t.currentTS
}

// InitialTimestamp returns the snapshot timestamp, the lower bound of any
// seek.
func (t *Traverser) InitialTimestamp() int64 {
	return t.initialTS
}

// BestBid returns the current highest bid price.
func (t *Traverser) BestBid() (decimal.Decimal, bool) {
	return t.state.BestBid()
}

// BestAsk returns the current lowest ask price.
func (t *Traverser) BestAsk() (decimal.Decimal, bool) {
	return t.state.BestAsk()
}

// Orderbook projects the current state into the float-valued consumer view.
func (t *Traverser) Orderbook() *book.OrderBook {
	return book.Project(t.symbol, t.state, t.currentTS)
}

// Step advances past exactly one update set: all contiguous records sharing
// the first unread record's timestamp.
func (t *Traverser) Step() error {
	OperationsTotal.WithLabelValues("step").Inc()

	var setTS int64
	haveTS := false
	err := t.readFromCurrent(func(rec *codec.Record) bool {
		if !haveTS {
			setTS = rec.Timestamp
			haveTS = true
			return false
		}
		return rec.Timestamp > setTS
	})
	if err != nil {
		return err
	}
	t.currentTS = t.state.Timestamp
	return nil
}

// Skip moves the observation time by the given number of seconds, negative
// values rewinding via the checkpoint cache. The target is clamped to the
// initial snapshot timestamp.
func (t *Traverser) Skip(seconds float64) error {
	OperationsTotal.WithLabelValues("skip").Inc()

	target := t.currentTS + int64(seconds*1000)
	if target < t.initialTS {
		target = t.initialTS
	}

	ckpt, ok := t.cache.Get(target)
	if ok {
		CacheHitsTotal.Inc()
		// The cache keeps the authoritative copy: restore a clone so later
		// mutation of the live state cannot reach it.
		t.state = ckpt.State.Clone()
		t.pos = ckpt.Offset
		if t.state.Timestamp == target {
			t.currentTS = target
			return nil
		}
	} else {
		// No checkpoint at or before target: start over from the snapshot.
		CacheMissesTotal.Inc()
		err := t.loadInitialSnapshot()
		if err != nil {
			return err
		}
	}

	err := t.readFromCurrent(func(rec *codec.Record) bool {
		return rec.Timestamp > target
	})
	if err != nil {
		return err
	}
	t.currentTS = target
	return nil
}

// At seeks to a timestamp in milliseconds by skipping
// (timestampMilli - State().Timestamp) / 1000 seconds. Skip adds that offset
// to the logical time, so At lands exactly on timestampMilli when the logical
// time equals the state's timestamp (after New, Reset or Step); after a Skip
// or Move that ended between records, the target is shifted by that gap.
func (t *Traverser) At(timestampMilli int64) error {
	return t.Skip(float64(timestampMilli-t.state.Timestamp) / 1000.0)
}

// Move advances by a positive number of seconds while tracking the lowest
// best ask and highest best bid observed. It never consults the cache: every
// intermediate record must be observed.
func (t *Traverser) Move(seconds float64) (*book.PriceRange, error) {
	if seconds <= 0 {
		return nil, fmt.Errorf("%w: %f", ErrNonPositiveInterval, seconds)
	}
	OperationsTotal.WithLabelValues("move").Inc()

	startTime := t.currentTS
	target := t.currentTS + int64(seconds*1000)

	lowestAsk, haveAsk := t.state.BestAsk()
	highestBid, haveBid := t.state.BestBid()
	observe := func() {
		if ask, ok := t.state.BestAsk(); ok && (!haveAsk || ask.LessThan(lowestAsk)) {
			lowestAsk = ask
			haveAsk = true
		}
		if bid, ok := t.state.BestBid(); ok && (!haveBid || bid.GreaterThan(highestBid)) {
			highestBid = bid
			haveBid = true
		}
	}

	err := t.readFromCurrent(func(rec *codec.Record) bool {
		observe()
		return rec.Timestamp > target
	})
	if err != nil {
		return nil, err
	}
	observe()

	t.currentTS = target
	return &book.PriceRange{
		LowestAsk:  lowestAsk,
		HighestBid: highestBid,
		StartTime:  startTime,
		EndTime:    t.currentTS,
	}, nil
}

// Reset reloads the initial snapshot. The checkpoint cache is preserved.
func (t *Traverser) Reset() error {
	OperationsTotal.WithLabelValues("reset").Inc()
	return t.loadInitialSnapshot()
}

// loadInitialSnapshot parses line 1 as the snapshot and positions the
// traverser at line 2.
func (t *Traverser) loadInitialSnapshot() error {
	f, err := os.Open(t.filename)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader := bufio.NewReader(f)
	line, err := reader.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return fmt.Errorf("read snapshot line: %w", err)
	}

	rec, err := codec.DecodeRecord(line)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	state := book.NewState()
	err = state.Bids.Set(rec.Bids)
	if err != nil {
		return fmt.Errorf("snapshot bids: %w", err)
	}
	err = state.Asks.Set(rec.Asks)
	if err != nil {
		return fmt.Errorf("snapshot asks: %w", err)
	}
	state.Timestamp = rec.Timestamp
	state.Sequence = rec.Sequence

	t.state = state
	t.currentTS = state.Timestamp
	t.pos = int64(len(line))
	if t.cache.Add(state.Timestamp, Checkpoint{State: state, Offset: t.pos}) {
		CheckpointsStoredTotal.Inc()
	}
	return nil
}

// readFromCurrent opens the transcript at the current position and applies
// records until stop fires or EOF. The position advances and a checkpoint
// may be inserted only after a completed (non-terminated) application.
func (t *Traverser) readFromCurrent(stop stopFunc) error {
	timer := prometheus.NewTimer(ReadLoopDuration)
	defer timer.ObserveDuration()

	f, err := os.Open(t.filename)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	_, err = f.Seek(t.pos, io.SeekStart)
	if err != nil {
		return fmt.Errorf("seek transcript: %w", err)
	}

	reader := bufio.NewReader(f)
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) == 0 {
			if readErr == io.EOF {
				return nil
			}
			if readErr != nil {
				return fmt.Errorf("read transcript: %w", readErr)
			}
			continue
		}

		rec, err := codec.DecodeRecord(line)
		if err != nil {
			return err
		}

		if stop(rec) {
			return nil
		}

		err = t.processUpdate(rec)
		if err != nil {
			return err
		}
		t.pos += int64(len(line))
		RecordsAppliedTotal.Inc()
		t.addToCacheIfNeeded()

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read transcript: %w", readErr)
		}
	}
}

// processUpdate applies one delta record to the current state.
func (t *Traverser) processUpdate(rec *codec.Record) error {
	err := t.applySide(t.state.Bids, rec.Bids)
	if err != nil {
		return fmt.Errorf("bids: %w", err)
	}
	err = t.applySide(t.state.Asks, rec.Asks)
	if err != nil {
		return fmt.Errorf("asks: %w", err)
	}
	t.state.Timestamp = rec.Timestamp
	t.state.Sequence = rec.Sequence
	return nil
}

func (t *Traverser) applySide(hb *book.Halfbook, updates [][]string) error {
	for _, update := range updates {
		err := hb.Update(update[0], update[1])
		if errors.Is(err, book.ErrUnknownLevel) {
			t.logger.Warn("delete-for-unknown-level",
				zap.String("side", hb.Side().String()),
				zap.String("price", update[0]))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// addToCacheIfNeeded checkpoints the current state once the last cached
// entry is more than the cache frequency behind.
func (t *Traverser) addToCacheIfNeeded() {
	lastKey, ok := t.cache.LastKey()
	if ok && t.state.Timestamp-lastKey <= t.cacheFreqMilli {
		return
	}
	if t.cache.Add(t.state.Timestamp, Checkpoint{State: t.state, Offset: t.pos}) {
		CheckpointsStoredTotal.Inc()
	}
}
