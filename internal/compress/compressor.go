// Package compress turns a raw exchange snapshot+delta stream into a
// minimally-redundant compressed transcript: the full top-N once, then only
// the changes against the previous top-N view.
package compress

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dzakarias/orderbook-replayer/internal/book"
	"github.com/dzakarias/orderbook-replayer/internal/codec"
)

// DefaultMaxOutputDepth is the number of levels per side kept in the
// compressed transcript.
const DefaultMaxOutputDepth = 20

var (
	// ErrFirstNotSnapshot is returned when the stream does not open with a
	// snapshot message.
	ErrFirstNotSnapshot = errors.New("first message must be a snapshot")
	// ErrSnapshotMissingSide is returned for a snapshot without both sides.
	ErrSnapshotMissingSide = errors.New("snapshot must carry both bids and asks")
)

// Compressor is a streaming transducer over raw messages. It maintains the
// full book internally and emits, per input, the minimum delta against the
// previous top-N view required to reproduce every future top-N state.
//
// A Compressor is owned by a single caller; concurrent use is undefined.
type Compressor struct {
	bids     *book.Halfbook
	asks     *book.Halfbook
	maxDepth int
	first    bool
	logger   *zap.Logger
}

// New creates a compressor emitting up to maxDepth levels per side.
// maxDepth <= 0 selects DefaultMaxOutputDepth.
func New(maxDepth int, logger *zap.Logger) *Compressor {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxOutputDepth
	}
	return &Compressor{
		bids:     book.New(book.Bid),
		asks:     book.New(book.Ask),
		maxDepth: maxDepth,
		first:    true,
		logger:   logger,
	}
}

// MaxDepth returns the configured output depth.
func (c *Compressor) MaxDepth() int {
	return c.maxDepth
}

// TopBids returns the compressor's current top-N bid view.
func (c *Compressor) TopBids() []book.Level {
	return c.bids.TopN(c.maxDepth)
}

// TopAsks returns the compressor's current top-N ask view.
func (c *Compressor) TopAsks() []book.Level {
	return c.asks.TopN(c.maxDepth)
}

// Process consumes one raw message and returns the compressed record to
// append, or nil when the input changed nothing within the top-N of either
// side.
func (c *Compressor) Process(msg *codec.RawMessage) (*codec.Record, error) {
	timer := prometheus.NewTimer(ProcessingDuration)
	defer timer.ObserveDuration()

	MessagesTotal.WithLabelValues(msg.Type).Inc()

	if c.first {
		return c.processSnapshot(msg)
	}
	return c.processDelta(msg)
}

func (c *Compressor) processSnapshot(msg *codec.RawMessage) (*codec.Record, error) {
	if msg.Type != codec.TypeSnapshot {
		return nil, fmt.Errorf("%w, got %q", ErrFirstNotSnapshot, msg.Type)
	}
	if msg.Data.Bids == nil || msg.Data.Asks == nil {
		return nil, ErrSnapshotMissingSide
	}

	err := c.bids.Set(msg.Data.Bids)
	if err != nil {
		return nil, fmt.Errorf("set bids: %w", err)
	}
	err = c.asks.Set(msg.Data.Asks)
	if err != nil {
		return nil, fmt.Errorf("set asks: %w", err)
	}

	c.first = false
	c.logger.Info("snapshot-initialized",
		zap.Int64("ts", msg.Ts),
		zap.Int64("seq", msg.Data.Seq),
		zap.Int("bid-levels", c.bids.Len()),
		zap.Int("ask-levels", c.asks.Len()))

	// All top-N levels go out: they may be needed to reconstruct any future
	// state.
	return &codec.Record{
		Timestamp: msg.Ts,
		Sequence:  msg.Data.Seq,
		Bids:      encodeLevels(c.bids.TopN(c.maxDepth)),
		Asks:      encodeLevels(c.asks.TopN(c.maxDepth)),
	}, nil
}

func (c *Compressor) processDelta(msg *codec.RawMessage) (*codec.Record, error) {
	var bidDeltas, askDeltas [][]string

	// Clone, apply, diff, then swap. The diff must compare the new top-N
	// against the previous top-N as the consumer last saw it; an in-place
	// update would have already mutated the reference.
	if len(msg.Data.Bids) > 0 {
		next := c.bids.Clone()
		err := c.applyUpdates(next, msg.Data.Bids)
		if err != nil {
			return nil, fmt.Errorf("bids: %w", err)
		}
		bidDeltas = diffTopN(next.TopN(c.maxDepth), c.bids.TopN(c.maxDepth), book.Bid)
		c.bids = next
	}
	if len(msg.Data.Asks) > 0 {
		next := c.asks.Clone()
		err := c.applyUpdates(next, msg.Data.Asks)
		if err != nil {
			return nil, fmt.Errorf("asks: %w", err)
		}
		askDeltas = diffTopN(next.TopN(c.maxDepth), c.asks.TopN(c.maxDepth), book.Ask)
		c.asks = next
	}

	if len(bidDeltas) == 0 && len(askDeltas) == 0 {
		EmptyDeltasTotal.Inc()
		return nil, nil
	}

	RecordsEmittedTotal.Inc()
	return &codec.Record{
		Timestamp: msg.Ts,
		Sequence:  msg.Data.Seq,
		Bids:      bidDeltas,
		Asks:      askDeltas,
	}, nil
}

// applyUpdates applies raw level updates to a halfbook. Deletes for levels
// that never existed are tolerable noise from the upstream and only warn.
func (c *Compressor) applyUpdates(hb *book.Halfbook, updates [][]string) error {
	for _, update := range updates {
		err := hb.Update(update[0], update[1])
		if errors.Is(err, book.ErrUnknownLevel) {
			UnknownLevelDeletesTotal.Inc()
			c.logger.Warn("delete-for-unknown-level",
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

// diffTopN computes the minimal change set from oldTop to newTop: levels
// that entered or changed size are emitted with their size, levels that
// left the top-N are emitted with size "0". Unchanged levels are omitted.
func diffTopN(newTop, oldTop []book.Level, side book.Side) [][]string {
	oldView := book.NewFromLevels(side, oldTop)
	newView := book.NewFromLevels(side, newTop)

	var changes [][]string
	for _, lvl := range newTop {
		oldQty, ok := oldView.QtyAt(lvl.Price)
		if !ok || oldQty != lvl.Size {
			changes = append(changes, []string{lvl.Price.String(), lvl.Size})
		}
	}
	for _, lvl := range oldTop {
		if _, ok := newView.QtyAt(lvl.Price); !ok {
			changes = append(changes, []string{lvl.Price.String(), "0"})
		}
	}
	return changes
}

func encodeLevels(levels []book.Level) [][]string {
	out := make([][]string, len(levels))
	for i, lvl := range levels {
		out[i] = []string{lvl.Price.String(), lvl.Size}
	}
	return out
}
