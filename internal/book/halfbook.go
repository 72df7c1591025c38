package book

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Side is the polarity of a halfbook, fixed at construction.
type Side int

const (
	// Bid halfbooks are sorted by descending price: index 0 is the highest bid.
	Bid Side = iota
	// Ask halfbooks are sorted by ascending price: index 0 is the lowest ask.
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// Level is a single price level. Price comparisons are decimal-exact; Size
// keeps the exchange's original textual form ("0" denotes deletion).
type Level struct {
	Price decimal.Decimal
	Size  string
}

// ErrUnknownLevel is returned by Update when asked to delete a price level
// that is not present. Callers log it at warn and continue.
var ErrUnknownLevel = errors.New("level not present in halfbook")

// Halfbook is one side of an orderbook: a contiguous sequence of levels
// kept sorted best-first, with unique prices and no zero-size entries.
type Halfbook struct {
	side   Side
	levels []Level
}

// New creates an empty halfbook with the given polarity.
func New(side Side) *Halfbook {
	return &Halfbook{side: side}
}

// NewFromLevels creates a halfbook from levels already sorted best-first.
// The slice is copied.
func NewFromLevels(side Side, levels []Level) *Halfbook {
	h := &Halfbook{side: side}
	h.levels = make([]Level, len(levels))
	copy(h.levels, levels)
	return h
}

// Side returns the halfbook's polarity.
func (h *Halfbook) Side() Side {
	return h.side
}

// Len returns the number of levels.
func (h *Halfbook) Len() int {
	return len(h.levels)
}

// Level returns the i-th level in best-first order.
func (h *Halfbook) Level(i int) Level {
	return h.levels[i]
}

// Levels returns the underlying level sequence in best-first order.
// The returned slice must not be modified.
func (h *Halfbook) Levels() []Level {
	return h.levels
}

// Best returns the most aggressive level, or false if the book is empty.
func (h *Halfbook) Best() (Level, bool) {
	if len(h.levels) == 0 {
		return Level{}, false
	}
	return h.levels[0], true
}

// TopN returns a copy of the first n levels in best-first order.
func (h *Halfbook) TopN(n int) []Level {
	if n > len(h.levels) {
		n = len(h.levels)
	}
	top := make([]Level, n)
	copy(top, h.levels[:n])
	return top
}

// Set replaces the contents from an unsorted batch of [price, size] string
// pairs. Zero-size entries are dropped.
func (h *Halfbook) Set(raw [][]string) error {
	levels := make([]Level, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 2 {
			return fmt.Errorf("level must be a [price, size] pair, got %d elements", len(entry))
		}
		price, err := decimal.NewFromString(entry[0])
		if err != nil {
			return fmt.Errorf("parse price %q: %w", entry[0], err)
		}
		size, err := decimal.NewFromString(entry[1])
		if err != nil {
			return fmt.Errorf("parse size %q: %w", entry[1], err)
		}
		if size.IsZero() {
			continue
		}
		levels = append(levels, Level{Price: price, Size: entry[1]})
	}
	h.SetLevels(levels)
	return nil
}

// SetLevels replaces the contents from an unsorted batch of parsed levels.
// The slice is copied and sorted by polarity.
func (h *Halfbook) SetLevels(levels []Level) {
	h.levels = make([]Level, len(levels))
	copy(h.levels, levels)
	sort.Slice(h.levels, func(i, j int) bool {
		return h.moreAggressive(h.levels[i].Price, h.levels[j].Price)
	})
}

// QtyAt returns the size string at price, or false if the price is absent.
func (h *Halfbook) QtyAt(price decimal.Decimal) (string, bool) {
	idx := h.search(price)
	if idx < len(h.levels) && h.levels[idx].Price.Equal(price) {
		return h.levels[idx].Size, true
	}
	return "", false
}

// Update applies a single [price, size] update given in string form.
// A zero size deletes the level; deleting an absent level returns
// ErrUnknownLevel.
func (h *Halfbook) Update(price, size string) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return fmt.Errorf("parse price %q: %w", price, err)
	}
	return h.UpdateLevel(p, size)
}

// UpdateLevel applies a single update with a pre-parsed price.
func (h *Halfbook) UpdateLevel(price decimal.Decimal, size string) error {
	qty, err := decimal.NewFromString(size)
	if err != nil {
		return fmt.Errorf("parse size %q: %w", size, err)
	}

	idx := h.search(price)
	present := idx < len(h.levels) && h.levels[idx].Price.Equal(price)

	switch {
	case present && !qty.IsZero():
		h.levels[idx].Size = size
	case present:
		h.levels = append(h.levels[:idx], h.levels[idx+1:]...)
	case !qty.IsZero():
		h.levels = append(h.levels, Level{})
		copy(h.levels[idx+1:], h.levels[idx:])
		h.levels[idx] = Level{Price: price, Size: size}
	default:
		return fmt.Errorf("%w: delete at price %s", ErrUnknownLevel, price)
	}
	return nil
}

// Clone produces an independent copy of the halfbook.
func (h *Halfbook) Clone() *Halfbook {
	return NewFromLevels(h.side, h.levels)
}

// moreAggressive reports whether a is strictly better than b for this
// polarity: higher for bids, lower for asks.
func (h *Halfbook) moreAggressive(a, b decimal.Decimal) bool {
	if h.side == Bid {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

// search returns the index where price is, or would be inserted.
func (h *Halfbook) search(price decimal.Decimal) int {
	return sort.Search(len(h.levels), func(i int) bool {
		return !h.moreAggressive(h.levels[i].Price, price)
	})
}
