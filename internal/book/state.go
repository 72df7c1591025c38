package book

import "github.com/shopspring/decimal"

// State is a full reconstructed orderbook at a point in the transcript:
// both halfbooks plus the upstream timestamp and sequence number.
type State struct {
	Bids      *Halfbook
	Asks      *Halfbook
	Timestamp int64 // unix milliseconds
	Sequence  int64
}

// NewState creates an empty state with correctly-polarized halfbooks.
func NewState() *State {
	return &State{
		Bids: New(Bid),
		Asks: New(Ask),
	}
}

// Clone deep-copies the state. Checkpoints rely on this: later mutation of
// the live state must not reach the copy.
func (s *State) Clone() *State {
	return &State{
		Bids:      s.Bids.Clone(),
		Asks:      s.Asks.Clone(),
		Timestamp: s.Timestamp,
		Sequence:  s.Sequence,
	}
}

// BestBid returns the highest bid price, or false on an empty side.
func (s *State) BestBid() (decimal.Decimal, bool) {
	lvl, ok := s.Bids.Best()
	return lvl.Price, ok
}

// BestAsk returns the lowest ask price, or false on an empty side.
func (s *State) BestAsk() (decimal.Decimal, bool) {
	lvl, ok := s.Asks.Best()
	return lvl.Price, ok
}

// PriceRange is the extremes of the top of book observed across an interval.
type PriceRange struct {
	LowestAsk  decimal.Decimal
	HighestBid decimal.Decimal
	StartTime  int64 // unix milliseconds
	EndTime    int64 // unix milliseconds
}
