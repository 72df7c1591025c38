// Package codec defines the typed wire records of the orderbook history
// pipeline: raw exchange feed messages on the way in, compressed transcript
// records on the way out. Both are line-delimited JSON.
package codec

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// Raw message types as sent by the exchange feed.
const (
	TypeSnapshot = "snapshot"
	TypeDelta    = "delta"
)

var (
	// ErrMissingType is returned for raw messages without a type field.
	ErrMissingType = errors.New("message has no type")
	// ErrUnknownType is returned for raw messages with an unrecognized type.
	ErrUnknownType = errors.New("unknown message type")
)

// RawMessage is one line of the raw exchange feed.
type RawMessage struct {
	Type string  `json:"type"`
	Ts   int64   `json:"ts"` // unix milliseconds
	Data RawData `json:"data"`
}

// RawData carries the unsorted level updates of a raw message. A size of
// "0" deletes that level; an absent or empty side means no change there.
type RawData struct {
	Seq  int64      `json:"seq"`
	Bids [][]string `json:"b"`
	Asks [][]string `json:"a"`
}

// DecodeRawMessage parses and validates one raw feed line.
func DecodeRawMessage(line []byte) (*RawMessage, error) {
	var msg RawMessage
	err := json.Unmarshal(line, &msg)
	if err != nil {
		return nil, fmt.Errorf("unmarshal raw message: %w", err)
	}

	err = msg.Validate()
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Validate checks structural validity: a known type and well-formed level
// pairs on both sides.
func (m *RawMessage) Validate() error {
	switch m.Type {
	case "":
		return ErrMissingType
	case TypeSnapshot, TypeDelta:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}

	err := validateLevels(m.Data.Bids)
	if err != nil {
		return fmt.Errorf("bids: %w", err)
	}
	err = validateLevels(m.Data.Asks)
	if err != nil {
		return fmt.Errorf("asks: %w", err)
	}
	return nil
}

// Record is one line of the compressed transcript. The first line of a file
// is a snapshot carrying the full top-N of both sides; every later line is
// a delta carrying only the levels whose top-N presence or size changed,
// with size "0" marking a level that left the top-N. A side is present only
// if it changed.
type Record struct {
	Timestamp int64      `json:"t"` // unix milliseconds
	Sequence  int64      `json:"s"`
	Bids      [][]string `json:"b,omitempty"`
	Asks      [][]string `json:"a,omitempty"`
}

// DecodeRecord parses one compressed transcript line.
func DecodeRecord(line []byte) (*Record, error) {
	var rec Record
	err := json.Unmarshal(line, &rec)
	if err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	err = validateLevels(rec.Bids)
	if err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	err = validateLevels(rec.Asks)
	if err != nil {
		return nil, fmt.Errorf("asks: %w", err)
	}
	return &rec, nil
}

// Encode serializes the record as a single JSON line without a trailing
// newline.
func (r *Record) Encode() ([]byte, error) {
	out, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return out, nil
}

func validateLevels(levels [][]string) error {
	for i, lvl := range levels {
		if len(lvl) != 2 {
			return fmt.Errorf("level %d must be a [price, size] pair, got %d elements", i, len(lvl))
		}
	}
	return nil
}
