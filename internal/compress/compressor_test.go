package compress

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dzakarias/orderbook-replayer/internal/codec"
)

func snapshotMsg(ts, seq int64, bids, asks [][]string) *codec.RawMessage {
	return &codec.RawMessage{
		Type: codec.TypeSnapshot,
		Ts:   ts,
		Data: codec.RawData{Seq: seq, Bids: bids, Asks: asks},
	}
}

func deltaMsg(ts, seq int64, bids, asks [][]string) *codec.RawMessage {
	return &codec.RawMessage{
		Type: codec.TypeDelta,
		Ts:   ts,
		Data: codec.RawData{Seq: seq, Bids: bids, Asks: asks},
	}
}

func TestFirstMessageMustBeSnapshot(t *testing.T) {
	c := New(20, zap.NewNop())

	_, err := c.Process(deltaMsg(1000, 1, [][]string{{"100", "10"}}, nil))
	assert.True(t, errors.Is(err, ErrFirstNotSnapshot))
}

func TestSnapshotMustCarryBothSides(t *testing.T) {
	c := New(20, zap.NewNop())

	_, err := c.Process(snapshotMsg(1000, 1, [][]string{{"100", "10"}}, nil))
	assert.True(t, errors.Is(err, ErrSnapshotMissingSide))
}

func TestSnapshotThenDelta(t *testing.T) {
	c := New(20, zap.NewNop())

	rec, err := c.Process(snapshotMsg(1000, 1,
		[][]string{{"100", "10"}, {"99", "5"}},
		[][]string{{"101", "7"}}))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(1000), rec.Timestamp)
	assert.Equal(t, int64(1), rec.Sequence)
	assert.Equal(t, [][]string{{"100", "10"}, {"99", "5"}}, rec.Bids)
	assert.Equal(t, [][]string{{"101", "7"}}, rec.Asks)

	rec, err = c.Process(deltaMsg(1100, 2, [][]string{{"100", "20"}}, nil))
	require.NoError(t, err)
	require.NotNil(t, rec)

	encoded, err := rec.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"t":1100,"s":2,"b":[["100","20"]]}`, string(encoded))
}

func deltaSet(entries [][]string) map[[2]string]bool {
	set := make(map[[2]string]bool, len(entries))
	for _, e := range entries {
		set[[2]string{e[0], e[1]}] = true
	}
	return set
}

func TestDeltaEmission(t *testing.T) {
	c := New(3, zap.NewNop())

	_, err := c.Process(snapshotMsg(1000, 1,
		[][]string{{"101", "15"}, {"100", "10"}, {"99", "5"}},
		[][]string{{"102", "1"}}))
	require.NoError(t, err)

	// 100 resized, 99 removed, 98 enters: the delta is exactly those three.
	rec, err := c.Process(deltaMsg(1100, 2,
		[][]string{{"100", "20"}, {"99", "0"}, {"98", "7"}}, nil))
	require.NoError(t, err)
	require.NotNil(t, rec)

	expected := map[[2]string]bool{
		{"100", "20"}: true,
		{"98", "7"}:   true,
		{"99", "0"}:   true,
	}
	assert.Equal(t, expected, deltaSet(rec.Bids))
	assert.Empty(t, rec.Asks)
}

func TestPushedOutLevelEmittedAsZero(t *testing.T) {
	c := New(2, zap.NewNop())

	_, err := c.Process(snapshotMsg(1000, 1,
		[][]string{{"100", "10"}, {"99", "5"}},
		[][]string{{"101", "1"}}))
	require.NoError(t, err)

	// A better bid pushes 99 out of the top-2 even though it still exists
	// deeper in the book.
	rec, err := c.Process(deltaMsg(1100, 2, [][]string{{"100.5", "3"}}, nil))
	require.NoError(t, err)
	require.NotNil(t, rec)

	expected := map[[2]string]bool{
		{"100.5", "3"}: true,
		{"99", "0"}:    true,
	}
	assert.Equal(t, expected, deltaSet(rec.Bids))

	// Removing the pushed-in level restores 99 into the top-2.
	rec, err = c.Process(deltaMsg(1200, 3, [][]string{{"100.5", "0"}}, nil))
	require.NoError(t, err)
	require.NotNil(t, rec)
	expected = map[[2]string]bool{
		{"99", "5"}:    true,
		{"100.5", "0"}: true,
	}
	assert.Equal(t, expected, deltaSet(rec.Bids))
}

func TestNoRecordWhenTopNUnchanged(t *testing.T) {
	c := New(1, zap.NewNop())

	_, err := c.Process(snapshotMsg(1000, 1,
		[][]string{{"100", "10"}, {"99", "5"}},
		[][]string{{"101", "7"}}))
	require.NoError(t, err)

	// Updating a level below the output depth changes nothing visible.
	rec, err := c.Process(deltaMsg(1100, 2, [][]string{{"99", "6"}}, nil))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestUnknownLevelDeleteIsTolerated(t *testing.T) {
	c := New(20, zap.NewNop())

	_, err := c.Process(snapshotMsg(1000, 1,
		[][]string{{"100", "10"}},
		[][]string{{"101", "7"}}))
	require.NoError(t, err)

	rec, err := c.Process(deltaMsg(1100, 2, [][]string{{"55", "0"}}, nil))
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDeltaParseErrorPropagates(t *testing.T) {
	c := New(20, zap.NewNop())

	_, err := c.Process(snapshotMsg(1000, 1,
		[][]string{{"100", "10"}},
		[][]string{{"101", "7"}}))
	require.NoError(t, err)

	_, err = c.Process(deltaMsg(1100, 2, [][]string{{"bogus", "1"}}, nil))
	assert.Error(t, err)
}

func TestBothSidesInOneDelta(t *testing.T) {
	c := New(20, zap.NewNop())

	_, err := c.Process(snapshotMsg(1000, 1,
		[][]string{{"100", "10"}},
		[][]string{{"101", "7"}}))
	require.NoError(t, err)

	rec, err := c.Process(deltaMsg(1100, 2,
		[][]string{{"100", "11"}},
		[][]string{{"101", "0"}, {"102", "2"}}))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, map[[2]string]bool{{"100", "11"}: true}, deltaSet(rec.Bids))
	assert.Equal(t, map[[2]string]bool{{"101", "0"}: true, {"102", "2"}: true}, deltaSet(rec.Asks))
}
