package book

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func level(price, size string) Level {
	return Level{Price: decimal.RequireFromString(price), Size: size}
}

func assertLevels(t *testing.T, hb *Halfbook, expected []Level) {
	t.Helper()
	require.Equal(t, len(expected), hb.Len())
	for i, want := range expected {
		got := hb.Level(i)
		assert.True(t, got.Price.Equal(want.Price), "level %d: price %s != %s", i, got.Price, want.Price)
		assert.Equal(t, want.Size, got.Size, "level %d size", i)
	}
}

func TestHalfbookBid(t *testing.T) {
	hb := New(Bid)
	err := hb.Set([][]string{{"100", "10"}, {"99", "5"}, {"101", "15"}})
	require.NoError(t, err)

	assertLevels(t, hb, []Level{level("101", "15"), level("100", "10"), level("99", "5")})

	qty, ok := hb.QtyAt(decimal.RequireFromString("100"))
	require.True(t, ok)
	assert.Equal(t, "10", qty)

	_, ok = hb.QtyAt(decimal.RequireFromString("102"))
	assert.False(t, ok)

	top := hb.TopN(2)
	require.Len(t, top, 2)
	assert.True(t, top[0].Price.Equal(decimal.RequireFromString("101")))
	assert.True(t, top[1].Price.Equal(decimal.RequireFromString("100")))

	require.NoError(t, hb.Update("100", "20"))
	qty, ok = hb.QtyAt(decimal.RequireFromString("100"))
	require.True(t, ok)
	assert.Equal(t, "20", qty)

	require.NoError(t, hb.Update("102", "25"))
	require.NoError(t, hb.Update("99.5", "25"))
	require.NoError(t, hb.Update("98", "20"))
	assertLevels(t, hb, []Level{
		level("102", "25"),
		level("101", "15"),
		level("100", "20"),
		level("99.5", "25"),
		level("99", "5"),
		level("98", "20"),
	})

	require.NoError(t, hb.Update("100", "0"))
	assertLevels(t, hb, []Level{
		level("102", "25"),
		level("101", "15"),
		level("99.5", "25"),
		level("99", "5"),
		level("98", "20"),
	})
}

func TestHalfbookAsk(t *testing.T) {
	hb := New(Ask)
	err := hb.Set([][]string{{"100", "10"}, {"99", "5"}, {"101", "15"}})
	require.NoError(t, err)

	assertLevels(t, hb, []Level{level("99", "5"), level("100", "10"), level("101", "15")})

	qty, ok := hb.QtyAt(decimal.RequireFromString("100"))
	require.True(t, ok)
	assert.Equal(t, "10", qty)

	_, ok = hb.QtyAt(decimal.RequireFromString("98"))
	assert.False(t, ok)

	require.NoError(t, hb.Update("99.5", "25"))
	assertLevels(t, hb, []Level{level("99", "5"), level("99.5", "25"), level("100", "10"), level("101", "15")})

	require.NoError(t, hb.Update("100", "0"))
	assertLevels(t, hb, []Level{level("99", "5"), level("99.5", "25"), level("101", "15")})
}

func TestHalfbookDeleteMissingLevel(t *testing.T) {
	hb := New(Bid)
	require.NoError(t, hb.Set([][]string{{"100", "10"}}))

	err := hb.Update("99", "0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLevel))
	assert.Equal(t, 1, hb.Len())
}

func TestHalfbookParseErrors(t *testing.T) {
	hb := New(Bid)
	assert.Error(t, hb.Update("not-a-price", "1"))
	assert.Error(t, hb.Update("100", "not-a-size"))
	assert.Error(t, hb.Set([][]string{{"100"}}))
	assert.Error(t, hb.Set([][]string{{"x", "1"}}))
}

func TestHalfbookSetDropsZeroSizes(t *testing.T) {
	hb := New(Ask)
	require.NoError(t, hb.Set([][]string{{"100", "10"}, {"101", "0"}}))
	assert.Equal(t, 1, hb.Len())
}

func TestHalfbookCloneIsIndependent(t *testing.T) {
	hb := New(Bid)
	require.NoError(t, hb.Set([][]string{{"100", "10"}, {"99", "5"}}))

	clone := hb.Clone()
	require.NoError(t, clone.Update("100", "42"))
	require.NoError(t, clone.Update("101", "1"))

	qty, ok := hb.QtyAt(decimal.RequireFromString("100"))
	require.True(t, ok)
	assert.Equal(t, "10", qty)
	assert.Equal(t, 2, hb.Len())
	assert.Equal(t, 3, clone.Len())
}

func TestHalfbookOrderingInvariant(t *testing.T) {
	// Strict ordering and price uniqueness must survive arbitrary
	// interleavings of set and update.
	hb := New(Bid)
	require.NoError(t, hb.Set([][]string{{"10", "1"}, {"30", "1"}, {"20", "1"}}))
	updates := [][2]string{
		{"25", "2"}, {"5", "3"}, {"30", "0"}, {"15", "1"}, {"25", "9"},
		{"40", "1"}, {"10", "0"}, {"12.5", "4"}, {"5", "0"}, {"41", "2"},
	}
	for _, u := range updates {
		err := hb.Update(u[0], u[1])
		if err != nil {
			require.True(t, errors.Is(err, ErrUnknownLevel))
		}
	}

	for i := 0; i+1 < hb.Len(); i++ {
		assert.True(t, hb.Level(i).Price.GreaterThan(hb.Level(i+1).Price),
			"bids must be strictly descending at %d", i)
	}
	for i := 0; i < hb.Len(); i++ {
		size := decimal.RequireFromString(hb.Level(i).Size)
		assert.False(t, size.IsZero(), "no zero-size entries")
	}
}

func TestHalfbookBest(t *testing.T) {
	hb := New(Ask)
	_, ok := hb.Best()
	assert.False(t, ok)

	require.NoError(t, hb.Set([][]string{{"101", "1"}, {"100", "2"}}))
	best, ok := hb.Best()
	require.True(t, ok)
	assert.True(t, best.Price.Equal(decimal.RequireFromString("100")))
}
