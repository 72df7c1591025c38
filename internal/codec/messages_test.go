package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRawMessage(t *testing.T) {
	line := []byte(`{"type":"snapshot","ts":1000,"data":{"seq":7,"b":[["100","10"]],"a":[["101","5"]]}}`)

	msg, err := DecodeRawMessage(line)
	require.NoError(t, err)
	assert.Equal(t, TypeSnapshot, msg.Type)
	assert.Equal(t, int64(1000), msg.Ts)
	assert.Equal(t, int64(7), msg.Data.Seq)
	require.Len(t, msg.Data.Bids, 1)
	assert.Equal(t, []string{"100", "10"}, msg.Data.Bids[0])
}

func TestDecodeRawMessageMissingType(t *testing.T) {
	_, err := DecodeRawMessage([]byte(`{"ts":1000,"data":{"seq":1}}`))
	assert.True(t, errors.Is(err, ErrMissingType))
}

func TestDecodeRawMessageUnknownType(t *testing.T) {
	_, err := DecodeRawMessage([]byte(`{"type":"trade","ts":1000,"data":{"seq":1}}`))
	assert.True(t, errors.Is(err, ErrUnknownType))
}

func TestDecodeRawMessageBadLevel(t *testing.T) {
	_, err := DecodeRawMessage([]byte(`{"type":"delta","ts":1,"data":{"seq":1,"b":[["100"]]}}`))
	assert.Error(t, err)
}

func TestDecodeRawMessageInvalidJSON(t *testing.T) {
	_, err := DecodeRawMessage([]byte(`{`))
	assert.Error(t, err)
}

func TestRecordRoundTripAndOmittedSides(t *testing.T) {
	rec := &Record{
		Timestamp: 1100,
		Sequence:  2,
		Bids:      [][]string{{"100", "20"}},
	}

	out, err := rec.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"t":1100,"s":2,"b":[["100","20"]]}`, string(out))

	decoded, err := DecodeRecord(out)
	require.NoError(t, err)
	assert.Equal(t, rec.Timestamp, decoded.Timestamp)
	assert.Equal(t, rec.Sequence, decoded.Sequence)
	assert.Equal(t, rec.Bids, decoded.Bids)
	assert.Nil(t, decoded.Asks)
}

func TestDecodeRecordToleratesTrailingNewline(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"t":1,"s":1,"a":[["101","5"]]}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Timestamp)
	require.Len(t, rec.Asks, 1)
}
