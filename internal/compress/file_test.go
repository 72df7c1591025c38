package compress

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOutputPath(t *testing.T) {
	out, err := OutputPath("/data/2024-01-15_BTCUSDT_ob500.data", 20)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "2024-01-15_BTCUSDT_ob20.data"), out)

	_, err = OutputPath("/data/2024-01-15_BTCUSDT.data", 20)
	assert.ErrorIs(t, err, ErrNoDepthToken)
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "2024-01-15_BTCUSDT_ob500.data")

	raw := strings.Join([]string{
		`{"type":"snapshot","ts":1000,"data":{"seq":1,"b":[["100","10"],["99","5"]],"a":[["101","7"]]}}`,
		`{"type":"delta","ts":1100,"data":{"seq":2,"b":[["100","20"]],"a":[]}}`,
		`{"type":"delta","ts":1200,"data":{"seq":3,"b":[["98","1"]],"a":[]}}`,
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(inputPath, []byte(raw), 0o644))

	summary, err := ProcessFile(context.Background(), inputPath, 1, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", summary.Symbol)
	assert.Equal(t, int64(3), summary.MessagesIn)
	// The third delta touches a level below the output depth: no record.
	assert.Equal(t, int64(2), summary.RecordsOut)
	assert.NotEmpty(t, summary.ID)
	assert.Positive(t, summary.Ratio())

	outPath := filepath.Join(dir, "2024-01-15_BTCUSDT_ob1.data")
	assert.Equal(t, outPath, summary.OutputFile)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"t":1000,"s":1,"b":[["100","10"]],"a":[["101","7"]]}`, lines[0])
	assert.Equal(t, `{"t":1100,"s":2,"b":[["100","20"]]}`, lines[1])
}

func TestProcessFileMalformedLineFails(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "2024-01-15_ETHUSDT_ob500.data")
	raw := `{"type":"snapshot","ts":1000,"data":{"seq":1,"b":[["100","10"]],"a":[["101","7"]]}}` + "\n" +
		`not json` + "\n"
	require.NoError(t, os.WriteFile(inputPath, []byte(raw), 0o644))

	_, err := ProcessFile(context.Background(), inputPath, 20, zap.NewNop())
	assert.Error(t, err)

	// Partial output up to the failing line is left in place.
	outPath := filepath.Join(dir, "2024-01-15_ETHUSDT_ob20.data")
	_, statErr := os.Stat(outPath)
	assert.NoError(t, statErr)
}

func TestProcessFileMissingInput(t *testing.T) {
	_, err := ProcessFile(context.Background(), filepath.Join(t.TempDir(), "2024-01-15_X_ob500.data"), 20, zap.NewNop())
	assert.Error(t, err)
}
