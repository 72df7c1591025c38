package compress

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dzakarias/orderbook-replayer/internal/codec"
)

// rawDepthToken is the depth token carried by raw input filenames
// (YYYY-MM-DD_SYMBOL_ob500.data); the output path rewrites it to the
// configured depth.
const rawDepthToken = "ob500"

// scanBufferSize bounds a single raw feed line (a depth-500 snapshot).
const scanBufferSize = 4 << 20

// ErrNoDepthToken is returned when the input filename does not carry the
// ob500 token and no output path can be derived.
var ErrNoDepthToken = errors.New("input filename has no ob500 token")

// Summary describes one completed file compression run.
type Summary struct {
	ID         string
	Symbol     string
	InputFile  string
	OutputFile string
	MaxDepth   int
	MessagesIn int64
	RecordsOut int64
	BytesIn    int64
	BytesOut   int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Ratio returns the output/input byte ratio, or 0 for an empty input.
func (s *Summary) Ratio() float64 {
	if s.BytesIn == 0 {
		return 0
	}
	return float64(s.BytesOut) / float64(s.BytesIn)
}

// OutputPath derives the compressed output path from a raw input path by
// rewriting its ob500 token to the configured depth.
func OutputPath(inputPath string, maxDepth int) (string, error) {
	base := filepath.Base(inputPath)
	if !strings.Contains(base, rawDepthToken) {
		return "", fmt.Errorf("%w: %s", ErrNoDepthToken, base)
	}
	out := strings.Replace(base, rawDepthToken, fmt.Sprintf("ob%d", maxDepth), 1)
	return filepath.Join(filepath.Dir(inputPath), out), nil
}

// symbolFromPath extracts the symbol from a YYYY-MM-DD_SYMBOL_obN.data
// filename; empty if the name does not follow the layout.
func symbolFromPath(path string) string {
	parts := strings.Split(filepath.Base(path), "_")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

// ProcessFile compresses an entire raw feed file and writes the transcript
// next to it. On error the partial output written so far is left in place.
func ProcessFile(ctx context.Context, inputPath string, maxDepth int, logger *zap.Logger) (*Summary, error) {
	outputPath, err := OutputPath(inputPath, maxDepth)
	if err != nil {
		return nil, err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	defer func() {
		_ = out.Close()
	}()

	summary := &Summary{
		ID:         uuid.NewString(),
		Symbol:     symbolFromPath(inputPath),
		InputFile:  inputPath,
		OutputFile: outputPath,
		MaxDepth:   maxDepth,
		StartedAt:  time.Now(),
	}

	compressor := New(maxDepth, logger)
	writer := bufio.NewWriterSize(out, 1<<20)
	// Keep partial output on failure: everything up to the failing line is
	// still valid transcript.
	defer func() {
		_ = writer.Flush()
	}()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64<<10), scanBufferSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		summary.MessagesIn++
		summary.BytesIn += int64(len(line)) + 1

		msg, err := codec.DecodeRawMessage(line)
		if err != nil {
			return summary, fmt.Errorf("line %d: %w", summary.MessagesIn, err)
		}

		rec, err := compressor.Process(msg)
		if err != nil {
			return summary, fmt.Errorf("line %d: %w", summary.MessagesIn, err)
		}
		if rec == nil {
			continue
		}

		encoded, err := rec.Encode()
		if err != nil {
			return summary, fmt.Errorf("line %d: %w", summary.MessagesIn, err)
		}
		_, err = writer.Write(encoded)
		if err == nil {
			err = writer.WriteByte('\n')
		}
		if err != nil {
			return summary, fmt.Errorf("write output: %w", err)
		}
		summary.RecordsOut++
		summary.BytesOut += int64(len(encoded)) + 1

		if summary.MessagesIn%10000 == 0 {
			err = ctx.Err()
			if err != nil {
				return summary, err
			}
			logger.Debug("compression-progress",
				zap.Int64("messages", summary.MessagesIn),
				zap.Int64("records", summary.RecordsOut))
		}
	}
	err = scanner.Err()
	if err != nil {
		return summary, fmt.Errorf("read input: %w", err)
	}

	err = writer.Flush()
	if err != nil {
		return summary, fmt.Errorf("flush output: %w", err)
	}

	summary.FinishedAt = time.Now()
	CompressionRatio.Set(summary.Ratio())

	logger.Info("file-compressed",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.Int64("messages-in", summary.MessagesIn),
		zap.Int64("records-out", summary.RecordsOut),
		zap.Float64("ratio", summary.Ratio()),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))

	return summary, nil
}
