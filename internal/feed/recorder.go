// Package feed records a live exchange orderbook stream into the raw
// line-delimited files the compressor consumes.
package feed

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dzakarias/orderbook-replayer/internal/codec"
)

// Config holds recorder configuration.
type Config struct {
	URL                   string
	Symbol                string
	Depth                 int
	OutDir                string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	Logger                *zap.Logger
}

// Recorder subscribes to a Bybit v5 public orderbook topic and appends one
// raw message per line to the dated output file. On reconnect the exchange
// replays a fresh snapshot, which is appended like any other message; the
// compressor treats the stream as a whole.
type Recorder struct {
	cfg          Config
	topic        string
	logger       *zap.Logger
	reconnectMgr *ReconnectManager

	conn    *websocket.Conn
	writeMu sync.Mutex
	writer  *bufio.Writer
}

// streamMessage is the Bybit v5 public stream envelope.
type streamMessage struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
	Ts    int64  `json:"ts"`
	Data  struct {
		Symbol string     `json:"s"`
		Seq    int64      `json:"seq"`
		Bids   [][]string `json:"b"`
		Asks   [][]string `json:"a"`
	} `json:"data"`
	Op      string `json:"op"`
	Success *bool  `json:"success"`
	RetMsg  string `json:"ret_msg"`
}

// NewRecorder creates a recorder for one symbol.
func NewRecorder(cfg Config) *Recorder {
	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}
	return &Recorder{
		cfg:          cfg,
		topic:        fmt.Sprintf("orderbook.%d.%s", cfg.Depth, cfg.Symbol),
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
	}
}

// OutputPath returns the dated raw file this recorder appends to.
func (r *Recorder) OutputPath(now time.Time) string {
	name := fmt.Sprintf("%s_%s_ob%d.data", now.UTC().Format("2006-01-02"), r.cfg.Symbol, r.cfg.Depth)
	return filepath.Join(r.cfg.OutDir, name)
}

// Run records until the context is cancelled. It reconnects with backoff on
// connection loss. It returns on cancellation, or with an error when the
// output file cannot be opened or the initial connection fails; write errors
// on individual messages are logged and recording continues.
func (r *Recorder) Run(ctx context.Context) error {
	err := os.MkdirAll(r.cfg.OutDir, 0o755)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	outPath := r.OutputPath(time.Now())
	out, err := os.OpenFile(outPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer func() {
		r.writeMu.Lock()
		_ = r.writer.Flush()
		r.writeMu.Unlock()
		_ = out.Close()
	}()
	r.writer = bufio.NewWriterSize(out, 1<<20)

	r.logger.Info("recorder-starting",
		zap.String("topic", r.topic),
		zap.String("output", outPath))

	err = r.connect(ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go r.pingLoop(pingCtx)

	flushTicker := time.NewTicker(time.Second)
	defer flushTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-flushTicker.C:
				r.writeMu.Lock()
				_ = r.writer.Flush()
				r.writeMu.Unlock()
			}
		}
	}()

	return r.readLoop(ctx)
}

func (r *Recorder) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: r.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, r.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", r.cfg.URL, err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(r.cfg.PongTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(r.cfg.PongTimeout))

	sub := map[string]interface{}{"op": "subscribe", "args": []string{r.topic}}
	err = conn.WriteJSON(sub)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("subscribe %s: %w", r.topic, err)
	}

	r.conn = conn
	r.logger.Info("feed-connected", zap.String("topic", r.topic))
	return nil
}

func (r *Recorder) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, payload, err := r.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("feed-read-error", zap.Error(err))
			_ = r.conn.Close()
			err = r.reconnectMgr.Reconnect(ctx, r.connect)
			if err != nil {
				return err
			}
			continue
		}

		err = r.handleMessage(payload)
		if err != nil {
			r.logger.Warn("feed-message-error", zap.Error(err))
		}
	}
}

func (r *Recorder) handleMessage(payload []byte) error {
	var msg streamMessage
	err := json.Unmarshal(payload, &msg)
	if err != nil {
		return fmt.Errorf("unmarshal stream message: %w", err)
	}

	// Subscription acks and pong frames carry an op, not a topic.
	if msg.Topic != r.topic {
		if msg.Success != nil && !*msg.Success {
			r.logger.Warn("feed-op-rejected",
				zap.String("op", msg.Op),
				zap.String("reason", msg.RetMsg))
		}
		return nil
	}

	raw := codec.RawMessage{
		Type: msg.Type,
		Ts:   msg.Ts,
		Data: codec.RawData{
			Seq:  msg.Data.Seq,
			Bids: msg.Data.Bids,
			Asks: msg.Data.Asks,
		},
	}
	line, err := json.Marshal(&raw)
	if err != nil {
		return fmt.Errorf("marshal raw message: %w", err)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_, err = r.writer.Write(line)
	if err == nil {
		err = r.writer.WriteByte('\n')
	}
	if err != nil {
		return fmt.Errorf("write raw line: %w", err)
	}

	MessagesRecordedTotal.WithLabelValues(msg.Type).Inc()
	BytesRecordedTotal.Add(float64(len(line) + 1))
	return nil
}

func (r *Recorder) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.writeMu.Lock()
			err := r.conn.WriteJSON(map[string]string{"op": "ping"})
			r.writeMu.Unlock()
			if err != nil {
				r.logger.Debug("feed-ping-error", zap.Error(err))
			}
		}
	}
}
