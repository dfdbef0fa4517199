// Package client implements a sample producer for the detection service.
// It sends one sample at a time over the ingest WebSocket and reads the
// server's classification of each before sending the next.
package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hed1ad/driftwatch/pkg/detectors"
	driftio "github.com/hed1ad/driftwatch/pkg/io"
)

// Producer is a connected ingest client.
type Producer struct {
	conn *websocket.Conn
	log  *slog.Logger
}

// Dial connects to the server's ingest endpoint, e.g.
// ws://localhost:8750/ingest. A nil logger falls back to slog.Default.
func Dial(url string, logger *slog.Logger) (*Producer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	logger.Info("connected", "url", url)
	return &Producer{conn: conn, log: logger}, nil
}

// Send submits one sample and returns the server's classification.
func (p *Producer) Send(s detectors.Sample) (driftio.Result, error) {
	req := struct {
		Timestamp int64   `json:"timestamp"`
		Value     float64 `json:"value"`
	}{Timestamp: s.Timestamp, Value: s.Value}

	if err := p.conn.WriteJSON(req); err != nil {
		return driftio.Result{}, err
	}

	var result driftio.Result
	if err := p.conn.ReadJSON(&result); err != nil {
		return driftio.Result{}, err
	}
	return result, nil
}

// Run sends every sample from the channel until it closes or the context
// is cancelled, invoking onResult for each response. onResult may be nil.
func (p *Producer) Run(ctx context.Context, samples <-chan detectors.Sample, onResult func(driftio.Result)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-samples:
			if !ok {
				return nil
			}

			result, err := p.Send(s)
			if err != nil {
				return err
			}

			switch {
			case result.Error != "":
				p.log.Warn("sample rejected", "t", result.Timestamp, "err", result.Error)
			case result.IsAnomaly:
				p.log.Info("anomaly", "t", result.Timestamp, "value", result.Value, "z", result.ZScore)
			case result.IsDrift:
				p.log.Info("drift", "t", result.Timestamp, "window", result.WindowSize)
			}

			if onResult != nil {
				onResult(result)
			}
		}
	}
}

// Close sends a close frame and shuts the connection down.
func (p *Producer) Close() error {
	deadline := time.Now().Add(time.Second)
	p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return p.conn.Close()
}
