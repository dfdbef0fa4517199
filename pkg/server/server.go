// Package server exposes the stream detector as a WebSocket service.
// Producers send samples to /ingest and receive one result per sample;
// viewers follow the combined event stream on /watch; / serves a live
// plot and /metrics the Prometheus registry.
package server

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hed1ad/driftwatch/pkg/detectors"
	"github.com/hed1ad/driftwatch/pkg/detectors/zscore"
	driftio "github.com/hed1ad/driftwatch/pkg/io"
)

//go:embed index.html
var indexPage []byte

// ingestRequest is one sample from a producer.
type ingestRequest struct {
	Timestamp int64    `json:"timestamp"`
	Value     *float64 `json:"value"`
}

// Server is the detection service.
type Server struct {
	cfg      Config
	hub      *Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// New creates a server with the given configuration. A nil logger falls
// back to slog.Default, and zero or negative tuning fields fall back to
// their defaults.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Detector.Delta <= 0 {
		cfg.Detector.Delta = def.Detector.Delta
	}
	if cfg.Detector.Threshold <= 0 {
		cfg.Detector.Threshold = def.Detector.Threshold
	}
	if cfg.Detector.MinWindow < 0 {
		cfg.Detector.MinWindow = def.Detector.MinWindow
	}
	if cfg.Stream.PingInterval <= 0 {
		cfg.Stream.PingInterval = def.Stream.PingInterval
	}
	if cfg.Stream.WriteTimeout <= 0 {
		cfg.Stream.WriteTimeout = def.Stream.WriteTimeout
	}
	return &Server{
		cfg: cfg,
		hub: NewHub(cfg.Stream.BufferSize),
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Hub returns the server's broadcast hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler tree.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/watch", s.handleWatch)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ListenAndServe runs the service until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}
	s.log.Info("listening", "addr", s.cfg.Listen)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleIngest runs one detector per producer connection: read a sample,
// classify it, answer with the result, and publish it to watchers.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ingest upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	det, err := zscore.New(
		zscore.WithDelta(s.cfg.Detector.Delta),
		zscore.WithThreshold(s.cfg.Detector.Threshold),
		zscore.WithMinWindow(s.cfg.Detector.MinWindow),
	)
	if err != nil {
		s.log.Error("detector construction failed", "err", err)
		return
	}

	s.log.Info("producer connected", "remote", conn.RemoteAddr().String())
	defer s.log.Info("producer disconnected", "remote", conn.RemoteAddr().String())

	for {
		var req ingestRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("ingest read failed", "err", err)
			}
			return
		}

		result := s.process(det, req)
		conn.SetWriteDeadline(time.Now().Add(s.cfg.Stream.WriteTimeout))
		if err := conn.WriteJSON(result); err != nil {
			s.log.Warn("ingest write failed", "err", err)
			return
		}
	}
}

// process classifies one sample and records metrics. Invalid samples
// yield an error result and leave the detector untouched.
func (s *Server) process(det *zscore.Detector, req ingestRequest) driftio.Result {
	if req.Value == nil {
		mInvalidTotal.Inc()
		return driftio.Result{Timestamp: req.Timestamp, Error: "missing value"}
	}

	ev, err := det.Ingest(detectors.Sample{Timestamp: req.Timestamp, Value: *req.Value})
	if err != nil {
		mInvalidTotal.Inc()
		return driftio.Result{Timestamp: req.Timestamp, Value: *req.Value, Error: err.Error()}
	}

	mSamplesTotal.Inc()
	mWindowSize.Set(float64(ev.WindowSize))
	mZScore.Set(ev.ZScore)
	if ev.IsAnomaly {
		mAnomaliesTotal.Inc()
		s.log.Info("anomaly detected", "t", ev.Sample.Timestamp, "value", ev.Sample.Value, "z", ev.ZScore)
	}
	if ev.IsDrift {
		mDriftsTotal.Inc()
		s.log.Info("concept drift detected", "t", ev.Sample.Timestamp, "window", ev.WindowSize)
	}

	result := driftio.ResultFromEvent(ev)
	s.hub.Publish(result)
	return result
}

// handleWatch streams every published result to the client.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("watch upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub.ID)

	s.log.Info("watcher connected", "id", sub.ID, "remote", conn.RemoteAddr().String())
	defer s.log.Info("watcher disconnected", "id", sub.ID)

	// Reader pump: watch clients send nothing, but reads must run to
	// notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(s.cfg.Stream.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case result, ok := <-sub.C():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.cfg.Stream.WriteTimeout))
			if err := conn.WriteJSON(result); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.Stream.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
