// Package http exposes a running experiment over HTTP: query endpoints for
// status, data, and scope, control endpoints for pause/resume/abort, and a
// server-sent event stream of finalized records.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/quadrat"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// Experiment is the narrow control surface the server needs.
type Experiment interface {
	Status() quadrat.Status
	TrialIndex() int
	Data() *domain.Collection
	Scope() map[string]any
	Pause()
	Resume()
	Abort()
}

// Server exposes one experiment run.
type Server struct {
	Experiment Experiment
	Streams    *StreamManager
	logger     *slog.Logger
}

// NewHandler creates the HTTP handler for an experiment. Wire the returned
// server's OnDataUpdate into the experiment (quadrat.WithOnDataUpdate) so
// the event stream sees each finalized record.
func NewHandler(exp Experiment, logger *slog.Logger) (http.Handler, *Server) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	server := &Server{
		Experiment: exp,
		Streams:    NewStreamManager(logger),
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/status", server.GetStatus)
	r.Get("/data", server.GetData)
	r.Get("/scope", server.GetScope)
	r.Get("/events", server.SubscribeEvents)
	r.Post("/pause", server.Pause)
	r.Post("/resume", server.Resume)
	r.Post("/abort", server.Abort)

	return enableCORS(r), server
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OnDataUpdate broadcasts a finalized record to all event subscribers.
// It satisfies domain.DataCallback.
func (s *Server) OnDataUpdate(_ context.Context, rec domain.Result) {
	payload, err := json.Marshal(rec)
	if err != nil {
		s.logger.Error("failed to marshal record for stream", "err", err)
		return
	}
	s.Streams.Broadcast(string(payload))
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string]string{"status": "ok"})
}

// GetStatus handles the GET /status request.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, map[string]any{
		"status":      string(s.Experiment.Status()),
		"trial_index": s.Experiment.TrialIndex(),
		"records":     s.Experiment.Data().Len(),
	})
}

// GetData handles the GET /data request.
func (s *Server) GetData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, s.Experiment.Data().Values())
}

// GetScope handles the GET /scope request.
func (s *Server) GetScope(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, s.Experiment.Scope())
}

// Pause handles the POST /pause request.
func (s *Server) Pause(w http.ResponseWriter, r *http.Request) {
	s.Experiment.Pause()
	writeJSON(w, s.logger, map[string]string{"status": string(s.Experiment.Status())})
}

// Resume handles the POST /resume request.
func (s *Server) Resume(w http.ResponseWriter, r *http.Request) {
	s.Experiment.Resume()
	writeJSON(w, s.logger, map[string]string{"status": string(s.Experiment.Status())})
}

// Abort handles the POST /abort request.
func (s *Server) Abort(w http.ResponseWriter, r *http.Request) {
	s.Experiment.Abort()
	writeJSON(w, s.logger, map[string]string{"status": string(s.Experiment.Status())})
}

// SubscribeEvents handles the GET /events request (SSE). Each finalized
// record arrives as one data frame.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan<- string]struct{}
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StreamManager{
		subscribers: make(map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe() (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: client buffer full, dropping message")
		}
	}
}
