package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/strikeview/strikeview/internal/broker"
	"github.com/strikeview/strikeview/internal/config"
	"github.com/strikeview/strikeview/internal/conversation"
	"github.com/strikeview/strikeview/internal/dashboard"
	"github.com/strikeview/strikeview/internal/events"
	"github.com/strikeview/strikeview/internal/telemetry"
	"github.com/strikeview/strikeview/internal/websocket"
)

type subscriber interface {
	Subscribe(ctx context.Context, scanID string) error
	Unsubscribe()
}

type Server struct {
	config  *config.Config
	state   *dashboard.State
	bus     *broker.Broker[events.Result]
	manager subscriber
	worker  *conversation.Worker
	session *conversation.Session
	server  *http.Server
	hub     *websocket.Hub
	log     *logrus.Entry

	relayMu   sync.Mutex
	relayStop context.CancelFunc
}

func NewServer(cfg *config.Config, state *dashboard.State, bus *broker.Broker[events.Result], manager subscriber, worker *conversation.Worker, session *conversation.Session, log *logrus.Entry) *Server {
	hub := websocket.NewHub(log.WithField("component", "hub"))
	go hub.Run()

	return &Server{
		config:  cfg,
		state:   state,
		bus:     bus,
		manager: manager,
		worker:  worker,
		session: session,
		hub:     hub,
		log:     log,
	}
}

func (s *Server) Start() error {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/dashboard", s.handleDashboard)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/api/chat/cancel", s.handleChatCancel)
	mux.HandleFunc("/api/scans/", s.handleScans)

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.hub.ServeWS)

	// Health check
	mux.HandleFunc(
		"/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	)

	s.server = &http.Server{
		Addr:         s.config.Web.ListenAddr,
		Handler:      cors(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	s.stopRelay()
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// startRelay replaces the current relay context: the previous relay, if
// any, is cancelled so one subscription never accumulates pumps.
func (s *Server) startRelay() context.Context {
	s.relayMu.Lock()
	defer s.relayMu.Unlock()
	if s.relayStop != nil {
		s.relayStop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.relayStop = cancel
	return ctx
}

func (s *Server) stopRelay() {
	s.relayMu.Lock()
	defer s.relayMu.Unlock()
	if s.relayStop != nil {
		s.relayStop()
		s.relayStop = nil
	}
}

// Relay pumps applied telemetry from the broker topic to the websocket
// client until the topic closes or ctx is done.
func (s *Server) Relay(ctx context.Context, scanID string) {
	ch := s.bus.Subscribe(telemetry.Topic(scanID))
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-ch:
			if !ok {
				return
			}
			s.hub.Broadcast(websocket.EventDTO{
				ScanID:   scanID,
				Log:      res.Log,
				Finding:  res.Finding,
				Progress: res.Progress,
				Terminal: res.Terminal,
			})
		}
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.state.Snapshot())
}

// handleScans serves POST /api/scans/{id}/subscribe and
// POST /api/scans/{id}/unsubscribe.
func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := r.URL.Path[len("/api/scans/"):]
	switch {
	case len(rest) > len("/subscribe") && rest[len(rest)-len("/subscribe"):] == "/subscribe":
		scanID := rest[:len(rest)-len("/subscribe")]
		if err := s.manager.Subscribe(r.Context(), scanID); err != nil {
			s.log.WithError(err).Error("subscribe failed")
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		go s.Relay(s.startRelay(), scanID)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"subscribed"}`))
	case len(rest) > len("/unsubscribe") && rest[len(rest)-len("/unsubscribe"):] == "/unsubscribe":
		s.manager.Unsubscribe()
		s.stopRelay()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"unsubscribed"}`))
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	s.worker.Submit(req.Message)
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "queued",
		"in_flight": s.worker.InFlight(),
	})
}

func (s *Server) handleChatCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.worker.Cancel()
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"cancelled"}`))
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
