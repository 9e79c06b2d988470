package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/strikeview/strikeview/internal/broker"
	"github.com/strikeview/strikeview/internal/config"
	"github.com/strikeview/strikeview/internal/conversation"
	"github.com/strikeview/strikeview/internal/dashboard"
	"github.com/strikeview/strikeview/internal/events"
	"github.com/strikeview/strikeview/internal/llm"
	"github.com/strikeview/strikeview/internal/models"
	"github.com/strikeview/strikeview/internal/persona"
	"github.com/strikeview/strikeview/internal/tools"
	"github.com/strikeview/strikeview/internal/transcript"
)

type stubProvider struct{}

func (stubProvider) ChatWithTools(ctx context.Context, history []models.Turn, _ []persona.ToolSpec) (*llm.Response, error) {
	return &llm.Response{Content: "ok"}, nil
}
func (stubProvider) GetName() string  { return "stub" }
func (stubProvider) GetModel() string { return "stub-1" }

type stubSubscriber struct {
	subscribed   string
	unsubscribed bool
}

func (s *stubSubscriber) Subscribe(ctx context.Context, scanID string) error {
	s.subscribed = scanID
	return nil
}
func (s *stubSubscriber) Unsubscribe() { s.unsubscribed = true }

func newTestServer(t *testing.T) (*Server, *stubSubscriber, *dashboard.State) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	entry := log.WithField("component", "web")

	state := dashboard.NewState()
	bus := broker.New[events.Result](16)
	sub := &stubSubscriber{}

	rec := transcript.NewReconciler(transcript.NewMemoryStore(), entry)
	executor := tools.NewClient(tools.ClientConfig{}, entry)
	pa := persona.Persona{Name: "recon", Endpoint: "http://127.0.0.1:1", Payload: persona.PayloadCommand}
	session := conversation.NewSession("s1")
	worker := conversation.NewWorker(conversation.NewLoop(stubProvider{}, executor, pa, rec, entry), session, entry)

	cfg := &config.Config{Web: config.WebConfig{ListenAddr: "127.0.0.1:0"}}
	return NewServer(cfg, state, bus, sub, worker, session, entry), sub, state
}

func TestHandleDashboard(t *testing.T) {
	server, _, state := newTestServer(t)
	state.Reset()
	state.Apply(events.Map("scan_started", map[string]any{"target": "http://t"}, "1", "ts"))

	rec := httptest.NewRecorder()
	server.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var view dashboard.View
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if !view.Scanning || len(view.Logs) != 1 {
		t.Errorf("snapshot = %+v", view)
	}
}

func TestHandleScans_SubscribeAndUnsubscribe(t *testing.T) {
	server, sub, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.handleScans(rec, httptest.NewRequest(http.MethodPost, "/api/scans/42/subscribe", nil))
	if rec.Code != http.StatusOK || sub.subscribed != "42" {
		t.Errorf("subscribe: status %d, scan %q", rec.Code, sub.subscribed)
	}

	rec = httptest.NewRecorder()
	server.handleScans(rec, httptest.NewRequest(http.MethodPost, "/api/scans/42/unsubscribe", nil))
	if rec.Code != http.StatusOK || !sub.unsubscribed {
		t.Errorf("unsubscribe: status %d, called %v", rec.Code, sub.unsubscribed)
	}

	rec = httptest.NewRecorder()
	server.handleScans(rec, httptest.NewRequest(http.MethodPost, "/api/scans/42/bogus", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown action: status %d", rec.Code)
	}
}

func TestHandleChat_Validation(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.handleChat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.handleChat(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"scan"}`)))
	if rec.Code != http.StatusAccepted {
		t.Errorf("valid message: status %d", rec.Code)
	}
}

func TestHandleScans_RelayExitsAfterUnsubscribe(t *testing.T) {
	server, _, _ := newTestServer(t)

	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		server.handleScans(rec, httptest.NewRequest(http.MethodPost, "/api/scans/7/subscribe", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("subscribe %d: status %d", i, rec.Code)
		}
		rec = httptest.NewRecorder()
		server.handleScans(rec, httptest.NewRequest(http.MethodPost, "/api/scans/7/unsubscribe", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("unsubscribe %d: status %d", i, rec.Code)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("relay goroutines survive unsubscribe: %d before, %d after", before, runtime.NumGoroutine())
}

func TestHandleScans_ResubscribeReplacesRelay(t *testing.T) {
	server, _, _ := newTestServer(t)

	before := runtime.NumGoroutine()
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		server.handleScans(rec, httptest.NewRequest(http.MethodPost, "/api/scans/7/subscribe", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("subscribe %d: status %d", i, rec.Code)
		}
	}
	server.stopRelay()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("repeated subscribes accumulate relays: %d before, %d after", before, runtime.NumGoroutine())
}

func TestCORSPreflight(t *testing.T) {
	handler := cors(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the handler")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/chat", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
