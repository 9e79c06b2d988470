// Package telemetry owns the live subscription to the scan engine's
// server-push channel: one logical subscription per active scan, a
// monotonically advancing delivery cursor, and resumable delivery after
// transport drops.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/strikeview/strikeview/internal/broker"
	"github.com/strikeview/strikeview/internal/dashboard"
	"github.com/strikeview/strikeview/internal/events"
	"github.com/strikeview/strikeview/internal/models"
)

// ConnState is the subscription lifecycle position.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	// StateClosedTransient: the transport dropped without a terminal event.
	// The scan is treated as still running server-side; the caller decides
	// whether to resubscribe using the stored cursor.
	StateClosedTransient
	// StateClosedTerminal: a terminal event was observed or the caller
	// unsubscribed deliberately.
	StateClosedTerminal
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedTransient:
		return "closed-transient"
	case StateClosedTerminal:
		return "closed-terminal"
	default:
		return "unknown"
	}
}

// Config for the connection manager.
type Config struct {
	// BaseURL is the engine's websocket base, e.g. "ws://127.0.0.1:8060".
	BaseURL string
	// HandshakeTimeout for the websocket dial.
	HandshakeTimeout time.Duration
}

// Manager holds at most one live subscription at a time. All reducer writes
// happen synchronously inside the message handler, making the reducer
// single-writer by construction.
type Manager struct {
	cfg    Config
	dialer *websocket.Dialer
	state  *dashboard.State
	bus    *broker.Broker[events.Result]
	log    *logrus.Entry

	mu        sync.Mutex
	conn      *websocket.Conn
	connState ConnState
	scanID    string
	lastSeq   uint64
	done      chan struct{}
}

func NewManager(cfg Config, state *dashboard.State, bus *broker.Broker[events.Result], log *logrus.Entry) *Manager {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Manager{
		cfg:       cfg,
		dialer:    &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		state:     state,
		bus:       bus,
		log:       log,
		connState: StateIdle,
	}
}

// Subscribe opens the subscription for scanID, closing any live subscription
// first (exactly one at a time). Per-scan reducer state is reset to empty.
// If a cursor is known for the same scan, the subscribe request carries
// last_seq so the server replays only events strictly after it; the client
// never replays on its own.
func (m *Manager) Subscribe(ctx context.Context, scanID string) error {
	if scanID == "" {
		return fmt.Errorf("scan id is required")
	}

	m.mu.Lock()
	if m.conn != nil {
		m.closeLocked(StateClosedTerminal)
		m.bus.CloseTopic(topicFor(m.scanID))
	}
	if m.scanID != scanID {
		// New logical session: start without replay.
		m.lastSeq = 0
	}
	m.scanID = scanID
	m.connState = StateConnecting
	resumeFrom := m.lastSeq
	m.mu.Unlock()

	m.state.Reset()

	addr, err := m.subscribeURL(scanID, resumeFrom)
	if err != nil {
		m.setState(StateIdle)
		return err
	}

	conn, _, err := m.dialer.DialContext(ctx, addr, nil)
	if err != nil {
		m.setState(StateClosedTransient)
		return fmt.Errorf("dialing scan subscription: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	m.connState = StateOpen
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{"scan_id": scanID, "last_seq": resumeFrom}).Info("telemetry subscription open")

	go m.readLoop(conn, scanID, done)
	return nil
}

func (m *Manager) subscribeURL(scanID string, lastSeq uint64) (string, error) {
	u, err := url.Parse(m.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid telemetry base URL: %w", err)
	}
	u.Path = fmt.Sprintf("%s/ws/scans/%s", u.Path, scanID)
	if lastSeq > 0 {
		q := u.Query()
		q.Set("last_seq", fmt.Sprintf("%d", lastSeq))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// readLoop pumps envelopes until the transport closes or a terminal event
// arrives. Malformed frames are logged and dropped individually; they never
// stop the loop.
func (m *Manager) readLoop(conn *websocket.Conn, scanID string, done chan struct{}) {
	defer close(done)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			// Only downgrade if this connection is still the live one and no
			// terminal event was seen: the scan is assumed to keep running
			// server-side, so the scanning flag stays untouched.
			if m.conn == conn && m.connState == StateOpen {
				m.connState = StateClosedTransient
				m.conn = nil
				m.log.WithField("scan_id", scanID).Warn("telemetry transport dropped, scan assumed still running")
			}
			m.mu.Unlock()
			return
		}

		var env models.EventEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			m.log.WithError(err).Debug("dropping malformed telemetry frame")
			continue
		}

		if terminal := m.handle(conn, scanID, env); terminal {
			return
		}
	}
}

// handle advances the cursor, maps the envelope, and applies the result.
// Returns true when the envelope was terminal and the subscription is done.
func (m *Manager) handle(conn *websocket.Conn, scanID string, env models.EventEnvelope) bool {
	m.mu.Lock()
	if m.conn != conn {
		// A newer subscription replaced this one mid-flight.
		m.mu.Unlock()
		return true
	}
	// Monotonic watermark, updated before processing so it survives
	// out-of-order and duplicate delivery.
	if env.Seq > m.lastSeq {
		m.lastSeq = env.Seq
	}
	m.mu.Unlock()

	res := events.Map(env.EventType, env.Data, scanID, env.Timestamp)
	m.state.Apply(res)
	m.bus.Publish(topicFor(scanID), res)

	if res.Terminal {
		m.mu.Lock()
		if m.conn == conn {
			m.closeLocked(StateClosedTerminal)
			// Closing the topic lets relay consumers drain the terminal
			// result and exit on the closed channel.
			m.bus.CloseTopic(topicFor(scanID))
		}
		m.mu.Unlock()
		m.log.WithField("scan_id", scanID).Info("scan reached terminal event, subscription closed")
		return true
	}
	return false
}

// Unsubscribe deliberately tears the subscription down: the transport is
// closed, the cursor is cleared so a fresh Subscribe starts without replay,
// and the scanning flag is cleared.
func (m *Manager) Unsubscribe() {
	m.mu.Lock()
	if m.scanID != "" {
		m.bus.CloseTopic(topicFor(m.scanID))
	}
	m.closeLocked(StateClosedTerminal)
	m.lastSeq = 0
	m.scanID = ""
	m.connState = StateIdle
	m.mu.Unlock()

	m.state.SetScanning(false)
}

// closeLocked closes the live transport, if any. Caller holds m.mu.
func (m *Manager) closeLocked(next ConnState) {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.connState = next
}

func (m *Manager) setState(s ConnState) {
	m.mu.Lock()
	m.connState = s
	m.mu.Unlock()
}

// LastSeq returns the highest sequence number observed for the current
// logical session.
func (m *Manager) LastSeq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeq
}

// State returns the current subscription lifecycle state.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connState
}

// ScanID returns the scan this manager is (or was last) subscribed to.
func (m *Manager) ScanID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanID
}

// Wait blocks until the current read loop exits. Nil-safe when no
// subscription was ever opened.
func (m *Manager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

func topicFor(scanID string) string { return "scan:" + scanID }

// Topic returns the broker topic carrying applied results for a scan.
func Topic(scanID string) string { return topicFor(scanID) }
