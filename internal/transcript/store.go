package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strikeview/strikeview/internal/models"
)

// Store is the durable side of the transcript. The persistence service
// assigns message IDs on its own; callers never rely on them matching
// display IDs.
type Store interface {
	List(ctx context.Context, sessionID string) ([]models.PersistedMessage, error)
	Append(ctx context.Context, msg models.PersistedMessage) (models.PersistedMessage, error)
}

// HTTPStore talks to the surrounding product's transcript service.
type HTTPStore struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPStore(baseURL string, timeout time.Duration) *HTTPStore {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPStore{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPStore) List(ctx context.Context, sessionID string) ([]models.PersistedMessage, error) {
	url := fmt.Sprintf("%s/api/sessions/%s/messages", s.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating list request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcript service returned status %d", resp.StatusCode)
	}

	var messages []models.PersistedMessage
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}
	return messages, nil
}

func (s *HTTPStore) Append(ctx context.Context, msg models.PersistedMessage) (models.PersistedMessage, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return models.PersistedMessage{}, fmt.Errorf("encoding message: %w", err)
	}

	url := fmt.Sprintf("%s/api/sessions/%s/messages", s.baseURL, msg.SessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.PersistedMessage{}, fmt.Errorf("creating append request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.PersistedMessage{}, fmt.Errorf("appending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.PersistedMessage{}, fmt.Errorf("transcript service returned status %d", resp.StatusCode)
	}

	var stored models.PersistedMessage
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		// Some deployments answer with an empty body; the request succeeded
		// either way.
		return msg, nil
	}
	return stored, nil
}

// MemoryStore keeps transcripts in memory. Used in tests and when no
// transcript service is configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]models.PersistedMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]models.PersistedMessage)}
}

func (s *MemoryStore) List(ctx context.Context, sessionID string) ([]models.PersistedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PersistedMessage(nil), s.sessions[sessionID]...), nil
}

func (s *MemoryStore) Append(ctx context.Context, msg models.PersistedMessage) (models.PersistedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt == "" {
		msg.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	s.sessions[msg.SessionID] = append(s.sessions[msg.SessionID], msg)
	return msg, nil
}
