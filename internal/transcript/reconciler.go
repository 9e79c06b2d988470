// Package transcript keeps the visible transcript and the durable
// transcript eventually consistent. Durable messages and display messages
// carry independently assigned IDs, so reconciliation matches on
// (role, content) equality.
package transcript

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/strikeview/strikeview/internal/models"
)

type Reconciler struct {
	store Store
	log   *logrus.Entry

	mu sync.Mutex
	// continued guards auto-continuation: one trigger per
	// sessionID:messageID pair, ever.
	continued map[string]bool
}

func NewReconciler(store Store, log *logrus.Entry) *Reconciler {
	return &Reconciler{
		store:     store,
		log:       log,
		continued: make(map[string]bool),
	}
}

// Load returns the durable transcript as display messages. The caller
// replaces its visible transcript wholesale with the result, so a prior
// session's messages never leak across a session switch.
func (r *Reconciler) Load(ctx context.Context, sessionID string) ([]models.DisplayMessage, error) {
	persisted, err := r.store.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	display := make([]models.DisplayMessage, 0, len(persisted))
	for _, msg := range persisted {
		display = append(display, models.DisplayMessage{
			ID:      uuid.NewString(),
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return display, nil
}

// PersistAssistant writes a terminal assistant message to the durable
// transcript unless an identical (role, content) record already exists.
// Re-renders therefore never double-write. Failures are logged, not
// surfaced; the visible transcript stays authoritative for the current
// interaction.
func (r *Reconciler) PersistAssistant(ctx context.Context, sessionID, content string) {
	r.persist(ctx, sessionID, models.RoleAssistant, content)
}

// PersistUser writes a user message. Unlike assistant content, user
// messages only skip the write when the last durable message is an
// identical user message: that is the auto-continuation re-append, while
// a user legitimately repeating an earlier message still gets its own
// record.
func (r *Reconciler) PersistUser(ctx context.Context, sessionID, content string) {
	r.persist(ctx, sessionID, models.RoleUser, content)
}

func (r *Reconciler) persist(ctx context.Context, sessionID string, role models.Role, content string) {
	if content == "" {
		return
	}

	existing, err := r.store.List(ctx, sessionID)
	if err != nil {
		r.log.WithError(err).WithField("session_id", sessionID).Warn("transcript read failed, message not persisted")
		return
	}
	if role == models.RoleAssistant {
		for _, msg := range existing {
			if msg.Role == role && msg.Content == content {
				return
			}
		}
	} else if n := len(existing); n > 0 {
		if last := existing[n-1]; last.Role == role && last.Content == content {
			return
		}
	}

	_, err = r.store.Append(ctx, models.PersistedMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	})
	if err != nil {
		r.log.WithError(err).WithField("session_id", sessionID).Warn("transcript write failed, durable history has a gap")
	}
}

// AutoContinue reports whether a freshly loaded session should trigger the
// conversation loop: the last durable message is from the user and that
// exact message has not triggered a continuation before. The guard is
// permanent per (sessionID, messageID), so re-renders never retrigger.
func (r *Reconciler) AutoContinue(sessionID string, persisted []models.PersistedMessage) (string, bool) {
	if len(persisted) == 0 {
		return "", false
	}
	last := persisted[len(persisted)-1]
	if last.Role != models.RoleUser {
		return "", false
	}

	key := sessionID + ":" + last.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.continued[key] {
		return "", false
	}
	r.continued[key] = true
	return last.Content, true
}

// Persisted exposes the raw durable transcript, used together with
// AutoContinue on session load.
func (r *Reconciler) Persisted(ctx context.Context, sessionID string) ([]models.PersistedMessage, error) {
	return r.store.List(ctx, sessionID)
}
