package conversation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/strikeview/strikeview/internal/llm"
	"github.com/strikeview/strikeview/internal/models"
	"github.com/strikeview/strikeview/internal/persona"
	"github.com/strikeview/strikeview/internal/tools"
	"github.com/strikeview/strikeview/internal/transcript"
)

// DefaultMaxRounds bounds model consultations per user turn so a model
// that never stops requesting tools cannot spin forever.
const DefaultMaxRounds = 16

func newMessageID() string { return uuid.NewString() }

// Loop drives user turns for one persona.
type Loop struct {
	provider  llm.Provider
	executor  *tools.Client
	persona   persona.Persona
	rec       *transcript.Reconciler
	log       *logrus.Entry
	maxRounds int
}

func NewLoop(provider llm.Provider, executor *tools.Client, p persona.Persona, rec *transcript.Reconciler, log *logrus.Entry) *Loop {
	return &Loop{
		provider:  provider,
		executor:  executor,
		persona:   p,
		rec:       rec,
		log:       log,
		maxRounds: DefaultMaxRounds,
	}
}

// RunTurn drives one user message to completion: repeated model rounds,
// tools executed sequentially in the order returned, results folded back
// into history, until the model answers without tool calls.
//
// On external cancellation the partially built turn is rolled back from
// the visible transcript. Any other model failure is surfaced as a
// visible error message and the turn is abandoned; tool failures are
// folded into tool turns and the loop continues.
func (l *Loop) RunTurn(ctx context.Context, session *Session, userText string) error {
	session.setStatus(StatusActive)
	defer session.setStatus(StatusIdle)

	displayMark := session.displayLen()
	rollback := func() {
		session.truncateDisplay(displayMark)
	}

	session.appendDisplay(models.DisplayMessage{
		ID:      newMessageID(),
		Role:    models.RoleUser,
		Content: userText,
	})
	l.rec.PersistUser(ctx, session.ID, userText)

	working := make([]models.Turn, 0, len(session.History())+2)
	working = append(working, models.Turn{Role: models.RoleSystem, Content: l.persona.SystemPrompt})
	working = append(working, session.History()...)
	working = append(working, models.Turn{Role: models.RoleUser, Content: userText})

	bubble := -1
	for round := 0; round < l.maxRounds; round++ {
		resp, err := l.provider.ChatWithTools(ctx, working, l.persona.Tools)
		if err != nil {
			if ctx.Err() != nil {
				// The user interrupted; withdraw the partial turn silently.
				rollback()
				l.log.WithField("session_id", session.ID).Debug("turn cancelled, partial turn withdrawn")
				return ctx.Err()
			}
			session.appendDisplay(models.DisplayMessage{
				ID:      newMessageID(),
				Role:    models.RoleError,
				Content: fmt.Sprintf("Model request failed: %v", err),
			})
			l.log.WithError(err).WithField("session_id", session.ID).Error("model call failed, turn abandoned")
			return err
		}

		if resp.Content != "" {
			bubble = session.appendAssistantContent(resp.Content)
		}

		if len(resp.ToolCalls) == 0 {
			working = append(working, models.Turn{Role: models.RoleAssistant, Content: resp.Content})
			session.setHistory(working[1:])
			final := session.closeAssistantBubble(bubble)
			l.rec.PersistAssistant(ctx, session.ID, final)
			return nil
		}

		working = append(working, models.Turn{
			Role:      models.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Strictly sequential, in the order returned. The model expects
		// results in call order and a later call may depend on an earlier
		// call's side effect.
		for _, call := range resp.ToolCalls {
			result, err := l.executor.Execute(ctx, l.persona, call)
			if err != nil {
				if ctx.Err() != nil {
					rollback()
					l.log.WithField("session_id", session.ID).Debug("turn cancelled during tool execution")
					return ctx.Err()
				}
				// Fold the failure into a tool turn so the model can react.
				result = fmt.Sprintf("Tool %s failed: %v", call.Name, err)
				l.log.WithError(err).WithField("tool", call.Name).Warn("tool call failed, result folded into history")
			}
			working = append(working, models.Turn{
				Role:       models.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	err := fmt.Errorf("model did not finish within %d rounds", l.maxRounds)
	session.appendDisplay(models.DisplayMessage{
		ID:      newMessageID(),
		Role:    models.RoleError,
		Content: err.Error(),
	})
	l.log.WithField("session_id", session.ID).Error(err.Error())
	return err
}

// LoadSession replaces the session's visible transcript with the durable
// one and reports whether a trailing user message should auto-trigger a
// turn.
func (l *Loop) LoadSession(ctx context.Context, session *Session) (string, bool, error) {
	session.setStatus(StatusLoading)
	defer session.setStatus(StatusIdle)

	persisted, err := l.rec.Persisted(ctx, session.ID)
	if err != nil {
		return "", false, fmt.Errorf("loading session %s: %w", session.ID, err)
	}

	display := make([]models.DisplayMessage, 0, len(persisted))
	for _, msg := range persisted {
		display = append(display, models.DisplayMessage{
			ID:      newMessageID(),
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	content, ok := l.rec.AutoContinue(session.ID, persisted)
	if ok {
		// RunTurn re-appends the user message itself; keeping it here would
		// show it twice.
		display = display[:len(display)-1]
	}

	session.ReplaceDisplay(display)
	session.ResetHistory()
	return content, ok, nil
}
