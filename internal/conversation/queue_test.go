package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/strikeview/strikeview/internal/llm"
	"github.com/strikeview/strikeview/internal/models"
	"github.com/strikeview/strikeview/internal/persona"
	"github.com/strikeview/strikeview/internal/tools"
	"github.com/strikeview/strikeview/internal/transcript"
)

func newTestWorker(t *testing.T, provider *fakeProvider) (*Worker, *Session) {
	t.Helper()
	rec := transcript.NewReconciler(transcript.NewMemoryStore(), quietLogger())
	executor := tools.NewClient(tools.ClientConfig{}, quietLogger())
	pa := persona.Persona{Name: "recon", Endpoint: "http://127.0.0.1:1", Payload: persona.PayloadCommand}
	session := NewSession("s1")
	return NewWorker(NewLoop(provider, executor, pa, rec, quietLogger()), session, quietLogger()), session
}

func userMessages(session *Session) []string {
	var out []string
	for _, m := range session.Messages() {
		if m.Role == models.RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

func TestWorker_LatestQueuedMessageWins(t *testing.T) {
	unblock := make(chan struct{})
	provider := &fakeProvider{
		script: []func() (*llm.Response, error){
			reply("first answer"),
			reply("second answer"),
		},
		unblock: unblock,
	}
	worker, session := newTestWorker(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	worker.Submit("first")
	waitFor(t, time.Second, func() bool { return worker.InFlight() })

	// Two messages queued while a turn is in flight: only the newest may run.
	worker.Submit("second")
	worker.Submit("third")

	unblock <- struct{}{}
	unblock <- struct{}{}
	waitFor(t, time.Second, func() bool { return provider.callCount() == 2 })
	waitFor(t, time.Second, func() bool { return !worker.InFlight() })

	got := userMessages(session)
	if len(got) != 2 || got[0] != "first" || got[1] != "third" {
		t.Errorf("expected [first third], got %v", got)
	}
}

func TestWorker_AtMostOneTurnInFlight(t *testing.T) {
	unblock := make(chan struct{})
	provider := &fakeProvider{
		script: []func() (*llm.Response, error){
			reply("a"),
			reply("b"),
		},
		unblock: unblock,
	}
	worker, _ := newTestWorker(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	worker.Submit("one")
	waitFor(t, time.Second, func() bool { return provider.startedCount() == 1 })
	worker.Submit("two")

	// The first turn is blocked inside the provider; the second must not
	// have started.
	time.Sleep(20 * time.Millisecond)
	if provider.startedCount() != 1 {
		t.Fatalf("second turn started while the first was in flight, started = %d", provider.startedCount())
	}

	unblock <- struct{}{}
	unblock <- struct{}{}
	waitFor(t, time.Second, func() bool { return provider.callCount() == 2 })
}

func TestWorker_CancelAbortsOnlyCurrentTurn(t *testing.T) {
	unblock := make(chan struct{})
	provider := &fakeProvider{
		// The cancelled turn aborts inside the provider without consuming a
		// scripted round.
		script:  []func() (*llm.Response, error){reply("after cancel")},
		unblock: unblock,
	}
	worker, session := newTestWorker(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	worker.Submit("doomed")
	waitFor(t, time.Second, func() bool { return worker.InFlight() })
	worker.Cancel()
	waitFor(t, time.Second, func() bool { return !worker.InFlight() })

	if msgs := session.Messages(); len(msgs) != 0 {
		t.Errorf("cancelled turn must be withdrawn, transcript = %+v", msgs)
	}

	// The worker keeps serving after a cancellation.
	worker.Submit("next")
	unblock <- struct{}{}
	waitFor(t, time.Second, func() bool { return provider.callCount() == 1 && !worker.InFlight() })

	got := userMessages(session)
	if len(got) != 1 || got[0] != "next" {
		t.Errorf("expected only the post-cancel turn, got %v", got)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
