package conversation

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Worker is the single consumer of user turns for one session. Submitted
// messages land in a one-slot pending buffer where the most recent
// submission wins; the worker pulls one at a time, so at most one turn is
// ever in flight.
type Worker struct {
	loop    *Loop
	session *Session
	log     *logrus.Entry

	mu      sync.Mutex
	pending *string
	cancel  context.CancelFunc
	wake    chan struct{}
}

func NewWorker(loop *Loop, session *Session, log *logrus.Entry) *Worker {
	return &Worker{
		loop:    loop,
		session: session,
		log:     log,
		wake:    make(chan struct{}, 1),
	}
}

// Submit queues a user message. A message submitted while a turn is in
// flight replaces any earlier queued message; only the latest starts once
// the worker is free.
func (w *Worker) Submit(text string) {
	w.mu.Lock()
	w.pending = &text
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Cancel aborts the currently in-flight turn, if any. Queued messages are
// unaffected.
func (w *Worker) Cancel() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// InFlight reports whether a turn is currently being processed.
func (w *Worker) InFlight() bool {
	return w.session.Status() == StatusActive
}

// Run consumes turns until ctx is done. It is the only goroutine that
// calls RunTurn for its session.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		}

		for {
			w.mu.Lock()
			text := w.pending
			w.pending = nil
			w.mu.Unlock()
			if text == nil {
				break
			}

			turnCtx, cancel := context.WithCancel(ctx)
			w.mu.Lock()
			w.cancel = cancel
			w.mu.Unlock()

			err := w.loop.RunTurn(turnCtx, w.session, *text)

			w.mu.Lock()
			w.cancel = nil
			w.mu.Unlock()
			cancel()

			if err != nil && ctx.Err() != nil {
				return
			}
		}
	}
}
