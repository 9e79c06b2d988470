package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/strikeview/strikeview/internal/broker"
	"github.com/strikeview/strikeview/internal/config"
	"github.com/strikeview/strikeview/internal/conversation"
	"github.com/strikeview/strikeview/internal/dashboard"
	"github.com/strikeview/strikeview/internal/events"
	"github.com/strikeview/strikeview/internal/llm"
	"github.com/strikeview/strikeview/internal/persona"
	"github.com/strikeview/strikeview/internal/telemetry"
	"github.com/strikeview/strikeview/internal/tools"
	"github.com/strikeview/strikeview/internal/transcript"
	"github.com/strikeview/strikeview/internal/web"
)

const defaultPersona = "recon"

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	registry, err := persona.Load()
	if err != nil {
		log.Fatalf("Failed to load personas: %v", err)
	}
	pa, err := registry.Get(defaultPersona)
	if err != nil {
		log.Fatalf("Failed to resolve persona: %v", err)
	}

	provider, err := llm.NewOpenAIProvider(llm.Options{
		APIKey:  cfg.LLM.ApiKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		if errors.Is(err, llm.ErrNoAPIKey) {
			log.Fatal("API_KEY is not set; the agent needs a model credential before it can start")
		}
		log.Fatalf("Failed to build model provider: %v", err)
	}

	var store transcript.Store
	if cfg.Transcript.ServiceURL != "" {
		store = transcript.NewHTTPStore(cfg.Transcript.ServiceURL, 15*time.Second)
	} else {
		store = transcript.NewMemoryStore()
	}
	rec := transcript.NewReconciler(store, log.WithField("component", "transcript"))

	state := dashboard.NewState()
	bus := broker.New[events.Result](1024)
	manager := telemetry.NewManager(
		telemetry.Config{BaseURL: cfg.Telemetry.BaseURL},
		state, bus, log.WithField("component", "telemetry"),
	)

	executor := tools.NewClient(tools.ClientConfig{}, log.WithField("component", "tools"))
	session := conversation.NewSession("default")
	loop := conversation.NewLoop(provider, executor, pa, rec, log.WithField("component", "conversation"))
	worker := conversation.NewWorker(loop, session, log.WithField("component", "worker"))

	server := web.NewServer(cfg, state, bus, manager, worker, session, log.WithField("component", "web"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(ctx)
		return nil
	})
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		manager.Unsubscribe()
		return server.Stop()
	})

	// Resume an interrupted session: a trailing user message triggers one
	// automatic turn.
	if content, ok, err := loop.LoadSession(ctx, session); err != nil {
		log.WithError(err).Warn("session load failed, starting empty")
	} else if ok {
		worker.Submit(content)
	}

	log.WithField("addr", cfg.Web.ListenAddr).Info("strikeview started")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Shutdown with error: %v", err)
	}
}
