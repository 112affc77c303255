package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/mnemos/internal/profile"
	"github.com/hrygo/mnemos/plugin/ai"
	"github.com/hrygo/mnemos/plugin/memory"
	"github.com/hrygo/mnemos/plugin/memory/metrics"
	"github.com/hrygo/mnemos/plugin/memory/notify"
	"github.com/hrygo/mnemos/plugin/memory/queue"
	"github.com/hrygo/mnemos/plugin/memory/vector"
	mnemosmw "github.com/hrygo/mnemos/server/middleware"
	apiv1 "github.com/hrygo/mnemos/server/router/api/v1"
	"github.com/hrygo/mnemos/server/runner/consolidation"
	"github.com/hrygo/mnemos/store"
	"github.com/hrygo/mnemos/store/vectordb"
)

// Server owns the HTTP surface and the background consolidation machinery.
// With AI disabled it still ingests and serves turns; memory endpoints
// report the capability as unavailable.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	queue      *queue.Queue
	runner     *consolidation.Runner
	persister  *metrics.Persister
	dispatcher *notify.Dispatcher

	backgroundCancel context.CancelFunc
}

func NewServer(ctx context.Context, profile *profile.Profile, st *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				slog.Warn("http request", "uri", v.URI, "status", v.Status, "error", v.Error)
			} else {
				slog.Info("http request", "uri", v.URI, "status", v.Status)
			}
			return nil
		},
	}))

	s := &Server{
		Profile:    profile,
		Store:      st,
		echoServer: e,
		dispatcher: notify.NewDispatcher(64),
	}

	recorder := metrics.NewRecorder()
	s.persister = metrics.NewPersister(recorder, st)
	s.queue = queue.New(profile.QueueWorkers, 256)

	var memoryService memory.MemoryService
	var trigger *memory.IncrementalTrigger
	if profile.IsAIEnabled() {
		cfg := ai.NewConfigFromProfile(profile)
		classifier := ai.NewClassificationService(&cfg.Classifier)
		embedder := ai.NewCachedEmbeddingService(ai.NewEmbeddingService(&cfg.Embedding), 2048, time.Hour)

		vectors, err := s.newVectorStore(ctx, cfg.Embedding.Dimensions)
		if err != nil {
			slog.Warn("vector store unavailable, retrieval degrades to lexical-only", "error", err)
			vectors = nil
		}

		engine := memory.NewEngine(st, classifier, embedder, vectors, s.dispatcher, recorder, profile.SurfacingThreshold)
		memoryService = memory.NewService(st, engine, embedder, vectors, recorder)
		trigger = memory.NewIncrementalTrigger(engine, s.queue, profile.IncrementalThreshold)
		s.runner = consolidation.NewRunner(st, memoryService, s.queue, trigger, profile.SweepSchedule)
	} else {
		slog.Info("AI capabilities disabled, memory endpoints will report unavailable")
	}

	rateLimiter := mnemosmw.NewRateLimiter(20, 40)
	apiv1.NewAPIV1Service(profile, st, memoryService, trigger).
		WithDispatcher(s.dispatcher).
		Register(e, rateLimiter.Middleware())

	return s, nil
}

// newVectorStore provisions pgvector on the relational connection. The
// sqlite driver has no vector extension; retrieval stays lexical there.
func (s *Server) newVectorStore(ctx context.Context, dimensions int) (vector.Store, error) {
	if s.Profile.Driver != "postgres" {
		return nil, errors.Errorf("driver %q has no vector support", s.Profile.Driver)
	}
	db, ok := s.Store.GetDriver().GetDB().(*sql.DB)
	if !ok {
		return nil, errors.New("driver does not expose a sql.DB")
	}
	vs := vectordb.NewPgVectorStore(db, dimensions)
	if err := vs.EnsureCollection(ctx, memory.ConceptCollection); err != nil {
		return nil, errors.Wrap(err, "failed to ensure vector collection")
	}
	return vs, nil
}

// Start launches background workers and begins serving. It returns once the
// listener is up or fails to bind.
func (s *Server) Start(ctx context.Context) error {
	backgroundCtx, cancel := context.WithCancel(ctx)
	s.backgroundCancel = cancel

	s.queue.Start(backgroundCtx)
	go s.persister.Start(backgroundCtx)
	if s.runner != nil {
		go s.runner.Run(backgroundCtx)
	}

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server started", "address", address, "version", s.Profile.Version, "driver", s.Profile.Driver)
	return s.echoServer.Start(address)
}

// Shutdown drains background work and stops the listener.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown http server", "error", err)
	}

	// Stop feeding the queue first, then let in-flight tasks finish.
	if s.backgroundCancel != nil {
		s.backgroundCancel()
	}
	s.queue.Stop()
	s.dispatcher.Close()

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shutdown complete")
}
