package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"kidneystone/internal/config"
	"kidneystone/internal/logger"
	"kidneystone/internal/repository/sqlite"
	"kidneystone/internal/route"
	"kidneystone/internal/service"
	"kidneystone/internal/service/ai"
	"kidneystone/internal/service/storage"
	"kidneystone/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	manager       *service.Manager
	server        *http.Server
}

// NewApp wires configuration, storage, detectors and routes. A missing model
// is not fatal: the server starts and reports model_loaded=false.
func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, err
	}

	analysisRepo := sqlite.NewAnalysisRepository(db)
	stoneRepo := sqlite.NewStoneRepository(db)

	detectors := loadDetectors(cfg, log)
	buffer := storage.NewBufferService(cfg, log, analysisRepo, stoneRepo)
	hub := websocket.NewHubService(log)
	mng := service.NewManager(detectors, buffer, hub, cfg, log)

	router := route.SetupRoutes(mng, hub, cfg, log, analysisRepo, stoneRepo)

	return &App{
		config:        cfg,
		logger:        log,
		db:            db,
		bufferService: buffer,
		hubService:    hub,
		manager:       mng,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// loadDetectors loads one network per processing worker.
func loadDetectors(cfg *config.Config, log *logger.Logger) []service.Detector {
	count := max(cfg.ProcessingWorkers, 1)
	detectors := make([]service.Detector, 0, count)

	for i := 0; i < count; i++ {
		d, err := ai.NewDetector(cfg, log)
		if err != nil {
			log.Error("Error loading model: %v", err)
			break
		}
		detectors = append(detectors, d)
	}

	if len(detectors) == 0 {
		log.Warning("No model loaded, /detect will fail until weights are installed")
	}
	return detectors
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully and
// flushes pending analyses.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.bufferService.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.hubService.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.logger.Info("Starting Kidney Stone Detection Server on http://localhost:%d", a.config.Port)
		a.logger.Info("Scans: %s, database: %s", a.config.ImageDirectory, a.config.DatabasePath)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	a.manager.Stop()
	a.bufferService.Flush()
	if closeErr := a.db.Close(); closeErr != nil {
		a.logger.Error("Error closing database: %v", closeErr)
	}
	a.logger.Info("Server stopped")
	a.logger.Close()

	return err
}
