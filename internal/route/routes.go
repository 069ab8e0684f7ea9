package route

import (
	"net/http"

	"kidneystone/internal/config"
	"kidneystone/internal/handler"
	"kidneystone/internal/logger"
	"kidneystone/internal/middleware"
	"kidneystone/internal/repository"
)

// SetupRoutes registers the detection API, the analysis history API, the
// viewer websocket and log endpoints, and wraps the mux with CORS and
// token authentication.
func SetupRoutes(analyzer handler.Analyzer, hub handler.ViewerHub, cfg *config.Config, logger *logger.Logger,
	analysisRepo repository.AnalysisRepository, stoneRepo repository.StoneRepository) http.Handler {
	mux := http.NewServeMux()

	// Detection API
	mux.HandleFunc("GET /health", handler.HealthHandler(analyzer, logger))
	mux.HandleFunc("POST /detect", handler.DetectHandler(analyzer, cfg, logger))
	mux.HandleFunc("GET /model-info", handler.ModelInfoHandler(analyzer, logger))
	mux.HandleFunc("GET /train-status", handler.TrainStatusHandler(cfg, logger))

	// Analysis history
	mux.HandleFunc("GET /api/analyses", handler.ListAnalysesHandler(cfg, logger, analysisRepo))
	mux.HandleFunc("GET /api/analyses/stats", handler.AnalysisStatsHandler(cfg, logger, analysisRepo))
	mux.HandleFunc("GET /api/analyses/locations", handler.LocationsHandler(logger, stoneRepo))
	mux.HandleFunc("GET /api/analyses/{id}", handler.GetAnalysisHandler(logger, analysisRepo, stoneRepo))
	mux.HandleFunc("DELETE /api/analyses/{id}", handler.DeleteAnalysisHandler(cfg, logger, analysisRepo))
	mux.HandleFunc("DELETE /api/analyses", handler.ClearAnalysesHandler(cfg, logger, analysisRepo))
	mux.HandleFunc("GET /api/scans/view", handler.ViewScanHandler(cfg))

	// Live viewers
	mux.HandleFunc("GET /api/view", handler.ViewWebsocketHandler(cfg, hub, logger))

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(cfg))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	return middleware.Chain(mux,
		middleware.CORSMiddleware(cfg.AllowedOrigins),
		middleware.AuthMiddleware(cfg.APIToken),
	)
}
