package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"kidneystone/internal/config"
	"kidneystone/internal/detection"
	"kidneystone/internal/dto"
	"kidneystone/internal/logger"
	"kidneystone/internal/service"
)

const trainRecommendation = "Train a custom model on kidney stone dataset for 80-95% accuracy"

// Analyzer runs the detection pipeline for a request.
type Analyzer interface {
	Analyze(ctx context.Context, req dto.DetectRequest) (*dto.DetectResponse, error)
	ModelLoaded() bool
	ModelInfo() (detection.ModelInfo, bool)
}

// HealthHandler reports liveness and whether a model is loaded.
func HealthHandler(analyzer Analyzer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, logger, http.StatusOK, dto.HealthResponse{
			Status:      "healthy",
			ModelLoaded: analyzer.ModelLoaded(),
			Timestamp:   time.Now().Format("2006-01-02T15:04:05.000000"),
		})
	}
}

// DetectHandler accepts a base64 scan and returns the stone report.
func DetectHandler(analyzer Analyzer, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.MaxBodySize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBodySize)
		}

		var req dto.DetectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(w, logger, http.StatusRequestEntityTooLarge, "Image too large",
					fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
				return
			}
			respondError(w, logger, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}

		response, err := analyzer.Analyze(r.Context(), req)
		if errors.Is(err, service.ErrNoImage) {
			respondError(w, logger, http.StatusBadRequest, "No image provided", "")
			return
		}
		if errors.Is(err, service.ErrStopped) {
			respondError(w, logger, http.StatusServiceUnavailable, "Server shutting down", "")
			return
		}
		if err != nil {
			logger.Error("Error during detection: %v", err)
			respondError(w, logger, http.StatusInternalServerError, "Detection failed", err.Error())
			return
		}

		respondJSON(w, logger, http.StatusOK, response)
	}
}

// ModelInfoHandler describes the loaded network.
func ModelInfoHandler(analyzer Analyzer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := analyzer.ModelInfo()
		if !ok {
			respondError(w, logger, http.StatusInternalServerError, "Model not loaded", "")
			return
		}

		respondJSON(w, logger, http.StatusOK, dto.ModelInfoResponse{
			ModelType:           "YOLOv8",
			ModelPath:           info.Path,
			IsCustomTrained:     info.Custom,
			InputSize:           fmt.Sprintf("%dx%d", info.InputSize, info.InputSize),
			ConfidenceThreshold: info.Confidence,
			IoUThreshold:        info.IoU,
			Classes:             info.Classes,
		})
	}
}

// TrainStatusHandler reports whether custom weights exist on disk.
func TrainStatusHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := os.Stat(cfg.ModelPath)
		respondJSON(w, logger, http.StatusOK, dto.TrainStatusResponse{
			CustomModelExists: err == nil,
			ModelPath:         cfg.ModelPath,
			Recommendation:    trainRecommendation,
		})
	}
}
