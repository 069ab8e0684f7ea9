package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/docker/go-units"

	"kidneystone/internal/config"
	"kidneystone/internal/dto"
	"kidneystone/internal/logger"
	"kidneystone/internal/model"
	"kidneystone/internal/repository"
)

// ListAnalysesHandler returns a filtered, paginated list of stored analyses.
func ListAnalysesHandler(cfg *config.Config, logger *logger.Logger, analysisRepo repository.AnalysisRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &model.AnalysisFilter{
			Patient:   q.Get("patient"),
			Quality:   q.Get("quality"),
			Location:  q.Get("location"),
			StartDate: parseDate(q.Get("dateAfter")),
			EndDate:   parseDate(q.Get("dateBefore")),
			MinStones: atoiDefault(q.Get("minStones"), 0),
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}

		analyses, err := analysisRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying analyses from database: %v", err)
			respondError(w, logger, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}

		totalSize, err := analysisRepo.GetStorageSize()
		if err != nil {
			logger.Error("Error getting scan storage size: %v", err)
			totalSize = 0
		}

		totalCount, err := analysisRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting analyses: %v", err)
			totalCount = len(analyses)
		}

		infos := make([]dto.AnalysisInfo, 0, len(analyses))
		for _, a := range analyses {
			infos = append(infos, dto.NewAnalysisInfo(a))
		}

		respondJSON(w, logger, http.StatusOK, dto.AnalysesData{
			Analyses:    infos,
			ScansDir:    cfg.ImageDirectory,
			Size:        totalSize,
			SizeHuman:   units.BytesSize(float64(totalSize)),
			MaxSize:     cfg.MaxImageDirectorySize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// GetAnalysisHandler returns one analysis with its stones.
func GetAnalysisHandler(logger *logger.Logger, analysisRepo repository.AnalysisRepository, stoneRepo repository.StoneRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		a, err := analysisRepo.GetByID(id)
		if err != nil {
			logger.Error("Error loading analysis %s: %v", id, err)
			respondError(w, logger, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}
		if a == nil {
			respondError(w, logger, http.StatusNotFound, "Analysis not found", id)
			return
		}

		stones, err := stoneRepo.GetByAnalysisID(id)
		if err != nil {
			logger.Error("Error loading stones of analysis %s: %v", id, err)
			stones = []model.Stone{}
		}

		patientInfo := map[string]any{}
		if err := json.Unmarshal([]byte(a.PatientInfo), &patientInfo); err != nil {
			logger.Warning("Analysis %s has malformed patient info: %v", id, err)
		}

		respondJSON(w, logger, http.StatusOK, dto.AnalysisDetail{
			Analysis:    *a,
			PatientInfo: patientInfo,
			Stones:      stones,
		})
	}
}

// DeleteAnalysisHandler removes an analysis from disk and database.
func DeleteAnalysisHandler(cfg *config.Config, logger *logger.Logger, analysisRepo repository.AnalysisRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		a, err := analysisRepo.GetByID(id)
		if err != nil {
			logger.Error("Error loading analysis %s: %v", id, err)
			respondError(w, logger, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}
		if a == nil {
			respondError(w, logger, http.StatusNotFound, "Analysis not found", id)
			return
		}

		if a.Filename != "" {
			filePath := filepath.Join(cfg.ImageDirectory, filepath.Base(a.Filename))
			if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
				logger.Error("Failed to delete file %s: %v", filePath, err)
			}
		}

		if err := analysisRepo.Delete(id); err != nil {
			logger.Error("Failed to delete analysis %s from database: %v", id, err)
			respondError(w, logger, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}

		logger.Info("Deleted analysis: %s", id)
		respondJSON(w, logger, http.StatusOK, map[string]string{"status": "deleted", "id": id})
	}
}

// ClearAnalysesHandler deletes all stored scans and clears the history database.
func ClearAnalysesHandler(cfg *config.Config, logger *logger.Logger, analysisRepo repository.AnalysisRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := os.ReadDir(cfg.ImageDirectory)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading scans directory: %v", err)
			respondError(w, logger, http.StatusInternalServerError, "Unable to read scans directory", "")
			return
		}

		for _, file := range files {
			if file.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(cfg.ImageDirectory, file.Name())); err != nil {
				logger.Error("Error deleting file %s: %v", file.Name(), err)
			}
		}

		if err := analysisRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing database: %v", err)
			respondError(w, logger, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}

		logger.Info("All analyses cleared from directory: %s", cfg.ImageDirectory)
		w.WriteHeader(http.StatusNoContent)
	}
}

// AnalysisStatsHandler returns aggregate history statistics.
func AnalysisStatsHandler(cfg *config.Config, logger *logger.Logger, analysisRepo repository.AnalysisRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := analysisRepo.GetStats()
		if err != nil {
			logger.Error("Error computing statistics: %v", err)
			respondError(w, logger, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}

		respondJSON(w, logger, http.StatusOK, struct {
			*model.AnalysisStats
			TotalSize string `json:"total_size"`
			MaxSize   string `json:"max_size"`
		}{
			AnalysisStats: stats,
			TotalSize:     units.BytesSize(float64(stats.TotalSizeBytes)),
			MaxSize:       units.BytesSize(float64(cfg.MaxImageDirectorySize * units.GiB)),
		})
	}
}

// LocationsHandler lists every location a stone has been recorded in.
func LocationsHandler(logger *logger.Logger, stoneRepo repository.StoneRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locations, err := stoneRepo.GetLocations()
		if err != nil {
			logger.Error("Error querying locations: %v", err)
			respondError(w, logger, http.StatusInternalServerError, "Internal Server Error", "")
			return
		}
		respondJSON(w, logger, http.StatusOK, locations)
	}
}

// ViewScanHandler serves a single annotated scan specified via the "image" query parameter.
func ViewScanHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if image == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		filePath := filepath.Join(cfg.ImageDirectory, filepath.Base(image))
		http.ServeFile(w, r, filePath)
	}
}
