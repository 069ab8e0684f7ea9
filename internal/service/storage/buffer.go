package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/docker/go-units"

	"kidneystone/internal/config"
	"kidneystone/internal/dto"
	"kidneystone/internal/logger"
	"kidneystone/internal/repository"
)

// BufferService buffers completed analyses in memory and periodically flushes
// the annotated scans to disk and their records to the history database.
type BufferService struct {
	scansDir      string
	analyses      []dto.BufferedAnalysis
	bufferLimit   int
	flushInterval time.Duration
	maxBytes      int64
	mu            sync.Mutex
	logger        *logger.Logger
	analysisRepo  repository.AnalysisRepository
	stoneRepo     repository.StoneRepository
}

// NewBufferService creates a new BufferService with the target directory and repositories.
func NewBufferService(cfg *config.Config, logger *logger.Logger, analysisRepo repository.AnalysisRepository, stoneRepo repository.StoneRepository) *BufferService {
	limit := cfg.ImageBufferLimit
	if limit <= 0 {
		limit = 1
	}
	interval := time.Duration(cfg.ImageBufferFlushInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &BufferService{
		scansDir:      cfg.ImageDirectory,
		analyses:      make([]dto.BufferedAnalysis, 0, limit),
		bufferLimit:   limit,
		flushInterval: interval,
		maxBytes:      cfg.MaxImageDirectorySize * units.GiB,
		logger:        logger,
		analysisRepo:  analysisRepo,
		stoneRepo:     stoneRepo,
	}
}

// Run flushes on every tick until ctx is cancelled, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush()
		case <-ctx.Done():
			s.Flush()
			return
		}
	}
}

// AddAnalysis queues an analysis for persistence. A full buffer is flushed immediately.
func (s *BufferService) AddAnalysis(item dto.BufferedAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.analyses = append(s.analyses, item)
	s.logger.Info("Buffer size: %d/%d", len(s.analyses), s.bufferLimit)

	if len(s.analyses) >= s.bufferLimit {
		s.flushLocked()
	}
}

// Pending returns the number of buffered analyses.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.analyses)
}

// Flush writes buffered scans to disk and records to the database.
func (s *BufferService) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *BufferService) flushLocked() {
	if len(s.analyses) == 0 {
		return
	}

	if err := os.MkdirAll(s.scansDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return
	}

	used, err := s.analysisRepo.GetStorageSize()
	if err != nil {
		s.logger.Error("Error reading storage size: %v", err)
	}

	savedCount := 0
	for _, item := range s.analyses {
		a := item.Analysis

		if s.maxBytes > 0 && used+int64(len(item.Data)) > s.maxBytes {
			s.logger.Warning("Scan storage limit %s reached, keeping record %s without image",
				units.BytesSize(float64(s.maxBytes)), a.ID)
		} else if len(item.Data) > 0 {
			fullpath := filepath.Join(s.scansDir, a.Filename)
			if err := os.WriteFile(fullpath, item.Data, 0644); err != nil {
				s.logger.Error("Error saving scan %s: %v", a.Filename, err)
			} else {
				a.FilePath = fullpath
				a.FileSize = int64(len(item.Data))
				used += a.FileSize
			}
		}

		if err := s.analysisRepo.Insert(&a); err != nil {
			s.logger.Error("Error saving analysis %s to database: %v", a.ID, err)
			continue
		}

		if err := s.stoneRepo.InsertBatch(item.Stones); err != nil {
			s.logger.Error("Error saving stones of analysis %s: %v", a.ID, err)
		}

		savedCount++
	}

	s.logger.Info("Flushed %d analyses to %s", savedCount, s.scansDir)
	s.analyses = s.analyses[:0]
}
