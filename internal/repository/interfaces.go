package repository

import (
	"kidneystone/internal/model"
)

// AnalysisRepository defines the interface for analysis history operations.
type AnalysisRepository interface {
	// Create operations
	Insert(a *model.Analysis) error

	// Read operations
	GetByID(id string) (*model.Analysis, error)
	GetAll(filter *model.AnalysisFilter) ([]model.Analysis, error)
	GetTotalCount(filter *model.AnalysisFilter) (int, error)
	GetStorageSize() (int64, error)
	GetStats() (*model.AnalysisStats, error)

	// Delete operations
	Delete(id string) error
	DeleteAll() error
}

// StoneRepository defines the interface for per-stone records.
type StoneRepository interface {
	// Create operations
	InsertBatch(stones []model.Stone) error

	// Read operations
	GetByAnalysisID(analysisID string) ([]model.Stone, error)
	GetLocations() ([]string, error)
}
