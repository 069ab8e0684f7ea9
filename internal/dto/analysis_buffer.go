package dto

import "kidneystone/internal/model"

// BufferedAnalysis holds an annotated scan and its records before flushing to disk.
type BufferedAnalysis struct {
	Analysis model.Analysis
	Stones   []model.Stone
	Data     []byte
}
