package model

import "time"

// Analysis is one processed scan as stored in the history database.
type Analysis struct {
	ID              string    `json:"id"`
	PatientName     string    `json:"patient_name"`
	PatientInfo     string    `json:"patient_info"` // raw JSON sent with the request
	ImageDigest     string    `json:"image_digest"`
	ImageQuality    string    `json:"image_quality"`
	TotalCount      int       `json:"total_count"`
	Confidence      float64   `json:"confidence"`
	Findings        string    `json:"findings"`
	Recommendations string    `json:"recommendations"`
	ModelUsed       string    `json:"model_used"`
	Filename        string    `json:"filename"`
	FilePath        string    `json:"filepath"`
	FileSize        int64     `json:"filesize"`
	Timestamp       time.Time `json:"timestamp"`
}

// AnalysisFilter contains filtering options for querying analyses.
type AnalysisFilter struct {
	Patient   string
	Quality   string
	Location  string
	StartDate time.Time
	EndDate   time.Time
	MinStones int
	Limit     int
	Offset    int
}

// AnalysisStats contains aggregate figures over stored analyses.
type AnalysisStats struct {
	TotalAnalyses     int            `json:"total_analyses"`
	TotalStones       int            `json:"total_stones"`
	TotalSizeBytes    int64          `json:"total_size_bytes"`
	AverageConfidence float64        `json:"average_confidence"`
	PerQuality        map[string]int `json:"per_quality"`
	PerLocation       map[string]int `json:"per_location"`
}
