package dto

import (
	"time"

	"kidneystone/internal/analysis"
)

const (
	ImageType  = "CT Scan - Automated YOLOv8 Analysis"
	ModelUsed  = "YOLOv8 (Deep Learning)"
	DateLayout = "2006-01-02 15:04:05"
)

// Coordinates is the top-left corner and extent of a stone in image pixels.
type Coordinates struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DetectedStone is one entry of DetectResponse.DetectedStones.
type DetectedStone struct {
	ID              int         `json:"id"`
	Location        string      `json:"location"`
	Coordinates     Coordinates `json:"coordinates"`
	Size            string      `json:"size"`
	Confidence      float64     `json:"confidence"`
	Characteristics string      `json:"characteristics"`
}

// DetectResponse is the body returned by POST /detect.
type DetectResponse struct {
	AnalysisID           string          `json:"analysisId,omitempty"`
	DetectedStones       []DetectedStone `json:"detectedStones"`
	TotalCount           int             `json:"totalCount"`
	ImageType            string          `json:"imageType"`
	ImageQuality         string          `json:"imageQuality"`
	Findings             string          `json:"findings"`
	Recommendations      string          `json:"recommendations"`
	LimitationsNoted     string          `json:"limitationsNoted"`
	AnalysisConfidence   float64         `json:"analysisConfidence"`
	AnalysisDate         string          `json:"analysisDate"`
	ModelUsed            string          `json:"modelUsed"`
	PreprocessingApplied bool            `json:"preprocessingApplied"`
	ValidationApplied    bool            `json:"validationApplied"`
}

// NewDetectResponse renders a report in the response shape the frontend expects.
func NewDetectResponse(id string, report *analysis.Report, at time.Time) *DetectResponse {
	stones := make([]DetectedStone, 0, len(report.Stones))
	for _, s := range report.Stones {
		stones = append(stones, DetectedStone{
			ID:       s.ID,
			Location: s.Location,
			Coordinates: Coordinates{
				X:      s.X,
				Y:      s.Y,
				Width:  s.Width,
				Height: s.Height,
			},
			Size:            s.Size(),
			Confidence:      s.Confidence,
			Characteristics: s.Characteristics,
		})
	}

	return &DetectResponse{
		AnalysisID:           id,
		DetectedStones:       stones,
		TotalCount:           report.TotalCount(),
		ImageType:            ImageType,
		ImageQuality:         report.ImageQuality,
		Findings:             report.Findings,
		Recommendations:      report.Recommendations,
		LimitationsNoted:     analysis.Limitations,
		AnalysisConfidence:   report.OverallConfidence,
		AnalysisDate:         at.Format(DateLayout),
		ModelUsed:            ModelUsed,
		PreprocessingApplied: true,
		ValidationApplied:    true,
	}
}
