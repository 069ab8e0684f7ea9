package dto

import (
	"encoding/json"
	"time"

	"kidneystone/internal/model"
)

// AnalysisInfo is a history entry as listed by the analyses API.
type AnalysisInfo struct {
	ID           string    `json:"id"`
	PatientName  string    `json:"patientName"`
	ImageQuality string    `json:"imageQuality"`
	TotalCount   int       `json:"totalCount"`
	Confidence   float64   `json:"analysisConfidence"`
	Findings     string    `json:"findings"`
	Image        string    `json:"image"`
	Date         time.Time `json:"date"`
	TimeOfDay    time.Time `json:"timeOfDay"`
}

// NewAnalysisInfo converts a stored analysis into its list representation.
func NewAnalysisInfo(a model.Analysis) AnalysisInfo {
	local := a.Timestamp.Local()
	return AnalysisInfo{
		ID:           a.ID,
		PatientName:  a.PatientName,
		ImageQuality: a.ImageQuality,
		TotalCount:   a.TotalCount,
		Confidence:   a.Confidence,
		Findings:     a.Findings,
		Image:        a.Filename,
		Date:         local,
		TimeOfDay:    local,
	}
}

// MarshalJSON customizes JSON output for AnalysisInfo to format date and time-of-day.
func (p AnalysisInfo) MarshalJSON() ([]byte, error) {
	type Alias AnalysisInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      p.Date.Format("02-01-2006"),
		TimeOfDay: p.TimeOfDay.Format("15:04"),
		Alias:     (Alias)(p),
	})
}

// AnalysisDetail is a single stored analysis with its stones.
type AnalysisDetail struct {
	Analysis    model.Analysis `json:"analysis"`
	PatientInfo map[string]any `json:"patientInfo"`
	Stones      []model.Stone  `json:"stones"`
}
