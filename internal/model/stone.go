package model

// Stone is a detected region belonging to an analysis.
type Stone struct {
	ID              int64   `json:"id"`
	AnalysisID      string  `json:"analysis_id"`
	StoneIndex      int     `json:"stone_index"`
	Location        string  `json:"location"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	SizeMM          float64 `json:"size_mm"`
	Confidence      float64 `json:"confidence"`
	Characteristics string  `json:"characteristics"`
	ClassID         int     `json:"class_id"`
}
