package analysis

import (
	"fmt"
	"slices"
	"strconv"

	"kidneystone/internal/detection"
)

// NoStonesConfidence is reported as overall confidence when nothing was found.
const NoStonesConfidence = 95.0

// Limitations is attached to every report.
const Limitations = "Automated detection may miss stones <3mm. Manual radiologist review recommended for clinical decision-making."

// Stone is one detected region after post-processing.
type Stone struct {
	ID              int
	Location        string
	X               float64
	Y               float64
	Width           float64
	Height          float64
	SizeMM          float64
	Confidence      float64 // percent, one decimal
	Characteristics string
	ClassID         int
}

// Size formats the estimated size the way it is shown to clinicians, e.g. "4.0 mm".
func (s Stone) Size() string {
	return strconv.FormatFloat(s.SizeMM, 'f', 1, 64) + " mm"
}

// Report is the full outcome for one scan.
type Report struct {
	Stones            []Stone
	ImageQuality      string
	Findings          string
	Recommendations   string
	OverallConfidence float64
}

// TotalCount returns the number of detected stones.
func (r *Report) TotalCount() int {
	return len(r.Stones)
}

// NewStone applies the size, location and characteristic heuristics to a box.
func NewStone(id int, box detection.Box, imgWidth, imgHeight int) Stone {
	xCenter, yCenter := box.Center()
	size := CalculateStoneSize(box.Width(), box.Height())

	return Stone{
		ID:              id,
		Location:        DetermineLocation(xCenter, yCenter, imgWidth, imgHeight),
		X:               box.X1,
		Y:               box.Y1,
		Width:           box.Width(),
		Height:          box.Height(),
		SizeMM:          size,
		Confidence:      round1(box.Confidence * 100),
		Characteristics: Characterize(size),
		ClassID:         box.ClassID,
	}
}

// SortByConfidence orders stones highest confidence first. Ties keep model order.
func SortByConfidence(stones []Stone) {
	slices.SortStableFunc(stones, func(a, b Stone) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})
}

// BuildReport runs every heuristic over a scan. Stone ids follow the order
// the model returned boxes in, before sorting.
func BuildReport(scan detection.Scan) *Report {
	stones := make([]Stone, 0, len(scan.Boxes))
	for idx, box := range scan.Boxes {
		stones = append(stones, NewStone(idx+1, box, scan.Width, scan.Height))
	}
	SortByConfidence(stones)

	report := &Report{
		Stones:       stones,
		ImageQuality: AssessImageQuality(scan.Pixels(), scan.Contrast),
	}
	report.Findings, report.Recommendations = summarize(stones)
	report.OverallConfidence = overallConfidence(stones)

	return report
}

func summarize(stones []Stone) (string, string) {
	switch len(stones) {
	case 0:
		return "No kidney stones detected in this CT scan. The renal parenchyma appears clear.",
			"No immediate intervention required. Continue routine monitoring if patient is symptomatic."
	case 1:
		return fmt.Sprintf("Single kidney stone detected measuring %s.", stones[0].Size()),
			"Consider hydration therapy and pain management. Urology consultation recommended if stone is >5mm or patient is symptomatic."
	default:
		return fmt.Sprintf("Multiple kidney stones detected (%d total). Bilateral involvement noted.", len(stones)),
			"Comprehensive urological evaluation recommended. Consider metabolic workup and 24-hour urine collection. Discuss treatment options including ESWL or ureteroscopy based on stone size and location."
	}
}

func overallConfidence(stones []Stone) float64 {
	if len(stones) == 0 {
		return NoStonesConfidence
	}

	var sum float64
	for _, s := range stones {
		sum += s.Confidence
	}
	return round1(sum / float64(len(stones)))
}
