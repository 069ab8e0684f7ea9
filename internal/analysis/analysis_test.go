package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidneystone/internal/detection"
)

func TestCalculateStoneSize(t *testing.T) {
	tests := []struct {
		width, height float64
		expected      float64
	}{
		{35, 35, 10.0},
		{14, 14, 4.0},
		{7, 14, 3.0},
		{0, 0, 0},
		{10, 11, 3.0},
		{100, 50, 21.4},
		{7.875, 7.875, 2.2},
		{2.625, 2.625, 0.8},
	}

	for _, tt := range tests {
		got := CalculateStoneSize(tt.width, tt.height)
		if got != tt.expected {
			t.Errorf("CalculateStoneSize(%v, %v) = %v, expected %v", tt.width, tt.height, got, tt.expected)
		}
	}
}

func TestCalculateStoneSize_Monotonic(t *testing.T) {
	prev := CalculateStoneSize(1, 1)
	for w := 2.0; w <= 200; w += 3.7 {
		got := CalculateStoneSize(w, 20)
		assert.GreaterOrEqual(t, got, CalculateStoneSize(w-1, 20), "width %v", w)
		assert.GreaterOrEqual(t, CalculateStoneSize(w, w), prev, "square %v", w)
		prev = CalculateStoneSize(w, w)
	}
}

func TestDetermineLocation(t *testing.T) {
	tests := []struct {
		name     string
		x, y     float64
		expected string
	}{
		{"top left", 10, 10, "Left Kidney - Upper Pole"},
		{"top centre", 150, 10, "Central Kidney - Upper Pole"},
		{"top right", 290, 10, "Right Kidney - Upper Pole"},
		{"middle left", 10, 150, "Left Kidney - Mid Section"},
		{"centre", 150, 150, "Central Kidney - Mid Section"},
		{"middle right", 290, 150, "Right Kidney - Mid Section"},
		{"bottom left", 10, 290, "Left Kidney - Lower Pole"},
		{"bottom centre", 150, 290, "Central Kidney - Lower Pole"},
		{"bottom right", 290, 290, "Right Kidney - Lower Pole"},
		{"on first third", 100, 100, "Central Kidney - Mid Section"},
		{"on second third", 200, 200, "Central Kidney - Mid Section"},
		{"just past second third", 200.01, 200.01, "Right Kidney - Lower Pole"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineLocation(tt.x, tt.y, 300, 300))
		})
	}
}

func TestDetermineLocation_NineRegions(t *testing.T) {
	seen := make(map[string]bool)
	for x := 0.0; x < 600; x += 7 {
		for y := 0.0; y < 300; y += 7 {
			seen[DetermineLocation(x, y, 600, 300)] = true
		}
	}
	assert.Len(t, seen, 9)
}

func TestAssessImageQuality(t *testing.T) {
	tests := []struct {
		pixels   int
		contrast float64
		expected string
	}{
		{2000001, 50, QualityExcellent},
		{2000000, 50, QualityGood},
		{800001, 50, QualityGood},
		{800000, 50, QualityFair},
		{300001, 50, QualityFair},
		{300000, 50, QualityPoor},
		{2500000, 10, QualityFair},
		{1000000, 19.9, QualityFair},
		{1000000, 20, QualityGood},
		{1000, 5, QualityPoor},
	}

	for _, tt := range tests {
		got := AssessImageQuality(tt.pixels, tt.contrast)
		if got != tt.expected {
			t.Errorf("AssessImageQuality(%d, %v) = %s, expected %s", tt.pixels, tt.contrast, got, tt.expected)
		}
	}
}

func TestCharacterize(t *testing.T) {
	assert.Equal(t, "Large calcification, irregular borders", Characterize(10.1))
	assert.Equal(t, "Moderate-sized stone, well-defined", Characterize(10))
	assert.Equal(t, "Moderate-sized stone, well-defined", Characterize(5.1))
	assert.Equal(t, "Small calculus, smooth appearance", Characterize(5))
	assert.Equal(t, "Small calculus, smooth appearance", Characterize(0))
}

func TestSortByConfidence_Stable(t *testing.T) {
	stones := []Stone{
		{ID: 1, Confidence: 50},
		{ID: 2, Confidence: 80},
		{ID: 3, Confidence: 50},
		{ID: 4, Confidence: 80},
		{ID: 5, Confidence: 10},
	}

	SortByConfidence(stones)

	var ids []int
	for _, s := range stones {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int{2, 4, 1, 3, 5}, ids)
}

func TestBuildReport_NoStones(t *testing.T) {
	report := BuildReport(detection.Scan{Width: 1000, Height: 1000, Contrast: 40})

	assert.Equal(t, 0, report.TotalCount())
	assert.Equal(t, QualityGood, report.ImageQuality)
	assert.Equal(t, NoStonesConfidence, report.OverallConfidence)
	assert.Contains(t, report.Findings, "No kidney stones detected")
	assert.NotNil(t, report.Stones)
}

func TestBuildReport_SingleStone(t *testing.T) {
	scan := detection.Scan{
		Width:    600,
		Height:   600,
		Contrast: 45,
		Boxes: []detection.Box{
			{X1: 20, Y1: 20, X2: 34, Y2: 34, Confidence: 0.8772},
		},
	}

	report := BuildReport(scan)
	require.Equal(t, 1, report.TotalCount())

	stone := report.Stones[0]
	assert.Equal(t, 1, stone.ID)
	assert.Equal(t, "Left Kidney - Upper Pole", stone.Location)
	assert.Equal(t, 4.0, stone.SizeMM)
	assert.Equal(t, "4.0 mm", stone.Size())
	assert.Equal(t, 87.7, stone.Confidence)
	assert.Equal(t, "Single kidney stone detected measuring 4.0 mm.", report.Findings)
	assert.Equal(t, 87.7, report.OverallConfidence)
	assert.Equal(t, QualityFair, report.ImageQuality)
}

func TestNewStone_HalvesRoundToEven(t *testing.T) {
	tests := []struct {
		name       string
		box        detection.Box
		size       float64
		confidence float64
	}{
		{"down to even", detection.Box{X2: 7.875, Y2: 7.875, Confidence: float64(float32(0.8125))}, 2.2, 81.2},
		{"up to even", detection.Box{X2: 2.625, Y2: 2.625, Confidence: float64(float32(0.9375))}, 0.8, 93.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stone := NewStone(1, tt.box, 600, 600)
			assert.Equal(t, tt.size, stone.SizeMM)
			assert.Equal(t, tt.confidence, stone.Confidence)
		})
	}
}

func TestBuildReport_MultipleStonesSortedWithOriginalIDs(t *testing.T) {
	scan := detection.Scan{
		Width:    900,
		Height:   900,
		Contrast: 60,
		Boxes: []detection.Box{
			{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: 0.3},
			{X1: 800, Y1: 800, X2: 850, Y2: 850, Confidence: 0.9},
			{X1: 400, Y1: 400, X2: 420, Y2: 420, Confidence: 0.6},
		},
	}

	report := BuildReport(scan)
	require.Equal(t, 3, report.TotalCount())

	assert.Equal(t, 2, report.Stones[0].ID)
	assert.Equal(t, 3, report.Stones[1].ID)
	assert.Equal(t, 1, report.Stones[2].ID)
	assert.Equal(t, "Right Kidney - Lower Pole", report.Stones[0].Location)
	assert.Equal(t, "Large calcification, irregular borders", report.Stones[0].Characteristics)
	assert.Equal(t, 60.0, report.OverallConfidence)
	assert.Equal(t, "Multiple kidney stones detected (3 total). Bilateral involvement noted.", report.Findings)
}
