// Package analysis turns raw model boxes into the clinical-looking report
// returned by the detect endpoint. Every rule here is a fixed heuristic: a
// constant pixels-per-mm calibration, image thirds for location, and pixel
// count plus grayscale contrast for image quality.
package analysis

import (
	"fmt"
	"math"
)

const (
	// PixelsPerMM approximates CT scan resolution (a 100-120mm kidney spanning 300-400px).
	PixelsPerMM = 3.5

	// LowContrast is the grayscale standard deviation under which quality is capped at fair.
	LowContrast = 20

	excellentPixels = 2000000
	goodPixels      = 800000
	fairPixels      = 300000
)

// Image quality grades.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
)

// CalculateStoneSize estimates the stone diameter in millimetres from its
// bounding box, averaging width and height, rounded to one decimal.
func CalculateStoneSize(boxWidth, boxHeight float64) float64 {
	widthMM := boxWidth / PixelsPerMM
	heightMM := boxHeight / PixelsPerMM

	return round1((widthMM + heightMM) / 2)
}

// DetermineLocation buckets a point into one of nine regions using fixed
// image thirds. Points exactly on a boundary fall into the central band.
func DetermineLocation(xCenter, yCenter float64, imgWidth, imgHeight int) string {
	horizontalThird := float64(imgWidth) / 3
	verticalThird := float64(imgHeight) / 3

	var side string
	switch {
	case xCenter < horizontalThird:
		side = "Left"
	case xCenter > 2*horizontalThird:
		side = "Right"
	default:
		side = "Central"
	}

	var pole string
	switch {
	case yCenter < verticalThird:
		pole = "Upper Pole"
	case yCenter > 2*verticalThird:
		pole = "Lower Pole"
	default:
		pole = "Mid Section"
	}

	return fmt.Sprintf("%s Kidney - %s", side, pole)
}

// AssessImageQuality grades a scan by resolution, downgrading to fair when
// contrast is low. A poor scan stays poor.
func AssessImageQuality(totalPixels int, contrast float64) string {
	var quality string
	switch {
	case totalPixels > excellentPixels:
		quality = QualityExcellent
	case totalPixels > goodPixels:
		quality = QualityGood
	case totalPixels > fairPixels:
		quality = QualityFair
	default:
		quality = QualityPoor
	}

	if contrast < LowContrast && quality != QualityPoor {
		quality = QualityFair
	}

	return quality
}

// Characterize describes a stone by its estimated size.
func Characterize(sizeMM float64) string {
	switch {
	case sizeMM > 10:
		return "Large calcification, irregular borders"
	case sizeMM > 5:
		return "Moderate-sized stone, well-defined"
	default:
		return "Small calculus, smooth appearance"
	}
}

// round1 rounds to one decimal, halves to even.
func round1(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}
