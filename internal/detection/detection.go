// Package detection holds the model-agnostic results produced by a detector.
package detection

// Box is a single region returned by the model, in image pixel coordinates.
type Box struct {
	X1         float64
	Y1         float64
	X2         float64
	Y2         float64
	Confidence float64 // 0..1
	ClassID    int
}

// Width of the box in pixels.
func (b Box) Width() float64 {
	return b.X2 - b.X1
}

// Height of the box in pixels.
func (b Box) Height() float64 {
	return b.Y2 - b.Y1
}

// Center returns the box center point.
func (b Box) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Scan is the outcome of running the model over one decoded image.
type Scan struct {
	Width    int
	Height   int
	Contrast float64 // standard deviation of grayscale pixel values
	Boxes    []Box
}

// Pixels returns the total pixel count of the scanned image.
func (s Scan) Pixels() int {
	return s.Width * s.Height
}

// ModelInfo describes the network a detector has loaded.
type ModelInfo struct {
	Path       string
	Custom     bool
	InputSize  int
	Confidence float64
	IoU        float64
	Classes    int
}
