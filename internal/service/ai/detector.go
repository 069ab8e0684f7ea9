package ai

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"slices"

	"gocv.io/x/gocv"

	"kidneystone/internal/analysis"
	"kidneystone/internal/config"
	"kidneystone/internal/detection"
	"kidneystone/internal/logger"
	"kidneystone/internal/yolo"
)

const (
	// MaxDetections caps the number of boxes kept after suppression.
	MaxDetections = 300

	// classOffset separates classes during suppression so boxes of different
	// classes never suppress each other.
	classOffset = 7680
)

// ErrNoModel is returned when neither the custom nor the fallback weights load.
var ErrNoModel = errors.New("no detection model could be loaded")

// Detector runs an exported YOLOv8 ONNX network through OpenCV DNN.
// A Detector is not safe for concurrent use; callers own one per goroutine.
type Detector struct {
	net    gocv.Net
	info   detection.ModelInfo
	logger *logger.Logger
}

// NewDetector loads the custom-trained model when present, otherwise the
// general fallback model.
func NewDetector(cfg *config.Config, logger *logger.Logger) (*Detector, error) {
	d := &Detector{
		logger: logger,
		info: detection.ModelInfo{
			InputSize:  cfg.InputSize,
			Confidence: cfg.ConfidenceThreshold,
			IoU:        cfg.IoUThreshold,
		},
	}

	err := d.initializeNet(cfg.ModelPath)
	if err == nil {
		d.info.Custom = true
		return d, nil
	}
	logger.Warning("Custom model unavailable (%v), loading pre-trained model %s", err, cfg.FallbackModelPath)

	if err := d.initializeNet(cfg.FallbackModelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoModel, err)
	}
	logger.Warning("Using pre-trained YOLOv8n. Train a custom model for kidney stone detection.")
	return d, nil
}

// initializeNet loads the network and probes its output head with a blank frame.
func (d *Detector) initializeNet(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	layout, err := probe(net, d.info.InputSize)
	if err != nil {
		net.Close()
		return fmt.Errorf("model %s: %w", modelPath, err)
	}

	d.net = net
	d.info.Path = modelPath
	d.info.Classes = layout.NumClasses()
	d.logger.Info("Detection network loaded from %s (%d classes)", modelPath, d.info.Classes)
	return nil
}

func probe(net gocv.Net, size int) (yolo.Layout, error) {
	blank := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC3)
	defer blank.Close()

	blob := gocv.BlobFromImage(blank, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	net.SetInput(blob, "")
	output := net.Forward("")
	defer output.Close()

	return yolo.ParseLayout(output.Size())
}

// Info describes the loaded network.
func (d *Detector) Info() detection.ModelInfo {
	return d.info
}

// Detect decodes an encoded image, measures its contrast and runs the network.
func (d *Detector) Detect(imageBytes []byte) (*detection.Scan, error) {
	if d.net.Empty() {
		return nil, fmt.Errorf("detection network not initialized")
	}

	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	scan := &detection.Scan{
		Width:  mat.Cols(),
		Height: mat.Rows(),
	}

	if scan.Contrast, err = contrast(mat); err != nil {
		return nil, err
	}

	size := d.info.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	layout, err := yolo.ParseLayout(output.Size())
	if err != nil {
		return nil, err
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	scaleX := float64(scan.Width) / float64(size)
	scaleY := float64(scan.Height) / float64(size)
	candidates, err := yolo.Decode(data, layout, scaleX, scaleY, scan.Width, scan.Height, d.info.Confidence)
	if err != nil {
		return nil, err
	}

	scan.Boxes = d.suppress(candidates)
	return scan, nil
}

// suppress applies per-class non-maximum suppression and returns the kept
// boxes highest confidence first.
func (d *Detector) suppress(candidates []detection.Box) []detection.Box {
	if len(candidates) == 0 {
		return []detection.Box{}
	}

	rects := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, b := range candidates {
		offset := b.ClassID * classOffset
		rects[i] = image.Rect(int(b.X1)+offset, int(b.Y1)+offset, int(b.X2)+offset, int(b.Y2)+offset)
		scores[i] = float32(b.Confidence)
	}

	indices := gocv.NMSBoxes(rects, scores, float32(d.info.Confidence), float32(d.info.IoU))

	kept := make([]detection.Box, 0, len(indices))
	for _, idx := range indices {
		kept = append(kept, candidates[idx])
	}
	slices.SortStableFunc(kept, func(a, b detection.Box) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})

	if len(kept) > MaxDetections {
		kept = kept[:MaxDetections]
	}
	return kept
}

// contrast returns the standard deviation of the grayscale image.
func contrast(mat gocv.Mat) (float64, error) {
	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray); err != nil {
		return 0, fmt.Errorf("failed to convert image to grayscale: %w", err)
	}

	mean := gocv.NewMat()
	defer mean.Close()
	stdDev := gocv.NewMat()
	defer stdDev.Close()
	gocv.MeanStdDev(gray, &mean, &stdDev)

	return stdDev.GetDoubleAt(0, 0), nil
}

// Annotate draws the stones on the image and returns a re-encoded JPEG buffer.
func (d *Detector) Annotate(imageBytes []byte, stones []analysis.Stone) ([]byte, error) {
	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	for _, stone := range stones {
		c := stoneColor(stone.Confidence)
		rect := image.Rect(int(stone.X), int(stone.Y), int(stone.X+stone.Width), int(stone.Y+stone.Height))
		if err := gocv.Rectangle(&mat, rect, c, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("#%d %s %.1f%%", stone.ID, stone.Size(), stone.Confidence)
		pt := image.Pt(rect.Min.X, max(rect.Min.Y-5, 12))
		if err := gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, c, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	annotated := make([]byte, len(buf.GetBytes()))
	copy(annotated, buf.GetBytes())
	return annotated, nil
}

// stoneColor maps confidence to red (high), orange or yellow (low).
func stoneColor(confidence float64) color.RGBA {
	switch {
	case confidence >= 75:
		return color.RGBA{R: 255, A: 0}
	case confidence >= 50:
		return color.RGBA{R: 255, G: 140, A: 0}
	default:
		return color.RGBA{R: 255, G: 230, A: 0}
	}
}

// Close releases the network.
func (d *Detector) Close() error {
	return d.net.Close()
}
