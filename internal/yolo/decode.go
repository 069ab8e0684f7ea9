// Package yolo decodes the raw output head of an exported YOLOv8 detection model.
package yolo

import (
	"fmt"
	"math"

	"kidneystone/internal/detection"
)

// boxAttrs is the number of leading box channels (cx, cy, w, h) in each anchor column.
const boxAttrs = 4

// Layout describes the head output tensor [1, 4+nc, anchors].
type Layout struct {
	Channels int
	Anchors  int
}

// NumClasses returns the number of class score channels.
func (l Layout) NumClasses() int {
	return l.Channels - boxAttrs
}

// ParseLayout validates the output dimensions reported by the network.
func ParseLayout(dims []int) (Layout, error) {
	switch len(dims) {
	case 3:
		if dims[0] != 1 {
			return Layout{}, fmt.Errorf("unsupported batch size %d", dims[0])
		}
		dims = dims[1:]
	case 2:
	default:
		return Layout{}, fmt.Errorf("unexpected output rank %d", len(dims))
	}

	layout := Layout{Channels: dims[0], Anchors: dims[1]}
	if layout.Channels <= boxAttrs || layout.Anchors <= 0 {
		return Layout{}, fmt.Errorf("unexpected output shape %v", dims)
	}
	return layout, nil
}

// Decode converts the channel-major head output into boxes in image space.
// scaleX and scaleY map network input coordinates back to the source image,
// width and height clamp the result. Candidates whose best class score is
// below conf are dropped. No suppression is applied here.
func Decode(output []float32, layout Layout, scaleX, scaleY float64, width, height int, conf float64) ([]detection.Box, error) {
	if want := layout.Channels * layout.Anchors; len(output) < want {
		return nil, fmt.Errorf("output holds %d values, layout needs %d", len(output), want)
	}

	at := func(channel, anchor int) float64 {
		return float64(output[channel*layout.Anchors+anchor])
	}

	var boxes []detection.Box
	for a := 0; a < layout.Anchors; a++ {
		classID, score := -1, 0.0
		for c := 0; c < layout.NumClasses(); c++ {
			if s := at(boxAttrs+c, a); classID < 0 || s > score {
				classID, score = c, s
			}
		}
		if score < conf {
			continue
		}

		cx, cy := at(0, a)*scaleX, at(1, a)*scaleY
		w, h := at(2, a)*scaleX, at(3, a)*scaleY

		boxes = append(boxes, detection.Box{
			X1:         clamp(cx-w/2, float64(width)),
			Y1:         clamp(cy-h/2, float64(height)),
			X2:         clamp(cx+w/2, float64(width)),
			Y2:         clamp(cy+h/2, float64(height)),
			Confidence: score,
			ClassID:    classID,
		})
	}

	return boxes, nil
}

func clamp(v, max float64) float64 {
	return math.Min(math.Max(v, 0), max)
}
