package ai

import (
	"fmt"
	"sort"

	"plantdoctor/internal/model"
)

const (
	// InputSize is the square input resolution of the exported YOLOv8 model.
	InputSize = 640
	// IoUThreshold above which a lower-confidence box of the same class is suppressed.
	IoUThreshold = 0.7
)

// YOLOOutput is the raw output tensor of a YOLOv8 detection head.
// The canonical layout is [1, 4+classes, anchors]; Transposed marks [1, anchors, 4+classes].
type YOLOOutput struct {
	Data       []float32
	Channels   int
	Anchors    int
	Transposed bool
}

func (o YOLOOutput) at(c, i int) float64 {
	if o.Transposed {
		return float64(o.Data[i*o.Channels+c])
	}
	return float64(o.Data[c*o.Anchors+i])
}

// Frame describes how model coordinates map back to the uploaded image.
type Frame struct {
	Width  int // uploaded image width
	Height int // uploaded image height
}

// DecodeYOLOv8 turns a raw output tensor into detections with confidence >= threshold,
// after class-aware non-maximum suppression. Detections are ordered by descending
// confidence; equal confidences keep anchor order.
func DecodeYOLOv8(out YOLOOutput, frame Frame, threshold float64, labels Labels) ([]model.Detection, error) {
	if out.Channels <= 4 || out.Anchors <= 0 {
		return nil, fmt.Errorf("unexpected output shape: %d channels, %d anchors", out.Channels, out.Anchors)
	}
	if len(out.Data) < out.Channels*out.Anchors {
		return nil, fmt.Errorf("output has %d values, want %d", len(out.Data), out.Channels*out.Anchors)
	}

	scaleX := float64(frame.Width) / InputSize
	scaleY := float64(frame.Height) / InputSize

	candidates := make([]model.Detection, 0)
	for i := 0; i < out.Anchors; i++ {
		classID, score := 0, -1.0
		for c := 4; c < out.Channels; c++ {
			if v := out.at(c, i); v > score {
				score = v
				classID = c - 4
			}
		}
		if score < threshold {
			continue
		}

		cx, cy := out.at(0, i), out.at(1, i)
		w, h := out.at(2, i), out.at(3, i)
		candidates = append(candidates, model.Detection{
			Label:      labels.Name(classID),
			ClassID:    classID,
			Confidence: score,
			Box: model.BoundingBox{
				X1: clamp((cx-w/2)*scaleX, float64(frame.Width)),
				Y1: clamp((cy-h/2)*scaleY, float64(frame.Height)),
				X2: clamp((cx+w/2)*scaleX, float64(frame.Width)),
				Y2: clamp((cy+h/2)*scaleY, float64(frame.Height)),
			},
		})
	}

	return NonMaxSuppression(candidates, IoUThreshold), nil
}

// NonMaxSuppression keeps the highest-confidence box of each overlapping
// same-class cluster. Whether a box survives depends only on boxes with higher
// confidence, so raising the threshold never resurrects a suppressed box.
func NonMaxSuppression(dets []model.Detection, iou float64) []model.Detection {
	sorted := make([]model.Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]model.Detection, 0, len(sorted))
	for _, d := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.ClassID == d.ClassID && k.Box.IoU(d.Box) > iou {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, d)
		}
	}
	return kept
}

func clamp(v, limit float64) float64 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
