//go:build !gocv
// +build !gocv

package ai

import (
	"fmt"

	"plantdoctor/internal/logger"
)

// NewONNXDetector reports that the OpenCV backend is not compiled in.
// Build with -tags gocv, or use DETECTOR_BACKEND=remote.
func NewONNXDetector(modelPath string, _ Labels, _ *logger.Logger) (Detector, error) {
	return nil, fmt.Errorf("onnx model %s: %w", modelPath, ErrBackendUnavailable)
}
