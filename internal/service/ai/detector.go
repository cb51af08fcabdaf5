package ai

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"

	"plantdoctor/internal/config"
	"plantdoctor/internal/logger"
	"plantdoctor/internal/model"
)

// ErrBackendUnavailable is returned when the configured backend is not compiled in.
var ErrBackendUnavailable = errors.New("detector backend not available in this build")

// Detector wraps a pretrained disease detection model. Implementations load
// the model once and are safe for concurrent use.
type Detector interface {
	// Detect returns detections with confidence >= threshold. An image with
	// nothing above the threshold yields an empty slice and no error.
	Detect(ctx context.Context, img image.Image, threshold float64) ([]model.Detection, error)
	Close() error
}

// New builds the detector selected by cfg.DetectorBackend.
func New(ctx context.Context, cfg *config.Config, client *http.Client, logger *logger.Logger) (Detector, error) {
	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		// The remote service may name its classes itself.
		if cfg.DetectorBackend != config.BackendRemote || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logger.Warning("No label table at %s, relying on inference service labels", cfg.LabelsPath)
	}

	switch cfg.DetectorBackend {
	case config.BackendONNX:
		return NewONNXDetector(cfg.ModelPath, labels, logger)
	case config.BackendRemote:
		d := NewRemoteDetector(cfg.InferenceURL, labels, client, logger)
		if err := d.CheckHealth(ctx); err != nil {
			logger.Warning("Inference service not available: %v", err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.DetectorBackend)
	}
}

// FilterByConfidence keeps detections with confidence >= threshold, in order.
func FilterByConfidence(dets []model.Detection, threshold float64) []model.Detection {
	out := make([]model.Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	return out
}
