package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"plantdoctor/internal/config"
	"plantdoctor/internal/ingest"
	"plantdoctor/internal/logger"
	"plantdoctor/internal/model"
	"plantdoctor/internal/service/ai"
	"plantdoctor/internal/service/report"
	"plantdoctor/internal/service/settings"
	"plantdoctor/internal/service/websocket"
)

// ErrInvalidImage wraps every upload that cannot be decoded as JPEG or PNG.
var ErrInvalidImage = errors.New("invalid image")

// Publisher pushes progress and warnings to a browser session.
type Publisher interface {
	Publish(session string, ev websocket.Event)
}

// Pipeline runs one upload through detection, enrichment and reporting.
type Pipeline struct {
	detector       ai.Detector
	builder        *report.Builder
	settings       *settings.Store
	events         Publisher
	logger         *logger.Logger
	maxUploadBytes int64
	previewSide    uint
}

func NewPipeline(detector ai.Detector, builder *report.Builder, settings *settings.Store,
	events Publisher, cfg *config.Config, logger *logger.Logger) *Pipeline {
	previewSide := uint(0)
	if cfg.PreviewSide > 0 {
		previewSide = uint(cfg.PreviewSide)
	}
	return &Pipeline{
		detector:       detector,
		builder:        builder,
		settings:       settings,
		events:         events,
		logger:         logger,
		maxUploadBytes: cfg.MaxUploadBytes,
		previewSide:    previewSide,
	}
}

// Analyze decodes the upload, detects diseases at the current threshold and
// enriches every detection. Without detections no external call is made.
func (p *Pipeline) Analyze(ctx context.Context, session string, r io.Reader) (*model.AnalysisReport, error) {
	upload, err := ingest.Decode(r, p.maxUploadBytes)
	if err != nil {
		p.logger.Warning("Rejected upload: %v", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	threshold := p.settings.Confidence()
	p.logger.Info("Analyzing %s image %dx%d at confidence %.2f", upload.Format, upload.Width, upload.Height, threshold)
	p.publish(session, websocket.Event{
		Type:    websocket.EventDetecting,
		Message: fmt.Sprintf("Detecting diseases at confidence %.2f", threshold),
	})

	detections, err := p.detector.Detect(ctx, upload.Bitmap, threshold)
	if err != nil {
		p.logger.Error("Detection failed: %v", err)
		return nil, fmt.Errorf("detect: %w", err)
	}

	result := &model.AnalysisReport{
		Threshold:   threshold,
		ImageWidth:  upload.Width,
		ImageHeight: upload.Height,
		Diseases:    []model.DiseaseReport{},
	}

	if len(detections) == 0 {
		result.Message = report.NoDiseasesMessage
		p.logger.Info("No detections above %.2f", threshold)
	} else {
		p.publish(session, websocket.Event{
			Type:    websocket.EventEnriching,
			Message: fmt.Sprintf("Looking up %d detection(s)", len(detections)),
		})
		result.Diseases = p.builder.Build(ctx, detections)

		for _, d := range result.Diseases {
			for _, w := range d.Warnings {
				p.logger.Warning("%s", w)
				p.publish(session, websocket.Event{Type: websocket.EventWarning, Message: w, Disease: d.DiseaseName})
			}
		}
	}

	if p.previewSide > 0 {
		if preview, err := ingest.PreviewDataURL(upload.Bitmap, p.previewSide); err != nil {
			p.logger.Warning("Preview not available: %v", err)
		} else {
			result.Preview = preview
		}
	}

	p.publish(session, websocket.Event{
		Type:    websocket.EventDone,
		Message: fmt.Sprintf("%d disease(s) reported", len(result.Diseases)),
	})
	return result, nil
}

func (p *Pipeline) publish(session string, ev websocket.Event) {
	if p.events != nil {
		p.events.Publish(session, ev)
	}
}
