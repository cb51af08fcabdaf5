package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"plantdoctor/internal/logger"
	"plantdoctor/internal/model"
)

// RemoteDetector sends the image to an inference service that hosts the model.
type RemoteDetector struct {
	inferenceURL string
	labels       Labels
	client       *http.Client
	logger       *logger.Logger
}

// remoteDetection is one entry of the inference service response.
type remoteDetection struct {
	Label      string     `json:"label"`
	ClassID    int        `json:"class_id"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"` // x1, y1, x2, y2
}

func NewRemoteDetector(inferenceURL string, labels Labels, client *http.Client, logger *logger.Logger) *RemoteDetector {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteDetector{
		inferenceURL: inferenceURL,
		labels:       labels,
		client:       client,
		logger:       logger,
	}
}

// Detect uploads img as JPEG and filters the returned boxes by threshold.
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]model.Detection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := jpeg.Encode(part, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := writer.WriteField("confidence", strconv.FormatFloat(threshold, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("write confidence: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []remoteDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	dets := make([]model.Detection, 0, len(result.Detections))
	for _, rd := range result.Detections {
		label := rd.Label
		if label == "" {
			label = d.labels.Name(rd.ClassID)
		}
		dets = append(dets, model.Detection{
			Label:      label,
			ClassID:    rd.ClassID,
			Confidence: rd.Confidence,
			Box:        model.BoundingBox{X1: rd.Box[0], Y1: rd.Box[1], X2: rd.Box[2], Y2: rd.Box[3]},
		})
	}

	filtered := FilterByConfidence(dets, threshold)
	d.logger.Info("Inference service returned %d detections, %d above %.2f", len(dets), len(filtered), threshold)
	return filtered, nil
}

// CheckHealth probes <inference base>/health.
func (d *RemoteDetector) CheckHealth(ctx context.Context) error {
	url := strings.TrimSuffix(d.inferenceURL, "/predict") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op; the model lives in the remote service.
func (d *RemoteDetector) Close() error {
	return nil
}
