//go:build gocv
// +build gocv

package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"plantdoctor/internal/logger"
	"plantdoctor/internal/model"
)

// ONNXDetector runs an exported YOLOv8 model in-process through OpenCV DNN.
type ONNXDetector struct {
	net       gocv.Net
	mu        sync.Mutex // gocv.Net is not safe for concurrent Forward calls
	modelPath string
	labels    Labels
	logger    *logger.Logger
}

// NewONNXDetector loads the model at modelPath.
func NewONNXDetector(modelPath string, labels Labels, logger *logger.Logger) (Detector, error) {
	d := &ONNXDetector{
		modelPath: modelPath,
		labels:    labels,
		logger:    logger,
	}
	if err := d.initializeNet(); err != nil {
		return nil, err
	}
	return d, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (d *ONNXDetector) initializeNet() error {
	if _, err := os.Stat(d.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", d.modelPath)
	}

	net := gocv.ReadNetFromONNX(d.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", d.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	d.net = net
	d.logger.Info("Detection network loaded from %s (%d labels)", d.modelPath, len(d.labels))
	return nil
}

// Detect runs one forward pass over img.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]model.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	// Mat channels are BGR; the model was trained on RGB.
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(InputSize, InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	dets, err := d.forward(blob, Frame{Width: mat.Cols(), Height: mat.Rows()}, threshold)
	if err != nil {
		return nil, err
	}
	for _, det := range dets {
		d.logger.Info("Detected %s (%.2f)", det.Label, det.Confidence)
	}
	return FilterByConfidence(dets, threshold), nil
}

// forward runs the network and decodes its output. The output Mat shares the
// network's output buffer, so decoding stays under the lock.
func (d *ONNXDetector) forward(blob gocv.Mat, frame Frame, threshold float64) ([]model.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output rank %d", len(dims))
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output tensor: %w", err)
	}

	out := YOLOOutput{Data: data, Channels: dims[1], Anchors: dims[2]}
	if dims[1] > dims[2] {
		out = YOLOOutput{Data: data, Channels: dims[2], Anchors: dims[1], Transposed: true}
	}
	return DecodeYOLOv8(out, frame, threshold, d.labels)
}

// Close releases the network.
func (d *ONNXDetector) Close() error {
	return d.net.Close()
}
