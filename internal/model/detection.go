package model

// BoundingBox is a detection rectangle in pixel coordinates of the uploaded image.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width of the box, zero for degenerate boxes.
func (b BoundingBox) Width() float64 {
	if b.X2 < b.X1 {
		return 0
	}
	return b.X2 - b.X1
}

// Height of the box, zero for degenerate boxes.
func (b BoundingBox) Height() float64 {
	if b.Y2 < b.Y1 {
		return 0
	}
	return b.Y2 - b.Y1
}

// Area of the box.
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// IoU returns the intersection over union of two boxes.
func (b BoundingBox) IoU(o BoundingBox) float64 {
	inter := BoundingBox{
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
		X2: min(b.X2, o.X2),
		Y2: min(b.Y2, o.Y2),
	}.Area()
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Detection represents one disease symptom found by the model.
type Detection struct {
	Label      string      `json:"label"`
	ClassID    int         `json:"class_id"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}
