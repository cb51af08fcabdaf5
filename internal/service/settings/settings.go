package settings

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

const (
	MinConfidence     = 0.01
	MaxConfidence     = 1.0
	ConfidenceStep    = 0.01
	DefaultConfidence = 0.1

	stepsPerUnit = 100 // 1 / ConfidenceStep
)

var ErrOutOfRange = errors.New("confidence out of range")

// Store holds the process-wide confidence threshold set by the slider.
type Store struct {
	mu         sync.RWMutex
	confidence float64
}

// NewStore starts at initial, or at DefaultConfidence when initial is invalid.
func NewStore(initial float64) *Store {
	s := &Store{confidence: DefaultConfidence}
	_ = s.SetConfidence(initial)
	return s
}

func (s *Store) Confidence() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confidence
}

// SetConfidence rounds v to the slider step and stores it.
func (s *Store) SetConfidence(v float64) error {
	rounded := Round(v)
	if math.IsNaN(v) || rounded < MinConfidence || rounded > MaxConfidence {
		return fmt.Errorf("%w: %v not in [%.2f, %.2f]", ErrOutOfRange, v, MinConfidence, MaxConfidence)
	}

	s.mu.Lock()
	s.confidence = rounded
	s.mu.Unlock()
	return nil
}

// Round snaps v to the nearest slider step. Every step equals the literal it
// names (0.57, not 0.5700000000000001).
func Round(v float64) float64 {
	return math.Round(v*stepsPerUnit) / stepsPerUnit
}
