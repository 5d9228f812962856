// Package predictor loads a classification model once at startup and
// exposes it behind a small read-only interface.
package predictor

import (
	"errors"
	"fmt"
	"math"

	"github.com/iris-ai/irisd/pkg/models"
)

// ErrModelUnavailable is returned by Classify when no model is loaded.
var ErrModelUnavailable = errors.New("model unavailable")

// Predictor maps a feature vector to a class label. Implementations are
// immutable after construction and safe for concurrent use.
type Predictor interface {
	Classify(f models.Features) (int, error)
}

// Unavailable stands in for a model that failed to load. Every Classify
// call fails with ErrModelUnavailable.
type Unavailable struct {
	Cause error
}

// Classify always fails.
func (u *Unavailable) Classify(models.Features) (int, error) {
	if u.Cause == nil {
		return 0, ErrModelUnavailable
	}
	return 0, fmt.Errorf("%w: %v", ErrModelUnavailable, u.Cause)
}

// Err reports why the model is unavailable.
func (u *Unavailable) Err() error {
	_, err := u.Classify(models.Features{})
	return err
}

// Ready returns nil if p can serve inference.
func Ready(p Predictor) error {
	if p == nil {
		return ErrModelUnavailable
	}
	if u, ok := p.(*Unavailable); ok {
		return u.Err()
	}
	return nil
}

// Model is a loaded classification model.
type Model struct {
	name     string
	kind     string
	classes  []string
	classify func(x [models.NumFeatures]float64) int
}

// Name returns the artifact's model name.
func (m *Model) Name() string { return m.name }

// Kind returns the model family, e.g. "decision_tree".
func (m *Model) Kind() string { return m.kind }

// ClassName returns the human-readable name of label, or "" if the
// artifact declares no names.
func (m *Model) ClassName(label int) string {
	if label < 0 || label >= len(m.classes) {
		return ""
	}
	return m.classes[label]
}

// Classify returns the predicted class label.
func (m *Model) Classify(f models.Features) (int, error) {
	x := f.Vector()
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("predictor: non-finite %s", models.FeatureNames[i])
		}
	}
	return m.classify(x), nil
}

var (
	_ Predictor = (*Model)(nil)
	_ Predictor = (*Unavailable)(nil)
)
