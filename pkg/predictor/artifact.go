package predictor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Model families understood by Build.
const (
	KindDecisionTree    = "decision_tree"
	KindNearestCentroid = "nearest_centroid"
)

// Artifact is the serialized form of a model.
type Artifact struct {
	Kind      string         `json:"kind" yaml:"kind"`
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Classes   []string       `json:"classes,omitempty" yaml:"classes,omitempty"`
	Nodes     []NodeSpec     `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Centroids []CentroidSpec `json:"centroids,omitempty" yaml:"centroids,omitempty"`
}

// NodeSpec is one decision tree node. A node with Class set is a leaf;
// otherwise samples with x[Feature] <= Threshold go Left, the rest Right.
type NodeSpec struct {
	Feature   string  `json:"feature,omitempty" yaml:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Left      int     `json:"left,omitempty" yaml:"left,omitempty"`
	Right     int     `json:"right,omitempty" yaml:"right,omitempty"`
	Class     *int    `json:"class,omitempty" yaml:"class,omitempty"`
}

// CentroidSpec is the mean feature vector of one class.
type CentroidSpec struct {
	Class int       `json:"class" yaml:"class"`
	Mean  []float64 `json:"mean" yaml:"mean"`
}

// Artifact encodings.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Decode parses an artifact in the given format.
func Decode(data []byte, format string) (Artifact, error) {
	var a Artifact
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&a); err != nil {
			return Artifact{}, fmt.Errorf("decode yaml artifact: %w", err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&a); err != nil {
			return Artifact{}, fmt.Errorf("decode json artifact: %w", err)
		}
	default:
		return Artifact{}, fmt.Errorf("unknown artifact format %q", format)
	}
	return a, nil
}

// Build validates an artifact and compiles it into a Model.
func Build(a Artifact) (*Model, error) {
	m := &Model{
		name:    a.Name,
		kind:    a.Kind,
		classes: a.Classes,
	}

	var err error
	switch a.Kind {
	case KindDecisionTree:
		m.classify, err = compileTree(a.Nodes, len(a.Classes))
	case KindNearestCentroid:
		m.classify, err = compileCentroids(a.Centroids, len(a.Classes))
	case "":
		err = errors.New("missing kind")
	default:
		err = fmt.Errorf("unknown kind %q", a.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	return m, nil
}

// checkClass validates a label against the declared class names. When no
// names are declared any non-negative label is accepted.
func checkClass(label, numClasses int) error {
	if label < 0 {
		return fmt.Errorf("negative class %d", label)
	}
	if numClasses > 0 && label >= numClasses {
		return fmt.Errorf("class %d out of range (%d classes)", label, numClasses)
	}
	return nil
}
