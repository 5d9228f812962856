package predictor

import (
	"errors"
	"fmt"

	"github.com/iris-ai/irisd/pkg/models"
)

type treeNode struct {
	leaf      bool
	class     int
	feature   int
	threshold float64
	left      int
	right     int
}

// compileTree checks the node list and returns its classifier. Node 0 is
// the root and every child index is greater than its parent's, so a walk
// always ends at a leaf.
func compileTree(specs []NodeSpec, numClasses int) (func([models.NumFeatures]float64) int, error) {
	if len(specs) == 0 {
		return nil, errors.New("decision tree has no nodes")
	}

	nodes := make([]treeNode, len(specs))
	for i, s := range specs {
		if s.Class != nil {
			if err := checkClass(*s.Class, numClasses); err != nil {
				return nil, fmt.Errorf("node %d: %w", i, err)
			}
			nodes[i] = treeNode{leaf: true, class: *s.Class}
			continue
		}

		feature, ok := models.FeatureIndex(s.Feature)
		if !ok {
			return nil, fmt.Errorf("node %d: unknown feature %q", i, s.Feature)
		}
		for _, child := range []int{s.Left, s.Right} {
			if child <= i || child >= len(specs) {
				return nil, fmt.Errorf("node %d: child %d out of order", i, child)
			}
		}
		nodes[i] = treeNode{
			feature:   feature,
			threshold: s.Threshold,
			left:      s.Left,
			right:     s.Right,
		}
	}

	return func(x [models.NumFeatures]float64) int {
		i := 0
		for {
			n := nodes[i]
			if n.leaf {
				return n.class
			}
			if x[n.feature] <= n.threshold {
				i = n.left
			} else {
				i = n.right
			}
		}
	}, nil
}
