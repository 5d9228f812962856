package predictor

import (
	"errors"
	"fmt"

	"github.com/iris-ai/irisd/pkg/models"
)

type centroid struct {
	class int
	mean  [models.NumFeatures]float64
}

// compileCentroids returns a nearest-centroid classifier using squared
// Euclidean distance. Ties go to the centroid listed first.
func compileCentroids(specs []CentroidSpec, numClasses int) (func([models.NumFeatures]float64) int, error) {
	if len(specs) == 0 {
		return nil, errors.New("nearest centroid model has no centroids")
	}

	cs := make([]centroid, len(specs))
	for i, s := range specs {
		if err := checkClass(s.Class, numClasses); err != nil {
			return nil, fmt.Errorf("centroid %d: %w", i, err)
		}
		if len(s.Mean) != models.NumFeatures {
			return nil, fmt.Errorf("centroid %d: mean has %d values, want %d", i, len(s.Mean), models.NumFeatures)
		}
		cs[i].class = s.Class
		copy(cs[i].mean[:], s.Mean)
	}

	return func(x [models.NumFeatures]float64) int {
		best, bestDist := 0, -1.0
		for i, c := range cs {
			var d float64
			for j := range x {
				diff := x[j] - c.mean[j]
				d += diff * diff
			}
			if bestDist < 0 || d < bestDist {
				best, bestDist = i, d
			}
		}
		return cs[best].class
	}, nil
}
