package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NumFeatures is the length of a feature vector.
const NumFeatures = 4

// FeatureNames lists the measurement names in model input order.
var FeatureNames = [NumFeatures]string{
	"sepal_length",
	"sepal_width",
	"petal_length",
	"petal_width",
}

// Features is one iris measurement vector. It is comparable, so it can be
// used directly as a map key; two vectors are equal only when all four
// components are exactly equal.
type Features struct {
	SepalLength float64 `json:"sepal_length"`
	SepalWidth  float64 `json:"sepal_width"`
	PetalLength float64 `json:"petal_length"`
	PetalWidth  float64 `json:"petal_width"`
}

// NewFeatures builds Features from a vector in FeatureNames order.
func NewFeatures(v [NumFeatures]float64) Features {
	return Features{
		SepalLength: v[0],
		SepalWidth:  v[1],
		PetalLength: v[2],
		PetalWidth:  v[3],
	}
}

// Vector returns the measurements in FeatureNames order.
func (f Features) Vector() [NumFeatures]float64 {
	return [NumFeatures]float64{f.SepalLength, f.SepalWidth, f.PetalLength, f.PetalWidth}
}

// Key returns a string that is distinct for every bit pattern of the vector.
func (f Features) Key() string {
	v := f.Vector()
	parts := make([]string, NumFeatures)
	for i, x := range v {
		parts[i] = strconv.FormatUint(math.Float64bits(x), 16)
	}
	return strings.Join(parts, ":")
}

func (f Features) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g)", f.SepalLength, f.SepalWidth, f.PetalLength, f.PetalWidth)
}

// FeatureIndex returns the vector position of a named feature.
func FeatureIndex(name string) (int, bool) {
	for i, n := range FeatureNames {
		if n == name {
			return i, true
		}
	}
	return -1, false
}
