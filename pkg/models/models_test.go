package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

func TestFeaturesEquality(t *testing.T) {
	a := Features{5.1, 3.5, 1.4, 0.2}
	b := NewFeatures([NumFeatures]float64{5.1, 3.5, 1.4, 0.2})
	if a != b {
		t.Fatal("expected equal vectors")
	}

	c := a
	c.PetalWidth = math.Nextafter(c.PetalWidth, 1)
	if a == c {
		t.Error("vectors one ulp apart must not be equal")
	}
	if a.Key() == c.Key() {
		t.Error("vectors one ulp apart must not share a key")
	}
}

func TestFeatureIndex(t *testing.T) {
	i, ok := FeatureIndex("petal_length")
	if !ok || i != 2 {
		t.Errorf("expected index 2, got %d (%v)", i, ok)
	}
	if _, ok := FeatureIndex("stem_length"); ok {
		t.Error("unknown feature should not resolve")
	}
}

func TestPredictionJSON(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	p := Prediction{
		ID:             7,
		Features:       Features{5.1, 3.5, 1.4, 0.2},
		PredictedClass: 0,
		CreatedAt:      ts,
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"id":7`, `"sepal_length":5.1`, `"petal_width":0.2`, `"predicted_class":0`, `"created_at":"2026-03-01T12:30:00.000000Z"`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}

	var back Prediction
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Features != p.Features || !back.CreatedAt.Equal(ts) {
		t.Errorf("unexpected decoded prediction: %+v", back)
	}
}

func TestPredictionJSONNullTimestamp(t *testing.T) {
	data, err := json.Marshal(Prediction{ID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"created_at":null`) {
		t.Errorf("expected null created_at, got %s", data)
	}
}
