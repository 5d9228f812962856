package models

import (
	"encoding/json"
	"time"
)

// Prediction is one persisted classification event.
type Prediction struct {
	ID             int64
	Features       Features
	PredictedClass int
	// CreatedAt is zero when the stored row carries no timestamp.
	CreatedAt time.Time
}

// TimestampLayout is the ISO-8601 layout used for created_at.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

type predictionJSON struct {
	ID             int64   `json:"id"`
	SepalLength    float64 `json:"sepal_length"`
	SepalWidth     float64 `json:"sepal_width"`
	PetalLength    float64 `json:"petal_length"`
	PetalWidth     float64 `json:"petal_width"`
	PredictedClass int     `json:"predicted_class"`
	CreatedAt      *string `json:"created_at"`
}

// MarshalJSON flattens the features and renders created_at as an ISO-8601
// UTC string, or null when the timestamp is absent.
func (p Prediction) MarshalJSON() ([]byte, error) {
	out := predictionJSON{
		ID:             p.ID,
		SepalLength:    p.Features.SepalLength,
		SepalWidth:     p.Features.SepalWidth,
		PetalLength:    p.Features.PetalLength,
		PetalWidth:     p.Features.PetalWidth,
		PredictedClass: p.PredictedClass,
	}
	if !p.CreatedAt.IsZero() {
		ts := p.CreatedAt.UTC().Format(TimestampLayout)
		out.CreatedAt = &ts
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *Prediction) UnmarshalJSON(data []byte) error {
	var in predictionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = Prediction{
		ID: in.ID,
		Features: Features{
			SepalLength: in.SepalLength,
			SepalWidth:  in.SepalWidth,
			PetalLength: in.PetalLength,
			PetalWidth:  in.PetalWidth,
		},
		PredictedClass: in.PredictedClass,
	}
	if in.CreatedAt != nil {
		ts, err := time.Parse(time.RFC3339Nano, *in.CreatedAt)
		if err != nil {
			return err
		}
		p.CreatedAt = ts
	}
	return nil
}
