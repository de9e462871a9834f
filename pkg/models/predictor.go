package models

import "context"

// Predictor is the core interface that all classifier backends must
// implement. Never call a specific backend directly — always inject
// this interface.
type Predictor interface {
	// Classify runs the model on raw image bytes and returns a label
	// with per-class probabilities.
	Classify(ctx context.Context, image []byte) (*Classification, error)
	// Ready reports whether the model is loaded and able to serve.
	Ready() bool
	// Name returns the backend identifier (e.g., "torchserve", "mock").
	Name() string
}

// Classification is the output of a single model invocation.
// ProbaCat and ProbaDog are fractions in [0, 1] and sum to 1.
type Classification struct {
	Label    string  `json:"label"`
	ProbaCat float64 `json:"proba_cat"`
	ProbaDog float64 `json:"proba_dog"`
}

// Confidence returns the probability of the predicted class.
func (c *Classification) Confidence() float64 {
	if c.ProbaCat >= c.ProbaDog {
		return c.ProbaCat
	}
	return c.ProbaDog
}
