// Package prederr holds the predictor sentinel errors in a leaf
// package so backend implementations can wrap them without importing
// the predictor package (whose factory imports the backends).
package prederr

import "errors"

var (
	ErrBackendUnreachable = errors.New("predictor backend unreachable")
	ErrInferenceTimeout   = errors.New("predictor inference timeout")
	ErrInvalidResponse    = errors.New("predictor returned invalid response")
)
