package predictor

import "github.com/hmoreau/petvision/internal/predictor/prederr"

var (
	ErrBackendUnreachable = prederr.ErrBackendUnreachable
	ErrInferenceTimeout   = prederr.ErrInferenceTimeout
	ErrInvalidResponse    = prederr.ErrInvalidResponse
)
