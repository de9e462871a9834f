package predictor

import (
	"fmt"

	"github.com/hmoreau/petvision/internal/config"
	"github.com/hmoreau/petvision/internal/predictor/mock"
	"github.com/hmoreau/petvision/internal/predictor/torchserve"
	"github.com/hmoreau/petvision/pkg/models"
)

// New constructs the appropriate classifier backend based on config.
// Called once at server startup.
func New(cfg config.PredictorConfig) (models.Predictor, error) {
	switch cfg.Backend {
	case "torchserve":
		return torchserve.NewProvider(cfg.TorchServe, cfg.Timeout), nil
	case "mock":
		return mock.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown predictor backend %q: must be one of torchserve, mock", cfg.Backend)
	}
}
