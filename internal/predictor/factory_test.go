package predictor_test

import (
	"testing"
	"time"

	"github.com/hmoreau/petvision/internal/config"
	"github.com/hmoreau/petvision/internal/predictor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TorchServe(t *testing.T) {
	cfg := config.PredictorConfig{
		Backend:    "torchserve",
		Timeout:    30 * time.Second,
		TorchServe: config.TorchServeConfig{BaseURL: "http://localhost:8085", Model: "catdog"},
	}
	p, err := predictor.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "torchserve", p.Name())
}

func TestNew_Mock(t *testing.T) {
	cfg := config.PredictorConfig{Backend: "mock"}
	p, err := predictor.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())
	assert.True(t, p.Ready())
}

func TestNew_Unknown(t *testing.T) {
	cfg := config.PredictorConfig{Backend: "tensorflow-lite"}
	_, err := predictor.New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown predictor backend")
	assert.Contains(t, err.Error(), "tensorflow-lite")
}

func TestNew_Empty(t *testing.T) {
	cfg := config.PredictorConfig{Backend: ""}
	_, err := predictor.New(cfg)
	require.Error(t, err)
}
