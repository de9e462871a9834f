// Package torchserve implements the Predictor interface against a
// TorchServe model server over its HTTP inference API.
package torchserve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hmoreau/petvision/internal/config"
	"github.com/hmoreau/petvision/internal/predictor/prederr"
	"github.com/hmoreau/petvision/pkg/models"
)

const pingTimeout = 2 * time.Second

// Provider calls TorchServe: POST {base}/predictions/{model} with the
// raw image body, GET {base}/ping for readiness.
type Provider struct {
	baseURL string
	model   string
	client  *http.Client

	ready atomic.Bool
}

func NewProvider(cfg config.TorchServeConfig, timeout time.Duration) *Provider {
	return &Provider{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "torchserve" }

// Ready reports readiness from the last known backend state, probing
// the ping endpoint when the backend was last seen down.
func (p *Provider) Ready() bool {
	if p.ready.Load() {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/ping", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	ok := resp.StatusCode == http.StatusOK
	p.ready.Store(ok)
	return ok
}

func (p *Provider) Classify(ctx context.Context, image []byte) (*models.Classification, error) {
	u := fmt.Sprintf("%s/predictions/%s", p.baseURL, p.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		p.ready.Store(false)
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", prederr.ErrInvalidResponse, resp.StatusCode)
	}

	// TorchServe image classifiers answer with a class→score map.
	var scores map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, fmt.Errorf("%w: %v", prederr.ErrInvalidResponse, err)
	}

	cat, okCat := scores[models.ClassCat]
	dog, okDog := scores[models.ClassDog]
	if !okCat || !okDog {
		return nil, fmt.Errorf("%w: missing class scores", prederr.ErrInvalidResponse)
	}

	label := models.ClassCat
	if dog > cat {
		label = models.ClassDog
	}

	return &models.Classification{Label: label, ProbaCat: cat, ProbaDog: dog}, nil
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", prederr.ErrInferenceTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", prederr.ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%w: %v", prederr.ErrBackendUnreachable, err)
}

var _ models.Predictor = (*Provider)(nil)
