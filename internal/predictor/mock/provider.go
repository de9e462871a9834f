package mock

import (
	"context"

	"github.com/hmoreau/petvision/pkg/models"
)

// MockProvider satisfies models.Predictor for testing and local development.
type MockProvider struct {
	Name_        string
	Ready_       bool
	ClassifyFunc func(ctx context.Context, image []byte) (*models.Classification, error)
}

func (m *MockProvider) Name() string { return m.Name_ }
func (m *MockProvider) Ready() bool  { return m.Ready_ }

func (m *MockProvider) Classify(ctx context.Context, image []byte) (*models.Classification, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, image)
	}
	return &models.Classification{Label: models.ClassCat, ProbaCat: 0.5, ProbaDog: 0.5}, nil
}

// NewProvider returns a deterministic classifier: the parity of the
// image byte sum picks the class, so the same upload always gets the
// same answer.
func NewProvider() *MockProvider {
	return &MockProvider{
		Name_:  "mock",
		Ready_: true,
		ClassifyFunc: func(_ context.Context, image []byte) (*models.Classification, error) {
			var sum int
			for _, b := range image {
				sum += int(b)
			}
			if sum%2 == 0 {
				return &models.Classification{Label: models.ClassCat, ProbaCat: 0.91, ProbaDog: 0.09}, nil
			}
			return &models.Classification{Label: models.ClassDog, ProbaCat: 0.13, ProbaDog: 0.87}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_:  "mock-failing",
		Ready_: true,
		ClassifyFunc: func(_ context.Context, _ []byte) (*models.Classification, error) {
			return nil, err
		},
	}
}

// NewUnloadedProvider returns a MockProvider that reports not ready.
func NewUnloadedProvider() *MockProvider {
	return &MockProvider{Name_: "mock-unloaded", Ready_: false}
}

// Compile-time check that MockProvider implements Predictor.
var _ models.Predictor = (*MockProvider)(nil)
