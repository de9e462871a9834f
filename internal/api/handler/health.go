package handler

import (
	"context"
	"net/http"

	"github.com/hmoreau/petvision/internal/api/response"
	"github.com/hmoreau/petvision/internal/inference"
)

// HealthChecker defines the interface the health handler depends on.
type HealthChecker interface {
	HealthCheck(ctx context.Context) inference.HealthStatus
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// A degraded store still answers 200 so load balancers keep routing to
// the gateway while the model can serve; the body carries the detail.
func NewHealthHandler(svc HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, svc.HealthCheck(r.Context()))
	}
}
