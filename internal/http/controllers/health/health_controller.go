// Package health contains the health check controller.
package health

import (
	"net/http"

	httperrors "github.com/dayoff-kr/moimlink/internal/http/errors"
	svc "github.com/dayoff-kr/moimlink/internal/http/services/health"
)

// HealthController handles the health check routes.
type HealthController struct {
	service svc.HealthService
}

// NewHealthController creates a new health check controller.
func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

// Healthz handles GET /healthz.
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	response := c.service.Check(r.Context())
	if response.Version != "" {
		w.Header().Set("X-Service-Version", response.Version)
	}

	status := http.StatusOK
	if response.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httperrors.WriteJSON(w, status, response)
}
