// Package health contains the health check service.
package health

import (
	"context"
	"fmt"
	"os"
	"time"

	dto "github.com/dayoff-kr/moimlink/internal/http/dto/health"
	"github.com/dayoff-kr/moimlink/internal/observability/logger"
)

// HealthService reports the state of the service's dependencies.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contains the injectable checks.
type Deps struct {
	DBCheck    func(ctx context.Context) error
	CacheCheck func(ctx context.Context) error
}

type healthService struct {
	deps Deps
}

// NewHealthService creates a new health check service.
func NewHealthService(deps Deps) HealthService {
	return &healthService{deps: deps}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("health"))

	response := dto.HealthResponse{
		Status:     "ok",
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  time.Now().UTC(),
	}
	if v := os.Getenv("SERVICE_VERSION"); v != "" {
		response.Version = v
	}

	check := func(name string, fn func(ctx context.Context) error) {
		if fn == nil {
			return
		}
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := fn(cctx); err != nil {
			response.Components[name] = dto.HealthStatus{
				Status:  "error",
				Message: fmt.Sprintf("unavailable: %v", err),
			}
			response.Status = "unavailable"
			log.Error(name+" unavailable", logger.Err(err))
			return
		}
		response.Components[name] = dto.HealthStatus{Status: "ok"}
	}

	check("database", s.deps.DBCheck)
	check("cache", s.deps.CacheCheck)

	return response
}
