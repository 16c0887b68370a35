package routing

import (
	"context"

	"go.uber.org/zap"

	"github.com/rcallahan/dispatch-relay-service/internal/observability"
)

// Router dispatches a category to the first backend that succeeds, walking
// the primary and then each configured failover in directory order.
type Router struct {
	directory Directory
	registry  *Registry
	logger    *zap.Logger
}

// NewRouter returns a Router over the given directory and registry.
func NewRouter(directory Directory, registry *Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		directory: directory,
		registry:  registry,
		logger:    logger,
	}
}

// Route tries each candidate backend for the category in order and returns
// the first successful result. A failing handler (or an unknown backend name)
// is recorded as the last error and the walk continues. When every candidate
// fails, Route returns an *ExhaustedError carrying the candidate list and the
// last failure.
func (r *Router) Route(ctx context.Context, category string) (any, error) {
	candidates := r.directory.Candidates(category)

	var lastErr error
	for i, name := range candidates {
		handler, err := r.registry.Resolve(name)
		if err != nil {
			observability.RouteAttemptsTotal.WithLabelValues(category, name, "unknown").Inc()
			lastErr = &BackendError{Backend: name, Err: err}
			r.logger.Debug("backend not registered",
				zap.String("category", category),
				zap.String("backend", name))
			continue
		}

		result, err := handler.Call(ctx)
		if err != nil {
			observability.RouteAttemptsTotal.WithLabelValues(category, name, "error").Inc()
			lastErr = &BackendError{Backend: name, Err: err}
			r.logger.Warn("backend failed, trying next candidate",
				zap.String("category", category),
				zap.String("backend", name),
				zap.Error(err))
			continue
		}

		observability.RouteAttemptsTotal.WithLabelValues(category, name, "success").Inc()
		if i > 0 {
			observability.RouteFailoversTotal.WithLabelValues(category).Inc()
			r.logger.Info("served by failover backend",
				zap.String("category", category),
				zap.String("backend", name),
				zap.Int("attempt", i+1))
		}
		return result, nil
	}

	observability.RouteExhaustedTotal.WithLabelValues(category).Inc()
	return nil, &ExhaustedError{
		Category:   category,
		Candidates: candidates,
		LastErr:    lastErr,
	}
}
