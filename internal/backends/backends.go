// Package backends binds the domain services into the routing registry.
// Each backend exposes one no-argument entry point; the probe parameters
// those entry points need (a location, a UN/NA number, a drug pair) come
// from configuration, since the router passes nothing through.
package backends

import (
	"context"

	"github.com/rcallahan/dispatch-relay-service/internal/hazmat"
	"github.com/rcallahan/dispatch-relay-service/internal/incidents"
	"github.com/rcallahan/dispatch-relay-service/internal/interactions"
	"github.com/rcallahan/dispatch-relay-service/internal/routing"
)

// Deps holds the services and probe defaults backing the registered handlers.
type Deps struct {
	Hazmat       *hazmat.Service
	Incidents    *incidents.Client
	Interactions *interactions.Client

	ProbeLocation string
	ProbeUNNA     string
	ProbeDrug1    string
	ProbeDrug2    string
}

// Register populates the registry with the standard backend set. The names
// are the identifiers failover directories refer to.
func Register(reg *routing.Registry, deps Deps) {
	if deps.Incidents != nil {
		reg.Register("incidents", routing.HandlerFunc(func(ctx context.Context) (any, error) {
			return deps.Incidents.Fetch(ctx, deps.ProbeLocation)
		}))
	}
	if deps.Hazmat != nil {
		reg.Register("hazmat", routing.HandlerFunc(func(ctx context.Context) (any, error) {
			return deps.Hazmat.Lookup(ctx, deps.ProbeUNNA)
		}))
	}
	if deps.Interactions != nil {
		reg.Register("interactions", routing.HandlerFunc(func(ctx context.Context) (any, error) {
			return deps.Interactions.Check(ctx, deps.ProbeDrug1, deps.ProbeDrug2)
		}))
	}
}
