// Package module defines the module contract and typed port lookup
package module

import (
	phttp "trendsetl/internal/platform/net/http"
)

// Module mounts its routes and exposes a port set for cross wiring
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
