package modkit

import "trendsetl/internal/modkit/module"

// Module is the surface binaries compose: mount routes, expose ports, report a name
type Module = module.Module
