package httpkit

import (
	"net/http"
	"strings"
)

// MountUnder scopes mount under prefix with mw applied. An empty prefix mounts
// into a group on r, keeping mw local to mount's routes.
func MountUnder(r Router, prefix string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	scoped := func(rr Router) {
		if len(mw) > 0 {
			rr.Use(mw...)
		}
		mount(rr)
	}
	if prefix == "" {
		r.Group(scoped)
		return
	}
	r.Route(prefix, scoped)
}

// MountAPI mounts under /api/{version}, e.g. MountAPI(r, "v1", CommonStack(), mods.Mount)
func MountAPI(r Router, version string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	MountUnder(r, "/api/"+strings.Trim(version, "/"), mw, mount)
}

// MountAPIV1 is MountAPI for v1
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	MountAPI(r, "v1", mw, mount)
}
