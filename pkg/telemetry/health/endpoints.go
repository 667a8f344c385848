package health

import (
	"encoding/json"
	"net/http"
	"runtime"

	"mercator-hq/stylecheck/pkg/config"
)

// VersionPath serves VersionInfo.
const VersionPath = "/version"

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Mount registers the probes and the version endpoint on mux.
//
// The readiness probe answers 503 while any check fails, for example:
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "configuration": {"status": "unhealthy", "message": "cannot load configuration file checks.xml"},
//	        "tasks": {"status": "ok"}
//	    },
//	    "timestamp": "2026-03-02T10:30:00Z"
//	}
func Mount(mux *http.ServeMux, checker *Checker, cfg config.HealthConfig, info VersionInfo) {
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}

	mux.Handle(cfg.LivenessPath, probe(func(r *http.Request) (int, any) {
		return http.StatusOK, checker.CheckLiveness(r.Context())
	}))
	mux.Handle(cfg.ReadinessPath, probe(func(r *http.Request) (int, any) {
		status := checker.CheckReadiness(r.Context())
		if status.Status != StatusReady {
			return http.StatusServiceUnavailable, status
		}
		return http.StatusOK, status
	}))
	mux.Handle(VersionPath, probe(func(*http.Request) (int, any) {
		return http.StatusOK, info
	}))
}

// probe adapts fn to a GET/HEAD JSON endpoint.
func probe(fn func(r *http.Request) (int, any)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		code, body := fn(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(body)
		}
	})
}
