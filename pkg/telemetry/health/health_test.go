package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/stylecheck/pkg/config"
)

func TestChecker_Readiness(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("ok", func(ctx context.Context) error { return nil })

	status := checker.CheckReadiness(context.Background())
	if status.Status != "ready" {
		t.Errorf("Status = %q, want ready", status.Status)
	}

	checker.RegisterCheck("broken", ErrorCheck(func() error { return errors.New("bad config") }))
	status = checker.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", status.Status)
	}
	if got := status.Checks["broken"].Message; got != "bad config" {
		t.Errorf("broken message = %q, want %q", got, "bad config")
	}

	checker.RegisterCheck("broken", ErrorCheck(func() error { return nil }))
	if status := checker.CheckReadiness(context.Background()); status.Status != StatusReady {
		t.Errorf("Status after replacing the check = %q, want ready", status.Status)
	}
}

func TestChecker_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	status := checker.CheckReadiness(context.Background())
	if status.Checks["slow"].Message != ErrCheckTimeout.Error() {
		t.Errorf("slow message = %q, want timeout", status.Checks["slow"].Message)
	}
}

func TestChecker_ListChecks(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("tasks", StartedCheck(func() bool { return true }))
	checker.RegisterCheck("snapshot", StartedCheck(func() bool { return false }))

	names := checker.ListChecks()
	if len(names) != 2 || names[0] != "snapshot" || names[1] != "tasks" {
		t.Errorf("ListChecks() = %v, want [snapshot tasks]", names)
	}

	status := checker.CheckReadiness(context.Background())
	if status.Checks["snapshot"].Message != ErrNotStarted.Error() {
		t.Errorf("snapshot message = %q, want %q", status.Checks["snapshot"].Message, ErrNotStarted)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	if err := PingCheck(fakePinger{})(context.Background()); err != nil {
		t.Errorf("PingCheck() error = %v, want nil", err)
	}
	if err := PingCheck(fakePinger{err: errors.New("closed")})(context.Background()); err == nil {
		t.Error("PingCheck() error = nil, want error")
	}
}

func TestMount(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("snapshot", ErrorCheck(func() error { return errors.New("broken") }))

	mux := http.NewServeMux()
	Mount(mux, checker, config.HealthConfig{LivenessPath: "/health", ReadinessPath: "/ready"}, VersionInfo{Version: "1.2.3"})

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodHead, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusServiceUnavailable},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if info.Version != "1.2.3" || info.GoVersion == "" {
		t.Errorf("version info = %+v", info)
	}
}
