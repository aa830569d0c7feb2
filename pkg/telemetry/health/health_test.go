package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/atrium/internal/fixtures"
	"mercator-hq/atrium/pkg/queue"
	"mercator-hq/atrium/pkg/resource"
)

// TestChecker_Readiness tests aggregation of component checks.
func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantCode   int
	}{
		{
			name:       "no checks",
			wantStatus: StatusReady,
			wantCode:   http.StatusOK,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"queue":     QueueCheck(queue.NewMemoryBackend()),
				"resources": func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
			wantCode:   http.StatusOK,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"queue":      QueueCheck(queue.NewMemoryBackend()),
				"datasource": func(context.Context) error { return errors.New("disk I/O error") },
			},
			wantStatus: StatusDegraded,
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}

			rec := httptest.NewRecorder()
			c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var status HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
				t.Fatal(err)
			}
			if status.Status != tt.wantStatus || len(status.Checks) != len(tt.checks) {
				t.Errorf("status = %+v", status)
			}
		})
	}
}

// TestChecker_Timeout tests that slow checks are reported unhealthy.
func TestChecker_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := c.CheckReadiness(context.Background())
	if got := status.Checks["slow"]; got.Status != StatusUnhealthy || got.Message != "health check timeout" {
		t.Errorf("slow = %+v", got)
	}
}

// TestChecks tests the component checks.
func TestChecks(t *testing.T) {
	ctx := context.Background()

	empty, _ := resource.NewRegistry()
	if err := RegistryCheck(empty)(ctx); err == nil {
		t.Error("expected an error for an empty registry")
	}
	full, _ := resource.NewRegistry(fixtures.NewItems())
	if err := RegistryCheck(full)(ctx); err != nil {
		t.Errorf("RegistryCheck() = %v", err)
	}

	if err := WritableDirCheck(filepath.Join(t.TempDir(), "exports"))(ctx); err != nil {
		t.Errorf("WritableDirCheck() = %v", err)
	}

	b, err := queue.NewSQLiteBackend(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := QueueCheck(b)(ctx); err != nil {
		t.Errorf("QueueCheck() = %v", err)
	}
	b.Close()
	if err := QueueCheck(b)(ctx); err == nil {
		t.Error("expected an error for a closed backend")
	}
}

// TestHandlers tests liveness, version and method handling.
func TestHandlers(t *testing.T) {
	c := New(0)
	c.RegisterCheck("b", nil)
	c.RegisterCheck("a", nil)
	if diff := cmp.Diff([]string{"a", "b"}, c.ListChecks()); diff != "" {
		t.Errorf("ListChecks() mismatch (-want +got):\n%s", diff)
	}

	rec := httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("liveness = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST liveness = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	VersionHandler("1.2.3", "abc", "today")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil || info.Version != "1.2.3" || info.GoVersion == "" {
		t.Errorf("version = %+v, %v", info, err)
	}
}
