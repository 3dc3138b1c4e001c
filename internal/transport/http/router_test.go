package httptransport_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coreboxmedia/timerd/internal/health"
	"github.com/coreboxmedia/timerd/internal/sched"
	"github.com/coreboxmedia/timerd/internal/storage"
	httptransport "github.com/coreboxmedia/timerd/internal/transport/http"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func newTestRegisterer() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func TestDebugTimers_ReturnsSnapshot(t *testing.T) {
	fireAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snapshot := func(context.Context) ([]sched.PendingRecord, error) {
		return []sched.PendingRecord{{CallbackName: "tick", FireAt: fireAt}}, nil
	}
	checker := health.NewChecker(nil, testLogger(), newTestRegisterer())
	r := httptransport.NewRouter(testLogger(), snapshot, nil, checker)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/timers", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "tick") {
		t.Errorf("body %q does not contain pending callback name", w.Body.String())
	}
}

func TestDebugTimers_SnapshotError_Returns504(t *testing.T) {
	snapshot := func(context.Context) ([]sched.PendingRecord, error) {
		return nil, errors.New("event loop unreachable")
	}
	checker := health.NewChecker(nil, testLogger(), newTestRegisterer())
	r := httptransport.NewRouter(testLogger(), snapshot, nil, checker)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/timers", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", w.Code)
	}
}

func TestDebugLibraries_NoStorageConfigured_ReturnsEmptyList(t *testing.T) {
	snapshot := func(context.Context) ([]sched.PendingRecord, error) { return nil, nil }
	checker := health.NewChecker(nil, testLogger(), newTestRegisterer())
	r := httptransport.NewRouter(testLogger(), snapshot, nil, checker)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/libraries", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"libraries":[]`) {
		t.Errorf("body %q does not report an empty library list", w.Body.String())
	}
}

func TestDebugLibraries_ReturnsRegisteredLibraries(t *testing.T) {
	snapshot := func(context.Context) ([]sched.PendingRecord, error) { return nil, nil }
	libraries := func(context.Context) ([]storage.Library, error) {
		return []storage.Library{{ID: 1, Name: "music", Folder: "/media/music"}}, nil
	}
	checker := health.NewChecker(nil, testLogger(), newTestRegisterer())
	r := httptransport.NewRouter(testLogger(), snapshot, libraries, checker)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/libraries", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "music") {
		t.Errorf("body %q does not contain registered library", w.Body.String())
	}
}

func TestHealthz_AlwaysUp(t *testing.T) {
	snapshot := func(context.Context) ([]sched.PendingRecord, error) { return nil, nil }
	checker := health.NewChecker(nil, testLogger(), newTestRegisterer())
	r := httptransport.NewRouter(testLogger(), snapshot, nil, checker)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
