package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/coreboxmedia/timerd/internal/health"
	"github.com/coreboxmedia/timerd/internal/sched"
	"github.com/coreboxmedia/timerd/internal/storage"
	"github.com/coreboxmedia/timerd/internal/transport/http/middleware"
)

// SnapshotFunc retrieves a point-in-time list of pending timers. It
// must be implemented as a hand-off to the single goroutine that owns
// the Scheduler (see cmd/timerd's event loop) rather than a direct
// call into Scheduler.ListPending from the HTTP handler's own
// goroutine: Scheduler carries no internal locking, so calling it
// concurrently with Pump would race.
type SnapshotFunc func(ctx context.Context) ([]sched.PendingRecord, error)

// LibrariesFunc lists the registered virtual libraries. Unlike
// SnapshotFunc it is safe to call straight from the HTTP handler's own
// goroutine: it talks to Postgres, not to the single-caller Scheduler.
// It is nil when the daemon was started without DATABASE_URL.
type LibrariesFunc func(ctx context.Context) ([]storage.Library, error)

// NewRouter builds the daemon's introspection surface: liveness and
// readiness probes, and debug endpoints dumping pending timers and
// registered virtual libraries. There is nothing here the scheduler
// itself depends on, Pump never calls into this package, it exists
// purely for operators.
func NewRouter(logger *slog.Logger, snapshot SnapshotFunc, libraries LibrariesFunc, checker *health.Checker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, checker.Liveness(c.Request.Context()))
	})

	r.GET("/readyz", func(c *gin.Context) {
		result := checker.Readiness(c.Request.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, result)
	})

	r.GET("/debug/timers", func(c *gin.Context) {
		pending, err := snapshot(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pending": pending})
	})

	r.GET("/debug/libraries", func(c *gin.Context) {
		if libraries == nil {
			c.JSON(http.StatusOK, gin.H{"libraries": []storage.Library{}})
			return
		}
		libs, err := libraries(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"libraries": libs})
	})

	return r
}
