// Package v1 exposes the schedule, import, and notification operations as a
// JSON API under /api/v1.
package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/campusclock/campusclock/internal/profile"
	"github.com/campusclock/campusclock/server/runner/alarm"
	"github.com/campusclock/campusclock/store"
)

// TimetableAnalyzer extracts raw class records from a timetable photo.
type TimetableAnalyzer interface {
	Analyze(ctx context.Context, imageDataURI string) ([]store.RawClass, error)
}

// APIV1Service wires the HTTP routes to the store, the extraction flow, and
// the alarm runner.
type APIV1Service struct {
	Profile  *profile.Profile
	Store    *store.Store
	Analyzer TimetableAnalyzer
	Runner   *alarm.Runner

	// importSemaphore limits concurrent timetable imports; extraction is
	// slow and replaces the whole schedule, so one at a time.
	importSemaphore *semaphore.Weighted
}

// NewAPIV1Service creates the API service. Analyzer may be nil when no AI
// provider is configured; imports then fail with 503.
func NewAPIV1Service(prof *profile.Profile, st *store.Store, analyzer TimetableAnalyzer, runner *alarm.Runner) *APIV1Service {
	return &APIV1Service{
		Profile:         prof,
		Store:           st,
		Analyzer:        analyzer,
		Runner:          runner,
		importSemaphore: semaphore.NewWeighted(1),
	}
}

// Register attaches the v1 routes to the given Echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.healthz)

	g := e.Group("/api/v1")
	g.GET("/schedule", s.getSchedule)
	g.POST("/schedule/import", s.importSchedule)
	g.PUT("/schedule/classes/:id", s.updateClass)
	g.DELETE("/schedule/classes/:id", s.deleteClass)
	g.POST("/schedule/clear", s.clearSchedule)
	g.GET("/notifications/active", s.activeNotification)
	g.POST("/notifications/dismiss", s.dismissNotification)
	g.GET("/notifications/toasts", s.drainToasts)
}

func (s *APIV1Service) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "ok",
		"version":      s.Profile.Version,
		"alarm_runner": s.Runner.IsRunning(),
	})
}
