// Package server assembles the HTTP API and the alarm runner into one
// process.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/campusclock/campusclock/internal/profile"
	"github.com/campusclock/campusclock/server/middleware"
	apiv1 "github.com/campusclock/campusclock/server/router/api/v1"
	"github.com/campusclock/campusclock/server/runner/alarm"
	"github.com/campusclock/campusclock/server/timezone"
	"github.com/campusclock/campusclock/store"
)

// Server owns the echo instance and the alarm runner.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	runner     *alarm.Runner
	logger     *slog.Logger
}

// NewServer wires the API routes and the alarm runner. The analyzer and
// advisors may be nil when no AI provider is configured; the schedule API
// then still works while import and alarm reasoning are disabled.
func NewServer(prof *profile.Profile, st *store.Store, analyzer apiv1.TimetableAnalyzer, alarms alarm.AlarmAdvisor, transitions alarm.TransitionAdvisor) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.RateLimit(middleware.NewRateLimiter()))
	e.Use(requestLogger())

	loc, err := timezone.ParseTimezone(prof.Timezone)
	if err != nil {
		slog.Warn("falling back to the local timezone", "error", err)
	}
	runner := alarm.NewRunner(st, alarms, transitions, alarm.Config{
		Interval:              time.Minute,
		AlarmLeadMinutes:      prof.AlarmLeadMinutes,
		TransitionLeadMinutes: prof.TransitionLeadMinutes,
	})
	runner.SetClock(func() time.Time { return timezone.NowInTimezone(loc) })

	apiService := apiv1.NewAPIV1Service(prof, st, analyzer, runner)
	apiService.Register(e)

	return &Server{
		Profile:    prof,
		Store:      st,
		echoServer: e,
		runner:     runner,
		logger:     slog.Default(),
	}, nil
}

// Start restores the schedule, starts the alarm runner, and serves HTTP
// until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Store.Load(ctx); err != nil {
		return errors.Wrap(err, "failed to restore schedule")
	}

	reasoningEnabled := s.runner != nil && s.Profile.IsAIEnabled()
	if reasoningEnabled {
		if err := s.runner.Start(ctx); err != nil {
			return errors.Wrap(err, "failed to start alarm runner")
		}
	} else {
		s.logger.Warn("AI is not configured, alarm reasoning disabled")
	}

	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("campusclock server started",
		"address", addr,
		"mode", s.Profile.Mode,
		"driver", s.Profile.Driver,
		"alarm_runner", reasoningEnabled)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.echoServer.Start(addr); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown()
		return nil
	})
	return g.Wait()
}

// Shutdown tears the process down: the runner first, so no new notification
// is raised mid-shutdown, then the HTTP listener, then the store driver.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.runner.Stop()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shut down http server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close store", "error", err)
	}
	s.logger.Info("campusclock server stopped")
}

// requestLogger logs each request through slog with method, path, status,
// and latency.
func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
				slog.Warn("request failed", attrs...)
				return nil
			}
			slog.Debug("request", attrs...)
			return nil
		},
	})
}
