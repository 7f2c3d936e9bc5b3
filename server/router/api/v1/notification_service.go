package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campusclock/campusclock/server/runner/alarm"
)

type activeNotificationResponse struct {
	Notification *alarm.Notification `json:"notification"`
}

func (s *APIV1Service) activeNotification(c echo.Context) error {
	return c.JSON(http.StatusOK, activeNotificationResponse{
		Notification: s.Runner.Presenter().Active(),
	})
}

func (s *APIV1Service) dismissNotification(c echo.Context) error {
	dismissed := s.Runner.Presenter().Dismiss()
	return c.JSON(http.StatusOK, map[string]bool{"dismissed": dismissed})
}

type toastsResponse struct {
	Toasts []alarm.Toast `json:"toasts"`
}

func (s *APIV1Service) drainToasts(c echo.Context) error {
	toasts := s.Runner.Toaster().Drain()
	if toasts == nil {
		toasts = []alarm.Toast{}
	}
	return c.JSON(http.StatusOK, toastsResponse{Toasts: toasts})
}
