package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/campusclock/campusclock/store"
)

type scheduleResponse struct {
	Schedule store.Schedule `json:"schedule"`
}

func (s *APIV1Service) getSchedule(c echo.Context) error {
	return c.JSON(http.StatusOK, scheduleResponse{Schedule: s.Store.Snapshot()})
}

type updateClassRequest struct {
	Subject      string `json:"subject"`
	RoomNumber   string `json:"roomNumber"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	DayOfWeek    string `json:"dayOfWeek"`
	AlarmEnabled bool   `json:"alarmEnabled"`
}

func (s *APIV1Service) updateClass(c echo.Context) error {
	var req updateClassRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	entry := &store.ClassEntry{
		ID:           c.Param("id"),
		Subject:      req.Subject,
		RoomNumber:   req.RoomNumber,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		DayOfWeek:    store.DayOfWeek(req.DayOfWeek),
		AlarmEnabled: req.AlarmEnabled,
	}

	if err := s.Store.UpdateClass(c.Request().Context(), entry); err != nil {
		var verr *store.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, map[string]any{
				"message": "validation failed",
				"fields":  verr.Fields,
			})
		case errors.Is(err, store.ErrClassNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "class not found")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to update class")
		}
	}
	return c.JSON(http.StatusOK, scheduleResponse{Schedule: s.Store.Snapshot()})
}

func (s *APIV1Service) deleteClass(c echo.Context) error {
	day := store.DayOfWeek(c.QueryParam("day"))

	err := s.Store.DeleteClass(c.Request().Context(), c.Param("id"), day)
	if err != nil {
		var verr *store.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, map[string]any{
				"message": "validation failed",
				"fields":  verr.Fields,
			})
		case errors.Is(err, store.ErrClassNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "class not found")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete class")
		}
	}
	return c.JSON(http.StatusOK, scheduleResponse{Schedule: s.Store.Snapshot()})
}

func (s *APIV1Service) clearSchedule(c echo.Context) error {
	if err := s.Store.Clear(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to clear schedule")
	}
	return c.JSON(http.StatusOK, scheduleResponse{Schedule: s.Store.Snapshot()})
}
