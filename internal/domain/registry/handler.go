package registry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/visitregistry/visitregistry/internal/domain/photos"
	"github.com/visitregistry/visitregistry/internal/platform/auth"
	"github.com/visitregistry/visitregistry/pkg/pagination"
)

type Handler struct {
	svc *Service

	// onChange fires after every successful mutation so the reminder
	// engine can re-evaluate without waiting for the next tick. Nil-safe.
	onChange func()
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// SetOnChange registers a callback invoked after visit and patient mutations.
func (h *Handler) SetOnChange(fn func()) {
	h.onChange = fn
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/stale", h.ListStalePatients)
	api.DELETE("/patients/:id", h.DeletePatient)
	api.DELETE("/patients/:id/visits", h.DeleteVisitsByDate)

	api.POST("/visits", h.CreateVisit)
	api.PUT("/visits/:id", h.UpdateVisit)
	api.DELETE("/visits/:id", h.DeleteVisit)
}

type visitRequest struct {
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Date      Date           `json:"date"`
	Photos    []photos.Photo `json:"photos"`
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	userID := auth.UserIDFromContext(c.Request().Context())

	patients, err := h.svc.ListPatientsWithVisits(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	total := len(patients)
	start := pg.Offset
	if start > total {
		start = total
	}
	end := start + pg.Limit
	if end > total {
		end = total
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients[start:end], total, pg.Limit, pg.Offset))
}

func (h *Handler) ListStalePatients(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	stale, err := h.svc.StalePatients(c.Request().Context(), userID, time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if stale == nil {
		stale = []StalePatient{}
	}
	return c.JSON(http.StatusOK, map[string]any{"stale": stale})
}

func (h *Handler) CreateVisit(c echo.Context) error {
	var req visitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	visit, err := h.svc.AddVisit(c.Request().Context(), userID, req.FirstName, req.LastName, req.Date, req.Photos)
	if err != nil {
		return httpError(err)
	}
	h.notifyChange()
	return c.JSON(http.StatusCreated, visit)
}

func (h *Handler) UpdateVisit(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	var req visitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	visit, err := h.svc.UpdateVisit(c.Request().Context(), userID, id, req.Date, req.Photos)
	if err != nil {
		return httpError(err)
	}
	h.notifyChange()
	return c.JSON(http.StatusOK, visit)
}

func (h *Handler) DeleteVisit(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	if err := h.svc.DeleteVisit(c.Request().Context(), userID, id); err != nil {
		return httpError(err)
	}
	h.notifyChange()
	return c.NoContent(http.StatusNoContent)
}

// DeleteVisitsByDate removes all visits of a patient on one date. Fallback
// for clients that track visits by date rather than id.
func (h *Handler) DeleteVisitsByDate(c echo.Context) error {
	patientID, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	date, err := ParseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	deleted, err := h.svc.DeleteVisitsByDate(c.Request().Context(), userID, patientID, date)
	if err != nil {
		return httpError(err)
	}
	if deleted > 0 {
		h.notifyChange()
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	userID := auth.UserIDFromContext(c.Request().Context())

	if err := h.svc.DeletePatient(c.Request().Context(), userID, id); err != nil {
		return httpError(err)
	}
	h.notifyChange()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) notifyChange() {
	if h.onChange != nil {
		h.onChange()
	}
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
