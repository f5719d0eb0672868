package consultation

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinique/clinique/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/consultations", h.ListConsultations)
	api.GET("/consultations/:id", h.GetConsultation)
	api.POST("/consultations", h.CreateConsultation)
	api.PUT("/consultations/:id", h.UpdateConsultation)
	api.DELETE("/consultations/:id", h.DeleteConsultation)

	api.POST("/consultations/:id/check-in", h.CheckIn)
	api.POST("/consultations/:id/start", h.Start)
	api.POST("/consultations/:id/complete", h.Complete)
	api.POST("/consultations/:id/cancel", h.Cancel)
}

func (h *Handler) ListConsultations(c echo.Context) error {
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		consults, err := h.svc.GetByPatient(c.Request().Context(), pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, consults)
	}

	pg := pagination.FromContext(c)
	consults, total, err := h.svc.ListConsultations(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(consults, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	consult, err := h.svc.GetConsultation(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, consult)
}

func (h *Handler) CreateConsultation(c echo.Context) error {
	var consult Consultation
	if err := c.Bind(&consult); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateConsultation(c.Request().Context(), &consult); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, consult)
}

func (h *Handler) UpdateConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var consult Consultation
	if err := c.Bind(&consult); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	consult.ID = id
	if err := h.svc.UpdateConsultation(c.Request().Context(), &consult); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			if _, getErr := h.svc.GetConsultation(c.Request().Context(), id); errors.Is(getErr, ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, getErr.Error())
			}
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, consult)
}

func (h *Handler) DeleteConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteConsultation(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CheckIn(c echo.Context) error {
	return h.doTransition(c, h.svc.CheckIn)
}

func (h *Handler) Start(c echo.Context) error {
	return h.doTransition(c, h.svc.Start)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.doTransition(c, h.svc.Complete)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.doTransition(c, h.svc.Cancel)
}

func (h *Handler) doTransition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Consultation, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	consult, err := fn(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, consult)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrBadTransition):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
