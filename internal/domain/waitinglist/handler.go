package waitinglist

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinique/clinique/internal/platform/auth"
	"github.com/clinique/clinique/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/waiting-lists", h.ListWaitingLists)
	api.GET("/waiting-lists/:id", h.GetWaitingList)
	api.GET("/waiting-lists/:id/time-slots", h.ListTimeSlots)

	staff := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	staff.POST("/waiting-lists", h.CreateWaitingList)
	staff.PUT("/waiting-lists/:id", h.UpdateWaitingList)
	staff.DELETE("/waiting-lists/:id", h.DeleteWaitingList)
	staff.POST("/waiting-lists/:id/open", h.OpenWaitingList)
	staff.POST("/waiting-lists/:id/close", h.CloseWaitingList)
	staff.POST("/waiting-lists/:id/time-slots", h.GenerateTimeSlots)
}

func (h *Handler) ListWaitingLists(c echo.Context) error {
	if clinicID := c.QueryParam("clinic_id"); clinicID != "" {
		cid, err := uuid.Parse(clinicID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid clinic_id")
		}
		lists, err := h.svc.ListByClinic(c.Request().Context(), cid)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, lists)
	}

	pg := pagination.FromContext(c)
	lists, total, err := h.svc.ListWaitingLists(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(lists, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetWaitingList(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	w, err := h.svc.GetWaitingList(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) CreateWaitingList(c echo.Context) error {
	var w WaitingList
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateWaitingList(c.Request().Context(), &w); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) UpdateWaitingList(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var w WaitingList
	if err := c.Bind(&w); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	w.ID = id
	if err := h.svc.UpdateWaitingList(c.Request().Context(), &w); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			if _, getErr := h.svc.GetWaitingList(c.Request().Context(), id); errors.Is(getErr, ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, getErr.Error())
			}
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) DeleteWaitingList(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteWaitingList(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) OpenWaitingList(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	w, err := h.svc.Open(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) CloseWaitingList(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	w, err := h.svc.Close(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) GenerateTimeSlots(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	slots, err := h.svc.GenerateTimeSlots(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, slots)
}

func (h *Handler) ListTimeSlots(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	slots, err := h.svc.ListTimeSlots(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, slots)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrCannotOpen):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
