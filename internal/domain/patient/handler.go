package patient

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

var staffRoles = []string{"admin", "physician", "nurse", "registrar"}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Staff-only endpoints
	staff := api.Group("", auth.RequireRole(staffRoles...))
	staff.GET("/patients", h.ListPatients)
	staff.DELETE("/patients/:id", h.DeletePatient)

	// Any authenticated user manages their own record; access to another
	// user's record requires a staff role (checked per handler).
	api.GET("/patients/me", h.GetMyPatient)
	api.GET("/patients/:id", h.GetPatient)
	api.POST("/patients", h.CreatePatient)
	api.PUT("/patients/:id", h.UpdatePatient)

	api.POST("/patients/:id/dependents", h.AddDependent)
	api.GET("/patients/:id/dependents", h.GetDependents)
	api.DELETE("/patients/:id/dependents/:dependentID", h.RemoveDependent)
}

// canAccess reports whether the caller owns the record or holds a staff role.
func canAccess(c echo.Context, ownerUserID string) bool {
	ctx := c.Request().Context()
	if ownerUserID != "" && auth.UserIDFromContext(ctx) == ownerUserID {
		return true
	}
	for _, role := range auth.RolesFromContext(ctx) {
		for _, staff := range staffRoles {
			if role == staff {
				return true
			}
		}
	}
	return false
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !canAccess(c, p.UserID) {
		return echo.NewHTTPError(http.StatusForbidden, "not your patient record")
	}
	return c.JSON(http.StatusOK, p)
}

// GetMyPatient returns the record owned by the authenticated user.
func (h *Handler) GetMyPatient(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "no authenticated user")
	}
	p, err := h.svc.GetPatientByUser(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// CreatePatient registers the authenticated user as a patient. When the user
// already owns a record, the existing id is returned with a conflict status
// instead of creating a second record.
func (h *Handler) CreatePatient(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "no authenticated user")
	}

	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = uuid.Nil
	p.UserID = userID

	if err := h.svc.CreateOrUpdatePatient(c.Request().Context(), &p); err != nil {
		if errors.Is(err, ErrConflict) {
			if existing, lookupErr := h.svc.GetPatientByUser(c.Request().Context(), userID); lookupErr == nil {
				return c.JSON(http.StatusConflict, map[string]interface{}{
					"error": "patient record already exists",
					"id":    existing.ID,
				})
			}
		}
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !canAccess(c, existing.UserID) {
		return echo.NewHTTPError(http.StatusForbidden, "not your patient record")
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.CreateOrUpdatePatient(c.Request().Context(), &p); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			if _, getErr := h.svc.GetPatient(c.Request().Context(), id); errors.Is(getErr, ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, getErr.Error())
			}
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddDependent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	owner, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !canAccess(c, owner.UserID) {
		return echo.NewHTTPError(http.StatusForbidden, "not your patient record")
	}
	var d Dependent
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.PatientID = id
	if err := h.svc.AddDependent(c.Request().Context(), &d); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDependents(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	owner, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !canAccess(c, owner.UserID) {
		return echo.NewHTTPError(http.StatusForbidden, "not your patient record")
	}
	deps, err := h.svc.GetDependents(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, deps)
}

func (h *Handler) RemoveDependent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	depID, err := uuid.Parse(c.Param("dependentID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid dependent id")
	}
	owner, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if !canAccess(c, owner.UserID) {
		return echo.NewHTTPError(http.StatusForbidden, "not your patient record")
	}
	if err := h.svc.RemoveDependent(c.Request().Context(), id, depID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
