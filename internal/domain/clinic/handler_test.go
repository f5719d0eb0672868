package clinic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinique/clinique/internal/platform/auth"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc, _, _ := newTestService()
	return NewHandler(svc), svc, echo.New()
}

func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID string) echo.Context {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID)
	return e.NewContext(req.WithContext(ctx), rec)
}

func TestHandler_CreateClinic(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"name":"Clinique du Plateau","opening_time":"08:00","closing_time":"17:00",` +
		`"avg_consult_minutes":30,"address":{"street_number":"1234","street":"Rue Saint-Denis",` +
		`"city":"Montreal","province":"QC","country":"Canada","postal_code":"H2X 3K8"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clinics", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "staff-1")

	if err := h.CreateClinic(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var cl Clinic
	json.Unmarshal(rec.Body.Bytes(), &cl)
	if cl.CreatedByUserID != "staff-1" {
		t.Errorf("expected creator staff-1, got %q", cl.CreatedByUserID)
	}
}

func TestHandler_CreateClinic_Invalid(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"name":"","opening_time":"08:00","closing_time":"17:00","avg_consult_minutes":30}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clinics", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "staff-1")

	err := h.CreateClinic(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_GetClinic_NotFound(t *testing.T) {
	h, _, e := newTestHandler()

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/clinics/"+id, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)

	err := h.GetClinic(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_ListClinics_ByName(t *testing.T) {
	h, svc, e := newTestHandler()

	cl := validClinic()
	if err := svc.CreateClinic(context.Background(), cl, "staff-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clinics?name=Clinique+du+Plateau", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListClinics(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got Clinic
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.ID != cl.ID {
		t.Errorf("expected %s, got %s", cl.ID, got.ID)
	}
}

func TestHandler_DeleteClinic(t *testing.T) {
	h, svc, e := newTestHandler()

	cl := validClinic()
	if err := svc.CreateClinic(context.Background(), cl, "staff-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/clinics/"+cl.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cl.ID.String())

	if err := h.DeleteClinic(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
