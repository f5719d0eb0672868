package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

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

func staffContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID, role string) echo.Context {
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID)
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{role})
	return e.NewContext(req.WithContext(ctx), rec)
}

func TestHandler_CreatePatient(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"last_name":"Tremblay","first_name":"Alice","insurance_number":"TREA12345678",` +
		`"postal_code":"H2X 1Y4","birth_date":"1990-06-15T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "user-1")

	if err := h.CreatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var p Patient
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.UserID != "user-1" {
		t.Errorf("expected owner user-1, got %q", p.UserID)
	}
	if p.Age == 0 {
		t.Error("expected computed age in response")
	}
}

func TestHandler_CreatePatient_Unauthenticated(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreatePatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHandler_CreatePatient_AlreadyRegistered(t *testing.T) {
	h, svc, e := newTestHandler()

	existing := validPatient()
	if err := svc.CreateOrUpdatePatient(context.Background(), existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := `{"last_name":"Tremblay","first_name":"Alice","insurance_number":"TREB87654321",` +
		`"postal_code":"H2X 1Y4","birth_date":"1990-06-15T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, existing.UserID)

	if err := h.CreatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["id"] != existing.ID.String() {
		t.Errorf("conflict response must carry the existing id, got %v", resp["id"])
	}
}

func TestHandler_CreatePatient_Invalid(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"last_name":"T","first_name":"Alice","insurance_number":"TREA12345678",` +
		`"postal_code":"H2X 1Y4","birth_date":"1990-06-15T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "user-1")

	err := h.CreatePatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_GetMyPatient(t *testing.T) {
	h, svc, e := newTestHandler()

	existing := validPatient()
	if err := svc.CreateOrUpdatePatient(context.Background(), existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/me", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, existing.UserID)

	if err := h.GetMyPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var p Patient
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.ID != existing.ID {
		t.Errorf("expected %s, got %s", existing.ID, p.ID)
	}
}

func TestHandler_GetMyPatient_NotRegistered(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/me", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "stranger")

	err := h.GetMyPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.GetPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_GetPatient_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.GetPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_UpdatePatient_StaleVersion(t *testing.T) {
	h, svc, e := newTestHandler()

	existing := validPatient()
	if err := svc.CreateOrUpdatePatient(context.Background(), existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := `{"last_name":"Tremblay","first_name":"Alice","insurance_number":"TREA12345678",` +
		`"postal_code":"H2X 1Y4","birth_date":"1990-06-15T00:00:00Z","version_id":0}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/patients/"+existing.ID.String(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, existing.UserID)
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())

	err := h.UpdatePatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestHandler_DeletePatient(t *testing.T) {
	h, svc, e := newTestHandler()

	existing := validPatient()
	if err := svc.CreateOrUpdatePatient(context.Background(), existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/patients/"+existing.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())

	if err := h.DeletePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_Dependents(t *testing.T) {
	h, svc, e := newTestHandler()

	existing := validPatient()
	if err := svc.CreateOrUpdatePatient(context.Background(), existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := `{"last_name":"Tremblay","first_name":"Benoit","insurance_number":"TREB20180101",` +
		`"birth_date":"2018-01-01T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients/"+existing.ID.String()+"/dependents",
		strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, existing.UserID)
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())

	if err := h.AddDependent(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var d Dependent
	json.Unmarshal(rec.Body.Bytes(), &d)
	if d.PatientID != existing.ID {
		t.Errorf("dependent must belong to the path patient")
	}
	if got := AgeAt(d.BirthDate, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)); d.Age != got {
		t.Errorf("expected computed age %d, got %d", got, d.Age)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+existing.ID.String()+"/dependents", nil)
	rec = httptest.NewRecorder()
	c = authedContext(e, req, rec, existing.UserID)
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())

	if err := h.GetDependents(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var deps []*Dependent
	json.Unmarshal(rec.Body.Bytes(), &deps)
	if len(deps) != 1 {
		t.Errorf("expected 1 dependent, got %d", len(deps))
	}
}

func TestHandler_GetPatient_OtherUserForbidden(t *testing.T) {
	h, svc, e := newTestHandler()

	existing := validPatient()
	if err := svc.CreateOrUpdatePatient(context.Background(), existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+existing.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "someone-else")
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())

	err := h.GetPatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestHandler_GetPatient_StaffAllowed(t *testing.T) {
	h, svc, e := newTestHandler()

	existing := validPatient()
	if err := svc.CreateOrUpdatePatient(context.Background(), existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+existing.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := staffContext(e, req, rec, "dr-smith", "physician")
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())

	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_UpdatePatient_OtherUserForbidden(t *testing.T) {
	h, svc, e := newTestHandler()

	existing := validPatient()
	if err := svc.CreateOrUpdatePatient(context.Background(), existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := `{"last_name":"Mallory","first_name":"Eve","insurance_number":"TREA12345678",` +
		`"postal_code":"H2X 1Y4","birth_date":"1990-06-15T00:00:00Z","version_id":1}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/patients/"+existing.ID.String(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "attacker-user")
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())

	err := h.UpdatePatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}

	stored, err := svc.GetPatient(context.Background(), existing.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.LastName != "Tremblay" {
		t.Errorf("record must be untouched, got last name %q", stored.LastName)
	}
}

func TestHandler_UpdatePatient_BodyOmitsUserID(t *testing.T) {
	h, svc, e := newTestHandler()

	existing := validPatient()
	if err := svc.CreateOrUpdatePatient(context.Background(), existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := `{"last_name":"Tremblay","first_name":"Alicia","insurance_number":"TREA12345678",` +
		`"postal_code":"H2X 1Y4","birth_date":"1990-06-15T00:00:00Z","version_id":1}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/patients/"+existing.ID.String(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, existing.UserID)
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())

	if err := h.UpdatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	stored, err := svc.GetPatient(context.Background(), existing.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.FirstName != "Alicia" {
		t.Errorf("expected updated first name, got %q", stored.FirstName)
	}
	if stored.UserID != existing.UserID {
		t.Errorf("owner must survive a body without user_id, got %q", stored.UserID)
	}
}

// repo whose Update loses the row, simulating a delete racing the write.
type vanishingRepo struct {
	*mockRepo
}

func (m *vanishingRepo) Update(_ context.Context, p *Patient) error {
	delete(m.patients, p.ID)
	return ErrVersionConflict
}

func TestHandler_UpdatePatient_DeletedDuringUpdate(t *testing.T) {
	repo := &vanishingRepo{newMockRepo()}
	svc := NewService(repo, nil, &mockPurger{})
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	h := NewHandler(svc)
	e := echo.New()

	existing := validPatient()
	existing.ID = uuid.New()
	existing.VersionID = 1
	repo.patients[existing.ID] = existing

	body := `{"last_name":"Tremblay","first_name":"Alice","insurance_number":"TREA12345678",` +
		`"postal_code":"H2X 1Y4","birth_date":"1990-06-15T00:00:00Z","version_id":1}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/patients/"+existing.ID.String(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, existing.UserID)
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())

	err := h.UpdatePatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a row deleted mid-update, got %v", err)
	}
}

func TestHandler_Dependents_OtherUserForbidden(t *testing.T) {
	h, svc, e := newTestHandler()

	existing := validPatient()
	if err := svc.CreateOrUpdatePatient(context.Background(), existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+existing.ID.String()+"/dependents", nil)
	rec := httptest.NewRecorder()
	c := authedContext(e, req, rec, "someone-else")
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())

	err := h.GetDependents(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestHandler_ListPatients_Empty(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", rec.Body.String())
	}
}
