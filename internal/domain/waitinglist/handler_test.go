package waitinglist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc, _, _ := newTestService()
	return NewHandler(svc), svc, echo.New()
}

func TestHandler_CreateWaitingList(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"clinic_id":"` + uuid.NewString() + `","effective_date":"2024-03-04T00:00:00Z",` +
		`"opening_time":"08:00","closing_time":"17:00","available_practitioners":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/waiting-lists", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateWaitingList(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var w WaitingList
	json.Unmarshal(rec.Body.Bytes(), &w)
	if w.IsOpen {
		t.Error("new lists must start closed")
	}
}

func TestHandler_OpenWaitingList_Refused(t *testing.T) {
	h, svc, e := newTestHandler()

	w := validList()
	w.AvailablePractitioners = 0
	if err := svc.CreateWaitingList(context.Background(), w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/waiting-lists/"+w.ID.String()+"/open", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(w.ID.String())

	err := h.OpenWaitingList(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 from the open guard, got %v", err)
	}
}

func TestHandler_GenerateTimeSlots(t *testing.T) {
	h, svc, e := newTestHandler()

	w := validList()
	if err := svc.CreateWaitingList(context.Background(), w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/waiting-lists/"+w.ID.String()+"/time-slots", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(w.ID.String())

	if err := h.GenerateTimeSlots(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var slots []*TimeSlot
	json.Unmarshal(rec.Body.Bytes(), &slots)
	if len(slots) != 18 {
		t.Errorf("expected 18 slots, got %d", len(slots))
	}

	// Second run conflicts.
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(w.ID.String())

	err := h.GenerateTimeSlots(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second generation, got %v", err)
	}
}

func TestHandler_ListWaitingLists_Empty(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/waiting-lists", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListWaitingLists(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", rec.Body.String())
	}
}

func TestHandler_GetWaitingList_NotFound(t *testing.T) {
	h, _, e := newTestHandler()

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/waiting-lists/"+id, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)

	err := h.GetWaitingList(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
