package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/visitregistry/visitregistry/internal/platform/auth"
)

func newTestHandler() (*Handler, *memStore) {
	svc, store := newTestService()
	return NewHandler(svc), store
}

func doRequest(h *Handler, method, target, body, userID string) *httptest.ResponseRecorder {
	e := echo.New()
	api := e.Group("/api/v1")
	h.RegisterRoutes(api)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req = req.WithContext(auth.ContextWithUserID(req.Context(), userID))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateVisitEndpoint(t *testing.T) {
	h, _ := newTestHandler()

	body := `{"first_name":"Mario","last_name":"Rossi","date":"2024-03-01","photos":[]}`
	rec := doRequest(h, http.MethodPost, "/api/v1/visits", body, "user-1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var v Visit
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.ID == 0 || v.Date.String() != "2024-03-01" {
		t.Fatalf("unexpected visit: %+v", v)
	}
}

func TestCreateVisitRejectsMissingName(t *testing.T) {
	h, _ := newTestHandler()

	body := `{"first_name":"","last_name":"Rossi","date":"2024-03-01"}`
	rec := doRequest(h, http.MethodPost, "/api/v1/visits", body, "user-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListPatientsEndpoint(t *testing.T) {
	h, _ := newTestHandler()

	doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Mario","last_name":"Rossi","date":"2024-03-01"}`, "user-1")
	doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Anna","last_name":"Bianchi","date":"2024-03-05"}`, "user-1")

	rec := doRequest(h, http.MethodGet, "/api/v1/patients", "", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Items []*Patient `json:"data"`
		Total int        `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Fatalf("total = %d items = %d, want 2/2", resp.Total, len(resp.Items))
	}
	for _, p := range resp.Items {
		if p.Visits == nil {
			t.Fatalf("patient %d has nil visits", p.ID)
		}
	}
}

func TestListPatientsPagination(t *testing.T) {
	h, _ := newTestHandler()

	doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Mario","last_name":"Rossi","date":"2024-03-01"}`, "user-1")
	doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Anna","last_name":"Bianchi","date":"2024-03-05"}`, "user-1")

	rec := doRequest(h, http.MethodGet, "/api/v1/patients?limit=1&offset=0", "", "user-1")
	var resp struct {
		Items   []*Patient `json:"data"`
		Total   int        `json:"total"`
		HasMore bool       `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Total != 2 || !resp.HasMore {
		t.Fatalf("unexpected page: items=%d total=%d has_more=%v", len(resp.Items), resp.Total, resp.HasMore)
	}
}

func TestListPatientsIsolatedPerUser(t *testing.T) {
	h, _ := newTestHandler()

	doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Mario","last_name":"Rossi","date":"2024-03-01"}`, "user-1")

	rec := doRequest(h, http.MethodGet, "/api/v1/patients", "", "user-2")
	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 0 {
		t.Fatalf("user-2 sees %d patients, want 0", resp.Total)
	}
}

func TestUpdateVisitEndpoint(t *testing.T) {
	h, _ := newTestHandler()

	rec := doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Mario","last_name":"Rossi","date":"2024-03-01"}`, "user-1")
	var v Visit
	json.Unmarshal(rec.Body.Bytes(), &v)

	rec = doRequest(h, http.MethodPut, "/api/v1/visits/1",
		`{"date":"2024-03-09","photos":[]}`, "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var updated Visit
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Date.String() != "2024-03-09" {
		t.Fatalf("date = %s, want 2024-03-09", updated.Date)
	}
}

func TestDeleteVisitEndpoint(t *testing.T) {
	h, store := newTestHandler()

	doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Mario","last_name":"Rossi","date":"2024-03-01"}`, "user-1")

	rec := doRequest(h, http.MethodDelete, "/api/v1/visits/1", "", "user-1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(store.visits) != 0 {
		t.Fatal("visit not deleted")
	}

	rec = doRequest(h, http.MethodDelete, "/api/v1/visits/1", "", "user-1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}

	rec = doRequest(h, http.MethodDelete, "/api/v1/visits/abc", "", "user-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rec.Code)
	}
}

func TestDeleteVisitsByDateEndpoint(t *testing.T) {
	h, _ := newTestHandler()

	doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Mario","last_name":"Rossi","date":"2024-03-01"}`, "user-1")
	doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Mario","last_name":"Rossi","date":"2024-03-01"}`, "user-1")

	rec := doRequest(h, http.MethodDelete, "/api/v1/patients/1/visits?date=2024-03-01", "", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["deleted"] != 2 {
		t.Fatalf("deleted = %d, want 2", resp["deleted"])
	}

	rec = doRequest(h, http.MethodDelete, "/api/v1/patients/1/visits?date=bogus", "", "user-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d, want 400", rec.Code)
	}
}

func TestDeletePatientEndpoint(t *testing.T) {
	h, store := newTestHandler()

	doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Mario","last_name":"Rossi","date":"2024-03-01"}`, "user-1")

	rec := doRequest(h, http.MethodDelete, "/api/v1/patients/1", "", "user-1")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(store.patients) != 0 || len(store.visits) != 0 {
		t.Fatal("patient delete must cascade to visits")
	}

	rec = doRequest(h, http.MethodDelete, "/api/v1/patients/1", "", "user-2")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStaleEndpoint(t *testing.T) {
	h, _ := newTestHandler()

	doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Mario","last_name":"Rossi","date":"2020-01-01"}`, "user-1")

	rec := doRequest(h, http.MethodGet, "/api/v1/patients/stale", "", "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Stale []StalePatient `json:"stale"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Stale) != 1 || resp.Stale[0].Name != "Mario Rossi" {
		t.Fatalf("unexpected stale list: %+v", resp.Stale)
	}
}

func TestMutationFiresOnChange(t *testing.T) {
	h, _ := newTestHandler()
	var fired int
	h.SetOnChange(func() { fired++ })

	doRequest(h, http.MethodPost, "/api/v1/visits",
		`{"first_name":"Mario","last_name":"Rossi","date":"2024-03-01"}`, "user-1")
	if fired != 1 {
		t.Fatalf("onChange fired %d times, want 1", fired)
	}

	doRequest(h, http.MethodDelete, "/api/v1/visits/1", "", "user-1")
	if fired != 2 {
		t.Fatalf("onChange fired %d times after delete, want 2", fired)
	}
}
