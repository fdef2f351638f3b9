package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"borsibaar-cloud/internal/audit"
	"borsibaar-cloud/internal/auth"
	stationapp "borsibaar-cloud/internal/stations/application"
	stations "borsibaar-cloud/internal/stations/domain"
	"borsibaar-cloud/internal/stations/infrastructure/memory"
)

var testSecret = []byte("test-secret")

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAudit) Log(_ context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, entry := range a.entries {
		out = append(out, entry.Action)
	}
	return out
}

func newTestServer(t *testing.T) (*httptest.Server, *recordingAudit) {
	t.Helper()
	store := memory.NewStore()
	for _, user := range []stations.User{
		{ID: "u-anna", OrganizationID: 1, Name: "Anna"},
		{ID: "u-carl", OrganizationID: 2, Name: "Carl"},
	} {
		if err := store.PutUser(user); err != nil {
			t.Fatalf("put user: %v", err)
		}
	}
	service, err := stationapp.NewStationService(store.Stations(), store.Users(), stationapp.ResponseMapper{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	recorder := &recordingAudit{}
	handler, err := NewHandler(service, recorder, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/stations", handler)
	mux.Handle("/api/v1/stations/", handler)
	mux.Handle("/api/v1/users/", handler)
	mw := auth.NewMiddleware(testSecret, auth.NewDefaultPolicy(nil, nil))
	server := httptest.NewServer(mw.Wrap(mux))
	t.Cleanup(server.Close)
	return server, recorder
}

func doRequest(t *testing.T, server *httptest.Server, method, path, body string, organizationID int64, role auth.Role) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	token, err := auth.SignJWT(testSecret, organizationID, role, "tester", time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeStation(t *testing.T, resp *http.Response) stationapp.StationResponse {
	t.Helper()
	var out stationapp.StationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestStationLifecycleOverHTTP(t *testing.T) {
	server, recorder := newTestServer(t)

	resp := doRequest(t, server, http.MethodPost, "/api/v1/stations", `{"name":"Main","description":"Front","user_ids":["u-anna"]}`, 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decodeStation(t, resp)
	if created.Name != "Main" || !created.Active || len(created.AssignedUsers) != 1 {
		t.Fatalf("unexpected created station: %+v", created)
	}

	resp = doRequest(t, server, http.MethodPost, "/api/v1/stations", `{"name":"Main"}`, 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	resp = doRequest(t, server, http.MethodPost, "/api/v1/stations", `{"name":"Side","user_ids":["u-carl"]}`, 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp = doRequest(t, server, http.MethodPost, "/api/v1/stations", `{"name":"Side","user_ids":["ghost"]}`, 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	path := "/api/v1/stations/" + jsonNumber(created.ID)
	resp = doRequest(t, server, http.MethodGet, path, "", 2, auth.RoleAdmin)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for other organization, got %d", resp.StatusCode)
	}

	resp = doRequest(t, server, http.MethodPut, path, `{"active":false,"description":null}`, 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decodeStation(t, resp)
	if updated.Active || updated.Description != nil || updated.Name != "Main" {
		t.Fatalf("unexpected updated station: %+v", updated)
	}

	resp = doRequest(t, server, http.MethodGet, "/api/v1/users/u-anna/stations", "", 1, auth.RoleUser)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var assigned []stationapp.StationResponse
	if err := json.NewDecoder(resp.Body).Decode(&assigned); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(assigned) != 1 || assigned[0].ID != created.ID {
		t.Fatalf("unexpected user stations: %+v", assigned)
	}

	resp = doRequest(t, server, http.MethodGet, "/api/v1/users/u-carl/stations", "", 1, auth.RoleUser)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for user of another organization, got %d", resp.StatusCode)
	}

	resp = doRequest(t, server, http.MethodDelete, path, "", 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = doRequest(t, server, http.MethodDelete, path, "", 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}

	actions := strings.Join(recorder.actions(), ",")
	if actions != "station.create,station.update,station.delete" {
		t.Fatalf("unexpected audit actions: %s", actions)
	}
}

func TestStationHandlerRejectsBadInput(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(t, server, http.MethodPost, "/api/v1/stations", `{"name":`, 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", resp.StatusCode)
	}
	resp = doRequest(t, server, http.MethodGet, "/api/v1/stations/abc", "", 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", resp.StatusCode)
	}
	resp = doRequest(t, server, http.MethodPost, "/api/v1/stations", `{"description":"no name"}`, 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", resp.StatusCode)
	}
}

func TestStationExports(t *testing.T) {
	server, _ := newTestServer(t)
	resp := doRequest(t, server, http.MethodPost, "/api/v1/stations", `{"name":"Main","user_ids":["u-anna"]}`, 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	resp = doRequest(t, server, http.MethodGet, "/api/v1/stations/export.xlsx", "", 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("PK")) {
		t.Fatalf("expected xlsx zip payload")
	}

	resp = doRequest(t, server, http.MethodGet, "/api/v1/stations/export.pdf", "", 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ = io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Fatalf("expected pdf payload")
	}

	resp = doRequest(t, server, http.MethodGet, "/api/v1/stations/export.csv", "", 1, auth.RoleAdmin)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown format, got %d", resp.StatusCode)
	}
}

func TestStationHandlerRequiresOrganization(t *testing.T) {
	store := memory.NewStore()
	service, err := stationapp.NewStationService(store.Stations(), store.Users(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewHandler(service, nil, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), 3, auth.RoleUser, "tester"))
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if strings.TrimSpace(resp.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %q", resp.Body.String())
	}
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
