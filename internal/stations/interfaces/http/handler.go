package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"borsibaar-cloud/internal/audit"
	"borsibaar-cloud/internal/auth"
	stationapp "borsibaar-cloud/internal/stations/application"
	stations "borsibaar-cloud/internal/stations/domain"
)

const (
	stationsPath = "/api/v1/stations"
	usersPrefix  = "/api/v1/users/"
	resourceType = "bar_station"
)

// Handler serves bar station endpoints.
type Handler struct {
	service     *stationapp.StationService
	auditLogger audit.Logger
	logger      *log.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *stationapp.StationService, auditLogger audit.Logger, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("station handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, auditLogger: auditLogger, logger: logger}, nil
}

// ServeHTTP routes station requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := auth.OrganizationIDFromContext(r.Context())
	if !ok {
		http.Error(w, "organization required", http.StatusUnauthorized)
		return
	}

	path := r.URL.Path
	switch {
	case path == stationsPath:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r, organizationID)
		case http.MethodPost:
			h.handleCreate(w, r, organizationID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case strings.HasPrefix(path, stationsPath+"/export."):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r, organizationID, strings.TrimPrefix(path, stationsPath+"/export."))
		return
	case strings.HasPrefix(path, stationsPath+"/"):
		stationID, err := strconv.ParseInt(strings.TrimPrefix(path, stationsPath+"/"), 10, 64)
		if err != nil || stationID <= 0 {
			http.Error(w, "invalid station id", http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, organizationID, stationID)
		case http.MethodPut, http.MethodPatch:
			h.handleUpdate(w, r, organizationID, stationID)
		case http.MethodDelete:
			h.handleDelete(w, r, organizationID, stationID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case strings.HasPrefix(path, usersPrefix):
		parts := strings.Split(strings.TrimPrefix(path, usersPrefix), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "stations" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleUserStations(w, r, organizationID, parts[0])
		return
	}

	w.WriteHeader(http.StatusNotFound)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, organizationID int64) {
	list, err := h.service.ListStations(r.Context(), organizationID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request, organizationID int64) {
	var req stationapp.StationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	resp, err := h.service.CreateStation(r.Context(), organizationID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
	h.logAudit(r, "station.create", resp.ID, map[string]any{"name": resp.Name, "user_ids": userIDs(resp)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, organizationID, stationID int64) {
	resp, err := h.service.GetStationByID(r.Context(), organizationID, stationID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, organizationID, stationID int64) {
	var req stationapp.StationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	resp, err := h.service.UpdateStation(r.Context(), organizationID, stationID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	h.logAudit(r, "station.update", resp.ID, map[string]any{"name": resp.Name, "user_ids": userIDs(resp)})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, organizationID, stationID int64) {
	if err := h.service.DeleteStation(r.Context(), organizationID, stationID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, "station.delete", stationID, nil)
}

func (h *Handler) handleUserStations(w http.ResponseWriter, r *http.Request, organizationID int64, userID string) {
	list, err := h.service.GetUserStations(r.Context(), userID, organizationID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stations.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, stations.ErrDuplicateResource):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, stations.ErrBadRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Printf("station handler: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) logAudit(r *http.Request, action string, stationID int64, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	entry := audit.EntryFromRequest(r, action, resourceType, strconv.FormatInt(stationID, 10), meta)
	if err := h.auditLogger.Log(r.Context(), entry); err != nil {
		h.logger.Printf("station audit %s: %v", action, err)
	}
}

func userIDs(resp *stationapp.StationResponse) []string {
	ids := make([]string, 0, len(resp.AssignedUsers))
	for _, user := range resp.AssignedUsers {
		ids = append(ids, user.ID)
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
