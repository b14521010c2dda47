package flows

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tiger-colonel/xyflow-study/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name string `json:"name"`
}

func subject(r *http.Request) string {
	claims, _ := auth.ClaimsFromContext(r.Context())
	return claims.Subject
}

// allowed rejects tokens scoped to another flow.
func allowed(w http.ResponseWriter, r *http.Request, flowID string) bool {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if !claims.Allows(flowID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "token not valid for this flow"})
		return false
	}
	return true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	f, err := h.service.Create(r.Context(), req.Name, subject(r))
	if err != nil {
		slog.Error("create flow failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, f)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	flowID := mux.Vars(r)["flowId"]
	if !allowed(w, r, flowID) {
		return
	}

	f, err := h.service.Get(r.Context(), flowID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, f)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	flows, err := h.service.List(r.Context(), subject(r))
	if err != nil {
		slog.Error("list flows failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, flows)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), mux.Vars(r)["flowId"], subject(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	flowID := mux.Vars(r)["flowId"]
	if !allowed(w, r, flowID) {
		return
	}

	snap, err := h.service.LatestSnapshot(r.Context(), flowID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot"})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
