package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"soundgrid/internal/grid/model"
	"soundgrid/internal/grid/service"
	"soundgrid/middleware"
	"soundgrid/pkg/logger"
)

const (
	// maxBodyBytes caps create/update bodies.
	maxBodyBytes = 1 << 20

	invalidData  = "Invalid data"
	gridNotFound = "Grid not found"
)

type GridHandler struct {
	Service *service.GridService
}

func NewGridHandler(service *service.GridService) *GridHandler {
	return &GridHandler{Service: service}
}

// ListGrids handles GET /grids.
func (h *GridHandler) ListGrids(w http.ResponseWriter, r *http.Request) {
	grids, err := h.Service.List(r.Context())
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to list grids: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, grids)
}

// CreateGrid handles POST /grids.
func (h *GridHandler) CreateGrid(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGridRequest(w, r)
	if !ok {
		return
	}

	grid, err := h.Service.Create(actorContext(r), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, grid)
}

// GetGrid handles GET /grids/{id}.
func (h *GridHandler) GetGrid(w http.ResponseWriter, r *http.Request) {
	grid, err := h.Service.GetOne(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

// UpdateGrid handles PUT /grids/{id}.
func (h *GridHandler) UpdateGrid(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGridRequest(w, r)
	if !ok {
		return
	}

	grid, err := h.Service.Update(actorContext(r), r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

// DeleteGrid handles DELETE /grids/{id}.
func (h *GridHandler) DeleteGrid(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(actorContext(r), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health.
func (h *GridHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *GridHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		logger.Sugar.Debugf("Handler: rejected request: %v", err)
		writeError(w, http.StatusBadRequest, invalidData)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, gridNotFound)
	default:
		logger.Sugar.Errorf("Handler: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeGridRequest reads a {name, grid} body. A body that is not exactly one
// JSON object is reported as invalid data.
func decodeGridRequest(w http.ResponseWriter, r *http.Request) (model.GridRequest, bool) {
	var req model.GridRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, invalidData)
		return req, false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, http.StatusBadRequest, invalidData)
		return req, false
	}
	return req, true
}

// actorContext carries the authenticated user into the service.
func actorContext(r *http.Request) context.Context {
	return service.WithUser(r.Context(), middleware.UserID(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}
