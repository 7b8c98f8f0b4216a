package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"inventorium/internal/inventory"
	"inventorium/internal/service"
)

// SourceReloader re-reads the configured inventory sources from disk.
type SourceReloader interface {
	Reload(ctx context.Context) error
}

// InventoryHandler handles inventory API requests
type InventoryHandler struct {
	svc      *service.InventoryService
	reloader SourceReloader
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// SetSourceReloader sets the reloader used by the reload endpoint
func (h *InventoryHandler) SetSourceReloader(r SourceReloader) {
	h.reloader = r
}

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Routes registers all API routes on the mux
func (h *InventoryHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/hosts", h.ListHosts)
	mux.HandleFunc("POST /api/hosts", h.AddHost)
	mux.HandleFunc("GET /api/hosts/{name}", h.GetHost)
	mux.HandleFunc("DELETE /api/hosts/{name}", h.RemoveHost)

	mux.HandleFunc("GET /api/groups", h.ListGroups)
	mux.HandleFunc("POST /api/groups", h.AddGroup)
	mux.HandleFunc("DELETE /api/groups/{name}", h.RemoveGroup)
	mux.HandleFunc("POST /api/groups/{name}/children", h.AddChild)

	mux.HandleFunc("GET /api/groups-dict", h.GetGroupsDict)

	mux.HandleFunc("PUT /api/entities/{name}/vars", h.SetVariable)

	mux.HandleFunc("POST /api/sources", h.ApplySource)
	mux.HandleFunc("POST /api/reload", h.Reload)

	mux.HandleFunc("POST /api/import/{format}", h.Import)
	mux.HandleFunc("GET /api/export/{format}", h.Export)
}

// ListHosts returns all hosts
func (h *InventoryHandler) ListHosts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Hosts(), http.StatusOK)
}

// GetHost returns a single host by name. Recognized localhost aliases
// resolve to the canonical localhost even without an explicit entry.
func (h *InventoryHandler) GetHost(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	rec, ok := h.svc.GetHost(name)
	if !ok {
		h.writeError(w, "Not found", "no host named "+name, http.StatusNotFound)
		return
	}

	h.writeJSON(w, rec, http.StatusOK)
}

// AddHostRequest is the body for host creation
type AddHostRequest struct {
	Name  string `json:"name"`
	Group string `json:"group,omitempty"`
	Port  int    `json:"port,omitempty"`
}

// AddHost creates a host, optionally assigning it to a group
func (h *InventoryHandler) AddHost(w http.ResponseWriter, r *http.Request) {
	var req AddHostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	name, err := h.svc.AddHost(r.Context(), req.Name, req.Group, req.Port)
	if err != nil {
		h.writeDomainError(w, "Failed to add host", err)
		return
	}

	rec, _ := h.svc.GetHost(name)
	h.writeJSON(w, rec, http.StatusCreated)
}

// RemoveHost deletes a host
func (h *InventoryHandler) RemoveHost(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := h.svc.RemoveHost(r.Context(), name); err != nil {
		log.Printf("Failed to remove host: %v", err)
		h.writeError(w, "Failed to remove host", err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListGroups returns all groups
func (h *InventoryHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Groups(), http.StatusOK)
}

// AddGroupRequest is the body for group creation
type AddGroupRequest struct {
	Name string `json:"name"`
}

// AddGroup creates a group. The response carries the canonical name, which
// may differ from the requested one.
func (h *InventoryHandler) AddGroup(w http.ResponseWriter, r *http.Request) {
	var req AddGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	name, err := h.svc.AddGroup(r.Context(), req.Name)
	if err != nil {
		h.writeDomainError(w, "Failed to add group", err)
		return
	}

	h.writeJSON(w, map[string]string{"name": name}, http.StatusCreated)
}

// RemoveGroup deletes a group
func (h *InventoryHandler) RemoveGroup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := h.svc.RemoveGroup(r.Context(), name); err != nil {
		log.Printf("Failed to remove group: %v", err)
		h.writeError(w, "Failed to remove group", err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddChildRequest is the body for child attachment
type AddChildRequest struct {
	Child string `json:"child"`
}

// AddChild attaches a child group or member host to a group
func (h *InventoryHandler) AddChild(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("name")

	var req AddChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.AddChild(r.Context(), group, req.Child); err != nil {
		h.writeDomainError(w, "Failed to add child", err)
		return
	}

	h.writeJSON(w, map[string]string{"group": group, "child": req.Child}, http.StatusOK)
}

// GetGroupsDict returns the group-to-hosts mapping
func (h *InventoryHandler) GetGroupsDict(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.GroupsDict(), http.StatusOK)
}

// SetVariableRequest is the body for variable writes
type SetVariableRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// SetVariable sets a variable on a host or group. Group names shadow host
// names.
func (h *InventoryHandler) SetVariable(w http.ResponseWriter, r *http.Request) {
	entity := r.PathValue("name")

	var req SetVariableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		h.writeError(w, "Key required", "variable key must not be empty", http.StatusBadRequest)
		return
	}

	if err := h.svc.SetVariable(r.Context(), entity, req.Key, req.Value); err != nil {
		h.writeDomainError(w, "Failed to set variable", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ApplySource applies a YAML source document from the request body. The
// source name comes from the "name" query parameter.
func (h *InventoryHandler) ApplySource(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "api"
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, "Failed to read request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.ApplySource(r.Context(), name, data); err != nil {
		h.writeDomainError(w, "Failed to apply source", err)
		return
	}

	h.writeJSON(w, map[string]string{"status": "applied", "source": name}, http.StatusOK)
}

// Reload re-reads the configured sources from disk
func (h *InventoryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		h.writeError(w, "Reload not configured", "no source reloader is registered", http.StatusServiceUnavailable)
		return
	}

	if err := h.reloader.Reload(r.Context()); err != nil {
		log.Printf("Failed to reload sources: %v", err)
		h.writeError(w, "Failed to reload sources", err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Import replaces the inventory from the request body
func (h *InventoryHandler) Import(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")

	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, "Failed to read request body", err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.Import(r.Context(), format, data); err != nil {
		log.Printf("Failed to import %s: %v", format, err)
		h.writeError(w, "Failed to import", err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, map[string]string{"status": "imported", "format": format}, http.StatusOK)
}

// Export writes the inventory in the requested format
func (h *InventoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")

	data, err := h.svc.ExportBytes(format)
	if err != nil {
		h.writeError(w, "Failed to export", err.Error(), http.StatusBadRequest)
		return
	}

	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", "attachment; filename=inventory.json")
	default:
		w.Header().Set("Content-Type", "application/x-yaml")
		w.Header().Set("Content-Disposition", "attachment; filename=inventory.yml")
	}
	w.Write(data)
}

// Helper methods

func (h *InventoryHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func (h *InventoryHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// writeDomainError maps inventory failure modes onto HTTP status codes.
func (h *InventoryHandler) writeDomainError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, inventory.ErrInvalidName):
		h.writeError(w, msg, err.Error(), http.StatusBadRequest)
	case errors.Is(err, inventory.ErrUnknownEntity):
		h.writeError(w, msg, err.Error(), http.StatusNotFound)
	case errors.Is(err, inventory.ErrRecursiveDependency):
		h.writeError(w, msg, err.Error(), http.StatusConflict)
	default:
		log.Printf("%s: %v", msg, err)
		h.writeError(w, msg, err.Error(), http.StatusInternalServerError)
	}
}
