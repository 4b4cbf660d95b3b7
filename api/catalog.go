package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	hookline "github.com/hookline/hookline"
	"github.com/hookline/hookline/catalog"
)

func (h *Handler) registerEventType(w http.ResponseWriter, r *http.Request) {
	var def catalog.EventTypeDefinition
	if err := decodeJSON(r, &def); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if def.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	et, err := h.hl.Catalog().RegisterEventType(r.Context(), def)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, et)
}

func (h *Handler) listEventTypes(w http.ResponseWriter, r *http.Request) {
	opts := catalog.ListOpts{
		Offset:            queryInt(r, "offset", 0),
		Limit:             queryInt(r, "limit", 50),
		IncludeDeprecated: queryParam(r, "include_deprecated") == "true",
	}

	types, err := h.hl.Catalog().ListEventTypes(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *Handler) getEventType(w http.ResponseWriter, r *http.Request) {
	et, err := h.hl.Catalog().GetEventType(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		if errors.Is(err, hookline.ErrEventTypeNotFound) {
			writeError(w, http.StatusNotFound, "event type not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, et)
}

func (h *Handler) deprecateEventType(w http.ResponseWriter, r *http.Request) {
	if err := h.hl.Catalog().DeprecateEventType(r.Context(), mux.Vars(r)["name"]); err != nil {
		if errors.Is(err, hookline.ErrEventTypeNotFound) {
			writeError(w, http.StatusNotFound, "event type not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type registerSourceModuleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) registerSourceModule(w http.ResponseWriter, r *http.Request) {
	var req registerSourceModuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	sm, err := h.hl.Catalog().RegisterSourceModule(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sm)
}

func (h *Handler) listSourceModules(w http.ResponseWriter, r *http.Request) {
	opts := catalog.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}

	modules, err := h.hl.Catalog().ListSourceModules(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, modules)
}
