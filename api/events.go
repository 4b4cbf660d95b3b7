package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	hookline "github.com/hookline/hookline"
	"github.com/hookline/hookline/deliverylog"
	"github.com/hookline/hookline/event"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/ingest"
)

// ingestEvent admits an event into the pipeline. A fresh event returns 202:
// accepted for relay, not yet delivered. A repeated idempotency key returns
// 200 with the original event ID.
func (h *Handler) ingestEvent(w http.ResponseWriter, r *http.Request) {
	var in ingest.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.hl.Ingest(r.Context(), in)
	if err != nil {
		if errors.Is(err, hookline.ErrInvalidInput) || errors.Is(err, hookline.ErrPayloadValidationFailed) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusAccepted
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	opts := event.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
		Type:   queryParam(r, "type"),
	}

	events, err := h.hl.ListEvents(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	evtID, err := id.ParseEventID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event ID")
		return
	}

	evt, getErr := h.hl.GetEvent(r.Context(), evtID)
	if getErr != nil {
		if errors.Is(getErr, hookline.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, getErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (h *Handler) listEventDeliveryLogs(w http.ResponseWriter, r *http.Request) {
	evtID, err := id.ParseEventID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event ID")
		return
	}

	opts := deliverylog.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	if s := queryParam(r, "status"); s != "" {
		status := deliverylog.Status(s)
		opts.Status = &status
	}

	logs, err := h.hl.DeliveryLogs(r.Context(), evtID, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
