package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	hookline "github.com/hookline/hookline"
	"github.com/hookline/hookline/id"
)

func (h *Handler) getDeliveryLog(w http.ResponseWriter, r *http.Request) {
	logID, err := id.ParseDeliveryLogID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid delivery log ID")
		return
	}

	l, getErr := h.hl.GetDeliveryLog(r.Context(), logID)
	if getErr != nil {
		if errors.Is(getErr, hookline.ErrDeliveryLogNotFound) {
			writeError(w, http.StatusNotFound, "delivery log not found")
			return
		}
		writeError(w, http.StatusInternalServerError, getErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// retryDelivery enqueues an operator-initiated retry. Refusals are 409: the
// request was understood but the subscription is inactive or the retry
// budget is spent.
func (h *Handler) retryDelivery(w http.ResponseWriter, r *http.Request) {
	logID := mux.Vars(r)["id"]
	if _, err := id.ParseDeliveryLogID(logID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid delivery log ID")
		return
	}

	attempt, err := h.hl.RetryDelivery(r.Context(), logID)
	if err != nil {
		switch {
		case errors.Is(err, hookline.ErrDeliveryLogNotFound):
			writeError(w, http.StatusNotFound, "delivery log not found")
		case errors.Is(err, hookline.ErrInactiveSubscription),
			errors.Is(err, hookline.ErrRetriesExhausted):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]int{"attempt": attempt})
}
