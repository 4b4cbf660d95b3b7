package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	hookline "github.com/hookline/hookline"
	"github.com/hookline/hookline/id"
	"github.com/hookline/hookline/subscription"
)

// createSubscription registers a subscriber. This is the only response that
// ever carries the signing secret.
func (h *Handler) createSubscription(w http.ResponseWriter, r *http.Request) {
	var in subscription.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.hl.Subscriptions().Create(r.Context(), in)
	if err != nil {
		var verr *subscription.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Secret is json:"-" on the model; expose it exactly once.
	writeJSON(w, http.StatusCreated, struct {
		*subscription.Subscription
		Secret string `json:"secret"`
	}{sub, sub.Secret})
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	opts := subscription.ListOpts{
		Offset: queryInt(r, "offset", 0),
		Limit:  queryInt(r, "limit", 50),
	}
	switch queryParam(r, "active") {
	case "true":
		active := true
		opts.IsActive = &active
	case "false":
		active := false
		opts.IsActive = &active
	}

	subs, err := h.hl.Subscriptions().List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	subID, err := id.ParseSubscriptionID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return
	}

	sub, getErr := h.hl.Subscriptions().Get(r.Context(), subID)
	if getErr != nil {
		if errors.Is(getErr, hookline.ErrSubscriptionNotFound) {
			writeError(w, http.StatusNotFound, "subscription not found")
			return
		}
		writeError(w, http.StatusInternalServerError, getErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	subID, err := id.ParseSubscriptionID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return
	}

	var in subscription.Input
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, updErr := h.hl.Subscriptions().Update(r.Context(), subID, in)
	if updErr != nil {
		var verr *subscription.ValidationError
		switch {
		case errors.As(updErr, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(updErr, hookline.ErrSubscriptionNotFound):
			writeError(w, http.StatusNotFound, "subscription not found")
		default:
			writeError(w, http.StatusInternalServerError, updErr.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	subID, err := id.ParseSubscriptionID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return
	}

	if delErr := h.hl.Subscriptions().Delete(r.Context(), subID); delErr != nil {
		if errors.Is(delErr, hookline.ErrSubscriptionNotFound) {
			writeError(w, http.StatusNotFound, "subscription not found")
			return
		}
		writeError(w, http.StatusInternalServerError, delErr.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activateSubscription(w http.ResponseWriter, r *http.Request) {
	h.setSubscriptionActive(w, r, true)
}

func (h *Handler) deactivateSubscription(w http.ResponseWriter, r *http.Request) {
	h.setSubscriptionActive(w, r, false)
}

func (h *Handler) setSubscriptionActive(w http.ResponseWriter, r *http.Request, active bool) {
	subID, err := id.ParseSubscriptionID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subscription ID")
		return
	}

	if setErr := h.hl.Subscriptions().SetActive(r.Context(), subID, active); setErr != nil {
		if errors.Is(setErr, hookline.ErrSubscriptionNotFound) {
			writeError(w, http.StatusNotFound, "subscription not found")
			return
		}
		writeError(w, http.StatusInternalServerError, setErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_active": active})
}
