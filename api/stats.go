package api

import (
	"net/http"

	"github.com/hookline/hookline/deliverylog"
)

type statsResponse struct {
	Pending  int64 `json:"pending"`
	Success  int64 `json:"success"`
	Retrying int64 `json:"retrying"`
	Failed   int64 `json:"failed"`
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	var (
		resp statsResponse
		err  error
	)

	store := h.hl.Store()
	if resp.Pending, err = store.CountByStatus(r.Context(), deliverylog.StatusPending); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if resp.Success, err = store.CountByStatus(r.Context(), deliverylog.StatusSuccess); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if resp.Retrying, err = store.CountByStatus(r.Context(), deliverylog.StatusRetrying); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if resp.Failed, err = store.CountByStatus(r.Context(), deliverylog.StatusFailed); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
