package dav

import "net/http"

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, req request) {
	c, err := h.lookup(req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.store.Delete(c.ID); err != nil {
		writeError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.CommentsDeleted.Inc()
	}

	w.WriteHeader(http.StatusNoContent)
}
