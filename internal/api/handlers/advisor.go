package handlers

import (
	"net/http"

	"github.com/dvloznov/geminifin/internal/api/middleware"
	"github.com/dvloznov/geminifin/internal/logger"
)

// AdvisorHandler answers questions about the ledger.
type AdvisorHandler struct {
	svc Tracker
}

// NewAdvisorHandler creates a new advisor handler.
func NewAdvisorHandler(svc Tracker) *AdvisorHandler {
	return &AdvisorHandler{svc: svc}
}

// Ask handles POST /api/advisor
func (h *AdvisorHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Question string `json:"question"`
	}
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	answer, err := h.svc.Ask(ctx, req.Question)
	if err != nil {
		writeServiceError(w, logger.FromContext(ctx), err, "Advisor is unavailable, try again later")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
