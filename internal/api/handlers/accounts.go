package handlers

import (
	"net/http"

	"github.com/dvloznov/geminifin/internal/api/middleware"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/shopspring/decimal"
)

// AccountsHandler handles bank account and projection endpoints.
type AccountsHandler struct {
	svc Tracker
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(svc Tracker) *AccountsHandler {
	return &AccountsHandler{svc: svc}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accounts, err := h.svc.Accounts(ctx)
	if err != nil {
		writeServiceError(w, logger.FromContext(ctx), err, "Failed to load accounts")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, accounts)
}

// CreateAccount handles POST /api/accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name           string          `json:"name"`
		Color          string          `json:"color"`
		InitialBalance decimal.Decimal `json:"initialBalance"`
	}
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acc, err := h.svc.AddAccount(ctx, domain.BankAccount{
		Name:           req.Name,
		Color:          req.Color,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		writeServiceError(w, logger.FromContext(ctx), err, "Failed to add account")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, acc)
}

// GetProjection handles GET /api/accounts/{id}/projection
func (h *AccountsHandler) GetProjection(w http.ResponseWriter, r *http.Request, bankID string) {
	ctx := r.Context()

	asOf, err := parseAsOf(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid as_of format")
		return
	}

	projection, err := h.svc.Projection(ctx, bankID, asOf)
	if err != nil {
		writeServiceError(w, logger.FromContext(ctx), err, "Failed to project account")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, projection)
}

// ListProjections handles GET /api/projections
func (h *AccountsHandler) ListProjections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf, err := parseAsOf(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid as_of format")
		return
	}

	projections, err := h.svc.Projections(ctx, asOf)
	if err != nil {
		writeServiceError(w, logger.FromContext(ctx), err, "Failed to project accounts")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, projections)
}
