package handlers

import (
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/api/middleware"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/ledger"
	"github.com/dvloznov/geminifin/internal/logger"
	"github.com/shopspring/decimal"
)

// TransactionsHandler handles transaction and statistics endpoints.
type TransactionsHandler struct {
	svc Tracker
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc Tracker) *TransactionsHandler {
	return &TransactionsHandler{svc: svc}
}

type transactionRequest struct {
	Date     civil.Date      `json:"date"`
	Merchant string          `json:"merchant"`
	Amount   decimal.Decimal `json:"amount"`
	Type     string          `json:"type"`
	Category string          `json:"category"`
	BankID   string          `json:"bankId"`
	Notes    string          `json:"notes"`
}

type installmentRequest struct {
	Date              civil.Date      `json:"date"`
	Merchant          string          `json:"merchant"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	InstallmentAmount decimal.Decimal `json:"installmentAmount"`
	InstallmentCount  int             `json:"installmentCount"`
	Type              string          `json:"type"`
	Category          string          `json:"category"`
	BankID            string          `json:"bankId"`
	Notes             string          `json:"notes"`
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txs, err := h.svc.Transactions(ctx, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, logger.FromContext(ctx), err, "Failed to load transactions")
		return
	}

	// Return array directly for frontend compatibility
	middleware.WriteJSON(w, http.StatusOK, txs)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.svc.AddTransaction(ctx, domain.Transaction{
		Date:     req.Date,
		Merchant: req.Merchant,
		Amount:   req.Amount,
		Type:     domain.TransactionType(req.Type),
		Category: parseCategoryField(req.Category),
		BankID:   req.BankID,
		Notes:    req.Notes,
	})
	if err != nil {
		writeServiceError(w, logger.FromContext(ctx), err, "Failed to add transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// CreateInstallments handles POST /api/transactions/installments
func (h *TransactionsHandler) CreateInstallments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req installmentRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	records, err := h.svc.AddInstallmentPurchase(ctx, domain.InstallmentPurchase{
		StartDate:         req.Date,
		MerchantBase:      req.Merchant,
		TotalAmount:       req.TotalAmount,
		InstallmentAmount: req.InstallmentAmount,
		Count:             req.InstallmentCount,
		Category:          parseCategoryField(req.Category),
		Type:              domain.TransactionType(req.Type),
		BankID:            req.BankID,
		Notes:             req.Notes,
	})
	if err != nil {
		writeServiceError(w, logger.FromContext(ctx), err, "Failed to add installment purchase")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"groupId":      records[0].Installment.ID,
		"transactions": records,
		"count":        len(records),
	})
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if err := h.svc.DeleteTransaction(ctx, id); err != nil {
		writeServiceError(w, logger.FromContext(ctx), err, "Failed to delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type statsResponse struct {
	domain.FinancialStats
	RecentSeries []ledger.SeriesPoint `json:"recentSeries"`
}

// GetStats handles GET /api/stats
func (h *TransactionsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		writeServiceError(w, logger.FromContext(ctx), err, "Failed to compute statistics")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, statsResponse{
		FinancialStats: stats,
		RecentSeries:   ledger.RecentSeries(stats),
	})
}
