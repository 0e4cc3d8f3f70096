package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/geminifin/internal/ai"
	"github.com/dvloznov/geminifin/internal/api/middleware"
	"github.com/dvloznov/geminifin/internal/domain"
	"github.com/dvloznov/geminifin/internal/jobs"
	"github.com/dvloznov/geminifin/internal/store"
	"github.com/dvloznov/geminifin/internal/tracker"
	"github.com/rs/zerolog"
)

// Tracker is the application service the handlers call. *tracker.Service
// implements it.
type Tracker interface {
	Transactions(ctx context.Context, query string) ([]domain.Transaction, error)
	AddTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	AddInstallmentPurchase(ctx context.Context, p domain.InstallmentPurchase) ([]domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	Stats(ctx context.Context) (domain.FinancialStats, error)
	Accounts(ctx context.Context) ([]domain.BankAccount, error)
	AddAccount(ctx context.Context, acc domain.BankAccount) (domain.BankAccount, error)
	Projection(ctx context.Context, bankID string, asOf time.Time) (domain.AccountProjection, error)
	Projections(ctx context.Context, asOf time.Time) ([]domain.AccountProjection, error)
	Ask(ctx context.Context, question string) (string, error)
}

var _ Tracker = (*tracker.Service)(nil)

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error, msg string) {
	var (
		validationErr *domain.ValidationError
		storeErr      *store.StoreError
		analysisErr   *ai.AnalysisError
		advisorErr    *ai.AdvisorError
	)

	switch {
	case errors.As(err, &validationErr):
		middleware.WriteError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, tracker.ErrTransactionNotFound),
		errors.Is(err, tracker.ErrAccountNotFound),
		errors.Is(err, jobs.ErrJobNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &analysisErr), errors.As(err, &advisorErr):
		log.Warn().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusBadGateway, msg)
	case errors.Is(err, tracker.ErrAIUnavailable):
		middleware.WriteError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &storeErr):
		log.Error().Err(err).Str("collection", storeErr.Collection).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	default:
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

// parseAsOf reads the optional as_of=YYYY-MM-DD query parameter. The end of
// that day in UTC is used so records dated that day count as past.
func parseAsOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year, d.Month, d.Day, 23, 59, 59, 0, time.UTC), nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseCategoryField accepts a category name or its pt-BR label. Unknown
// values pass through so validation reports them.
func parseCategoryField(s string) domain.Category {
	if c, ok := domain.ParseCategory(s); ok {
		return c
	}
	return domain.Category(s)
}
