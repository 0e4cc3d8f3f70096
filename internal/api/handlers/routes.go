package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/geminifin/internal/api/middleware"
)

// Routes bundles the handlers served by the API.
type Routes struct {
	Transactions *TransactionsHandler
	Accounts     *AccountsHandler
	Receipts     *ReceiptsHandler // nil disables /api/receipts
	Jobs         *JobsHandler
	Advisor      *AdvisorHandler
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// NewMux registers every endpoint on a new ServeMux.
func NewMux(rt Routes) *http.ServeMux {
	mux := http.NewServeMux()

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			rt.Transactions.ListTransactions(w, r)
		case http.MethodPost:
			rt.Transactions.CreateTransaction(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/transactions/installments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			rt.Transactions.CreateInstallments(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		// Extract transaction ID from path
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" || strings.Contains(id, "/") {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		rt.Transactions.DeleteTransaction(w, r, id)
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Transactions.GetStats(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Accounts endpoints
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			rt.Accounts.ListAccounts(w, r)
		case http.MethodPost:
			rt.Accounts.CreateAccount(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/accounts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		// Expect /api/accounts/{id}/projection
		rest := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		id, suffix, ok := strings.Cut(rest, "/")
		if !ok || id == "" || suffix != "projection" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		rt.Accounts.GetProjection(w, r, id)
	})

	mux.HandleFunc("/api/projections", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Accounts.ListProjections(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Receipt scanning endpoints
	if rt.Receipts != nil {
		mux.HandleFunc("/api/receipts", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				rt.Receipts.UploadReceipt(w, r)
			} else {
				methodNotAllowed(w)
			}
		})
	}

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			rt.Jobs.ListJobs(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		rt.Jobs.GetJob(w, r, jobID)
	})

	mux.HandleFunc("/api/advisor", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			rt.Advisor.Ask(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return mux
}
