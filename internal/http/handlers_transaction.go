package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"expenseio/internal/auth"
	"expenseio/internal/core"
	"expenseio/internal/export"
)

type transactionRequest struct {
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	IsIncome    bool   `json:"is_income"`
}

type transactionResponse struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	IsIncome    bool   `json:"is_income"`
}

func toResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Amount:      t.Amount.Decimal(),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date.ISO(),
		IsIncome:    t.IsIncome,
	}
}

func queryFromRequest(r *http.Request) core.Query {
	q := r.URL.Query()
	return core.Query{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Month:    q.Get("month"),
	}
}

// parseTransaction converts a request body into a domain record for the
// given owner. The income toggle rule is applied server side, so an
// income record stores the sentinel category regardless of what the
// client sent. Expense categories are validated strictly, not coerced.
func parseTransaction(req transactionRequest, owner string) (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount: %w", core.ErrInvalidAmount)
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date: %w", core.ErrInvalidDate)
	}

	category := sanitizeInput(req.Category)
	if req.IsIncome {
		category = core.NormalizeCategory(category, true)
	}

	return core.Transaction{
		Owner:       owner,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Description: sanitizeInput(req.Description),
		Date:        date,
		IsIncome:    req.IsIncome,
	}, nil
}

// writeDomainError maps core validation sentinels to a 422 and anything
// else to a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrIncomeCategory),
		errors.Is(err, core.ErrEmptyOwner):
		errorJSON(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		errorJSON(w, http.StatusNotFound, "transaction not found")
	default:
		slog.ErrorContext(r.Context(), "Transaction operation failed", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	txs, err := s.txs.List(r.Context(), sess.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	filtered := core.Filter(txs, queryFromRequest(r))

	// The store returns date-ascending; the table shows newest first.
	out := make([]transactionResponse, 0, len(filtered))
	for i := len(filtered) - 1; i >= 0; i-- {
		out = append(out, toResponse(filtered[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := parseTransaction(req, sess.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	saved, err := s.txs.Create(r.Context(), t)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsSaved, 1)
	s.invalidateDashboards(sess.UserID)
	writeJSON(w, http.StatusCreated, toResponse(saved))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := parseTransaction(req, sess.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	t.ID = r.PathValue("id")

	if err := s.txs.Update(r.Context(), t); err != nil {
		writeDomainError(w, r, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsSaved, 1)
	s.invalidateDashboards(sess.UserID)
	writeJSON(w, http.StatusOK, toResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if err := s.txs.Delete(r.Context(), r.PathValue("id"), sess.UserID); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateDashboards(sess.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// handleMonths returns the distinct YYYY-MM keys of the owner's
// snapshot, newest first, for the month filter dropdown.
func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	txs, err := s.txs.List(r.Context(), sess.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	months := core.DistinctMonths(txs)
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	writeJSON(w, http.StatusOK, months)
}

// handleExport streams the owner's snapshot as a CSV attachment,
// honoring the same filters as the list endpoint. An empty result is a
// 422 with a user-facing message, not a fault.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	txs, err := s.txs.List(r.Context(), sess.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	txs = core.Filter(txs, queryFromRequest(r))
	if len(txs) == 0 {
		errorJSON(w, http.StatusUnprocessableEntity, export.ErrNoTransactions.Error())
		return
	}

	filename := fmt.Sprintf("transactions-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := export.WriteCSV(w, txs); err != nil {
		// Headers are already out; log and give up on this response.
		slog.ErrorContext(r.Context(), "CSV export failed mid-stream", "error", err)
	}
}
