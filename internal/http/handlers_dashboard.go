package http

import (
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"expenseio/internal/core"
)

type summaryResponse struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

type categoryAmountResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

type dayAmountResponse struct {
	Day   string `json:"day"`
	Total string `json:"total"`
}

type dashboardResponse struct {
	Month     string                   `json:"month"`
	Summary   summaryResponse          `json:"summary"`
	Breakdown []categoryAmountResponse `json:"breakdown"`
	Trend     []dayAmountResponse      `json:"trend"`
}

var monthKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// handleDashboard returns the summary for one month, defaulting to the
// current one, alongside the category breakdown and daily trend of the
// whole snapshot. Responses are cached per owner and month until the
// next mutation.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}
	if !monthKeyPattern.MatchString(month) {
		errorJSON(w, http.StatusUnprocessableEntity, "month must be YYYY-MM")
		return
	}

	key := s.dashboardKey(sess.UserID, month)
	if cached, ok := s.dashboardCache.Get(key); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		writeJSON(w, http.StatusOK, cached)
		return
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	txs, err := s.txs.List(r.Context(), sess.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := buildDashboard(month, txs)

	s.dashboardCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// buildDashboard scopes the summary cards to the reference month; the
// breakdown and trend charts cover the whole snapshot.
func buildDashboard(month string, txs []core.Transaction) dashboardResponse {
	summary := core.MonthlySummary(txs, month)

	breakdown := core.CategoryBreakdown(txs)
	bd := make([]categoryAmountResponse, 0, len(breakdown))
	for _, c := range breakdown {
		bd = append(bd, categoryAmountResponse{Category: c.Category, Total: c.Total.Decimal()})
	}

	trend := core.DailyTrend(txs)
	tr := make([]dayAmountResponse, 0, len(trend))
	for _, d := range trend {
		tr = append(tr, dayAmountResponse{Day: d.Day, Total: d.Total.Decimal()})
	}

	return dashboardResponse{
		Month: month,
		Summary: summaryResponse{
			Income:  summary.Income.Decimal(),
			Expense: summary.Expense.Decimal(),
			Net:     summary.Net.Decimal(),
		},
		Breakdown: bd,
		Trend:     tr,
	}
}
