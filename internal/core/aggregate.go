package core

import "strings"

// FilterAll is the wildcard value for the category and month filters.
const FilterAll = "All"

type (
	// Summary holds the income/expense/net totals for one month.
	Summary struct {
		Income  Money
		Expense Money
		Net     Money
	}

	// CategoryAmount is an expense total for one category.
	CategoryAmount struct {
		Category string
		Total    Money
	}

	// DayAmount is an expense total for one calendar date. Day is the
	// trailing MM-DD label; grouping is by the full date to avoid
	// cross-year collisions.
	DayAmount struct {
		Day   string
		Total Money
	}

	// Query is the combined table filter. Zero value matches everything
	// except that empty Category/Month are treated as FilterAll.
	Query struct {
		Search   string
		Category string
		Month    string
	}
)

// MonthlySummary totals the snapshot for the given YYYY-MM reference
// month. Records outside the month are ignored; an empty snapshot yields
// an all-zero summary. Deterministic for a given snapshot and month.
func MonthlySummary(txs []Transaction, refMonth string) Summary {
	var s Summary
	for _, t := range txs {
		if t.Date.MonthKey() != refMonth {
			continue
		}
		if t.IsIncome {
			s.Income.Cents += t.Amount.Cents
		} else {
			s.Expense.Cents += t.Amount.Cents
		}
	}
	s.Net.Cents = s.Income.Cents - s.Expense.Cents
	return s
}

// CategoryBreakdown groups expense records by category, in first-seen
// order. Income records are excluded entirely; income has no category
// breakdown.
func CategoryBreakdown(txs []Transaction) []CategoryAmount {
	idx := make(map[string]int)
	var out []CategoryAmount
	for _, t := range txs {
		if t.IsIncome {
			continue
		}
		i, ok := idx[t.Category]
		if !ok {
			i = len(out)
			idx[t.Category] = i
			out = append(out, CategoryAmount{Category: t.Category})
		}
		out[i].Total.Cents += t.Amount.Cents
	}
	return out
}

// DailyTrend groups expense records by date, in first-seen order. The
// input is expected to be date-ascending for the output to be
// chronological; the store queries in ascending date order and this
// function does not sort.
func DailyTrend(txs []Transaction) []DayAmount {
	idx := make(map[string]int)
	var out []DayAmount
	for _, t := range txs {
		if t.IsIncome {
			continue
		}
		key := t.Date.ISO()
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, DayAmount{Day: t.Date.DayLabel()})
		}
		out[i].Total.Cents += t.Amount.Cents
	}
	return out
}

// Filter returns the records matching all three predicates, preserving
// input order. The input is never mutated and the result is a fresh
// slice, so filtering is idempotent under repeated application.
func Filter(txs []Transaction, q Query) []Transaction {
	search := strings.ToLower(q.Search)
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if !strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if q.Category != "" && q.Category != FilterAll && t.Category != q.Category {
			continue
		}
		if q.Month != "" && q.Month != FilterAll && t.Date.MonthKey() != q.Month {
			continue
		}
		out = append(out, t)
	}
	return out
}

// DistinctMonths returns the distinct YYYY-MM keys present in the
// snapshot, in first-seen order. Callers sort for display.
func DistinctMonths(txs []Transaction) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range txs {
		key := t.Date.MonthKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
