package core

import (
	"errors"
	"strings"
	"time"
)

// IncomeCategory is the sentinel category reserved for income records.
const IncomeCategory = "Income"

// ExpenseCategories is the fixed set of expense categories the forms offer.
// Order matters: the first entry is the default a form resets to when the
// income toggle is switched off.
var ExpenseCategories = []string{
	"Food & Dining",
	"Groceries",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Bills & Utilities",
	"Healthcare",
	"Travel",
	"Personal Care",
	"Miscellaneous",
}

type (
	// Date is a calendar date at UTC midnight. The time component is
	// always zero; aggregation keys come from its ISO rendering.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense entry owned by one user.
	// ID is assigned by the store on insert and is empty before then.
	Transaction struct {
		ID          string
		Owner       string
		Amount      Money
		Category    string
		Description string
		Date        Date
		IsIncome    bool
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyOwner      = errors.New("empty owner")
	ErrUnknownCategory = errors.New("unknown category")
	ErrIncomeCategory  = errors.New("income flag and category disagree")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO 8601 YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t.UTC()}, nil
}

// ISO renders the date as zero-padded YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// MonthKey returns the YYYY-MM bucket key for monthly aggregation.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// DayLabel returns the trailing MM-DD portion used as a trend label.
func (d Date) DayLabel() string {
	return d.Format("01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsExpenseCategory reports whether name is one of the enumerated
// expense categories.
func IsExpenseCategory(name string) bool {
	for _, c := range ExpenseCategories {
		if c == name {
			return true
		}
	}
	return false
}

// DefaultCategory is what a form resets to when the income toggle is
// switched off.
func DefaultCategory() string {
	return ExpenseCategories[0]
}

// NormalizeCategory applies the income toggle coupling: an income record
// always carries the sentinel category, and a record switched back to
// expense never keeps it. The previous expense category is not restored;
// it resets to the default.
func NormalizeCategory(category string, isIncome bool) string {
	if isIncome {
		return IncomeCategory
	}
	if category == IncomeCategory || !IsExpenseCategory(category) {
		return DefaultCategory()
	}
	return category
}

// Validate checks the submission-time invariants. The income coupling is
// enforced here as well as at toggle time, so a record can never be
// persisted with IsIncome set and a non-sentinel category.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return ErrEmptyOwner
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.IsIncome != (t.Category == IncomeCategory) {
		return ErrIncomeCategory
	}
	if !t.IsIncome && !IsExpenseCategory(t.Category) {
		return ErrUnknownCategory
	}
	return nil
}
