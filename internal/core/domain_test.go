package core

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.ISO() != "2024-03-05" || d.MonthKey() != "2024-03" || d.DayLabel() != "03-05" {
		t.Fatalf("unexpected renderings: %s %s %s", d.ISO(), d.MonthKey(), d.DayLabel())
	}

	for _, bad := range []string{"", "2024-3-5", "05/03/2024", "2024-13-01", "not a date"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestDateValidate(t *testing.T) {
	if err := NewDate(2025, 1, 1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{Time: time.Time{}}).Validate(); err == nil {
		t.Fatalf("expected error for zero date")
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := []struct {
		category string
		isIncome bool
		want     string
	}{
		{"Groceries", true, IncomeCategory},
		{IncomeCategory, true, IncomeCategory},
		{IncomeCategory, false, DefaultCategory()},
		{"Groceries", false, "Groceries"},
		{"Nonsense", false, DefaultCategory()},
	}
	for i, tc := range cases {
		if got := NormalizeCategory(tc.category, tc.isIncome); got != tc.want {
			t.Fatalf("case %d: got %q want %q", i, got, tc.want)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Owner:       "u1",
		Amount:      Money{Cents: 100},
		Category:    "Groceries",
		Description: "weekly shop",
		Date:        NewDate(2024, 3, 5),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	income := good
	income.IsIncome = true
	income.Category = IncomeCategory
	if err := income.Validate(); err != nil {
		t.Fatalf("expected ok for income, got %v", err)
	}

	bads := []Transaction{
		{Owner: "", Amount: Money{Cents: 1}, Category: "Groceries", Date: NewDate(2024, 1, 1)},
		{Owner: "u1", Amount: Money{Cents: 0}, Category: "Groceries", Date: NewDate(2024, 1, 1)},
		{Owner: "u1", Amount: Money{Cents: 1}, Category: "Groceries", Date: Date{}},
		{Owner: "u1", Amount: Money{Cents: 1}, Category: "Nonsense", Date: NewDate(2024, 1, 1)},
		// income flag with non-sentinel category must never persist
		{Owner: "u1", Amount: Money{Cents: 1}, Category: "Groceries", Date: NewDate(2024, 1, 1), IsIncome: true},
		// sentinel category on a non-income record
		{Owner: "u1", Amount: Money{Cents: 1}, Category: IncomeCategory, Date: NewDate(2024, 1, 1), IsIncome: false},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
