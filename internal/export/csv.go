// Package export serializes transaction snapshots to CSV.
package export

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"

	"expenseio/internal/core"
)

// ErrNoTransactions is returned when an export is requested for an empty
// snapshot. The caller surfaces it as a user-facing message, not a fault.
var ErrNoTransactions = errors.New("no transactions to export")

// Header is the fixed column set, matching the table storage schema.
var Header = []string{"id", "user_id", "amount", "category", "description", "date", "is_income"}

// WriteCSV writes one row per transaction in input order. Fields are
// quoted and escaped per RFC 4180, so commas and newlines in
// descriptions survive the round trip.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	if len(txs) == 0 {
		return ErrNoTransactions
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, t := range txs {
		row := []string{
			t.ID,
			t.Owner,
			t.Amount.Decimal(),
			t.Category,
			t.Description,
			t.Date.ISO(),
			strconv.FormatBool(t.IsIncome),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
