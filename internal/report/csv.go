package report

import (
	"bytes"
	"encoding/csv"
)

var csvHeader = []string{
	"Date", "Time", "Account", "Account Type", "Type",
	"Amount", "Delta", "Balance After", "Reference Type", "Remark",
}

// renderCSV writes one header row plus one data row per entry. Quoting
// follows RFC 4180, so commas, quotes, and newlines in remarks survive a
// round-trip.
func renderCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.Date,
			row.Time,
			row.Account,
			row.AccountKind,
			row.Direction,
			row.Amount.StringFixed(2),
			row.Delta.StringFixed(2),
			row.BalanceAfter.StringFixed(2),
			row.RefType,
			row.Remark,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
