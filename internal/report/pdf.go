package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

type pdfMeta struct {
	GeneratedAt  time.Time
	StartDate    string
	EndDate      string
	Currency     string
	RepeatHeader bool
}

const (
	pdfMaxAccountLen = 20
	pdfMaxRemarkLen  = 30
	pdfBottomLimit   = 270.0
	pdfRowHeight     = 7.0
)

var pdfColumns = []struct {
	Title string
	Width float64
}{
	{"Date", 22},
	{"Account", 42},
	{"Type", 16},
	{"Amount", 32},
	{"Balance", 32},
	{"Remark", 46},
}

// renderPDF produces a paginated report: a title block with the
// generation timestamp and requested range, a transaction-count summary,
// then the tabular body. The body starts a new page when a row would
// fall below the bottom limit; the header row prints once at the top of
// the first page unless RepeatHeader is set.
func renderPDF(rows []Row, meta pdfMeta) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Account Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated: "+meta.GeneratedAt.Format("2006-01-02 15:04:05"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Period: %s to %s", meta.StartDate, meta.EndDate), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Total transactions: %d", len(rows)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	writeHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(112, 48, 160)
		pdf.SetTextColor(255, 255, 255)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.Width, pdfRowHeight, col.Title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 9)
	}
	writeHeader()

	for _, row := range rows {
		if pdf.GetY()+pdfRowHeight > pdfBottomLimit {
			pdf.AddPage()
			if meta.RepeatHeader {
				writeHeader()
			}
		}

		cells := []string{
			row.Date,
			truncate(row.Account, pdfMaxAccountLen),
			row.Direction,
			displayMoney(row.Amount, meta.Currency),
			displayMoney(row.BalanceAfter, meta.Currency),
			truncate(row.Remark, pdfMaxRemarkLen),
		}
		for i, col := range pdfColumns {
			pdf.CellFormat(col.Width, pdfRowHeight, cells[i], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// displayMoney renders an amount with its currency prefix and grouped
// digits, e.g. "$1,234.56".
func displayMoney(amount decimal.Decimal, currency string) string {
	minor := amount.Shift(2).Round(0).IntPart()
	return money.New(minor, currency).Display()
}

// truncate cuts s to at most max runes, never mid-rune.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
