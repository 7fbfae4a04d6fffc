package report

import (
	"github.com/xuri/excelize/v2"
)

const excelSheet = "Account Report"

// The spreadsheet intentionally has no Account Type column; see the
// package comment on the encoding asymmetry.
var excelHeader = []string{
	"Date", "Time", "Account", "Type",
	"Amount", "Delta", "Balance After", "Reference Type", "Remark",
}

// renderExcel writes one sheet with a styled header row and two-decimal,
// thousands-separated number formatting on the money columns.
func renderExcel(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", excelSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"7030A0"}},
	})
	if err != nil {
		return nil, err
	}
	numFmt := "#,##0.00"
	numberStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return nil, err
	}

	for col, title := range excelHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(excelSheet, cell, title); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(excelHeader), 1)
	if err := f.SetCellStyle(excelSheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	for i, row := range rows {
		values := []any{
			row.Date,
			row.Time,
			row.Account,
			row.Direction,
			row.Amount.InexactFloat64(),
			row.Delta.InexactFloat64(),
			row.BalanceAfter.InexactFloat64(),
			row.RefType,
			row.Remark,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(excelSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if len(rows) > 0 {
		// Columns E..G hold Amount, Delta, Balance After.
		first, _ := excelize.CoordinatesToCellName(5, 2)
		last, _ := excelize.CoordinatesToCellName(7, len(rows)+1)
		if err := f.SetCellStyle(excelSheet, first, last, numberStyle); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
