package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
)

const exchangeSheet = "Old Gold Exchange"

var exchangeHeaders = []string{"Date", "Bill No", "Customer", "Phone", "Particulars", "HSN Code", "Purity", "Weight (g)", "Rate/g", "Value"}

func exchangeRow(row domain.ExchangeListing) []string {
	return []string{
		row.CreatedAt.Format("2006-01-02"),
		row.BillNo,
		row.CustomerName,
		row.CustomerPhone,
		row.Particulars,
		row.HSNCode,
		row.Purity,
		row.Weight.StringFixed(3),
		row.RatePerGram.StringFixed(2),
		row.TotalValue.StringFixed(2),
	}
}

// WriteExchangeCSV writes the ledger with a trailing totals row.
func WriteExchangeCSV(w io.Writer, ledger domain.ExchangeListResponse) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exchangeHeaders); err != nil {
		return err
	}
	for _, row := range ledger.Exchanges {
		if err := writer.Write(exchangeRow(row)); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"Total", "", "", "", "", "", "", ledger.TotalWeight.StringFixed(3), "", ledger.TotalValue.StringFixed(2)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteExchangeWorkbook writes the ledger as an XLSX workbook. Weights and
// amounts are numeric cells.
func WriteExchangeWorkbook(w io.Writer, ledger domain.ExchangeListResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exchangeSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	for i, h := range exchangeHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exchangeSheet, cell, h); err != nil {
			return err
		}
	}

	line := 2
	for _, row := range ledger.Exchanges {
		values := []any{
			row.CreatedAt.Format("2006-01-02"),
			row.BillNo,
			row.CustomerName,
			row.CustomerPhone,
			row.Particulars,
			row.HSNCode,
			row.Purity,
			row.Weight.InexactFloat64(),
			row.RatePerGram.InexactFloat64(),
			row.TotalValue.InexactFloat64(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, line)
			if err := f.SetCellValue(exchangeSheet, cell, v); err != nil {
				return err
			}
		}
		line++
	}

	if err := f.SetCellValue(exchangeSheet, fmt.Sprintf("A%d", line), "Total"); err != nil {
		return err
	}
	if err := f.SetCellValue(exchangeSheet, fmt.Sprintf("H%d", line), ledger.TotalWeight.InexactFloat64()); err != nil {
		return err
	}
	if err := f.SetCellValue(exchangeSheet, fmt.Sprintf("J%d", line), ledger.TotalValue.InexactFloat64()); err != nil {
		return err
	}

	for col, width := range map[string]float64{"A": 12, "B": 24, "C": 22, "D": 14, "E": 30, "F": 10, "G": 8, "H": 12, "I": 12, "J": 14} {
		if err := f.SetColWidth(exchangeSheet, col, col, width); err != nil {
			return err
		}
	}

	return f.Write(w)
}
