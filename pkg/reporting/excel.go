package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/crypto-signal-engine/internal/backtest"
)

// ExcelWriter writes a backtest's full results - trade log, equity
// curve and summary - to a multi-sheet workbook.
type ExcelWriter struct{}

func NewExcelWriter() *ExcelWriter { return &ExcelWriter{} }

type excelStyles struct {
	header   int
	currency int
	percent  int
	green    int
	red      int
	base     int
}

func (w *ExcelWriter) WriteXLSX(results *backtest.Results, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const equitySheet = "Equity Curve"
	const summarySheet = "Summary"

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	fx.NewSheet(equitySheet)
	fx.NewSheet(summarySheet)

	styles, err := w.createStyles(fx)
	if err != nil {
		return err
	}

	if err := w.writeTradesSheet(fx, tradesSheet, results, styles); err != nil {
		return err
	}
	if err := w.writeEquitySheet(fx, equitySheet, results, styles); err != nil {
		return err
	}
	if err := w.writeSummarySheet(fx, summarySheet, results, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (w *ExcelWriter) createStyles(fx *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error

	s.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return s, err
	}

	s.currency, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return s, err
	}

	s.percent, err = fx.NewStyle(&excelize.Style{
		NumFmt:    9,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return s, err
	}

	s.green, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "008000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return s, err
	}

	s.red, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return s, err
	}

	s.base, err = fx.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	return s, err
}

func (w *ExcelWriter) writeTradesSheet(fx *excelize.File, sheet string, results *backtest.Results, styles excelStyles) error {
	headers := []string{"Open Time", "Kind", "Price", "Quantity", "PnL", "Balance"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.header)
	}

	for i, t := range results.Trades {
		row := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), time.UnixMilli(t.OpenTimeMs).UTC().Format("2006-01-02 15:04:05"))
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", row), string(t.Kind))
		fx.SetCellValue(sheet, fmt.Sprintf("C%d", row), t.Price)
		fx.SetCellValue(sheet, fmt.Sprintf("D%d", row), t.Quantity)
		fx.SetCellValue(sheet, fmt.Sprintf("E%d", row), t.PnL)
		fx.SetCellValue(sheet, fmt.Sprintf("F%d", row), t.Balance)

		pnlCell := fmt.Sprintf("E%d", row)
		if t.PnL >= 0 {
			fx.SetCellStyle(sheet, pnlCell, pnlCell, styles.green)
		} else {
			fx.SetCellStyle(sheet, pnlCell, pnlCell, styles.red)
		}
		fx.SetCellStyle(sheet, fmt.Sprintf("C%d", row), fmt.Sprintf("C%d", row), styles.currency)
		fx.SetCellStyle(sheet, fmt.Sprintf("F%d", row), fmt.Sprintf("F%d", row), styles.currency)
	}

	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "B", "F", 14)
	return nil
}

func (w *ExcelWriter) writeEquitySheet(fx *excelize.File, sheet string, results *backtest.Results, styles excelStyles) error {
	headers := []string{"Open Time", "Equity", "Drawdown %"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.header)
	}

	for i, e := range results.EquityCurve {
		row := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), time.UnixMilli(e.OpenTimeMs).UTC().Format("2006-01-02 15:04:05"))
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", row), e.Equity)
		fx.SetCellStyle(sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), styles.currency)
		if i < len(results.DrawdownCurve) {
			fx.SetCellValue(sheet, fmt.Sprintf("C%d", row), results.DrawdownCurve[i].DrawdownPct/100)
			fx.SetCellStyle(sheet, fmt.Sprintf("C%d", row), fmt.Sprintf("C%d", row), styles.percent)
		}
	}

	fx.SetColWidth(sheet, "A", "C", 20)
	return nil
}

func (w *ExcelWriter) writeSummarySheet(fx *excelize.File, sheet string, results *backtest.Results, styles excelStyles) error {
	s := results.Summary
	rows := [][2]interface{}{
		{"Start Balance", s.StartBalance},
		{"End Balance", s.EndBalance},
		{"Total Return %", s.TotalReturnPct},
		{"Max Drawdown %", s.MaxDrawdownPct},
		{"Sharpe Ratio", s.SharpeRatio},
		{"Total Trades", s.TotalTrades},
		{"Winning Trades", s.WinningTrades},
		{"Losing Trades", s.LosingTrades},
		{"Win Rate %", s.WinRate},
	}

	for i, r := range rows {
		row := i + 1
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), r[0])
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", row), r[1])
		fx.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.base)
	}

	fx.SetColWidth(sheet, "A", "B", 22)
	return nil
}
