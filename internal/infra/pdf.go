package infra

// pdf.go — stock valuation report generation using go-pdf/fpdf.
// One A4 page set per farm: a table of ledger rows with accumulated/system/
// real quantities, shrinkage, warehouse price and stock value, plus a grand
// total of the farm's stock value.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"feedstock/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateStockReportPDF writes the valuation report for one farm and returns
// the absolute path of the generated file.
func GenerateStockReportPDF(farmName string, rows []model.StockLedger, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("stock_%s.pdf", time.Now().Format("20060102_150405"))
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, "Stock Valuation Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, farmName, "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 5, time.Now().Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	cols := []struct {
		title string
		w     float64
		align string
	}{
		{"Code", 0.10, "L"},
		{"Raw material", 0.24, "L"},
		{"Accumulated", 0.11, "R"},
		{"System", 0.11, "R"},
		{"Real", 0.11, "R"},
		{"Shrinkage", 0.10, "R"},
		{"Price", 0.10, "R"},
		{"Value", 0.13, "R"},
	}

	pdf.SetFont("Helvetica", "B", 8)
	for _, c := range cols {
		pdf.CellFormat(contentW*c.w, 6, c.title, "B", 0, c.align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	total := decimal.Zero
	for _, row := range rows {
		code, name := "", ""
		if row.RawMaterial != nil {
			code = row.RawMaterial.Code
			name = row.RawMaterial.Name
			if len(name) > 38 {
				name = name[:37] + "…"
			}
		}
		cells := []string{
			code,
			name,
			row.AccumulatedQty.StringFixed(3),
			row.SystemQty.StringFixed(3),
			row.RealQty.StringFixed(3),
			row.Shrinkage.StringFixed(3),
			"$" + row.WarehousePrice.StringFixed(4),
			"$" + row.StockValue.StringFixed(2),
		}
		for i, c := range cols {
			pdf.CellFormat(contentW*c.w, 5, cells[i], "", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
		total = total.Add(row.StockValue)
	}

	pdf.Ln(2)
	pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW*0.87, 7, "TOTAL STOCK VALUE:", "", 0, "R", false, 0, "")
	pdf.CellFormat(contentW*0.13, 7, "$"+total.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
