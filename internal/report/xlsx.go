package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Panorama"

var panoramaHeaders = []string{
	"OP", "Produto", "Tipo", "Cor", "Tecido", "Qtde", "Agendado", "Prazo", "R$ Unit.", "R$ Total",
}

// Filename names the workbook after the generation date
func Filename(now time.Time) string {
	return fmt.Sprintf("panorama_%s.xlsx", now.Format("2006-01-02"))
}

// WriteXLSX renders the panorama as a single sheet: a block per customer with
// a header row, its lines and a subtotal row.
func WriteXLSX(p *Panorama, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	customerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#10B981"}},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	totalStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#F3F4F6"}},
	})

	f.SetCellValue(sheetName, "A1", "PANORAMA GERAL - PEDIDOS DISPONÍVEIS PARA PRODUÇÃO")
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetCellValue(sheetName, "A2", "Gerado em: "+p.GeneratedAt.In(loc).Format("02/01/2006 15:04"))

	row := 4
	for _, g := range p.Groups {
		f.SetCellValue(sheetName, cell("A", row), strings.ToUpper(g.Customer))
		f.MergeCell(sheetName, cell("A", row), cell("J", row))
		f.SetCellStyle(sheetName, cell("A", row), cell("J", row), customerStyle)
		row++

		for i, h := range panoramaHeaders {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(sheetName, cell(col, row), h)
		}
		f.SetCellStyle(sheetName, cell("A", row), cell("J", row), headerStyle)
		row++

		for _, l := range g.Lines {
			unit, _ := l.UnitPrice.Float64()
			total, _ := l.TotalPrice.Float64()

			f.SetCellValue(sheetName, cell("A", row), l.OrderNumber)
			f.SetCellValue(sheetName, cell("B", row), l.ProductName)
			f.SetCellValue(sheetName, cell("C", row), dash(l.Model))
			f.SetCellValue(sheetName, cell("D", row), dash(l.Color))
			f.SetCellValue(sheetName, cell("E", row), dash(l.Fabric))
			f.SetCellValue(sheetName, cell("F", row), l.Quantity)
			f.SetCellValue(sheetName, cell("G", row), formatDate(l.ScheduledDate, loc, "-"))
			f.SetCellValue(sheetName, cell("H", row), formatDate(l.DeliveryDate, loc, "A vista"))
			f.SetCellValue(sheetName, cell("I", row), unit)
			f.SetCellValue(sheetName, cell("J", row), total)
			row++
		}

		value, _ := g.Value.Float64()
		f.SetCellValue(sheetName, cell("A", row), "SUBTOTAL")
		f.SetCellValue(sheetName, cell("F", row), g.Quantity)
		f.SetCellValue(sheetName, cell("J", row), value)
		f.SetCellStyle(sheetName, cell("A", row), cell("J", row), totalStyle)
		row += 2
	}

	value, _ := p.Value.Float64()
	f.SetCellValue(sheetName, cell("A", row), "TOTAL GERAL")
	f.SetCellValue(sheetName, cell("F", row), p.Quantity)
	f.SetCellValue(sheetName, cell("J", row), value)
	f.SetCellStyle(sheetName, cell("A", row), cell("J", row), totalStyle)

	colWidths := []float64{16, 28, 14, 14, 16, 8, 12, 12, 12, 12}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, w)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDate(t *time.Time, loc *time.Location, fallback string) string {
	if t == nil {
		return fallback
	}
	return t.In(loc).Format("02/01/2006")
}
