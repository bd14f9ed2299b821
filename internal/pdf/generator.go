package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/rodavia/transport-settlements/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() (*Generator, error) {
	return &Generator{fontName: "Helvetica"}, nil
}

// Generate renders one settlement: header, per-vehicle table, consolidated
// totals and signature lines. Spanish accents go through the cp1252
// translator since the core fonts are not UTF-8.
func (g *Generator) Generate(doc model.SettlementDocument) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	settlement := doc.Settlement

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, tr("Preliquidación de servicios de transporte"), "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s — NIT y datos de contacto según contrato", doc.CompanyName)), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Preliquidación No. %s del %s", settlement.Number, formatDate(settlement.GeneratedAt))), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Cliente: %s", safeValue(settlement.ClientName))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, tr("Detalle por vehículo"), "", 1, "L", false, 0, "")

	headers := []string{"Placa", "Tipo de flota", "Beneficiario", "Servicios", "Gastos", "Neto"}
	colWidths := []float64{30, 35, 90, 36, 36, 36}
	drawTableRow(pdf, tr, g.fontName, headers, colWidths, true)

	for _, line := range settlement.Lines {
		row := []string{
			line.Plate,
			string(line.FleetType),
			line.PayeeName,
			formatAmount(line.Services),
			formatAmount(line.Expenses),
			formatAmount(line.Net),
		}
		drawTableRow(pdf, tr, g.fontName, row, colWidths, false)
	}

	pdf.Ln(3)
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, tr("Totales consolidados"), "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Total servicios: $ %s", formatAmount(settlement.TotalServices))), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Gastos operativos: $ %s", formatAmount(settlement.TotalOperational))), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Gastos preoperativos: $ %s", formatAmount(settlement.TotalPreoperational))), "", 1, "R", false, 0, "")
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Neto a liquidar: $ %s", formatAmount(settlement.TotalNet))), "", 1, "R", false, 0, "")

	if settlement.Notes != "" {
		pdf.Ln(2)
		pdf.SetFont(g.fontName, "", 10)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Observaciones: %s", settlement.Notes)), "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, tr("Firmas"), "", 1, "L", false, 0, "")
	signatureLine(pdf, tr, g.fontName, "Elaborado por")
	signatureLine(pdf, tr, g.fontName, "Aprobado por")
	signatureLine(pdf, tr, g.fontName, "Recibido por el cliente")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, tr func(string) string, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func signatureLine(pdf *gofpdf.Fpdf, tr func(string) string, fontName, label string) {
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s: ______________________________", label)), "", 1, "L", false, 0, "")
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "—"
	}
	return value
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("02/01/2006")
}
