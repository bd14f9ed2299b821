package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/rodavia/transport-settlements/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes the settlement workbook: a summary sheet with the
// consolidated totals followed by one sheet per vehicle line.
func (g *Generator) Generate(settlement model.Settlement) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Resumen"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, settlement); err != nil {
		return nil, err
	}

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, line := range settlement.Lines {
		sheetName := buildSheetName(line.Plate, line.VehicleID, usedNames)
		usedNames[sheetName] = struct{}{}

		file.NewSheet(sheetName)
		if err := g.writeLine(file, sheetName, settlement, line); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, settlement model.Settlement) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Preliquidación")
	set("B1", settlement.Number)
	set("A2", "Cliente")
	set("B2", settlement.ClientName)
	set("A3", "Fecha de generación")
	set("B3", formatDate(settlement.GeneratedAt))
	set("A4", "Estado")
	set("B4", string(settlement.State))
	set("A5", "Total servicios")
	set("B5", formatAmount(settlement.TotalServices))
	set("A6", "Gastos operativos")
	set("B6", formatAmount(settlement.TotalOperational))
	set("A7", "Gastos preoperativos")
	set("B7", formatAmount(settlement.TotalPreoperational))
	set("A8", "Neto a liquidar")
	set("B8", formatAmount(settlement.TotalNet))

	tableRow := 10
	headers := []string{"Placa", "Tipo de flota", "Beneficiario", "Servicios", "Gastos", "Neto"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, line := range settlement.Lines {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), line.Plate)
		set(fmt.Sprintf("B%d", row), string(line.FleetType))
		set(fmt.Sprintf("C%d", row), line.PayeeName)
		set(fmt.Sprintf("D%d", row), formatAmount(line.Services))
		set(fmt.Sprintf("E%d", row), formatAmount(line.Expenses))
		set(fmt.Sprintf("F%d", row), formatAmount(line.Net))
	}

	_ = file.SetColWidth(sheet, "A", "A", 22)
	_ = file.SetColWidth(sheet, "B", "C", 32)
	_ = file.SetColWidth(sheet, "D", "F", 18)
	return nil
}

func (g *Generator) writeLine(file *excelize.File, sheet string, settlement model.Settlement, line model.VehicleSettlement) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Preliquidación")
	set("B1", settlement.Number)
	set("A2", "Placa")
	set("B2", line.Plate)
	set("A3", "Tipo de flota")
	set("B3", string(line.FleetType))
	set("A4", "Beneficiario")
	set("B4", line.PayeeName)
	set("A5", "Servicios")
	set("B5", formatAmount(line.Services))
	set("A6", "Gastos")
	set("B6", formatAmount(line.Expenses))
	set("A7", "Neto")
	set("B7", formatAmount(line.Net))
	set("A8", "Estado")
	set("B8", string(line.State))

	tableRow := 10
	set(fmt.Sprintf("A%d", tableRow), "Solicitudes incluidas")
	for i, id := range line.RequestIDs {
		set(fmt.Sprintf("A%d", tableRow+1+i), id.String())
	}

	expenseRow := tableRow + len(line.RequestIDs) + 2
	set(fmt.Sprintf("A%d", expenseRow), "Gastos incluidos")
	for i, id := range line.ExpenseIDs {
		set(fmt.Sprintf("A%d", expenseRow+1+i), id.String())
	}

	_ = file.SetColWidth(sheet, "A", "A", 40)
	_ = file.SetColWidth(sheet, "B", "B", 32)
	return nil
}

func buildSheetName(plate string, id uuid.UUID, used map[string]struct{}) string {
	base := strings.TrimSpace(plate)
	if base == "" {
		base = id.String()
	}
	base = sanitizeSheetName(base)

	if len(base) > 31 {
		base = base[:31]
	}

	candidate := base
	counter := 2
	for {
		if _, exists := used[candidate]; !exists {
			return candidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		trimmed := base
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		candidate = trimmed + suffix
		counter++
	}
}

func sanitizeSheetName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Hoja"
	}

	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = replacer.Replace(value)
	value = strings.TrimSpace(value)
	if value == "" {
		return "Hoja"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
