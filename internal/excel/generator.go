package excel

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fixwise/negotiations/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the contracts register workbook: a summary sheet plus one
// detail sheet per trade.
func (g *Generator) Generate(register model.ContractRegister) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, register); err != nil {
		return nil, err
	}

	groups := register.TradeGroups()
	trades := make([]string, 0, len(groups))
	for trade := range groups {
		trades = append(trades, trade)
	}
	sort.Strings(trades)

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, trade := range trades {
		sheetName := buildSheetName(trade, usedNames)
		usedNames[sheetName] = struct{}{}

		file.NewSheet(sheetName)
		if err := g.writeDetail(file, sheetName, register, trade, groups[trade]); err != nil {
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

func (g *Generator) writeSummary(file *excelize.File, sheet string, register model.ContractRegister) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Report")
	set("B1", "Contracts register")
	set("A2", "Period start")
	set("B2", formatDate(register.PeriodStart))
	set("A3", "Period end")
	set("B3", formatDate(register.PeriodEnd))
	set("A4", "Contracts")
	set("B4", len(register.Records))
	set("A5", "Total value")
	set("B5", formatAmount(register.TotalValue()))

	tableRow := 7
	set(fmt.Sprintf("A%d", tableRow), "Trade")
	set(fmt.Sprintf("B%d", tableRow), "Contracts")
	set(fmt.Sprintf("C%d", tableRow), "Total value")

	groups := register.TradeGroups()
	trades := make([]string, 0, len(groups))
	for trade := range groups {
		trades = append(trades, trade)
	}
	sort.Strings(trades)

	for i, trade := range trades {
		row := tableRow + 1 + i
		total := 0.0
		for _, rec := range groups[trade] {
			total += rec.Price
		}
		set(fmt.Sprintf("A%d", row), trade)
		set(fmt.Sprintf("B%d", row), len(groups[trade]))
		set(fmt.Sprintf("C%d", row), formatAmount(total))
	}

	_ = file.SetColWidth(sheet, "A", "A", 30)
	_ = file.SetColWidth(sheet, "B", "B", 14)
	_ = file.SetColWidth(sheet, "C", "C", 16)
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, register model.ContractRegister, trade string, records []model.ContractRecord) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	total := 0.0
	for _, rec := range records {
		total += rec.Price
	}

	set("A1", "Trade")
	set("B1", trade)
	set("A2", "Period start")
	set("B2", formatDate(register.PeriodStart))
	set("A3", "Period end")
	set("B3", formatDate(register.PeriodEnd))
	set("A4", "Contracts")
	set("B4", len(records))
	set("A5", "Total value")
	set("B5", formatAmount(total))

	tableRow := 7
	headers := []string{
		"Concluded",
		"Contract No.",
		"Customer",
		"Provider",
		"Scheduled slot",
		"Rounds",
		"Price",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, rec := range records {
		row := tableRow + 1 + i
		slot := rec.Contract.ScheduledSlot
		set(fmt.Sprintf("A%d", row), formatDateTime(rec.CreatedAt))
		set(fmt.Sprintf("B%d", row), rec.ID.String())
		set(fmt.Sprintf("C%d", row), rec.Buyer)
		set(fmt.Sprintf("D%d", row), rec.Provider)
		set(fmt.Sprintf("E%d", row), fmt.Sprintf("%s %s-%s", slot.Day, slot.Start, slot.End))
		set(fmt.Sprintf("F%d", row), rec.Rounds)
		set(fmt.Sprintf("G%d", row), formatAmount(rec.Price))
	}

	_ = file.SetColWidth(sheet, "A", "A", 20)
	_ = file.SetColWidth(sheet, "B", "B", 38)
	_ = file.SetColWidth(sheet, "C", "D", 28)
	_ = file.SetColWidth(sheet, "E", "E", 24)
	_ = file.SetColWidth(sheet, "F", "F", 10)
	_ = file.SetColWidth(sheet, "G", "G", 14)
	return nil
}

func buildSheetName(trade string, used map[string]struct{}) string {
	base := sanitizeSheetName(trade)
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
		return "Trade"
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
		return "Trade"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
