package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/fixwise/negotiations/internal/model"
	"github.com/fixwise/negotiations/internal/negotiation"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) Generate(rec model.ContractRecord) ([]byte, error) {
	contract := rec.Contract

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "SERVICE CONTRACT", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Contract No. %s dated %s", contract.ContractID, formatDate(contract.CreatedAt)), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Request No. %s", contract.RequestID), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	addPartyBlock(pdf, g.fontName, "Customer", contract.Buyer)
	pdf.Ln(2)
	addPartyBlock(pdf, g.fontName, "Provider", contract.Provider)
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Scope of work", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.MultiCell(0, 6, fmt.Sprintf("%s: %s", safeValue(contract.Job.Category), safeValue(contract.Job.Summary)), "", "L", false)
	if strings.TrimSpace(contract.Job.Details) != "" {
		pdf.MultiCell(0, 5, contract.Job.Details, "", "L", false)
	}
	pdf.MultiCell(0, 6, fmt.Sprintf("Location: %s", formatLocation(contract.Location)), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Schedule and price", "", 1, "L", false, 0, "")

	headers := []string{"Visit day", "Time window", "Duration", fmt.Sprintf("Price, %s", contract.Currency)}
	colWidths := []float64{45, 50, 35, 50}
	drawTableRow(pdf, g.fontName, headers, colWidths, true)

	row := []string{
		string(contract.ScheduledSlot.Day),
		fmt.Sprintf("%s - %s", contract.ScheduledSlot.Start, contract.ScheduledSlot.End),
		fmt.Sprintf("%d min", contract.DurationMinutes),
		formatAmount(contract.Price, 2),
	}
	drawTableRow(pdf, g.fontName, row, colWidths, false)

	pdf.Ln(2)
	pdf.SetFont(g.fontName, "", 11)
	parts := "not included"
	if contract.IncludesParts {
		parts = "included"
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Parts and materials: %s", parts), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Agreed in %d negotiation round(s).", rec.Rounds), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Terms", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	for i, term := range contract.Terms {
		pdf.MultiCell(0, 5, fmt.Sprintf("%d. %s", i+1, term), "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Signatures", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	signatureBlock(pdf, g.fontName, "Customer", contract.Buyer.Name)
	signatureBlock(pdf, g.fontName, "Provider", contract.Provider.Name)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addPartyBlock(pdf *gofpdf.Fpdf, fontName, title string, party negotiation.Party) {
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	pdf.MultiCell(0, 5, safeValue(party.Name), "", "L", false)
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i == len(cols)-1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func signatureBlock(pdf *gofpdf.Fpdf, fontName, label, name string) {
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s: ______________________ /%s/", label, safeValue(name)), "", 1, "L", false, 0, "")
}

func formatLocation(loc negotiation.Location) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{loc.AddressLine, loc.City, loc.State, loc.Zip} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatAmount(value float64, precision int) string {
	format := fmt.Sprintf("%%.%df", precision)
	return fmt.Sprintf(format, value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}
