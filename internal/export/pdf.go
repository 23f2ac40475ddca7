package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"ecommerce-analytics/internal/models"
)

const (
	pdfTitle        = "Global Ecommerce Analytics Report"
	pdfTopRows      = 10
	pdfNameMaxRunes = 30
	pdfRowHeight    = 7.0
)

type column struct {
	title string
	width float64
	align string
}

// PDF writes a one-off A4 summary of r: the executive KPIs followed by the
// top countries, the top products and revenue by category.
func PDF(w io.Writer, r *models.Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(pdfTitle, true)
	pdf.SetAuthor("ecommerce-analytics", true)
	pdf.SetCreator("ecommerce-analytics", true)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetModificationDate(r.GeneratedAt)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(31, 78, 120)
	pdf.CellFormat(0, 12, pdfTitle, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 6, "Generated: "+r.GeneratedAt.UTC().Format(dateTimeLayout)+" UTC", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	s := r.Summary
	heading(pdf, "Executive Summary")
	table(pdf, tr,
		[]column{{"Metric", 90, "L"}, {"Value", 90, "R"}},
		[][]string{
			{"Total Revenue", money(s.TotalRevenue)},
			{"Total Orders", fmt.Sprintf("%d", s.TotalOrders)},
			{"Total Customers", fmt.Sprintf("%d", s.TotalCustomers)},
			{"Average Order Value", money(s.AvgOrderValue)},
			{"Gross Profit", money(s.GrossProfit)},
			{"Profit Margin", fmt.Sprintf("%.2f%%", s.ProfitMargin)},
		})

	countries := r.Countries[:min(pdfTopRows, len(r.Countries))]
	rows := make([][]string, len(countries))
	for i, c := range countries {
		rows[i] = []string{c.Country, fmt.Sprintf("%d", c.Orders), money(c.Revenue), money(c.AOV)}
	}
	heading(pdf, "Top 10 Countries by Revenue")
	table(pdf, tr,
		[]column{{"Country", 60, "L"}, {"Orders", 30, "R"}, {"Revenue", 50, "R"}, {"AOV", 40, "R"}},
		rows)

	products := r.TopProducts[:min(pdfTopRows, len(r.TopProducts))]
	rows = make([][]string, len(products))
	for i, p := range products {
		rows[i] = []string{truncate(p.ProductName, pdfNameMaxRunes), p.Category, fmt.Sprintf("%d", p.Orders), money(p.Revenue)}
	}
	heading(pdf, "Top 10 Products")
	table(pdf, tr,
		[]column{{"Product", 75, "L"}, {"Category", 40, "L"}, {"Orders", 25, "R"}, {"Revenue", 40, "R"}},
		rows)

	rows = make([][]string, len(r.Categories))
	for i, c := range r.Categories {
		rows[i] = []string{c.Category, fmt.Sprintf("%d", c.Orders), money(c.Revenue), fmt.Sprintf("%.2f%%", c.AvgMargin)}
	}
	heading(pdf, "Revenue by Category")
	table(pdf, tr,
		[]column{{"Category", 60, "L"}, {"Orders", 30, "R"}, {"Revenue", 50, "R"}, {"Avg Margin", 40, "R"}},
		rows)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(31, 78, 120)
	pdf.CellFormat(0, 9, text, "", 1, "L", false, 0, "")
}

func table(pdf *fpdf.Fpdf, tr func(string) string, cols []column, rows [][]string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(31, 78, 120)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(200, 200, 200)
	for _, c := range cols {
		pdf.CellFormat(c.width, pdfRowHeight, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(242, 242, 242)
	for i, row := range rows {
		for j, c := range cols {
			pdf.CellFormat(c.width, pdfRowHeight, tr(row[j]), "1", 0, c.align, i%2 == 1, 0, "")
		}
		pdf.Ln(-1)
	}
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
