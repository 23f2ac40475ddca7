// Package export renders an analytics report as an Excel workbook or a PDF
// document.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"ecommerce-analytics/internal/models"
)

const (
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF   = "application/pdf"

	dateTimeLayout = "2006-01-02 15:04:05"
)

// Filename is the download name for a report produced at t, e.g.
// ecommerce_report_20240630.xlsx.
func Filename(t time.Time, ext string) string {
	return fmt.Sprintf("ecommerce_report_%s.%s", t.Format("20060102"), ext)
}

type sheet struct {
	name   string
	header []string
	widths []float64
	rows   func(r *models.Report) [][]any
}

var sheets = []sheet{
	{
		name:   "Summary",
		header: []string{"Metric", "Value"},
		widths: []float64{24, 20},
		rows: func(r *models.Report) [][]any {
			s := r.Summary
			return [][]any{
				{"Total Revenue (USD)", s.TotalRevenue},
				{"Total Orders", s.TotalOrders},
				{"Total Customers", s.TotalCustomers},
				{"Average Order Value", s.AvgOrderValue},
				{"Gross Profit", s.GrossProfit},
				{"Profit Margin %", s.ProfitMargin},
				{"Products Sold", s.Products},
				{"Categories", s.Categories},
				{"Generated", r.GeneratedAt.UTC().Format(dateTimeLayout)},
			}
		},
	},
	{
		name: "Transactions",
		header: []string{"Transaction ID", "Date", "Customer ID", "Country", "City", "Product ID", "Product",
			"Category", "Quantity", "Unit Price", "Total", "Currency", "Total USD", "Profit", "Payment", "Device"},
		widths: []float64{16, 20, 14, 16, 16, 12, 30, 16, 10, 12, 12, 10, 12, 12, 16, 12},
		rows: func(r *models.Report) [][]any {
			out := make([][]any, len(r.Transactions))
			for i, t := range r.Transactions {
				out[i] = []any{t.TransactionID, t.Date.UTC().Format(dateTimeLayout), t.CustomerID, t.Country, t.City,
					t.ProductID, t.ProductName, t.Category, t.Quantity, t.UnitPrice, t.TotalAmount, t.Currency,
					t.TotalAmountUSD, t.Profit, t.PaymentMethod, t.DeviceType}
			}
			return out
		},
	},
	{
		name:   "By Country",
		header: []string{"Country", "Orders", "Revenue", "AOV", "Customers", "Profit"},
		widths: []float64{20, 10, 16, 12, 12, 16},
		rows: func(r *models.Report) [][]any {
			out := make([][]any, len(r.Countries))
			for i, c := range r.Countries {
				out[i] = []any{c.Country, c.Orders, c.Revenue, c.AOV, c.Customers, c.Profit}
			}
			return out
		},
	},
	{
		name:   "By Category",
		header: []string{"Category", "Orders", "Revenue", "Profit", "Avg Margin %", "Units Sold"},
		widths: []float64{20, 10, 16, 16, 14, 12},
		rows: func(r *models.Report) [][]any {
			out := make([][]any, len(r.Categories))
			for i, c := range r.Categories {
				out[i] = []any{c.Category, c.Orders, c.Revenue, c.Profit, c.AvgMargin, c.UnitsSold}
			}
			return out
		},
	},
	{
		name:   "Top 100 Products",
		header: []string{"Product ID", "Product", "Category", "Orders", "Revenue", "Profit", "Units Sold", "Avg Margin %"},
		widths: []float64{12, 36, 16, 10, 16, 16, 12, 14},
		rows: func(r *models.Report) [][]any {
			out := make([][]any, len(r.TopProducts))
			for i, p := range r.TopProducts {
				out[i] = []any{p.ProductID, p.ProductName, p.Category, p.Orders, p.Revenue, p.Profit, p.UnitsSold, p.AvgMargin}
			}
			return out
		},
	},
	{
		name: "VIP Customers",
		header: []string{"Customer ID", "Country", "Lifetime Value", "Total Orders", "Avg Order Value",
			"Last Purchase", "RFM Segment", "Churn Probability"},
		widths: []float64{14, 16, 16, 12, 16, 14, 22, 16},
		rows: func(r *models.Report) [][]any {
			out := make([][]any, len(r.VIPCustomers))
			for i, c := range r.VIPCustomers {
				out[i] = []any{c.CustomerID, c.Country, c.LifetimeValue, c.TotalOrders, c.AvgOrderValue,
					c.LastPurchaseDate.UTC().Format("2006-01-02"), c.RFMSegment, c.ChurnProbability}
			}
			return out
		},
	},
	{
		name:   "RFM Segments",
		header: []string{"Segment", "Customers", "Avg LTV", "Avg Orders", "Avg Churn", "Revenue Share %", "Customer Share %"},
		widths: []float64{22, 12, 14, 12, 12, 16, 16},
		rows: func(r *models.Report) [][]any {
			out := make([][]any, len(r.Segments))
			for i, s := range r.Segments {
				out[i] = []any{s.Segment, s.Customers, s.AvgLTV, s.AvgOrders, s.AvgChurn, s.RevenueShare, s.CustomersShare}
			}
			return out
		},
	},
	{
		name:   "Time Series",
		header: []string{"Date", "Orders", "Revenue", "Profit"},
		widths: []float64{14, 10, 16, 16},
		rows: func(r *models.Report) [][]any {
			out := make([][]any, len(r.Daily))
			for i, p := range r.Daily {
				out[i] = []any{p.Period, p.Orders, p.Revenue, p.Profit}
			}
			return out
		},
	},
}

// SheetNames lists the workbook sheets in order.
func SheetNames() []string {
	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.name
	}
	return names
}

// Excel writes r as an xlsx workbook with one sheet per report section.
// Header rows are bold on a filled background and frozen.
func Excel(w io.Writer, r *models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E78"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %q: %w", s.name, err)
		}
		if err := writeSheet(f, s, r, headerStyle); err != nil {
			return fmt.Errorf("write sheet %q: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s sheet, r *models.Report, headerStyle int) error {
	header := make([]any, len(s.header))
	for i, h := range s.header {
		header[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(s.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range s.rows(r) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return err
		}
	}

	for i, width := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, col, col, width); err != nil {
			return err
		}
	}

	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
