package templates

import (
	"context"
	"strings"
	"testing"

	"ecommerce-analytics/internal/filter"
	"ecommerce-analytics/internal/models"
)

func TestDashboard(t *testing.T) {
	opts := filter.Options{
		Countries:  []string{"France", "<script>"},
		Categories: []string{"Electronics"},
		Presets:    filter.Presets,
	}
	html, err := Render(context.Background(), Dashboard(opts))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	for _, want := range []string{Title, Subtitle, "/sse/refresh-all", "Last 30 days", `value="France"`, "&lt;script&gt;"} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	for _, p := range Panels {
		if !strings.Contains(html, `id="`+p[0]+`"`) || !strings.Contains(html, p[1]) {
			t.Errorf("page missing panel %v", p)
		}
	}
}

func TestKPICards(t *testing.T) {
	html, err := Render(context.Background(), KPICards(models.KPIs{
		TotalRevenue:     1234.5,
		TotalOrders:      10,
		ConversionRate:   125,
		PreviousRevenue:  1000,
		RevenueChangePct: 23.45,
		ProfitMarginPct:  31.2,
		AvgDeliveryDays:  4.5,
		PeriodStart:      "2024-06-01",
		PeriodEnd:        "2024-06-30",
	}))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{
		`id="kpis"`, "$1234.50", "125.00%", "2024-06-01 to 2024-06-30",
		`<em class="up">+23.45% vs previous period</em>`, "31.20%", "4.5 days",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("fragment missing %q:\n%s", want, html)
		}
	}
	if strings.Count(html, "vs previous period") != 1 {
		t.Errorf("orders had no previous window and should carry no change:\n%s", html)
	}
}

func TestFilterError(t *testing.T) {
	html, err := Render(context.Background(), FilterError("Invalid date range", "start_date <b>"))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(html, `id="kpis"`) || !strings.Contains(html, "start_date &lt;b&gt;") {
		t.Errorf("FilterError() = %s", html)
	}
}
