// Package templates renders the dashboard page and the fragments the SSE
// endpoints patch into it.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"ecommerce-analytics/internal/filter"
	"ecommerce-analytics/internal/models"
)

const (
	Title    = "Global Ecommerce Analytics"
	Subtitle = "Sales, customers and product performance across every market"

	datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"
	chartScript    = "https://cdn.jsdelivr.net/npm/chart.js@4.4.3/dist/chart.umd.min.js"
)

var presetLabels = map[string]string{
	filter.Last7Days:  "Last 7 days",
	filter.Last30Days: "Last 30 days",
	filter.Last90Days: "Last 90 days",
	filter.LastYear:   "Last year",
	filter.AllTime:    "All time",
}

// Panels lists the chart panels in page order as canvas id and heading.
var Panels = [][2]string{
	{"revenue-trend", "Monthly Revenue Trend"},
	{"profit-loss", "Monthly Profit and Loss"},
	{"top-countries", "Top 10 Countries by Revenue"},
	{"category-share", "Revenue by Category"},
	{"rfm-segments", "Customers by RFM Segment"},
	{"devices", "Revenue by Device"},
	{"traffic-sources", "Revenue by Traffic Source"},
	{"payment-methods", "Revenue by Payment Method"},
	{"weekdays", "Revenue by Weekday"},
	{"hours", "Revenue by Hour of Day"},
}

// Dashboard is the full page. Filter controls are bound to datastar signals
// and every change re-requests /sse/refresh-all.
func Dashboard(opts filter.Options) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		fmt.Fprintf(&b, `<title>%s</title>`, templ.EscapeString(Title))
		fmt.Fprintf(&b, `<script type="module" src="%s"></script>`, datastarScript)
		fmt.Fprintf(&b, `<script src="%s"></script>`, chartScript)
		b.WriteString(`<style>` + styles + `</style></head>`)

		b.WriteString(`<body data-signals="{preset: 'last_30_days', country: '', category: '', charts: {}}" `)
		b.WriteString(`data-on-load="@get('/sse/refresh-all')" data-effect="window.renderCharts && window.renderCharts($charts)">`)
		fmt.Fprintf(&b, `<header><h1>%s</h1><p>%s</p>`, templ.EscapeString(Title), templ.EscapeString(Subtitle))
		b.WriteString(`<nav><a href="/api/export/excel">Export Excel</a><a href="/api/export/pdf">Export PDF</a><a href="/api">API</a></nav></header>`)

		b.WriteString(`<section class="filters" data-on-change="@get('/sse/refresh-all')">`)
		b.WriteString(`<label>Period <select data-bind-preset>`)
		for _, p := range opts.Presets {
			fmt.Fprintf(&b, `<option value="%s">%s</option>`, templ.EscapeString(p), templ.EscapeString(presetLabels[p]))
		}
		b.WriteString(`</select></label>`)
		writeSelect(&b, "Country", "country", opts.Countries)
		writeSelect(&b, "Category", "category", opts.Categories)
		b.WriteString(`</section>`)

		b.WriteString(`<section id="kpis" class="kpis"><div class="kpi">Loading...</div></section>`)

		b.WriteString(`<section class="charts">`)
		for _, p := range Panels {
			fmt.Fprintf(&b, `<div class="panel"><h2>%s</h2><canvas id="%s"></canvas></div>`,
				templ.EscapeString(p[1]), p[0])
		}
		b.WriteString(`</section>`)
		b.WriteString(`<script>` + chartsJS + `</script></body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeSelect(b *strings.Builder, label, signal string, values []string) {
	fmt.Fprintf(b, `<label>%s <select data-bind-%s><option value="">All</option>`, label, signal)
	for _, v := range values {
		e := templ.EscapeString(v)
		fmt.Fprintf(b, `<option value="%s">%s</option>`, e, e)
	}
	b.WriteString(`</select></label>`)
}

// KPICards renders the #kpis fragment. Revenue and orders carry their change
// against the previous window when that window had any activity.
func KPICards(k models.KPIs) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		type card struct {
			label, value string
			change       float64
			compare      bool
		}
		cards := []card{
			{"Total Revenue", fmt.Sprintf("$%.2f", k.TotalRevenue), k.RevenueChangePct, k.PreviousRevenue > 0},
			{"Orders", fmt.Sprintf("%d", k.TotalOrders), k.OrdersChangePct, k.PreviousOrders > 0},
			{"Avg Order Value", fmt.Sprintf("$%.2f", k.AvgOrderValue), 0, false},
			{"Gross Profit", fmt.Sprintf("$%.2f", k.GrossProfit), 0, false},
			{"Total Cost", fmt.Sprintf("$%.2f", k.TotalCost), 0, false},
			{"Profit Margin", fmt.Sprintf("%.2f%%", k.ProfitMarginPct), 0, false},
			{"Customers", fmt.Sprintf("%d", k.TotalCustomers), 0, false},
			{"Orders per Customer", fmt.Sprintf("%.2f%%", k.ConversionRate), 0, false},
			{"Units per Order", fmt.Sprintf("%.2f", k.UnitsPerOrder), 0, false},
			{"Avg Shipping Cost", fmt.Sprintf("$%.2f", k.AvgShippingCost), 0, false},
			{"Avg Delivery", fmt.Sprintf("%.1f days", k.AvgDeliveryDays), 0, false},
		}
		var b strings.Builder
		b.WriteString(`<section id="kpis" class="kpis">`)
		for _, c := range cards {
			fmt.Fprintf(&b, `<div class="kpi"><span>%s</span><strong>%s</strong>`,
				templ.EscapeString(c.label), templ.EscapeString(c.value))
			if c.compare {
				class := "up"
				if c.change < 0 {
					class = "down"
				}
				fmt.Fprintf(&b, `<em class="%s">%+.2f%% vs previous period</em>`, class, c.change)
			}
			b.WriteString(`</div>`)
		}
		fmt.Fprintf(&b, `<p class="period">%s to %s</p></section>`,
			templ.EscapeString(k.PeriodStart), templ.EscapeString(k.PeriodEnd))
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// FilterError replaces the #kpis fragment with a message about a filter the
// server could not apply.
func FilterError(message, details string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section id="kpis" class="kpis"><div class="kpi error" role="alert"><span>%s</span><strong>%s</strong></div></section>`,
			templ.EscapeString(message), templ.EscapeString(details))
		return err
	})
}

// Render writes c to a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f4f6f9;color:#1f2933}
header{background:#1f4e78;color:#fff;padding:1.2rem 2rem}
header h1{margin:0}header p{margin:.3rem 0 0;opacity:.8}
nav a{color:#fff;margin-right:1rem;font-size:.9rem}
.filters{display:flex;gap:1rem;padding:1rem 2rem}
.kpis{display:grid;grid-template-columns:repeat(auto-fit,minmax(160px,1fr));gap:1rem;padding:0 2rem}
.kpi{background:#fff;border-radius:8px;padding:1rem;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.kpi span{display:block;font-size:.8rem;color:#52606d}.kpi strong{font-size:1.4rem}
.kpi em{display:block;font-style:normal;font-size:.75rem}.kpi em.up{color:#1e8449}.kpi em.down{color:#c0392b}
.kpi.error{grid-column:1/-1;border-left:4px solid #c0392b}.kpi.error strong{font-size:1rem}
.period{grid-column:1/-1;color:#52606d;font-size:.8rem}
.charts{display:grid;grid-template-columns:repeat(auto-fit,minmax(420px,1fr));gap:1rem;padding:1rem 2rem}
.panel{background:#fff;border-radius:8px;padding:1rem}
.panel h2{font-size:1rem;margin:0 0 .5rem}
`

const chartsJS = `
window.dashCharts = window.dashCharts || {};
function drawChart(id, type, labels, values, label) {
  const el = document.getElementById(id);
  if (!el) return;
  if (window.dashCharts[id]) window.dashCharts[id].destroy();
  window.dashCharts[id] = new Chart(el, {type: type, data: {labels: labels, datasets: [{label: label, data: values}]}});
}
window.renderCharts = function (c) {
  if (!c || !c.revenue_trend) return;
  drawChart('revenue-trend', 'line', c.revenue_trend.map(p => p.period), c.revenue_trend.map(p => p.revenue), 'Revenue');
  const pl = window.dashCharts['profit-loss'];
  if (pl) pl.destroy();
  const plEl = document.getElementById('profit-loss');
  if (plEl && c.profit_loss) {
    window.dashCharts['profit-loss'] = new Chart(plEl, {type: 'bar', data: {
      labels: c.profit_loss.map(p => p.period),
      datasets: [
        {label: 'Revenue', data: c.profit_loss.map(p => p.revenue)},
        {label: 'Cost', data: c.profit_loss.map(p => p.cost)},
        {label: 'Profit', type: 'line', data: c.profit_loss.map(p => p.profit)},
      ]}});
  }
  drawChart('top-countries', 'bar', c.top_countries.map(p => p.country), c.top_countries.map(p => p.revenue), 'Revenue');
  drawChart('category-share', 'doughnut', c.category_share.map(p => p.category), c.category_share.map(p => p.revenue), 'Revenue');
  drawChart('rfm-segments', 'bar', c.rfm_segments.map(p => p.segment), c.rfm_segments.map(p => p.customers), 'Customers');
  drawChart('devices', 'pie', c.devices.map(p => p.label), c.devices.map(p => p.revenue), 'Revenue');
  drawChart('traffic-sources', 'bar', c.traffic_sources.map(p => p.label), c.traffic_sources.map(p => p.revenue), 'Revenue');
  drawChart('payment-methods', 'bar', c.payment_methods.map(p => p.label), c.payment_methods.map(p => p.revenue), 'Revenue');
  drawChart('weekdays', 'bar', c.weekdays.map(p => p.label), c.weekdays.map(p => p.revenue), 'Revenue');
  drawChart('hours', 'line', c.hours.map(p => p.label), c.hours.map(p => p.revenue), 'Revenue');
};
`
