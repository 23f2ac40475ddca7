package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"ecommerce-analytics/internal/models"
)

type kind int

const (
	kindString kind = iota
	kindInt
	kindFloat
	kindTime
)

// column binds one named field of T to a typed accessor. Exactly one of the
// accessor funcs is set, matching kind.
type column[T any] struct {
	name string
	kind kind
	str  func(*T) *string
	num  func(*T) *int
	flt  func(*T) *float64
	ts   func(*T) *time.Time
}

func strCol[T any](name string, f func(*T) *string) column[T] {
	return column[T]{name: name, kind: kindString, str: f}
}

func intCol[T any](name string, f func(*T) *int) column[T] {
	return column[T]{name: name, kind: kindInt, num: f}
}

func floatCol[T any](name string, f func(*T) *float64) column[T] {
	return column[T]{name: name, kind: kindFloat, flt: f}
}

func timeCol[T any](name string, f func(*T) *time.Time) column[T] {
	return column[T]{name: name, kind: kindTime, ts: f}
}

var transactionColumns = []column[models.Transaction]{
	strCol("transaction_id", func(t *models.Transaction) *string { return &t.TransactionID }),
	timeCol("date", func(t *models.Transaction) *time.Time { return &t.Date }),
	strCol("customer_id", func(t *models.Transaction) *string { return &t.CustomerID }),
	strCol("country", func(t *models.Transaction) *string { return &t.Country }),
	strCol("region", func(t *models.Transaction) *string { return &t.Region }),
	strCol("city", func(t *models.Transaction) *string { return &t.City }),
	strCol("product_id", func(t *models.Transaction) *string { return &t.ProductID }),
	strCol("product_name", func(t *models.Transaction) *string { return &t.ProductName }),
	strCol("category", func(t *models.Transaction) *string { return &t.Category }),
	strCol("subcategory", func(t *models.Transaction) *string { return &t.Subcategory }),
	intCol("quantity", func(t *models.Transaction) *int { return &t.Quantity }),
	floatCol("unit_price", func(t *models.Transaction) *float64 { return &t.UnitPrice }),
	floatCol("total_amount", func(t *models.Transaction) *float64 { return &t.TotalAmount }),
	floatCol("discount_applied", func(t *models.Transaction) *float64 { return &t.DiscountApplied }),
	strCol("payment_method", func(t *models.Transaction) *string { return &t.PaymentMethod }),
	floatCol("shipping_cost", func(t *models.Transaction) *float64 { return &t.ShippingCost }),
	intCol("delivery_time", func(t *models.Transaction) *int { return &t.DeliveryTime }),
	strCol("customer_segment", func(t *models.Transaction) *string { return &t.CustomerSegment }),
	strCol("device_type", func(t *models.Transaction) *string { return &t.DeviceType }),
	strCol("traffic_source", func(t *models.Transaction) *string { return &t.TrafficSource }),
	strCol("currency", func(t *models.Transaction) *string { return &t.Currency }),
	floatCol("exchange_rate", func(t *models.Transaction) *float64 { return &t.ExchangeRate }),
	floatCol("total_amount_usd", func(t *models.Transaction) *float64 { return &t.TotalAmountUSD }),
	floatCol("cost_price", func(t *models.Transaction) *float64 { return &t.CostPrice }),
	floatCol("profit", func(t *models.Transaction) *float64 { return &t.Profit }),
}

var customerColumns = []column[models.Customer]{
	strCol("customer_id", func(c *models.Customer) *string { return &c.CustomerID }),
	timeCol("registration_date", func(c *models.Customer) *time.Time { return &c.RegistrationDate }),
	strCol("country", func(c *models.Customer) *string { return &c.Country }),
	intCol("age", func(c *models.Customer) *int { return &c.Age }),
	strCol("gender", func(c *models.Customer) *string { return &c.Gender }),
	floatCol("lifetime_value", func(c *models.Customer) *float64 { return &c.LifetimeValue }),
	intCol("total_orders", func(c *models.Customer) *int { return &c.TotalOrders }),
	floatCol("avg_order_value", func(c *models.Customer) *float64 { return &c.AvgOrderValue }),
	timeCol("last_purchase_date", func(c *models.Customer) *time.Time { return &c.LastPurchaseDate }),
	intCol("recency_score", func(c *models.Customer) *int { return &c.RecencyScore }),
	intCol("frequency_score", func(c *models.Customer) *int { return &c.FrequencyScore }),
	floatCol("monetary_score", func(c *models.Customer) *float64 { return &c.MonetaryScore }),
	strCol("rfm_segment", func(c *models.Customer) *string { return &c.RFMSegment }),
	floatCol("churn_probability", func(c *models.Customer) *float64 { return &c.ChurnProbability }),
	strCol("preferred_category", func(c *models.Customer) *string { return &c.PreferredCategory }),
}

var productColumns = []column[models.Product]{
	strCol("product_id", func(p *models.Product) *string { return &p.ProductID }),
	strCol("product_name", func(p *models.Product) *string { return &p.ProductName }),
	strCol("category", func(p *models.Product) *string { return &p.Category }),
	strCol("subcategory", func(p *models.Product) *string { return &p.Subcategory }),
	strCol("brand", func(p *models.Product) *string { return &p.Brand }),
	floatCol("base_price", func(p *models.Product) *float64 { return &p.BasePrice }),
	floatCol("cost_price", func(p *models.Product) *float64 { return &p.CostPrice }),
	floatCol("margin_percentage", func(p *models.Product) *float64 { return &p.MarginPercentage }),
	intCol("stock_quantity", func(p *models.Product) *int { return &p.StockQuantity }),
	strCol("supplier_country", func(p *models.Product) *string { return &p.SupplierCountry }),
	floatCol("weight", func(p *models.Product) *float64 { return &p.Weight }),
	floatCol("rating", func(p *models.Product) *float64 { return &p.Rating }),
	intCol("reviews_count", func(p *models.Product) *int { return &p.ReviewsCount }),
	timeCol("launch_date", func(p *models.Product) *time.Time { return &p.LaunchDate }),
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// ParseTime accepts the timestamp layouts seen in exported CSV files.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// parse stores a text cell into dst. Empty numeric and time cells leave the
// zero value.
func (c column[T]) parse(dst *T, raw string) error {
	s := strings.TrimSpace(raw)
	switch c.kind {
	case kindString:
		*c.str(dst) = s
		return nil
	}
	if s == "" {
		return nil
	}
	switch c.kind {
	case kindInt:
		n, err := strconv.Atoi(s)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return fmt.Errorf("%s: %w", c.name, err)
			}
			n = int(f)
		}
		*c.num(dst) = n
	case kindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		*c.flt(dst) = f
	case kindTime:
		t, err := ParseTime(s)
		if err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		*c.ts(dst) = t
	}
	return nil
}

func (c column[T]) format(src *T) string {
	switch c.kind {
	case kindString:
		return *c.str(src)
	case kindInt:
		return strconv.Itoa(*c.num(src))
	case kindFloat:
		return strconv.FormatFloat(*c.flt(src), 'f', -1, 64)
	default:
		t := *c.ts(src)
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	}
}

func (c column[T]) arrowType() arrow.DataType {
	switch c.kind {
	case kindString:
		return arrow.BinaryTypes.String
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.FixedWidthTypes.Timestamp_us
	}
}

func (c column[T]) appendTo(b array.Builder, src *T) {
	switch c.kind {
	case kindString:
		b.(*array.StringBuilder).Append(*c.str(src))
	case kindInt:
		b.(*array.Int64Builder).Append(int64(*c.num(src)))
	case kindFloat:
		b.(*array.Float64Builder).Append(*c.flt(src))
	default:
		t := *c.ts(src)
		if t.IsZero() {
			b.AppendNull()
			return
		}
		b.(*array.TimestampBuilder).Append(arrow.Timestamp(t.UnixMicro()))
	}
}

// setFrom copies row i of arr into dst, converting between the physical
// types other writers commonly choose for the same logical column.
func (c column[T]) setFrom(arr arrow.Array, i int, dst *T) error {
	if arr.IsNull(i) {
		return nil
	}
	switch c.kind {
	case kindString:
		switch a := arr.(type) {
		case *array.String:
			*c.str(dst) = a.Value(i)
		case *array.LargeString:
			*c.str(dst) = a.Value(i)
		default:
			*c.str(dst) = arr.ValueStr(i)
		}
	case kindInt:
		switch a := arr.(type) {
		case *array.Int64:
			*c.num(dst) = int(a.Value(i))
		case *array.Int32:
			*c.num(dst) = int(a.Value(i))
		case *array.Int16:
			*c.num(dst) = int(a.Value(i))
		case *array.Float64:
			*c.num(dst) = int(a.Value(i))
		default:
			return fmt.Errorf("%s: unsupported type %s", c.name, arr.DataType())
		}
	case kindFloat:
		switch a := arr.(type) {
		case *array.Float64:
			*c.flt(dst) = a.Value(i)
		case *array.Float32:
			*c.flt(dst) = float64(a.Value(i))
		case *array.Int64:
			*c.flt(dst) = float64(a.Value(i))
		case *array.Int32:
			*c.flt(dst) = float64(a.Value(i))
		default:
			return fmt.Errorf("%s: unsupported type %s", c.name, arr.DataType())
		}
	case kindTime:
		switch a := arr.(type) {
		case *array.Timestamp:
			unit := a.DataType().(*arrow.TimestampType).Unit
			*c.ts(dst) = a.Value(i).ToTime(unit).UTC()
		case *array.Date32:
			*c.ts(dst) = a.Value(i).ToTime().UTC()
		case *array.Date64:
			*c.ts(dst) = a.Value(i).ToTime().UTC()
		case *array.String:
			t, err := ParseTime(a.Value(i))
			if err != nil {
				return fmt.Errorf("%s: %w", c.name, err)
			}
			*c.ts(dst) = t
		default:
			return fmt.Errorf("%s: unsupported type %s", c.name, arr.DataType())
		}
	}
	return nil
}

func schemaOf[T any](cols []column[T]) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.name, Type: c.arrowType(), Nullable: c.kind == kindTime}
	}
	return arrow.NewSchema(fields, nil)
}
