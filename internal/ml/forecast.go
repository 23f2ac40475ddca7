package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sartorproj/goarima/autoarima"
	"github.com/sartorproj/goarima/stats"
	"github.com/sartorproj/goarima/timeseries"
	"gonum.org/v1/gonum/stat"

	"ecommerce-analytics/internal/models"
)

const (
	MetricRevenue = "revenue"
	MetricOrders  = "orders"

	trainingWindowDays = 730
	minTrainingDays    = 28
	weeklySeason       = 7
	ljungBoxLags       = 14
	confidence         = 0.95
)

var errNoModel = errors.New("no candidate model could be fitted to the series")

type ForecastMetrics struct {
	MAPE            float64  `json:"mape"`
	RMSE            float64  `json:"rmse"`
	R2              float64  `json:"r2"`
	TrainingSamples int      `json:"training_samples"`
	Order           string   `json:"order"`
	AIC             float64  `json:"aic"`
	LjungBoxPValue  *float64 `json:"ljung_box_p_value,omitempty"`
}

type Forecast struct {
	Metric       string          `json:"metric"`
	Dates        []string        `json:"dates"`
	Predictions  []float64       `json:"predictions"`
	LowerBound   []float64       `json:"lower_bound"`
	UpperBound   []float64       `json:"upper_bound"`
	ModelMetrics ForecastMetrics `json:"model_metrics"`
}

// ForecastDaily fits a seasonal ARIMA with a weekly period to the daily
// revenue or order series and projects daysAhead days past the last
// observed day. Missing days count as zero. Bounds are the model's 95%
// prediction interval, which widens with the horizon, floored at zero like
// the predictions. Fit metrics are computed in-sample from the residuals.
func ForecastDaily(txs []models.Transaction, daysAhead int, metric string) (*Forecast, error) {
	if metric != MetricRevenue && metric != MetricOrders {
		return nil, fmt.Errorf("%w: metric must be %s or %s", ErrInvalidArgument, MetricRevenue, MetricOrders)
	}
	if daysAhead < 1 {
		return nil, fmt.Errorf("%w: days ahead must be positive", ErrInvalidArgument)
	}

	points := fillGaps(dailyTotals(txs, time.Time{}))
	if len(points) > trainingWindowDays {
		points = points[len(points)-trainingWindowDays:]
	}
	if len(points) < minTrainingDays {
		return nil, fmt.Errorf("%w: need %d days of history, have %d", ErrInsufficientData, minTrainingDays, len(points))
	}

	stamps := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		stamps[i] = p.Day
		if metric == MetricOrders {
			values[i] = float64(p.Orders)
		} else {
			values[i] = p.Revenue
		}
	}
	series, err := timeseries.NewWithTimestamps(stamps, values)
	if err != nil {
		return nil, fmt.Errorf("build series: %w", err)
	}

	cfg := autoarima.DefaultConfig()
	cfg.SeasonalPeriods = []int{weeklySeason}
	cfg.MinSeasonalPeriod, cfg.MaxSeasonalPeriod = weeklySeason, weeklySeason
	cfg.MaxP, cfg.MaxQ = 3, 3
	cfg.MaxSP, cfg.MaxSQ = 1, 1

	fit, err := autoarima.AutoARIMA(series, cfg)
	if err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}
	if fit == nil {
		return nil, errNoModel
	}
	pred, lower, upper, err := fit.PredictWithInterval(daysAhead, confidence)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if n := min(len(pred), len(lower), len(upper)); n < daysAhead {
		return nil, fmt.Errorf("predict: model returned %d of %d steps", n, daysAhead)
	}

	metrics := fitMetrics(values, fit.Residuals())
	metrics.TrainingSamples = len(values)
	metrics.AIC = round(finite(fit.AIC), 2)
	metrics.Order = fmt.Sprintf("(%d,%d,%d)(%d,%d,%d)[%d]", fit.P, fit.D, fit.Q, fit.SP, fit.SD, fit.SQ, fit.M)
	if lb := stats.LjungBox(timeseries.New(fit.Residuals()), ljungBoxLags, fit.P+fit.Q+fit.SP+fit.SQ); lb != nil {
		p := round(finite(lb.PValue), 4)
		metrics.LjungBoxPValue = &p
	}

	last := points[len(points)-1].Day
	out := &Forecast{
		Metric:       metric,
		Dates:        make([]string, daysAhead),
		Predictions:  make([]float64, daysAhead),
		LowerBound:   make([]float64, daysAhead),
		UpperBound:   make([]float64, daysAhead),
		ModelMetrics: metrics,
	}
	for i := range daysAhead {
		yhat := math.Max(0, finite(pred[i]))
		out.Dates[i] = last.AddDate(0, 0, i+1).Format(dateLayout)
		out.Predictions[i] = round(yhat, 2)
		out.LowerBound[i] = round(math.Min(yhat, math.Max(0, finite(lower[i]))), 2)
		out.UpperBound[i] = round(math.Max(yhat, finite(upper[i])), 2)
	}
	return out, nil
}

// fitMetrics compares the observations with the one-step fitted values
// implied by the residuals. Residual series shorter than the input (after
// differencing) are aligned to its end.
func fitMetrics(actual, residuals []float64) ForecastMetrics {
	n := min(len(actual), len(residuals))
	if n == 0 {
		return ForecastMetrics{}
	}
	obs := actual[len(actual)-n:]
	res := residuals[len(residuals)-n:]

	fitted := make([]float64, n)
	var sq, ape float64
	var apeN int
	for i := range n {
		fitted[i] = obs[i] - res[i]
		sq += res[i] * res[i]
		if obs[i] != 0 {
			ape += math.Abs(res[i] / obs[i])
			apeN++
		}
	}

	m := ForecastMetrics{
		RMSE: round(finite(math.Sqrt(sq/float64(n))), 2),
		R2:   round(finite(stat.RSquaredFrom(fitted, obs, nil)), 3),
	}
	if apeN > 0 {
		m.MAPE = round(finite(ape/float64(apeN)*100), 2)
	}
	return m
}
