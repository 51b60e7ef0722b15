package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/vnweather/internal/domain"
	"github.com/smartcity/vnweather/internal/repository/warehouse"
)

var hanoi = domain.City{Name: "Hà Nội", Key: "Ha Noi City"}

type stubSource struct {
	tables map[domain.QueryID]*domain.Table
	err    error
	panic  bool
	seen   []domain.QueryID
}

func (s *stubSource) Fetch(ctx context.Context, q domain.Query) (*domain.Table, error) {
	s.seen = append(s.seen, q.ID)
	if s.panic {
		panic("unexpected cell type")
	}
	if s.err != nil {
		return nil, s.err
	}
	if t, ok := s.tables[q.ID]; ok {
		return t, nil
	}
	return domain.NewTable(), nil
}

func newTestService(t *testing.T, source TableSource) *DashboardService {
	t.Helper()
	catalog, err := NewCatalog("hcmut.gold", nil)
	require.NoError(t, err)
	cities, err := domain.NewCityDirectory(domain.DefaultCities())
	require.NoError(t, err)
	return NewDashboardService(catalog, source, NewNormalizer(nil), cities)
}

func demoService(t *testing.T, now time.Time) *DashboardService {
	t.Helper()
	demo := warehouse.NewDemo(func() time.Time { return now })
	return newTestService(t, NewCache(demo.Query, func() time.Time { return now }, nil))
}

func cardByKey(t *testing.T, p domain.Panel, key string) domain.MetricCard {
	t.Helper()
	for _, c := range p.Cards {
		if c.Key == key {
			return c
		}
	}
	t.Fatalf("card %q not found", key)
	return domain.MetricCard{}
}

func TestDashboardService_Cities(t *testing.T) {
	svc := newTestService(t, &stubSource{})

	opts := svc.Cities()
	assert.Equal(t, "Hà Nội", opts.Default.Name)
	assert.Len(t, opts.Cities, 3)
	assert.Equal(t, MinDays, opts.MinDays)
	assert.Equal(t, MaxDays, opts.MaxDays)
}

func TestDashboardService_Daily(t *testing.T) {
	tbl := domain.NewTable(domain.ColLocation, domain.ColDateRecord, domain.ColTemperature, domain.ColTemperatureMax, domain.ColRainSum)
	tbl.Append("Ha Noi City", domain.NaiveTime{Wall: utc(2024, 6, 2, 0)}, 28.0, 33.0, 2.5)
	tbl.Append("Ha Noi City", domain.NaiveTime{Wall: utc(2024, 6, 1, 0)}, 26.0, 31.0, nil)

	source := &stubSource{tables: map[domain.QueryID]*domain.Table{domain.QueryDailyObservations: tbl}}
	svc := newTestService(t, source)

	view, err := svc.Daily(context.Background(), hanoi, 7)
	require.NoError(t, err)
	assert.False(t, view.Empty)
	assert.Equal(t, 7, view.Days)

	// mean falls back to the plain temperature column
	assert.Equal(t, "27.0°C", cardByKey(t, view.Metrics, "temperature_mean").Display)
	assert.Equal(t, "33.0°C", cardByKey(t, view.Metrics, "temperature_max").Display)
	assert.Equal(t, "2.5 mm", cardByKey(t, view.Metrics, "rain_total").Display)
	// no humidity column, so the row count is shown instead
	assert.Equal(t, "2", cardByKey(t, view.Metrics, "days").Display)

	require.Len(t, view.Chart.Series, 1)
	points := view.Chart.Series[0].Points
	require.Len(t, points, 2)
	assert.Equal(t, "2024-06-01 07:00", points[0].Label)
	assert.Equal(t, 26.0, points[0].Value.Value)

	assert.Contains(t, view.Table.Columns, domain.ColDateRecord+domain.DisplayColumnSuffix)
	assert.Len(t, view.Table.Rows, 2)
}

func TestDashboardService_EmptyResultsAreNotErrors(t *testing.T) {
	svc := newTestService(t, &stubSource{})
	ctx := context.Background()

	daily, err := svc.Daily(ctx, hanoi, 7)
	require.NoError(t, err)
	assert.True(t, daily.Empty)
	assert.True(t, daily.Chart.Empty)
	assert.True(t, daily.Table.Empty)

	hourly, err := svc.Hourly(ctx, hanoi, 1)
	require.NoError(t, err)
	assert.True(t, hourly.Empty)

	forecast, err := svc.Forecast(ctx, hanoi)
	require.NoError(t, err)
	assert.True(t, forecast.Empty)
	assert.True(t, forecast.Chart.Empty)

	rain, err := svc.Rain(ctx, hanoi)
	require.NoError(t, err)
	assert.True(t, rain.Empty)
	assert.Equal(t, "N/A", rain.Headline.Display)
	assert.Nil(t, rain.Details)

	comparison, err := svc.Comparison(ctx, hanoi, 3)
	require.NoError(t, err)
	assert.True(t, comparison.Empty)

	home, err := svc.Home(ctx, hanoi)
	require.NoError(t, err)
	assert.True(t, home.Forecast.Empty)
	assert.True(t, home.Rain.Empty)
	assert.True(t, home.Overview.Empty)
	assert.True(t, home.Comparison.Empty)
}

func TestDashboardService_WarehouseFailureFailsTheView(t *testing.T) {
	source := &stubSource{err: domain.ErrWarehouseUnavailable}
	svc := newTestService(t, source)
	ctx := context.Background()

	_, err := svc.Home(ctx, hanoi)
	assert.True(t, errors.Is(err, domain.ErrWarehouseUnavailable))
	// the first failing panel stops the view
	assert.Equal(t, []domain.QueryID{domain.QueryTemperatureForecast}, source.seen)

	_, err = svc.Daily(ctx, hanoi, 7)
	assert.True(t, errors.Is(err, domain.ErrWarehouseUnavailable))

	source.err = domain.ErrQueryFailed
	_, err = svc.Comparison(ctx, hanoi, 3)
	assert.True(t, errors.Is(err, domain.ErrQueryFailed))
}

func TestDashboardService_InvalidWindow(t *testing.T) {
	source := &stubSource{}
	svc := newTestService(t, source)

	_, err := svc.Daily(context.Background(), hanoi, 31)
	assert.True(t, errors.Is(err, domain.ErrInvalidWindow))
	assert.Empty(t, source.seen)
}

func TestDashboardService_PanicBecomesRenderError(t *testing.T) {
	svc := newTestService(t, &stubSource{panic: true})

	_, err := svc.Rain(context.Background(), hanoi)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRender))
}

func TestDashboardService_Rain(t *testing.T) {
	tbl := domain.NewTable(domain.ColForecastDate, domain.ColRainProbability, domain.ColRainLabel, domain.ColLocationAlias, domain.ColModelRunTime)
	tbl.Append(domain.NaiveTime{Wall: utc(2024, 6, 1, 0)}, 0.40, int64(0), "Ha Noi City", time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	tbl.Append(domain.NaiveTime{Wall: utc(2024, 6, 1, 0)}, 0.65, int64(1), "Ha Noi City", time.Date(2024, 6, 1, 0, 30, 15, 0, time.UTC))

	source := &stubSource{tables: map[domain.QueryID]*domain.Table{domain.QueryRainProbability: tbl}}
	svc := newTestService(t, source)

	view, err := svc.Rain(context.Background(), hanoi)
	require.NoError(t, err)

	assert.Equal(t, "65.0%", view.Headline.Display)
	assert.Equal(t, "15.0% vs 50% threshold", view.Headline.Delta)
	require.NotNil(t, view.Band)
	assert.Equal(t, domain.RainHigh, view.Band.Key)
	assert.Equal(t, "normal", view.Headline.DeltaColor)

	assert.Equal(t, domain.Some(65), view.Gauge.Value)
	assert.Equal(t, "Rain likely", view.Gauge.Subtitle)
	assert.Equal(t, 50.0, view.Gauge.Threshold)
	assert.Equal(t, "Rain probability (01-06-2024 07:00)", view.Gauge.Title)

	require.NotNil(t, view.Details)
	assert.Equal(t, "01-06-2024 07:00", view.Details.ForecastDate)
	assert.Equal(t, "01-06-2024 07:30:15", view.Details.ModelRunTime)
	assert.Equal(t, "65.00%", view.Details.Probability)
	assert.Equal(t, "Rain", view.Details.Label)

	// a single day after deduplication has no detail table
	assert.True(t, view.Table.Empty)
}

func TestDashboardService_RainWithoutProbability(t *testing.T) {
	tbl := domain.NewTable(domain.ColForecastDate, domain.ColRainProbability, domain.ColRainLabel, domain.ColLocationAlias, domain.ColModelRunTime)
	tbl.Append(domain.NaiveTime{Wall: utc(2024, 6, 1, 0)}, nil, nil, "Ha Noi City", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	svc := newTestService(t, &stubSource{tables: map[domain.QueryID]*domain.Table{domain.QueryRainProbability: tbl}})

	view, err := svc.Rain(context.Background(), hanoi)
	require.NoError(t, err)
	assert.Nil(t, view.Band)
	assert.Equal(t, "N/A", view.Headline.Display)
	assert.Empty(t, view.Headline.Delta)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"band"`)
}

func TestDashboardService_Comparison(t *testing.T) {
	tbl := domain.NewTable(domain.ColComparisonDate, domain.ColPredictedTemp, domain.ColActualTemp, domain.ColLocationAlias)
	tbl.Append(utc(2024, 6, 1, 2), 25.0, 24.0, "Ha Noi City")
	tbl.Append(utc(2024, 6, 1, 1), 20.0, 22.0, "Ha Noi City")

	source := &stubSource{tables: map[domain.QueryID]*domain.Table{domain.QueryTemperatureComparison: tbl}}
	svc := newTestService(t, source)

	view, err := svc.Comparison(context.Background(), hanoi, 3)
	require.NoError(t, err)

	assert.Equal(t, "2", cardByKey(t, view.Metrics, "points").Display)
	assert.Equal(t, "1.50°C", cardByKey(t, view.Metrics, "mae").Display)
	assert.Equal(t, "1.58°C", cardByKey(t, view.Metrics, "rmse").Display)

	require.Len(t, view.Chart.Series, 2)
	predicted := view.Chart.Series[0]
	assert.Equal(t, "dash", predicted.Dash)
	require.Len(t, predicted.Points, 2)
	// chart ascending, table as returned
	assert.Equal(t, 20.0, predicted.Points[0].Value.Value)
	assert.Equal(t, domain.NewTimestamp(utc(2024, 6, 1, 2)), view.Table.Rows[0][0])
}

func TestDashboardService_ForecastKeepsLatestRun(t *testing.T) {
	now := time.Date(2024, 6, 1, 5, 20, 0, 0, time.UTC)
	svc := demoService(t, now)

	view, err := svc.Forecast(context.Background(), hanoi)
	require.NoError(t, err)

	require.Len(t, view.Table.Rows, ForecastHorizon)
	latest := domain.NewTimestamp(now.Truncate(time.Hour).Add(-time.Hour))
	for _, row := range view.Table.Rows {
		assert.Equal(t, latest, row[4])
	}
	points := view.Chart.Series[0].Points
	require.Len(t, points, ForecastHorizon)
	assert.True(t, points[0].Time.Instant.Before(points[1].Time.Instant))
	assert.Len(t, view.Metrics.Cards, 3)
}

func TestDashboardService_HourlyCaps(t *testing.T) {
	svc := demoService(t, time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC))

	view, err := svc.Hourly(context.Background(), hanoi, 9)
	require.NoError(t, err)
	assert.Equal(t, "216", cardByKey(t, view.Metrics, "hours").Display)
	assert.Len(t, view.Chart.Series[0].Points, hourlyChartPoints)
	assert.Len(t, view.Table.Rows, hourlyTableRows)
}

func TestDashboardService_HomeFromDemo(t *testing.T) {
	svc := demoService(t, time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC))

	view, err := svc.Home(context.Background(), hanoi)
	require.NoError(t, err)
	assert.Equal(t, hanoi, view.City)
	assert.False(t, view.Forecast.Empty)
	assert.False(t, view.Rain.Empty)
	assert.True(t, view.Rain.Value.Valid)
	assert.Len(t, view.Overview.Cards, 4)
	require.Len(t, view.Comparison.Series, 2)
	assert.Len(t, view.Comparison.Series[0].Points, HomeCompareDays*24)
}
