package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/smartcity/vnweather/internal/domain"
	"github.com/smartcity/vnweather/internal/log"
	"github.com/smartcity/vnweather/pkg/utils"
)

// Panel sizes carried over from the dashboard layout
const (
	hourlyChartPoints = 7 * hoursPerDay
	hourlyTableRows   = 100
)

// Display formats of the detail pages
const (
	rainDateLayout     = "02-01-2006 15:04"
	modelRunTimeLayout = "02-01-2006 15:04:05"
	notAvailable       = "N/A"
)

// TableSource supplies query results, normally the result cache
type TableSource interface {
	Fetch(ctx context.Context, q domain.Query) (*domain.Table, error)
}

// DashboardService assembles the dashboard views. Each call pulls its
// queries one after the other through the cache; any warehouse failure
// fails the whole view so stale and fresh panels are never mixed.
type DashboardService struct {
	catalog *Catalog
	source  TableSource
	norm    *Normalizer
	cities  *domain.CityDirectory
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	catalog *Catalog,
	source TableSource,
	norm *Normalizer,
	cities *domain.CityDirectory,
) *DashboardService {
	return &DashboardService{
		catalog: catalog,
		source:  source,
		norm:    norm,
		cities:  cities,
	}
}

// Cities returns the select-box options
func (s *DashboardService) Cities() domain.CityOptions {
	return domain.CityOptions{
		Default: s.cities.Default(),
		Cities:  s.cities.All(),
		MinDays: MinDays,
		MaxDays: MaxDays,
	}
}

// Home returns the landing page: 24h forecast, today's rain gauge, daily
// overview and a three-day forecast check.
func (s *DashboardService) Home(ctx context.Context, city domain.City) (view domain.HomeView, err error) {
	defer guard("home", &err)
	view.City = city

	forecast, err := s.forecastRows(ctx, city)
	if err != nil {
		return domain.HomeView{}, err
	}
	view.Forecast = forecastChart(forecast)

	rain, err := s.rainRows(ctx, city)
	if err != nil {
		return domain.HomeView{}, err
	}
	view.Rain = rainGauge(rain)

	q, err := s.catalog.DailyObservations(city.Key, MaxDays)
	if err != nil {
		return domain.HomeView{}, err
	}
	daily, err := s.fetch(ctx, q)
	if err != nil {
		return domain.HomeView{}, err
	}
	view.Overview = s.dailyCards(daily)

	q, err = s.catalog.TemperatureComparison(city.Key, HomeCompareDays)
	if err != nil {
		return domain.HomeView{}, err
	}
	compared, err := s.fetch(ctx, q)
	if err != nil {
		return domain.HomeView{}, err
	}
	view.Comparison = comparisonChart(s.norm.Comparison(compared))

	return view, nil
}

// Daily returns the daily observations page
func (s *DashboardService) Daily(ctx context.Context, city domain.City, days int) (view domain.ObservationView, err error) {
	defer guard("daily", &err)

	q, err := s.catalog.DailyObservations(city.Key, days)
	if err != nil {
		return domain.ObservationView{}, err
	}
	t, err := s.fetch(ctx, q)
	if err != nil {
		return domain.ObservationView{}, err
	}

	view = domain.ObservationView{City: city, Days: days}
	if t.Empty() {
		msg := "No data for this city."
		view.Status = domain.NoData(msg)
		view.Metrics.Status = domain.NoData(msg)
		view.Chart = emptyChart("Daily temperature", msg)
		view.Table = emptyTable(msg)
		return view, nil
	}

	view.Metrics = s.dailyCards(t)
	view.Chart = s.observationChart(t, domain.DailyTemperatureTrend, "Daily temperature", "Date (UTC+7)", 0)
	view.Table = s.norm.Frame(t, 0)
	return view, nil
}

// Hourly returns the hourly observations page
func (s *DashboardService) Hourly(ctx context.Context, city domain.City, days int) (view domain.ObservationView, err error) {
	defer guard("hourly", &err)

	q, err := s.catalog.HourlyObservations(city.Key, days)
	if err != nil {
		return domain.ObservationView{}, err
	}
	t, err := s.fetch(ctx, q)
	if err != nil {
		return domain.ObservationView{}, err
	}

	view = domain.ObservationView{City: city, Days: days}
	if t.Empty() {
		msg := "No data for this city."
		view.Status = domain.NoData(msg)
		view.Metrics.Status = domain.NoData(msg)
		view.Chart = emptyChart("Hourly temperature", msg)
		view.Table = emptyTable(msg)
		return view, nil
	}

	view.Metrics = domain.Panel{Cards: []domain.MetricCard{
		card("temperature_mean", "Avg temperature", Mean(s.norm.Series(t, domain.ColDateRecord, domain.HourlyTemperature)), "°C", "%.1f°C"),
		card("humidity_mean", "Avg humidity", Mean(s.norm.Series(t, domain.ColDateRecord, domain.HourlyHumidity)), "%", "%.1f%%"),
		card("wind_speed_mean", "Avg wind speed", Mean(s.norm.Series(t, domain.ColDateRecord, domain.HourlyWindSpeed)), "km/h", "%.1f km/h"),
		countCard("hours", "Hours", t.Len()),
	}}
	view.Chart = s.observationChart(t, domain.HourlyTemperature, "Hourly temperature (UTC+7)", "Time (UTC+7)", hourlyChartPoints)
	view.Table = s.norm.Frame(t, hourlyTableRows)
	return view, nil
}

// Forecast returns the 24h temperature forecast page
func (s *DashboardService) Forecast(ctx context.Context, city domain.City) (view domain.ForecastView, err error) {
	defer guard("forecast", &err)

	rows, err := s.forecastRows(ctx, city)
	if err != nil {
		return domain.ForecastView{}, err
	}

	view = domain.ForecastView{City: city}
	if len(rows) == 0 {
		msg := "No forecast data for this city."
		view.Status = domain.NoData(msg)
		view.Metrics.Status = domain.NoData(msg)
		view.Chart = forecastChart(nil)
		view.Table = emptyTable(msg)
		return view, nil
	}

	predicted := predictedSeries(rows)
	view.Metrics = domain.Panel{Cards: []domain.MetricCard{
		card("predicted_mean", "Avg temperature", Mean(predicted), "°C", "%.1f°C"),
		card("predicted_max", "Highest", Max(predicted), "°C", "%.1f°C"),
		card("predicted_min", "Lowest", Min(predicted), "°C", "%.1f°C"),
	}}
	view.Chart = forecastChart(rows)
	view.Table = forecastTable(rows)
	return view, nil
}

// Rain returns the rain probability page
func (s *DashboardService) Rain(ctx context.Context, city domain.City) (view domain.RainView, err error) {
	defer guard("rain", &err)

	rows, err := s.rainRows(ctx, city)
	if err != nil {
		return domain.RainView{}, err
	}

	view = domain.RainView{City: city}
	if len(rows) == 0 {
		msg := "No rain probability data for today."
		view.Status = domain.NoData(msg)
		view.Headline = card("rain_probability", "Rain probability", domain.NA, "%", "%.1f%%")
		view.Gauge = rainGauge(nil)
		view.Table = emptyTable(msg)
		return view, nil
	}

	first := rows[0]
	pct := Percent(first.Probability)
	view.Headline = card("rain_probability", "Rain probability", pct, "%", "%.1f%%")
	if pct.Valid {
		band := RainBand(pct.Value)
		view.Band = &band
		view.Headline.Delta = fmt.Sprintf("%.1f%% vs %.0f%% threshold", pct.Value-RainThreshold, RainThreshold)
		view.Headline.DeltaColor = band.DeltaColor
	}
	view.Gauge = rainGauge(rows)

	details := &domain.RainDetails{
		ForecastDate: first.ForecastDate.Format(rainDateLayout),
		ModelRunTime: first.ModelRunTime.Format(modelRunTimeLayout),
		Location:     first.Location,
		Probability:  formatFloat(pct, "%.2f%%"),
	}
	if rain, ok := first.WillRain(); ok {
		details.Label = "No rain"
		if rain {
			details.Label = "Rain"
		}
	}
	view.Details = details

	if len(rows) > 1 {
		view.Table = rainTable(rows)
	} else {
		view.Table = emptyTable("")
	}
	return view, nil
}

// Comparison returns the predicted-vs-actual page with accuracy metrics
func (s *DashboardService) Comparison(ctx context.Context, city domain.City, days int) (view domain.ComparisonView, err error) {
	defer guard("comparison", &err)

	q, err := s.catalog.TemperatureComparison(city.Key, days)
	if err != nil {
		return domain.ComparisonView{}, err
	}
	t, err := s.fetch(ctx, q)
	if err != nil {
		return domain.ComparisonView{}, err
	}

	rows := s.norm.Comparison(t)
	view = domain.ComparisonView{City: city, Days: days}
	if len(rows) == 0 {
		msg := "No data to compare for this city."
		view.Status = domain.NoData(msg)
		view.Metrics.Status = domain.NoData(msg)
		view.Chart = comparisonChart(nil)
		view.Table = emptyTable(msg)
		return view, nil
	}

	view.Metrics = domain.Panel{Cards: []domain.MetricCard{
		countCard("points", "Data points", len(rows)),
		card("mae", "MAE (mean absolute error)", MAE(rows), "°C", "%.2f°C"),
		card("rmse", "RMSE", RMSE(rows), "°C", "%.2f°C"),
	}}
	view.Chart = comparisonChart(rows)
	view.Table = comparisonTable(rows)
	return view, nil
}

func (s *DashboardService) fetch(ctx context.Context, q domain.Query) (*domain.Table, error) {
	t, err := s.source.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %s: %w", q.ID, err)
	}
	return t, nil
}

// forecastRows returns at most ForecastHorizon latest-run rows, ascending
func (s *DashboardService) forecastRows(ctx context.Context, city domain.City) ([]domain.ForecastRow, error) {
	q, err := s.catalog.TemperatureForecast(city.Key)
	if err != nil {
		return nil, err
	}
	t, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := sortForecast(LatestRun(s.norm.Forecast(t)))
	if len(rows) > ForecastHorizon {
		rows = rows[:ForecastHorizon]
	}
	return rows, nil
}

// rainRows returns at most RainOutlookDays latest-run rows, ascending
func (s *DashboardService) rainRows(ctx context.Context, city domain.City) ([]domain.RainRow, error) {
	q, err := s.catalog.RainProbability(city.Key)
	if err != nil {
		return nil, err
	}
	t, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	rows := sortRain(LatestRainRun(s.norm.Rain(t)))
	if len(rows) > RainOutlookDays {
		rows = rows[:RainOutlookDays]
	}
	return rows, nil
}

func (s *DashboardService) dailyCards(t *domain.Table) domain.Panel {
	if t.Empty() {
		return domain.Panel{Status: domain.NoData("No daily data for this city.")}
	}

	cards := []domain.MetricCard{
		card("temperature_mean", "Avg temperature", Mean(s.norm.Series(t, domain.ColDateRecord, domain.DailyTemperatureMean)), "°C", "%.1f°C"),
		card("temperature_max", "Highest temperature", Max(s.norm.Series(t, domain.ColDateRecord, domain.DailyTemperatureMax)), "°C", "%.1f°C"),
		card("rain_total", "Total rainfall", Sum(s.norm.Series(t, domain.ColDateRecord, domain.DailyRain)), "mm", "%.1f mm"),
	}
	humidity := s.norm.Series(t, domain.ColDateRecord, domain.DailyHumidity)
	if humidity.Available() {
		cards = append(cards, card("humidity_mean", "Avg humidity", Mean(humidity), "%", "%.0f%%"))
	} else {
		cards = append(cards, countCard("days", "Days", t.Len()))
	}
	return domain.Panel{Cards: cards}
}

func (s *DashboardService) observationChart(t *domain.Table, q domain.Quantity, title, xTitle string, limit int) domain.LineChart {
	series := s.norm.Series(t, domain.ColDateRecord, q)
	if !series.Available() {
		return emptyChart(title, "No suitable temperature column found in the data.")
	}
	if !t.Has(domain.ColDateRecord) {
		return emptyChart(title, "No time column found in the data.")
	}

	points := SortPoints(series.Points)
	if limit > 0 && len(points) > limit {
		points = points[:limit]
	}
	chart := domain.LineChart{
		Title:  title,
		XTitle: xTitle,
		YTitle: "Temperature (°C)",
		Series: []domain.ChartSeries{{
			Name:   series.Column,
			Points: chartPoints(points),
		}},
	}
	if len(points) == 0 {
		chart.Status = domain.NoData("No data for this city.")
	}
	return chart
}

func predictedSeries(rows []domain.ForecastRow) domain.Series {
	s := domain.Series{
		Quantity: domain.PredictedTemperature.Name,
		Column:   domain.ColPredictedTemp,
		Points:   make([]domain.Point, 0, len(rows)),
	}
	for _, r := range rows {
		s.Points = append(s.Points, domain.Point{At: r.ForecastTime, Value: r.Predicted})
	}
	return s
}

func forecastChart(rows []domain.ForecastRow) domain.LineChart {
	title := "Temperature forecast, next 24 hours"
	if len(rows) == 0 {
		return emptyChart(title, "No forecast data.")
	}
	chart := domain.LineChart{
		Title:  title,
		XTitle: "Time (UTC+7)",
		YTitle: "Temperature (°C)",
		Series: []domain.ChartSeries{{
			Name:   "Predicted temperature",
			Color:  "#FF6B6B",
			Points: chartPoints(predictedSeries(rows).Points),
		}},
	}
	return chart
}

var gaugeSteps = []domain.GaugeStep{
	{From: 0, To: 30, Color: "lightgray"},
	{From: 30, To: 50, Color: "gray"},
	{From: 50, To: 70, Color: "lightgray"},
	{From: 70, To: 100, Color: "gray"},
}

func rainGauge(rows []domain.RainRow) domain.Gauge {
	g := domain.Gauge{
		Title:     "Rain probability",
		Reference: RainThreshold,
		Threshold: RainThreshold,
		Max:       100,
		Steps:     gaugeSteps,
	}
	if len(rows) == 0 {
		g.Status = domain.NoData("No rain probability data.")
		return g
	}

	first := rows[0]
	pct := Percent(first.Probability)
	if date := first.ForecastDate.Format(rainDateLayout); date != "" {
		g.Title = fmt.Sprintf("Rain probability (%s)", date)
	}
	if !pct.Valid {
		g.Status = domain.NoData("Rain probability is unavailable.")
		return g
	}
	band := RainBand(pct.Value)
	g.Value = domain.Some(utils.Clamp(pct.Value, 0, 100))
	g.Subtitle = band.Label
	g.Color = band.Color
	return g
}

func rainTable(rows []domain.RainRow) domain.DataTable {
	t := domain.DataTable{
		Columns: []string{
			domain.ColForecastDate + domain.DisplayColumnSuffix,
			domain.ColRainProbability,
			domain.ColRainLabel,
			domain.ColLocationAlias,
		},
		Rows: make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			nullable(r.ForecastDate.Format(rainDateLayout)),
			formatNullable(Percent(r.Probability), "%.2f%%"),
			r.Label,
			r.Location,
		})
	}
	return t
}

func forecastTable(rows []domain.ForecastRow) domain.DataTable {
	t := domain.DataTable{
		Columns: []string{
			domain.ColForecastTime,
			domain.ColForecastTime + domain.DisplayColumnSuffix,
			domain.ColPredictedTemp,
			domain.ColLocationAlias,
			domain.ColModelRunTime,
			domain.ColModelRunTime + domain.DisplayColumnSuffix,
		},
		Rows: make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.ForecastTime,
			nullable(r.ForecastTime.Display()),
			r.Predicted,
			r.Location,
			r.ModelRunTime,
			nullable(r.ModelRunTime.Display()),
		})
	}
	return t
}

func comparisonChart(rows []domain.ComparisonRow) domain.LineChart {
	title := "Predicted vs actual temperature"
	if len(rows) == 0 {
		return emptyChart(title, "No data to compare.")
	}

	predicted := make([]domain.Point, 0, len(rows))
	actual := make([]domain.Point, 0, len(rows))
	for _, r := range rows {
		predicted = append(predicted, domain.Point{At: r.At, Value: r.Predicted})
		actual = append(actual, domain.Point{At: r.At, Value: r.Actual})
	}
	return domain.LineChart{
		Title:  title,
		XTitle: "Time (UTC+7)",
		YTitle: "Temperature (°C)",
		Series: []domain.ChartSeries{
			{Name: "Predicted temperature", Color: "#4A90E2", Dash: "dash", Points: chartPoints(SortPoints(predicted))},
			{Name: "Actual temperature", Color: "#FF6B6B", Points: chartPoints(SortPoints(actual))},
		},
	}
}

func comparisonTable(rows []domain.ComparisonRow) domain.DataTable {
	t := domain.DataTable{
		Columns: []string{
			domain.ColComparisonDate,
			domain.ColComparisonDate + domain.DisplayColumnSuffix,
			domain.ColPredictedTemp,
			domain.ColActualTemp,
			domain.ColLocationAlias,
		},
		Rows: make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.At, nullable(r.At.Display()), r.Predicted, r.Actual, r.Location})
	}
	return t
}

func chartPoints(points []domain.Point) []domain.ChartPoint {
	out := make([]domain.ChartPoint, 0, len(points))
	for _, p := range points {
		out = append(out, domain.ChartPoint{Time: p.At, Label: p.At.Display(), Value: p.Value})
	}
	return out
}

func card(key, label string, v domain.Float, unit, format string) domain.MetricCard {
	return domain.MetricCard{
		Key:     key,
		Label:   label,
		Value:   v,
		Unit:    unit,
		Display: formatFloat(v, format),
	}
}

func countCard(key, label string, n int) domain.MetricCard {
	return domain.MetricCard{
		Key:     key,
		Label:   label,
		Value:   domain.Some(float64(n)),
		Display: strconv.Itoa(n),
	}
}

func formatFloat(v domain.Float, format string) string {
	if !v.Valid {
		return notAvailable
	}
	return fmt.Sprintf(format, v.Value)
}

func formatNullable(v domain.Float, format string) any {
	if !v.Valid {
		return nil
	}
	return fmt.Sprintf(format, v.Value)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func emptyChart(title, message string) domain.LineChart {
	return domain.LineChart{
		Status: domain.NoData(message),
		Title:  title,
		Series: []domain.ChartSeries{},
	}
}

func emptyTable(message string) domain.DataTable {
	return domain.DataTable{
		Status:  domain.NoData(message),
		Columns: []string{},
		Rows:    [][]any{},
	}
}

// guard converts a panic inside view assembly into a single view error
func guard(view string, err *error) {
	if r := recover(); r != nil {
		log.Errorw("dashboard view panicked", "view", view, "panic", r)
		*err = fmt.Errorf("dashboard: %s: %w", view, domain.ErrRender)
	}
}
