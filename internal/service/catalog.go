package service

import (
	"fmt"
	"regexp"
	"time"

	"github.com/smartcity/vnweather/internal/domain"
)

// Day window bounds and fixed result caps
const (
	MinDays         = 1
	MaxDays         = 30
	DefaultDays     = 7
	HomeCompareDays = 3
	ForecastHorizon = 24
	RainOutlookDays = 5
	hoursPerDay     = 24
)

// Warehouse table names, relative to the configured schema
const (
	tableDaily    = "fact_vn_weather_daily"
	tableHourly   = "fact_vn_weather_hourly"
	tableForecast = "lstm_weather_24h"
	tableRain     = "lstm_rain_daily"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Catalog builds the five read-only dashboard queries. Only table names,
// which come from validated configuration, are formatted into SQL text;
// every value is bound through a placeholder.
type Catalog struct {
	daily      string
	hourly     string
	forecast   string
	rain       string
	comparison string

	// zone of the warehouse's zone-less timestamp and date columns
	naiveZone string
}

// NewCatalog prepares the query texts for the given schema. naive is the
// zone assumed for stored timestamps without one; nil means UTC.
func NewCatalog(schema string, naive *time.Location) (*Catalog, error) {
	if !identPattern.MatchString(schema) {
		return nil, fmt.Errorf("catalog: invalid schema identifier %q", schema)
	}
	if naive == nil {
		naive = time.UTC
	}
	qualify := func(table string) string { return schema + "." + table }

	return &Catalog{
		naiveZone:  naive.String(),
		daily:      fmt.Sprintf(observationsSQL, qualify(tableDaily)),
		hourly:     fmt.Sprintf(observationsSQL, qualify(tableHourly)),
		forecast:   fmt.Sprintf(forecastSQL, qualify(tableForecast)),
		rain:       fmt.Sprintf(rainSQL, qualify(tableRain)),
		comparison: fmt.Sprintf(comparisonSQL, qualify(tableForecast), qualify(tableHourly)),
	}, nil
}

const observationsSQL = `
	SELECT *
	FROM %s
	WHERE ds_location = $1
	ORDER BY dt_date_record DESC
	LIMIT $2
`

const forecastSQL = `
	WITH ranked AS (
		SELECT f.*,
			ROW_NUMBER() OVER (
				PARTITION BY f.dt_forecast_time, f.ds_location
				ORDER BY f.dt_model_run_time DESC
			) AS rn
		FROM %s f
		WHERE f.ds_location = $1
	)
	SELECT
		dt_forecast_time AS forecast_time,
		nr_predicted_temperature AS predicted_temperature,
		ds_location AS location,
		dt_model_run_time AS model_run_time
	FROM ranked
	WHERE rn = 1
		AND (CAST(dt_forecast_time AS TIMESTAMP) AT TIME ZONE $2) >= CURRENT_TIMESTAMP
	ORDER BY dt_forecast_time ASC
	LIMIT $3
`

// Forecast dates are wall times in the naive zone ($2); "today" is
// evaluated in the display zone ($3). The TIMESTAMP cast lets DATE columns
// take the same path without an implicit session-zone conversion.
const rainSQL = `
	WITH ranked AS (
		SELECT r.*,
			ROW_NUMBER() OVER (
				PARTITION BY r.dt_forecast_date, r.ds_location
				ORDER BY r.dt_model_run_time DESC
			) AS rn
		FROM %s r
		WHERE r.ds_location = $1
	)
	SELECT
		dt_forecast_date AS forecast_date,
		prediction_probability AS rain_probability,
		prediction_label AS rain_label,
		ds_location AS location,
		dt_model_run_time AS model_run_time
	FROM ranked
	WHERE rn = 1
		AND CAST((CAST(dt_forecast_date AS TIMESTAMP) AT TIME ZONE $2) AT TIME ZONE $3 AS DATE)
			>= CAST(CURRENT_TIMESTAMP AT TIME ZONE $3 AS DATE)
	ORDER BY dt_forecast_date ASC
	LIMIT $4
`

const comparisonSQL = `
	WITH ranked AS (
		SELECT f.*,
			ROW_NUMBER() OVER (
				PARTITION BY f.dt_forecast_time, f.ds_location
				ORDER BY f.dt_model_run_time DESC
			) AS rn
		FROM %s f
		WHERE f.ds_location = $1
	)
	SELECT
		f.dt_forecast_time AS date,
		f.nr_predicted_temperature AS predicted_temperature,
		w.nr_temperature_2m AS actual_temperature,
		w.ds_location AS location
	FROM ranked f
	INNER JOIN %s w
		ON f.dt_forecast_time = w.dt_date_record
		AND f.ds_location = w.ds_location
	WHERE f.rn = 1
		AND w.ds_location = $1
	ORDER BY date DESC
	LIMIT $2
`

// DailyObservations returns the most recent daily rows, one per day
func (c *Catalog) DailyObservations(loc domain.LocationKey, days int) (domain.Query, error) {
	if err := validateWindow(days); err != nil {
		return domain.Query{}, err
	}
	return newQuery(domain.QueryDailyObservations, c.daily, loc, days)
}

// HourlyObservations returns the most recent hourly rows covering days
func (c *Catalog) HourlyObservations(loc domain.LocationKey, days int) (domain.Query, error) {
	if err := validateWindow(days); err != nil {
		return domain.Query{}, err
	}
	return newQuery(domain.QueryHourlyObservations, c.hourly, loc, days*hoursPerDay)
}

// TemperatureForecast returns the latest-run predictions for the next 24 hours
func (c *Catalog) TemperatureForecast(loc domain.LocationKey) (domain.Query, error) {
	if loc == "" {
		return domain.Query{}, fmt.Errorf("catalog: %w: empty location", domain.ErrInvalidQuery)
	}
	return domain.Query{
		ID:       domain.QueryTemperatureForecast,
		SQL:      c.forecast,
		Args:     []any{string(loc), c.naiveZone, ForecastHorizon},
		Location: loc,
		Limit:    ForecastHorizon,
	}, nil
}

// RainProbability returns latest-run daily rain predictions from today on
func (c *Catalog) RainProbability(loc domain.LocationKey) (domain.Query, error) {
	if loc == "" {
		return domain.Query{}, fmt.Errorf("catalog: %w: empty location", domain.ErrInvalidQuery)
	}
	return domain.Query{
		ID:       domain.QueryRainProbability,
		SQL:      c.rain,
		Args:     []any{string(loc), c.naiveZone, domain.DisplayZoneName, RainOutlookDays},
		Location: loc,
		Limit:    RainOutlookDays,
	}, nil
}

// TemperatureComparison returns latest-run predictions joined to observations
func (c *Catalog) TemperatureComparison(loc domain.LocationKey, days int) (domain.Query, error) {
	if err := validateWindow(days); err != nil {
		return domain.Query{}, err
	}
	return newQuery(domain.QueryTemperatureComparison, c.comparison, loc, days*hoursPerDay)
}

func newQuery(id domain.QueryID, sql string, loc domain.LocationKey, limit int) (domain.Query, error) {
	if loc == "" {
		return domain.Query{}, fmt.Errorf("catalog: %w: empty location", domain.ErrInvalidQuery)
	}
	return domain.Query{
		ID:       id,
		SQL:      sql,
		Args:     []any{string(loc), limit},
		Location: loc,
		Limit:    limit,
	}, nil
}

func validateWindow(days int) error {
	if days < MinDays || days > MaxDays {
		return fmt.Errorf("catalog: %w: %d not in [%d, %d]", domain.ErrInvalidWindow, days, MinDays, MaxDays)
	}
	return nil
}
