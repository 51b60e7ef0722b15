package warehouse

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/smartcity/vnweather/internal/domain"
	"github.com/smartcity/vnweather/pkg/utils"
)

// DemoWarehouse implements domain.Warehouse with deterministic synthetic
// data for running without credentials. Like the real tables, forecast
// results carry rows from a superseded model run next to the latest one.
type DemoWarehouse struct {
	now func() time.Time
}

// NewDemo creates a demo warehouse; a nil clock means time.Now
func NewDemo(now func() time.Time) *DemoWarehouse {
	if now == nil {
		now = time.Now
	}
	return &DemoWarehouse{now: now}
}

// Demo model runs, relative to the current hour
const (
	demoLatestRun     = -1 * time.Hour
	demoSupersededRun = -7 * time.Hour
)

// Query answers a catalog query from generated rows
func (d *DemoWarehouse) Query(ctx context.Context, q domain.Query) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("warehouse: demo: %w: %v", domain.ErrWarehouseUnavailable, err)
	}
	loc := string(q.Location)
	if loc == "" || q.Limit <= 0 {
		return domain.NewTable(), nil
	}
	now := d.now().UTC().Truncate(time.Hour)

	switch q.ID {
	case domain.QueryDailyObservations:
		return d.daily(loc, now, q.Limit), nil
	case domain.QueryHourlyObservations:
		return d.hourly(loc, now, q.Limit), nil
	case domain.QueryTemperatureForecast:
		return d.forecast(loc, now, q.Limit), nil
	case domain.QueryRainProbability:
		return d.rain(loc, now, q.Limit), nil
	case domain.QueryTemperatureComparison:
		return d.comparison(loc, now, q.Limit), nil
	}
	return nil, fmt.Errorf("warehouse: demo: %w: unsupported query %q", domain.ErrQueryFailed, q.ID)
}

// Health always succeeds in demo mode
func (d *DemoWarehouse) Health(ctx context.Context) error {
	return nil
}

func (d *DemoWarehouse) daily(loc string, now time.Time, limit int) *domain.Table {
	t := domain.NewTable(
		domain.ColLocation,
		domain.ColDateRecord,
		domain.ColTemperatureMean,
		domain.ColTemperatureMax,
		domain.ColTemperatureMin,
		domain.ColRainSum,
		domain.ColHumidityMean,
	)
	today := localDate(now)
	for i := 1; i <= limit; i++ {
		day := today.AddDate(0, 0, -i)
		mean := d.temperature(loc, day.Add(12*time.Hour)) - 2
		t.Append(
			loc,
			domain.NaiveTime{Wall: day},
			utils.RoundTo(mean, 2),
			utils.RoundTo(mean+4.5, 2),
			utils.RoundTo(mean-4, 2),
			utils.RoundTo(math.Max(0, 12*d.wave(loc, day, 3)), 1),
			utils.RoundTo(75+10*d.wave(loc, day, 5), 1),
		)
	}
	return t
}

func (d *DemoWarehouse) hourly(loc string, now time.Time, limit int) *domain.Table {
	t := domain.NewTable(
		domain.ColLocation,
		domain.ColDateRecord,
		domain.ColTemperature,
		domain.ColRelativeHumidity,
		domain.ColWindSpeed10m,
	)
	for i := 0; i < limit; i++ {
		at := now.Add(-time.Duration(i) * time.Hour)
		t.Append(
			loc,
			domain.NaiveTime{Wall: at},
			d.temperature(loc, at),
			utils.RoundTo(78-8*d.wave(loc, at, 24), 1),
			utils.RoundTo(9+4*d.wave(loc, at, 7), 1),
		)
	}
	return t
}

func (d *DemoWarehouse) forecast(loc string, now time.Time, limit int) *domain.Table {
	t := domain.NewTable(
		domain.ColForecastTime,
		domain.ColPredictedTemp,
		domain.ColLocationAlias,
		domain.ColModelRunTime,
	)
	latest, superseded := now.Add(demoLatestRun), now.Add(demoSupersededRun)
	for i := 1; i <= limit; i++ {
		at := now.Add(time.Duration(i) * time.Hour)
		t.Append(at, d.predicted(loc, at)+0.8, loc, superseded)
		t.Append(at, d.predicted(loc, at), loc, latest)
	}
	return t
}

func (d *DemoWarehouse) rain(loc string, now time.Time, limit int) *domain.Table {
	t := domain.NewTable(
		domain.ColForecastDate,
		domain.ColRainProbability,
		domain.ColRainLabel,
		domain.ColLocationAlias,
		domain.ColModelRunTime,
	)
	latest, superseded := now.Add(demoLatestRun), now.Add(-24*time.Hour)
	today := localDate(now)
	for i := 0; i < limit; i++ {
		day := today.AddDate(0, 0, i)
		p := utils.RoundTo(utils.Clamp(0.5+0.45*d.wave(loc, day, 4), 0, 1), 4)
		t.Append(domain.NaiveTime{Wall: day}, utils.Clamp(p-0.1, 0, 1), rainLabel(p-0.1), loc, superseded)
		t.Append(domain.NaiveTime{Wall: day}, p, rainLabel(p), loc, latest)
	}
	return t
}

func (d *DemoWarehouse) comparison(loc string, now time.Time, limit int) *domain.Table {
	t := domain.NewTable(
		domain.ColComparisonDate,
		domain.ColPredictedTemp,
		domain.ColActualTemp,
		domain.ColLocationAlias,
	)
	for i := 0; i < limit; i++ {
		at := now.Add(-time.Duration(i) * time.Hour)
		t.Append(at, d.predicted(loc, at), d.temperature(loc, at), loc)
	}
	return t
}

// temperature is a diurnal curve peaking mid-afternoon in the display zone
func (d *DemoWarehouse) temperature(loc string, at time.Time) float64 {
	base := 24 + float64(seed(loc)%6)
	hour := float64(at.In(domain.DisplayZone).Hour())
	return utils.RoundTo(base+4*math.Sin(2*math.Pi*(hour-9)/24), 2)
}

func (d *DemoWarehouse) predicted(loc string, at time.Time) float64 {
	return utils.RoundTo(d.temperature(loc, at)+0.9*d.wave(loc, at, 5), 2)
}

// wave is a deterministic value in [-1, 1]
func (d *DemoWarehouse) wave(loc string, at time.Time, period float64) float64 {
	phase := float64(seed(loc)%97) / 97 * 2 * math.Pi
	return math.Sin(phase + 2*math.Pi*float64(at.Unix()/3600)/(period*24))
}

func seed(loc string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(loc))
	return h.Sum32()
}

// localDate is midnight of the display-zone calendar day of t, expressed as
// a UTC wall clock the way the warehouse stores dates
func localDate(t time.Time) time.Time {
	y, m, day := t.In(domain.DisplayZone).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func rainLabel(p float64) int64 {
	if p >= 0.5 {
		return 1
	}
	return 0
}
