package service

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smartcity/vnweather/internal/domain"
)

// Layouts for text timestamps. Zone-aware layouts are tried first.
var (
	awareLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999-07",
	}
	naiveLayouts = []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// Columns treated as timestamps even when every cell is null or text
var knownTimeColumns = map[string]bool{
	domain.ColDateRecord:      true,
	domain.ColForecastTime:    true,
	domain.ColForecastDate:    true,
	domain.ColModelRunTime:    true,
	domain.ColComparisonDate:  true,
	domain.ColForecastTimeRaw: true,
	domain.ColForecastDateRaw: true,
	domain.ColModelRunTimeRaw: true,
}

// Normalizer turns raw warehouse tables into display-ready series.
//
// Timestamps that carry no zone are interpreted in the naive zone, which is
// UTC unless configured otherwise; they are never taken as server-local
// time. Every instant is kept in UTC and rendered in domain.DisplayZone.
type Normalizer struct {
	naive *time.Location
}

// NewNormalizer creates a normalizer. A nil zone means UTC.
func NewNormalizer(naive *time.Location) *Normalizer {
	if naive == nil {
		naive = time.UTC
	}
	return &Normalizer{naive: naive}
}

// Timestamp coerces a raw cell into an instant. Anything unparseable yields
// an invalid Timestamp instead of an error.
func (n *Normalizer) Timestamp(v any) domain.Timestamp {
	switch x := v.(type) {
	case nil:
		return domain.Timestamp{}
	case time.Time:
		if x.IsZero() {
			return domain.Timestamp{}
		}
		return domain.NewTimestamp(x)
	case domain.NaiveTime:
		if x.Wall.IsZero() {
			return domain.Timestamp{}
		}
		return domain.NewTimestamp(x.In(n.naive))
	case string:
		return n.parseTimestamp(x)
	case []byte:
		return n.parseTimestamp(string(x))
	case int64:
		return domain.NewTimestamp(time.Unix(x, 0))
	case int:
		return domain.NewTimestamp(time.Unix(int64(x), 0))
	case int32:
		return domain.NewTimestamp(time.Unix(int64(x), 0))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return domain.Timestamp{}
		}
		sec, frac := math.Modf(x)
		return domain.NewTimestamp(time.Unix(int64(sec), int64(frac*1e9)))
	}
	return domain.Timestamp{}
}

func (n *Normalizer) parseTimestamp(s string) domain.Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Timestamp{}
	}
	for _, layout := range awareLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.NewTimestamp(t)
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, n.naive); err == nil {
			return domain.NewTimestamp(t)
		}
	}
	return domain.Timestamp{}
}

// Number coerces a raw cell into a nullable float
func Number(v any) domain.Float {
	switch x := v.(type) {
	case nil:
		return domain.NA
	case float64:
		return domain.Some(x)
	case float32:
		return domain.Some(float64(x))
	case int:
		return domain.Some(float64(x))
	case int8:
		return domain.Some(float64(x))
	case int16:
		return domain.Some(float64(x))
	case int32:
		return domain.Some(float64(x))
	case int64:
		return domain.Some(float64(x))
	case uint8:
		return domain.Some(float64(x))
	case uint16:
		return domain.Some(float64(x))
	case uint32:
		return domain.Some(float64(x))
	case uint64:
		return domain.Some(float64(x))
	case bool:
		if x {
			return domain.Some(1)
		}
		return domain.Some(0)
	case string:
		return parseNumber(x)
	case []byte:
		return parseNumber(string(x))
	}
	return domain.NA
}

func parseNumber(s string) domain.Float {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return domain.NA
	}
	return domain.Some(f)
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case nil:
		return ""
	}
	return ""
}

// Resolve picks the first candidate column of q present in t
func Resolve(t *domain.Table, q domain.Quantity) (string, bool) {
	for _, c := range q.Candidates {
		if t.Has(c) {
			return c, true
		}
	}
	return "", false
}

// Series extracts one quantity indexed by timeCol. The quantity's column is
// resolved once for the whole table. A row is dropped only when both its
// timestamp and its value are missing.
func (n *Normalizer) Series(t *domain.Table, timeCol string, q domain.Quantity) domain.Series {
	s := domain.Series{Quantity: q.Name}
	col, ok := Resolve(t, q)
	if !ok {
		return s
	}
	s.Column = col
	s.Points = make([]domain.Point, 0, t.Len())
	for _, row := range rows(t) {
		p := domain.Point{At: n.Timestamp(row[timeCol]), Value: Number(row[col])}
		if !p.At.Valid && !p.Value.Valid {
			continue
		}
		s.Points = append(s.Points, p)
	}
	return s
}

// Forecast decodes the 24h forecast result
func (n *Normalizer) Forecast(t *domain.Table) []domain.ForecastRow {
	out := make([]domain.ForecastRow, 0, t.Len())
	for _, row := range rows(t) {
		r := domain.ForecastRow{
			Location:     text(row[domain.ColLocationAlias]),
			ForecastTime: n.Timestamp(row[domain.ColForecastTime]),
			ModelRunTime: n.Timestamp(row[domain.ColModelRunTime]),
			Predicted:    Number(row[domain.ColPredictedTemp]),
		}
		if !r.ForecastTime.Valid && !r.Predicted.Valid {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Rain decodes the rain probability result. Probabilities stay fractions.
func (n *Normalizer) Rain(t *domain.Table) []domain.RainRow {
	out := make([]domain.RainRow, 0, t.Len())
	for _, row := range rows(t) {
		r := domain.RainRow{
			Location:     text(row[domain.ColLocationAlias]),
			ForecastDate: n.Timestamp(row[domain.ColForecastDate]),
			ModelRunTime: n.Timestamp(row[domain.ColModelRunTime]),
			Probability:  Number(row[domain.ColRainProbability]),
			Label:        Number(row[domain.ColRainLabel]),
		}
		if !r.ForecastDate.Valid && !r.Probability.Valid {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Comparison decodes the predicted-vs-actual result. Pairs missing either
// side are dropped, never filled.
func (n *Normalizer) Comparison(t *domain.Table) []domain.ComparisonRow {
	out := make([]domain.ComparisonRow, 0, t.Len())
	for _, row := range rows(t) {
		r := domain.ComparisonRow{
			Location:  text(row[domain.ColLocationAlias]),
			At:        n.Timestamp(row[domain.ColComparisonDate]),
			Predicted: Number(row[domain.ColPredictedTemp]),
			Actual:    Number(row[domain.ColActualTemp]),
		}
		if !r.Predicted.Valid || !r.Actual.Valid {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Frame renders a raw table for display. Raw cells are kept; every
// timestamp column c gains a c_vn column in the display zone. maxRows <= 0
// keeps all rows.
func (n *Normalizer) Frame(t *domain.Table, maxRows int) domain.DataTable {
	if t.Empty() {
		return domain.DataTable{Columns: columns(t), Rows: [][]any{}}
	}

	temporal := make([]bool, len(t.Columns))
	var extra []int
	for i, c := range t.Columns {
		if isTemporal(t, c) {
			temporal[i] = true
			extra = append(extra, i)
		}
	}

	cols := make([]string, 0, len(t.Columns)+len(extra))
	cols = append(cols, t.Columns...)
	for _, i := range extra {
		cols = append(cols, t.Columns[i]+domain.DisplayColumnSuffix)
	}

	count := len(t.Rows)
	if maxRows > 0 && maxRows < count {
		count = maxRows
	}
	out := make([][]any, 0, count)
	for _, row := range t.Rows[:count] {
		cells := make([]any, 0, len(cols))
		stamps := make([]domain.Timestamp, 0, len(extra))
		for i, c := range t.Columns {
			if temporal[i] {
				ts := n.Timestamp(row[c])
				stamps = append(stamps, ts)
				cells = append(cells, ts)
				continue
			}
			cells = append(cells, cell(row[c]))
		}
		for _, ts := range stamps {
			if ts.Valid {
				cells = append(cells, ts.Display())
			} else {
				cells = append(cells, nil)
			}
		}
		out = append(out, cells)
	}
	return domain.DataTable{Columns: cols, Rows: out}
}

func isTemporal(t *domain.Table, col string) bool {
	if knownTimeColumns[col] {
		return true
	}
	for _, row := range t.Rows {
		switch row[col].(type) {
		case nil:
			continue
		case time.Time, domain.NaiveTime:
			return true
		default:
			return false
		}
	}
	return false
}

func cell(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case []byte:
		return string(x)
	}
	return v
}

func columns(t *domain.Table) []string {
	if t == nil || t.Columns == nil {
		return []string{}
	}
	return t.Columns
}

func rows(t *domain.Table) []domain.Row {
	if t == nil {
		return nil
	}
	return t.Rows
}

type runKey struct {
	at       int64
	location string
}

// LatestRun keeps, for every (forecast instant, location), only the row from
// the most recent model run. Ties keep the first row seen; a row without a
// valid run time never displaces one that has it. Rows without a valid
// forecast instant cannot be attributed to a target and pass through.
func LatestRun(in []domain.ForecastRow) []domain.ForecastRow {
	out := make([]domain.ForecastRow, 0, len(in))
	index := make(map[runKey]int, len(in))
	for _, r := range in {
		if !r.ForecastTime.Valid {
			out = append(out, r)
			continue
		}
		k := runKey{at: r.ForecastTime.Instant.UnixNano(), location: r.Location}
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, r)
			continue
		}
		if newerRun(r.ModelRunTime, out[i].ModelRunTime) {
			out[i] = r
		}
	}
	return out
}

// LatestRainRun is LatestRun keyed by forecast date
func LatestRainRun(in []domain.RainRow) []domain.RainRow {
	out := make([]domain.RainRow, 0, len(in))
	index := make(map[runKey]int, len(in))
	for _, r := range in {
		if !r.ForecastDate.Valid {
			out = append(out, r)
			continue
		}
		k := runKey{at: r.ForecastDate.Instant.UnixNano(), location: r.Location}
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, r)
			continue
		}
		if newerRun(r.ModelRunTime, out[i].ModelRunTime) {
			out[i] = r
		}
	}
	return out
}

func newerRun(candidate, current domain.Timestamp) bool {
	if !candidate.Valid {
		return false
	}
	if !current.Valid {
		return true
	}
	return candidate.Instant.After(current.Instant)
}

// SortPoints orders points chronologically; missing timestamps sort last.
func SortPoints(points []domain.Point) []domain.Point {
	out := make([]domain.Point, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return before(out[i].At, out[j].At)
	})
	return out
}

func sortForecast(in []domain.ForecastRow) []domain.ForecastRow {
	out := make([]domain.ForecastRow, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return before(out[i].ForecastTime, out[j].ForecastTime)
	})
	return out
}

func sortRain(in []domain.RainRow) []domain.RainRow {
	out := make([]domain.RainRow, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return before(out[i].ForecastDate, out[j].ForecastDate)
	})
	return out
}

func before(a, b domain.Timestamp) bool {
	switch {
	case a.Valid && b.Valid:
		return a.Instant.Before(b.Instant)
	case a.Valid:
		return true
	default:
		return false
	}
}
