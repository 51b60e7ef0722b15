package domain

import (
	"context"
	"fmt"
	"strings"
)

// Row is one result row keyed by column name
type Row map[string]any

// Table is a raw tabular result as returned by the warehouse. Cells hold
// driver values: float64, int64, string, bool, time.Time (zone-aware),
// NaiveTime (zone-less) or nil.
//
// Tables handed out by the result cache are shared between requests and
// must be treated as read-only.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given columns
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns, Rows: []Row{}}
}

// Append adds a row whose values follow Columns order
func (t *Table) Append(values ...any) {
	row := make(Row, len(t.Columns))
	for i, col := range t.Columns {
		if i < len(values) {
			row[col] = values[i]
		} else {
			row[col] = nil
		}
	}
	t.Rows = append(t.Rows, row)
}

// Len returns the row count; a nil table has none
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the result has no rows
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Has reports whether the result carries the column
func (t *Table) Has(column string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// QueryID names one of the catalog queries
type QueryID string

const (
	QueryDailyObservations     QueryID = "daily_observations"
	QueryHourlyObservations    QueryID = "hourly_observations"
	QueryTemperatureForecast   QueryID = "temperature_forecast_24h"
	QueryRainProbability       QueryID = "rain_probability"
	QueryTemperatureComparison QueryID = "temperature_comparison"
)

// Query is a fully resolved, parameterized read-only warehouse query.
// Values only ever travel in Args; SQL holds positional placeholders.
type Query struct {
	ID       QueryID
	SQL      string
	Args     []any
	Location LocationKey
	Limit    int
}

// Key identifies the query and its resolved parameters for caching
func (q Query) Key() string {
	var b strings.Builder
	b.WriteString(string(q.ID))
	for _, arg := range q.Args {
		b.WriteByte('|')
		fmt.Fprint(&b, arg)
	}
	return b.String()
}

// Warehouse is the external query engine. Each call acquires its own
// connection and releases it before returning.
type Warehouse interface {
	// Query runs one catalog query. An empty result is a non-nil empty table.
	Query(ctx context.Context, q Query) (*Table, error)

	// Health checks warehouse connectivity
	Health(ctx context.Context) error
}
