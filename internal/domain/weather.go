package domain

import (
	"encoding/json"
	"math"
	"time"
)

// DisplayZone is the fixed UTC+7 offset every rendered timestamp uses,
// regardless of where the service is deployed.
var DisplayZone = time.FixedZone("UTC+7", 7*60*60)

// DisplayZoneName is the IANA name handed to the warehouse when a query has
// to evaluate "today" in the display zone. It has no DST, so it always
// agrees with DisplayZone.
const DisplayZoneName = "Asia/Ho_Chi_Minh"

// DisplayLayout is the chart/table label format
const DisplayLayout = "2006-01-02 15:04"

// Float is a nullable numeric reading. An invalid Float means the value is
// not available and serializes as JSON null.
type Float struct {
	Value float64
	Valid bool
}

// Some wraps a present value
func Some(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{Value: v, Valid: true}
}

// NA is the "not available" value
var NA = Float{}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// NaiveTime is a wall-clock timestamp read from a column that carries no
// zone information. The zone of Wall is meaningless; the normalization layer
// decides which zone the reading belongs to.
type NaiveTime struct {
	Wall time.Time
}

// In interprets the wall clock in loc
func (n NaiveTime) In(loc *time.Location) time.Time {
	w := n.Wall
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
}

// Timestamp is a normalized, zone-aware instant. Instant is always kept in
// UTC; the display-zone rendering is derived from it and never replaces it.
type Timestamp struct {
	Instant time.Time
	Valid   bool
}

// NewTimestamp tags t as a valid instant
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Instant: t.UTC(), Valid: true}
}

// Local returns the instant in the display zone
func (t Timestamp) Local() time.Time {
	return t.Instant.In(DisplayZone)
}

// Display renders the instant in the display zone, or "" when missing.
func (t Timestamp) Display() string {
	return t.Format(DisplayLayout)
}

// Format renders the instant in the display zone with a custom layout.
func (t Timestamp) Format(layout string) string {
	if !t.Valid {
		return ""
	}
	return t.Local().Format(layout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Instant.Format(time.RFC3339Nano))
}

// Point is one sample of a time-indexed series
type Point struct {
	At    Timestamp `json:"time"`
	Value Float     `json:"value"`
}

// Series is a normalized single-quantity time series. Column holds the
// physical column the quantity was resolved to; it is empty when none of the
// candidate columns exist in the source table.
type Series struct {
	Quantity string  `json:"quantity"`
	Column   string  `json:"column,omitempty"`
	Points   []Point `json:"points"`
}

// Available reports whether the quantity was found in the source
func (s Series) Available() bool {
	return s.Column != ""
}

// Empty reports whether the series carries no samples at all
func (s Series) Empty() bool {
	return len(s.Points) == 0
}

// Values returns the present values in series order
func (s Series) Values() []float64 {
	out := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Value.Valid {
			out = append(out, p.Value.Value)
		}
	}
	return out
}
