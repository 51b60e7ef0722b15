package service

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/smartcity/vnweather/internal/domain"
	"github.com/smartcity/vnweather/pkg/utils"
)

// Mean of the present values. Unavailable when the quantity is missing from
// the source or has no values.
func Mean(s domain.Series) domain.Float {
	xs, ok := values(s)
	if !ok {
		return domain.NA
	}
	return domain.Some(stat.Mean(xs, nil))
}

// Max of the present values
func Max(s domain.Series) domain.Float {
	xs, ok := values(s)
	if !ok {
		return domain.NA
	}
	return domain.Some(floats.Max(xs))
}

// Min of the present values
func Min(s domain.Series) domain.Float {
	xs, ok := values(s)
	if !ok {
		return domain.NA
	}
	return domain.Some(floats.Min(xs))
}

// Sum of the present values
func Sum(s domain.Series) domain.Float {
	xs, ok := values(s)
	if !ok {
		return domain.NA
	}
	return domain.Some(floats.Sum(xs))
}

func values(s domain.Series) ([]float64, bool) {
	if !s.Available() {
		return nil, false
	}
	xs := s.Values()
	return xs, len(xs) > 0
}

// MAE is mean(|predicted - actual|); unavailable on an empty comparison.
func MAE(rows []domain.ComparisonRow) domain.Float {
	diffs := errorsOf(rows)
	if len(diffs) == 0 {
		return domain.NA
	}
	for i, d := range diffs {
		diffs[i] = math.Abs(d)
	}
	return domain.Some(stat.Mean(diffs, nil))
}

// RMSE is sqrt(mean((predicted - actual)^2)); unavailable on an empty
// comparison.
func RMSE(rows []domain.ComparisonRow) domain.Float {
	diffs := errorsOf(rows)
	if len(diffs) == 0 {
		return domain.NA
	}
	for i, d := range diffs {
		diffs[i] = d * d
	}
	return domain.Some(math.Sqrt(stat.Mean(diffs, nil)))
}

func errorsOf(rows []domain.ComparisonRow) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Predicted.Valid && r.Actual.Valid {
			out = append(out, r.Predicted.Value-r.Actual.Value)
		}
	}
	return out
}

// Percent scales a 0-1 fraction to 0-100 for display
func Percent(fraction domain.Float) domain.Float {
	if !fraction.Valid {
		return domain.NA
	}
	return domain.Some(utils.RoundTo(fraction.Value*100, 6))
}

// RainThreshold is the reference line drawn on the rain gauge
const RainThreshold = 50.0

// RainBand classifies a 0-100 rain probability with half-open bands:
// [0,30) low, [30,50) possible, [50,70) high, [70,100] very high.
func RainBand(pct float64) domain.RainBand {
	switch {
	case pct < 30:
		return domain.RainBand{
			Key:        domain.RainLow,
			Label:      "Unlikely to rain",
			Color:      "#4ECDC4",
			Advice:     "Dry weather expected",
			Severity:   "info",
			DeltaColor: "inverse",
		}
	case pct < 50:
		return domain.RainBand{
			Key:        domain.RainPossible,
			Label:      "Rain possible",
			Color:      "#FFD93D",
			Advice:     "Consider bringing an umbrella",
			Severity:   "warning",
			DeltaColor: "off",
		}
	case pct < 70:
		return domain.RainBand{
			Key:        domain.RainHigh,
			Label:      "Rain likely",
			Color:      "#FFA07A",
			Advice:     "Bring an umbrella",
			Severity:   "warning",
			DeltaColor: "normal",
		}
	default:
		return domain.RainBand{
			Key:        domain.RainVeryHigh,
			Label:      "Rain very likely",
			Color:      "#FF6B6B",
			Advice:     "Don't forget your umbrella!",
			Severity:   "error",
			DeltaColor: "normal",
		}
	}
}
