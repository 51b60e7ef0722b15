package domain

// ForecastRow is one hourly temperature prediction produced by one model run.
type ForecastRow struct {
	Location     string    `json:"location"`
	ForecastTime Timestamp `json:"forecast_time"`
	ModelRunTime Timestamp `json:"model_run_time"`
	Predicted    Float     `json:"predicted_temperature"`
}

// RainRow is one daily rain prediction. Probability is the 0-1 fraction as
// stored in the warehouse; percentages are derived only for display.
type RainRow struct {
	Location     string    `json:"location"`
	ForecastDate Timestamp `json:"forecast_date"`
	ModelRunTime Timestamp `json:"model_run_time"`
	Probability  Float     `json:"rain_probability"`
	Label        Float     `json:"rain_label"`
}

// WillRain reports the model's binary label. ok is false when the label is
// missing.
func (r RainRow) WillRain() (rain bool, ok bool) {
	if !r.Label.Valid {
		return false, false
	}
	return r.Label.Value == 1, true
}

// ComparisonRow pairs a latest-run prediction with the observation for the
// same instant and location. Both sides are always present.
type ComparisonRow struct {
	Location  string    `json:"location"`
	At        Timestamp `json:"date"`
	Predicted Float     `json:"predicted_temperature"`
	Actual    Float     `json:"actual_temperature"`
}

// RainBand classifies a rain probability percentage
type RainBand struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Color      string `json:"color"`
	Advice     string `json:"advice"`
	Severity   string `json:"severity"`
	DeltaColor string `json:"delta_color"`
}

// Rain band keys
const (
	RainLow      = "low"
	RainPossible = "possible"
	RainHigh     = "high"
	RainVeryHigh = "very_high"
)
