package domain

// Status marks a panel that has nothing to show. Empty results are a normal
// state, not an error.
type Status struct {
	Empty   bool   `json:"empty"`
	Message string `json:"message,omitempty"`
}

// NoData builds the "no data" state with a user-facing message
func NoData(message string) Status {
	return Status{Empty: true, Message: message}
}

// MetricCard is a single scalar with its formatted rendering. Display is
// "N/A" when the value is unavailable.
type MetricCard struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Value      Float  `json:"value"`
	Unit       string `json:"unit,omitempty"`
	Display    string `json:"display"`
	Delta      string `json:"delta,omitempty"`
	DeltaColor string `json:"delta_color,omitempty"`
}

// ChartPoint is one x/y pair. Time is the raw instant; Label is the same
// instant in the display zone.
type ChartPoint struct {
	Time  Timestamp `json:"time"`
	Label string    `json:"label"`
	Value Float     `json:"value"`
}

// ChartSeries is one line of a line chart
type ChartSeries struct {
	Name   string       `json:"name"`
	Color  string       `json:"color,omitempty"`
	Dash   string       `json:"dash,omitempty"`
	Points []ChartPoint `json:"points"`
}

// LineChart is a time-indexed chart
type LineChart struct {
	Status
	Title  string        `json:"title"`
	XTitle string        `json:"x_title"`
	YTitle string        `json:"y_title"`
	Series []ChartSeries `json:"series"`
}

// GaugeStep is a shaded range on the gauge dial
type GaugeStep struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
}

// Gauge is a single value with its band
type Gauge struct {
	Status
	Title     string      `json:"title"`
	Subtitle  string      `json:"subtitle,omitempty"`
	Value     Float       `json:"value"`
	Color     string      `json:"color,omitempty"`
	Reference float64     `json:"reference"`
	Threshold float64     `json:"threshold"`
	Max       float64     `json:"max"`
	Steps     []GaugeStep `json:"steps"`
}

// DataTable is a detail table. Rows follow Columns order.
type DataTable struct {
	Status
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Panel groups metric cards
type Panel struct {
	Status
	Cards []MetricCard `json:"cards"`
}

// HomeView is the landing page for one city
type HomeView struct {
	City       City      `json:"city"`
	Forecast   LineChart `json:"forecast"`
	Rain       Gauge     `json:"rain"`
	Overview   Panel     `json:"overview"`
	Comparison LineChart `json:"comparison"`
}

// ObservationView backs both the daily and the hourly pages
type ObservationView struct {
	Status
	City    City      `json:"city"`
	Days    int       `json:"days"`
	Metrics Panel     `json:"metrics"`
	Chart   LineChart `json:"chart"`
	Table   DataTable `json:"table"`
}

// ForecastView is the 24h temperature forecast page
type ForecastView struct {
	Status
	City    City      `json:"city"`
	Metrics Panel     `json:"metrics"`
	Chart   LineChart `json:"chart"`
	Table   DataTable `json:"table"`
}

// RainDetails describes the headline rain prediction
type RainDetails struct {
	ForecastDate string `json:"forecast_date"`
	ModelRunTime string `json:"model_run_time"`
	Location     string `json:"location"`
	Probability  string `json:"probability"`
	Label        string `json:"label,omitempty"`
}

// RainView is the rain probability page
type RainView struct {
	Status
	City     City         `json:"city"`
	Headline MetricCard   `json:"headline"`
	Band     *RainBand    `json:"band,omitempty"`
	Gauge    Gauge        `json:"gauge"`
	Details  *RainDetails `json:"details,omitempty"`
	Table    DataTable    `json:"table"`
}

// ComparisonView is the predicted-vs-actual page
type ComparisonView struct {
	Status
	City    City      `json:"city"`
	Days    int       `json:"days"`
	Metrics Panel     `json:"metrics"`
	Chart   LineChart `json:"chart"`
	Table   DataTable `json:"table"`
}

// CityOptions feeds the city select box
type CityOptions struct {
	Default City   `json:"default"`
	Cities  []City `json:"cities"`
	MinDays int    `json:"min_days"`
	MaxDays int    `json:"max_days"`
}
