package domain

// Warehouse column names
const (
	ColLocation   = "ds_location"
	ColDateRecord = "dt_date_record"

	ColTemperature      = "nr_temperature_2m"
	ColTemperatureMean  = "nr_temperature_2m_mean"
	ColTemperatureMax   = "nr_temperature_2m_max"
	ColTemperatureMin   = "nr_temperature_2m_min"
	ColRainSum          = "nr_rain_sum"
	ColPrecipitationSum = "nr_precipitation_sum"
	ColHumidityMean     = "nr_relative_humidity_2m_mean"
	ColHumidity         = "nr_humidity"
	ColRelativeHumidity = "nr_relative_humidity_2m"
	ColWindSpeed        = "nr_wind_speed"
	ColWindSpeed10m     = "nr_wind_speed_10m"
	ColForecastTimeRaw  = "dt_forecast_time"
	ColForecastDateRaw  = "dt_forecast_date"
	ColModelRunTimeRaw  = "dt_model_run_time"
)

// Column aliases produced by the forecast and comparison queries
const (
	ColForecastTime     = "forecast_time"
	ColForecastDate     = "forecast_date"
	ColModelRunTime     = "model_run_time"
	ColPredictedTemp    = "predicted_temperature"
	ColActualTemp       = "actual_temperature"
	ColRainProbability  = "rain_probability"
	ColRainLabel        = "rain_label"
	ColComparisonDate   = "date"
	ColLocationAlias    = "location"
	DisplayColumnSuffix = "_vn"
)

// Quantity is a semantic measurement that may live under several physical
// column names depending on table granularity. Candidates are tried in order.
type Quantity struct {
	Name       string
	Candidates []string
}

// Daily table quantities
var (
	DailyTemperatureMean = Quantity{Name: "temperature_mean", Candidates: []string{ColTemperatureMean, ColTemperature}}
	DailyTemperatureMax  = Quantity{Name: "temperature_max", Candidates: []string{ColTemperatureMax, ColTemperatureMean, ColTemperature}}
	DailyTemperatureMin  = Quantity{Name: "temperature_min", Candidates: []string{ColTemperatureMin, ColTemperatureMean, ColTemperature}}
	DailyRain            = Quantity{Name: "rain_total", Candidates: []string{ColRainSum, ColPrecipitationSum}}
	DailyHumidity        = Quantity{Name: "humidity_mean", Candidates: []string{ColHumidityMean}}

	// DailyTemperatureTrend picks whatever temperature column the daily
	// table has for the trend chart.
	DailyTemperatureTrend = Quantity{Name: "temperature", Candidates: []string{ColTemperatureMean, ColTemperature, ColTemperatureMax, ColTemperatureMin}}
)

// Hourly table quantities
var (
	HourlyTemperature = Quantity{Name: "temperature", Candidates: []string{ColTemperature}}
	HourlyHumidity    = Quantity{Name: "humidity", Candidates: []string{ColHumidity, ColRelativeHumidity}}
	HourlyWindSpeed   = Quantity{Name: "wind_speed", Candidates: []string{ColWindSpeed, ColWindSpeed10m}}
)

// Forecast quantities
var (
	PredictedTemperature = Quantity{Name: "predicted_temperature", Candidates: []string{ColPredictedTemp}}
)
