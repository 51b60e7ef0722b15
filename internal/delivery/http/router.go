package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// SetupRoutes configures all HTTP routes. metrics may be nil.
func SetupRoutes(app *fiber.App, handler *Handler, metrics http.Handler) {
	// Health checks
	app.Get("/health", handler.HealthCheck)
	app.Get("/health/warehouse", handler.WarehouseHealth)

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	// API v1 routes
	api := app.Group("/api/v1")
	{
		api.Get("/cities", handler.GetCities)
		api.Get("/dashboard", handler.GetDashboard)

		// Observations
		api.Get("/weather/daily", handler.GetDailyWeather)
		api.Get("/weather/hourly", handler.GetHourlyWeather)

		// Model output
		api.Get("/forecast/temperature", handler.GetTemperatureForecast)
		api.Get("/forecast/rain", handler.GetRainForecast)
		api.Get("/forecast/comparison", handler.GetComparison)
	}
}
