package http

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/smartcity/vnweather/internal/domain"
	"github.com/smartcity/vnweather/internal/log"
	"github.com/smartcity/vnweather/internal/service"
)

var validate = validator.New()

// Handler contains all HTTP handlers
type Handler struct {
	dashboardSvc *service.DashboardService
	cities       *domain.CityDirectory
	warehouse    service.Warehouse
	demo         bool
}

// NewHandler creates a new handler. demo flags every response as built
// from synthetic data.
func NewHandler(
	dashboardSvc *service.DashboardService,
	cities *domain.CityDirectory,
	warehouse service.Warehouse,
	demo bool,
) *Handler {
	return &Handler{
		dashboardSvc: dashboardSvc,
		cities:       cities,
		warehouse:    warehouse,
		demo:         demo,
	}
}

// viewQuery holds the query parameters shared by the dashboard views
type viewQuery struct {
	City string `validate:"max=200"`
	Days int    `validate:"min=1,max=30"`
}

// parseViewQuery reads city and days. The city is translated to its
// warehouse key here and nowhere else.
func (h *Handler) parseViewQuery(c *fiber.Ctx) (domain.City, int, error) {
	q := viewQuery{City: c.Query("city"), Days: service.DefaultDays}
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return domain.City{}, 0, fiber.NewError(fiber.StatusBadRequest, "days must be an integer")
		}
		q.Days = days
	}

	if err := validate.Struct(q); err != nil {
		return domain.City{}, 0, fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}

	city, err := h.cities.Resolve(q.City)
	if err != nil {
		return domain.City{}, 0, err
	}
	return city, q.Days, nil
}

// validationMessage names the first failing query parameter
func validationMessage(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return "invalid query parameters"
	}
	switch fields[0].Field() {
	case "Days":
		return "days must be between " + strconv.Itoa(service.MinDays) + " and " + strconv.Itoa(service.MaxDays)
	case "City":
		return "city must be at most 200 characters"
	default:
		return "invalid query parameter " + fields[0].Field()
	}
}

func (h *Handler) respond(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"is_demo": h.demo,
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "vnweather-dashboard",
		"version": "1.0.0",
		"is_demo": h.demo,
	})
}

// WarehouseHealth checks that the warehouse accepts connections
func (h *Handler) WarehouseHealth(c *fiber.Ctx) error {
	if err := h.warehouse.Health(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"is_demo": h.demo,
	})
}

// GetCities returns the city select-box options
func (h *Handler) GetCities(c *fiber.Ctx) error {
	return h.respond(c, h.dashboardSvc.Cities())
}

// GetDashboard returns the landing page for one city
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	city, _, err := h.parseViewQuery(c)
	if err != nil {
		return err
	}
	view, err := h.dashboardSvc.Home(c.UserContext(), city)
	if err != nil {
		return err
	}
	return h.respond(c, view)
}

// GetDailyWeather returns daily observations
func (h *Handler) GetDailyWeather(c *fiber.Ctx) error {
	city, days, err := h.parseViewQuery(c)
	if err != nil {
		return err
	}
	view, err := h.dashboardSvc.Daily(c.UserContext(), city, days)
	if err != nil {
		return err
	}
	return h.respond(c, view)
}

// GetHourlyWeather returns hourly observations
func (h *Handler) GetHourlyWeather(c *fiber.Ctx) error {
	city, days, err := h.parseViewQuery(c)
	if err != nil {
		return err
	}
	view, err := h.dashboardSvc.Hourly(c.UserContext(), city, days)
	if err != nil {
		return err
	}
	return h.respond(c, view)
}

// GetTemperatureForecast returns the 24h temperature forecast
func (h *Handler) GetTemperatureForecast(c *fiber.Ctx) error {
	city, _, err := h.parseViewQuery(c)
	if err != nil {
		return err
	}
	view, err := h.dashboardSvc.Forecast(c.UserContext(), city)
	if err != nil {
		return err
	}
	return h.respond(c, view)
}

// GetRainForecast returns today's rain probability
func (h *Handler) GetRainForecast(c *fiber.Ctx) error {
	city, _, err := h.parseViewQuery(c)
	if err != nil {
		return err
	}
	view, err := h.dashboardSvc.Rain(c.UserContext(), city)
	if err != nil {
		return err
	}
	return h.respond(c, view)
}

// GetComparison returns predicted vs actual temperatures
func (h *Handler) GetComparison(c *fiber.Ctx) error {
	city, days, err := h.parseViewQuery(c)
	if err != nil {
		return err
	}
	view, err := h.dashboardSvc.Comparison(c.UserContext(), city, days)
	if err != nil {
		return err
	}
	return h.respond(c, view)
}

// ErrorHandler renders every failure as a single error banner. No partial
// view is ever returned next to an error.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	case errors.Is(err, domain.ErrUnknownCity),
		errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, domain.ErrInvalidQuery):
		code = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrWarehouseUnavailable):
		code = fiber.StatusServiceUnavailable
		message = "Cannot reach the weather data warehouse. Please try again later."
	case errors.Is(err, domain.ErrQueryFailed):
		code = fiber.StatusBadGateway
		message = "The weather data warehouse could not answer the request."
	case errors.Is(err, domain.ErrRender):
		message = "Could not build the dashboard view."
	}

	if code >= fiber.StatusInternalServerError {
		log.Errorw("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
			"status", code,
			"error", err,
		)
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
