package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/smartcity/vnweather/internal/config"
	"github.com/smartcity/vnweather/internal/delivery/http"
	"github.com/smartcity/vnweather/internal/log"
	"github.com/smartcity/vnweather/internal/repository/warehouse"
	"github.com/smartcity/vnweather/internal/service"
	"github.com/smartcity/vnweather/internal/telemetry"
)

func main() {
	// Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := log.Init(cfg.LogDebug); err != nil {
		log.Fatalf("Could not initialize logger: %v", err)
	}
	defer log.Sync()

	cities, err := config.LoadCities(cfg.CitiesFile)
	if err != nil {
		log.Fatalf("Could not load cities: %v", err)
	}

	// Warehouse
	recorder := telemetry.NewRecorder()
	wh, err := warehouse.New(cfg.WarehouseOptions(recorder))
	if err != nil {
		log.Fatalf("Could not set up warehouse: %v", err)
	}
	if cfg.Demo {
		log.Warnw("Running with demo data only")
	} else {
		log.Infow("Warehouse configured", "driver", cfg.Driver, "credentials", cfg.Credentials.String())
	}

	// Dependency Injection: Services
	catalog, err := service.NewCatalog(cfg.Schema, cfg.NaiveLocation)
	if err != nil {
		log.Fatalf("Invalid warehouse schema: %v", err)
	}
	cache := service.NewCache(wh.Query, time.Now, recorder)
	norm := service.NewNormalizer(cfg.NaiveLocation)
	dashboardSvc := service.NewDashboardService(catalog, cache, norm, cities)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "VN Weather Dashboard API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.QueryTimeout + 10*time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Routes
	handler := http.NewHandler(dashboardSvc, cities, wh, cfg.Demo)
	http.SetupRoutes(app, handler, recorder.Handler())

	// Graceful shutdown
	go func() {
		log.Infow("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Warnw("Server forced to shutdown", "error", err)
	}
	log.Info("Server exited gracefully")
}
