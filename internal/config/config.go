package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/smartcity/vnweather/internal/domain"
	"github.com/smartcity/vnweather/internal/log"
	"github.com/smartcity/vnweather/internal/repository/warehouse"
)

// Config is the process configuration
type Config struct {
	Port     string `validate:"required,numeric"`
	Env      string `validate:"required"`
	LogDebug bool

	Driver          warehouse.Driver `validate:"oneof=pgx sql demo"`
	Credentials     warehouse.Credentials
	Schema          string        `validate:"required"`
	QueryTimeout    time.Duration `validate:"gt=0"`
	BreakerFailures uint32        `validate:"gte=1"`
	BreakerCooldown time.Duration `validate:"gt=0"`

	// NaiveLocation is the zone assumed for warehouse timestamps that
	// carry none
	NaiveLocation *time.Location `validate:"required"`
	CitiesFile    string

	// Demo is set when the service runs on synthetic data
	Demo bool
}

var validate = validator.New()

// Load reads .env when present, then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment")
	}
	return FromEnv()
}

// FromEnv builds and validates the configuration from the environment. A
// warehouse driver without complete credentials falls back to demo data.
func FromEnv() (*Config, error) {
	creds := warehouse.Credentials{
		Host:        os.Getenv("WAREHOUSE_HOST"),
		HTTPPath:    os.Getenv("WAREHOUSE_HTTP_PATH"),
		AccessToken: os.Getenv("WAREHOUSE_ACCESS_TOKEN"),
		User:        getEnv("WAREHOUSE_USER", warehouse.DefaultUser),
		SSLMode:     getEnv("WAREHOUSE_SSLMODE", warehouse.DefaultSSLMode),
	}
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("GO_ENV", "development"),
		Driver:      warehouse.Driver(getEnv("WAREHOUSE_DRIVER", string(warehouse.DriverPgx))),
		Credentials: creds,
		Schema:      getEnv("WAREHOUSE_SCHEMA", "hcmut.gold"),
		CitiesFile:  os.Getenv("CITIES_FILE"),
	}

	var err error
	if cfg.LogDebug, err = getEnvBool("LOG_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.QueryTimeout, err = getEnvDuration("WAREHOUSE_QUERY_TIMEOUT", warehouse.DefaultQueryTimeout); err != nil {
		return nil, err
	}
	if cfg.BreakerCooldown, err = getEnvDuration("WAREHOUSE_BREAKER_COOLDOWN", warehouse.DefaultBreakerCooldown); err != nil {
		return nil, err
	}
	failures, err := getEnvInt("WAREHOUSE_BREAKER_FAILURES", warehouse.DefaultBreakerFailures)
	if err != nil {
		return nil, err
	}
	if failures < 0 {
		return nil, fmt.Errorf("config: WAREHOUSE_BREAKER_FAILURES must not be negative")
	}
	cfg.BreakerFailures = uint32(failures)

	zone := getEnv("SOURCE_NAIVE_TIMEZONE", "UTC")
	if cfg.NaiveLocation, err = time.LoadLocation(zone); err != nil {
		return nil, fmt.Errorf("config: invalid SOURCE_NAIVE_TIMEZONE %q: %w", zone, err)
	}

	switch {
	case cfg.Driver == warehouse.DriverDemo:
		cfg.Demo = true
	case !cfg.Credentials.Complete():
		log.Warnw("warehouse credentials missing, running with demo data",
			"driver", cfg.Driver,
			"credentials", cfg.Credentials.String(),
		)
		cfg.Driver = warehouse.DriverDemo
		cfg.Demo = true
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// WarehouseOptions maps the configuration onto warehouse.New
func (c *Config) WarehouseOptions(observer warehouse.QueryObserver) warehouse.Options {
	return warehouse.Options{
		Driver:          c.Driver,
		Credentials:     c.Credentials,
		QueryTimeout:    c.QueryTimeout,
		BreakerFailures: c.BreakerFailures,
		BreakerCooldown: c.BreakerCooldown,
		Observer:        observer,
	}
}

type citiesFile struct {
	Cities []domain.City `yaml:"cities"`
}

// LoadCities returns the city directory, read from path when set and the
// built-in list otherwise.
//
//	cities:
//	  - name: Hà Nội
//	    key: Ha Noi City
func LoadCities(path string) (*domain.CityDirectory, error) {
	if path == "" {
		return domain.NewCityDirectory(domain.DefaultCities())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read cities file: %w", err)
	}
	var f citiesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("config: parse cities file %s: %w", path, err)
	}
	dir, err := domain.NewCityDirectory(f.Cities)
	if err != nil {
		return nil, fmt.Errorf("config: cities file %s: %w", path, err)
	}
	return dir, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return d, nil
}
