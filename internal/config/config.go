package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config agrupa la configuración necesaria para correr la aplicación.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	Environment string `envconfig:"APP_ENV" default:"production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Version     string `envconfig:"APP_VERSION" default:"dev"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	MigrateOnStart bool          `envconfig:"MIGRATE_ON_START" default:"false"`

	// Fuente secundaria del catálogo (API Gateway / Lambda). Vacío = sin fallback.
	UpstreamURL     string        `envconfig:"CATALOG_UPSTREAM_URL"`
	UpstreamTimeout time.Duration `envconfig:"CATALOG_UPSTREAM_TIMEOUT" default:"5s"`

	// Límite de la consulta a la base; debe dejar lugar al upstream dentro de REQUEST_TIMEOUT.
	PrimaryTimeout time.Duration `envconfig:"CATALOG_PRIMARY_TIMEOUT" default:"3s"`

	// Archivo TOML opcional con límites de página y tabla de rangos de precio.
	CatalogConfigFile string `envconfig:"CATALOG_CONFIG_FILE"`

	// Hash bcrypt del token de staff. Vacío = rutas de staff sin protección.
	StaffTokenHash string `envconfig:"STAFF_TOKEN_HASH"`

	S3Bucket   string `envconfig:"S3_BUCKET"`
	AWSRegion  string `envconfig:"AWS_REGION"`
	S3Endpoint string `envconfig:"S3_ENDPOINT"`
}

// IsDevelopment indica si se pueden exponer detalles internos de errores.
func (config Config) IsDevelopment() bool {
	return strings.EqualFold(config.Environment, "development")
}

// Load lee variables de entorno (y un .env opcional) y valida lo mínimo indispensable.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	// envconfig no aplica el default si la variable existe pero está vacía.
	config.Port = strings.TrimSpace(config.Port)
	if config.Port == "" {
		config.Port = "8080"
	}
	// Normalizamos por si alguien manda ":8080"
	config.Port = strings.TrimPrefix(config.Port, ":")

	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	if config.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing required env var: DATABASE_URL")
	}

	config.UpstreamURL = strings.TrimRight(strings.TrimSpace(config.UpstreamURL), "/")
	if config.UpstreamURL != "" {
		parsed, err := url.Parse(config.UpstreamURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return Config{}, fmt.Errorf("invalid CATALOG_UPSTREAM_URL: %q", config.UpstreamURL)
		}
	}

	if config.UpstreamTimeout <= 0 {
		config.UpstreamTimeout = 5 * time.Second
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	if config.PrimaryTimeout <= 0 {
		config.PrimaryTimeout = 3 * time.Second
	}
	if config.UpstreamURL != "" && config.PrimaryTimeout+config.UpstreamTimeout > config.RequestTimeout {
		return Config{}, fmt.Errorf("CATALOG_PRIMARY_TIMEOUT + CATALOG_UPSTREAM_TIMEOUT (%s) must not exceed REQUEST_TIMEOUT (%s)",
			config.PrimaryTimeout+config.UpstreamTimeout, config.RequestTimeout)
	}

	return config, nil
}
