package config

import (
	"os"
)

// Config holds process-wide configuration for a normcode binary: the
// environment name that gates log format/level, the status/MCP
// surface's listen address, and OTel exporter settings.
type Config struct {
	// Env is the environment name (development, staging, production).
	Env string

	// Port is the httpapi status server's listen port.
	Port string

	// OTel holds OTLP trace/log exporter configuration.
	OTel OTelConfig
}

// OTelConfig controls OTLP trace/log export.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Headers        string
}

// Enabled reports whether an OTLP endpoint has been configured. An
// empty Endpoint disables export regardless of environment.
func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Load loads configuration from environment variables, with sensible
// defaults for development.
func Load() Config {
	return Config{
		Env:  getEnv("NORMCODE_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		OTel: OTelConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "normcode"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
		},
	}
}

// IsProduction returns true if running in production environment.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment returns true if running in development environment.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
