package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Config holds the configuration for a World.CSS service
type Config struct {
	// Service configuration
	ServiceName string
	APIPort     int
	HealthPort  int
	LogLevel    string

	// Cache configuration
	CacheBackend          string // file, memory, redis, postgres
	CacheDir              string
	CacheMaxAgeSec        int
	CacheSweepIntervalSec int
	SolarCacheTTLSec      int
	WeatherCacheTTLSec    int
	LocationCacheTTLSec   int
	SolarBucketSec        int
	CoalesceMisses        bool
	ClearCache            bool

	// Redis configuration
	RedisHost      string
	RedisPort      int
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// Postgres configuration
	PostgresHost               string
	PostgresPort               int
	PostgresUser               string
	PostgresPassword           string
	PostgresDB                 string
	PostgresSSLMode            string
	PostgresMaxConnections     int
	PostgresMaxIdleConnections int
	PostgresConnMaxLifetime    time.Duration

	// MQTT configuration
	MQTTBroker      string
	MQTTPort        int
	MQTTUser        string
	MQTTPassword    string
	MQTTClientID    string
	MQTTTopicPrefix string

	// Upstream providers
	OpenWeatherAPIKey   string
	OpenWeatherEndpoint string
	OpenWeatherUnits    string
	GeolocationEndpoint string
	ProviderTimeoutSec  int

	// Location configuration (fallback coordinate and agent location)
	Latitude     float64
	Longitude    float64
	LocationName string

	// Theme configuration
	ThemeConfigPath   string
	UpdateIntervalSec int
	ForceTextColors   bool
	ForcedTextColor   string
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		ServiceName: "worldcss",
		APIPort:     3000,
		HealthPort:  8080,
		LogLevel:    "info",

		CacheBackend:          "file",
		CacheDir:              "./cache",
		CacheMaxAgeSec:        3600,
		CacheSweepIntervalSec: 3600,
		SolarCacheTTLSec:      300,
		WeatherCacheTTLSec:    1800,
		LocationCacheTTLSec:   3600,
		SolarBucketSec:        300,

		RedisHost:      "localhost",
		RedisPort:      6379,
		RedisKeyPrefix: "worldcss:cache:",

		PostgresHost:               "localhost",
		PostgresPort:               5432,
		PostgresUser:               "worldcss",
		PostgresDB:                 "worldcss",
		PostgresSSLMode:            "disable",
		PostgresMaxConnections:     10,
		PostgresMaxIdleConnections: 2,
		PostgresConnMaxLifetime:    30 * time.Minute,

		MQTTBroker:      "localhost",
		MQTTPort:        1883,
		MQTTTopicPrefix: "worldcss",

		OpenWeatherEndpoint: "https://api.openweathermap.org/data/2.5/weather",
		OpenWeatherUnits:    "metric",
		GeolocationEndpoint: "http://ip-api.com/json",
		ProviderTimeoutSec:  10,

		// New York, the documented fallback location
		Latitude:     40.7128,
		Longitude:    -74.0060,
		LocationName: "default",

		UpdateIntervalSec: 300,
	}
}

// LoadFromEnv loads configuration from environment variables with WORLDCSS_ prefix
func (c *Config) LoadFromEnv() {
	// Service configuration
	if v := os.Getenv("WORLDCSS_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	// PORT is what most hosting platforms hand us
	envInt("PORT", &c.APIPort)
	envInt("WORLDCSS_API_PORT", &c.APIPort)
	envInt("WORLDCSS_HEALTH_PORT", &c.HealthPort)
	if v := os.Getenv("WORLDCSS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// Cache configuration
	if v := os.Getenv("WORLDCSS_CACHE_BACKEND"); v != "" {
		c.CacheBackend = v
	}
	if v := os.Getenv("WORLDCSS_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	envInt("WORLDCSS_CACHE_MAX_AGE_SEC", &c.CacheMaxAgeSec)
	envInt("WORLDCSS_CACHE_SWEEP_INTERVAL_SEC", &c.CacheSweepIntervalSec)
	envInt("WORLDCSS_SOLAR_CACHE_TTL_SEC", &c.SolarCacheTTLSec)
	envInt("WORLDCSS_WEATHER_CACHE_TTL_SEC", &c.WeatherCacheTTLSec)
	envInt("WORLDCSS_LOCATION_CACHE_TTL_SEC", &c.LocationCacheTTLSec)
	envInt("WORLDCSS_SOLAR_BUCKET_SEC", &c.SolarBucketSec)
	envBool("WORLDCSS_COALESCE_MISSES", &c.CoalesceMisses)

	// Redis configuration
	if v := os.Getenv("WORLDCSS_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	envInt("WORLDCSS_REDIS_PORT", &c.RedisPort)
	if v := os.Getenv("WORLDCSS_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	envInt("WORLDCSS_REDIS_DB", &c.RedisDB)
	if v := os.Getenv("WORLDCSS_REDIS_KEY_PREFIX"); v != "" {
		c.RedisKeyPrefix = v
	}

	// Postgres configuration
	if v := os.Getenv("WORLDCSS_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	envInt("WORLDCSS_POSTGRES_PORT", &c.PostgresPort)
	if v := os.Getenv("WORLDCSS_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("WORLDCSS_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("WORLDCSS_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}
	if v := os.Getenv("WORLDCSS_POSTGRES_SSLMODE"); v != "" {
		c.PostgresSSLMode = v
	}
	envInt("WORLDCSS_POSTGRES_MAX_CONNECTIONS", &c.PostgresMaxConnections)
	envInt("WORLDCSS_POSTGRES_MAX_IDLE_CONNECTIONS", &c.PostgresMaxIdleConnections)
	if v := os.Getenv("WORLDCSS_POSTGRES_CONN_MAX_LIFETIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PostgresConnMaxLifetime = d
		}
	}

	// MQTT configuration
	if v := os.Getenv("WORLDCSS_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	envInt("WORLDCSS_MQTT_PORT", &c.MQTTPort)
	if v := os.Getenv("WORLDCSS_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("WORLDCSS_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("WORLDCSS_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}
	if v := os.Getenv("WORLDCSS_MQTT_TOPIC_PREFIX"); v != "" {
		c.MQTTTopicPrefix = v
	}

	// Upstream providers. The bare OPENWEATHER names are kept for existing deployments.
	for _, name := range []string{"OPENWEATHERMAP_API_KEY", "OPENWEATHER_API_KEY", "WORLDCSS_OPENWEATHER_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			c.OpenWeatherAPIKey = v
		}
	}
	if v := os.Getenv("WORLDCSS_OPENWEATHER_ENDPOINT"); v != "" {
		c.OpenWeatherEndpoint = v
	}
	if v := os.Getenv("WORLDCSS_OPENWEATHER_UNITS"); v != "" {
		c.OpenWeatherUnits = v
	}
	if v := os.Getenv("WORLDCSS_GEOLOCATION_ENDPOINT"); v != "" {
		c.GeolocationEndpoint = v
	}
	envInt("WORLDCSS_PROVIDER_TIMEOUT_SEC", &c.ProviderTimeoutSec)

	// Location configuration
	envFloat("WORLDCSS_LATITUDE", &c.Latitude)
	envFloat("WORLDCSS_LONGITUDE", &c.Longitude)
	if v := os.Getenv("WORLDCSS_LOCATION_NAME"); v != "" {
		c.LocationName = v
	}

	// Theme configuration
	if v := os.Getenv("WORLDCSS_THEME_CONFIG"); v != "" {
		c.ThemeConfigPath = v
	}
	envInt("WORLDCSS_UPDATE_INTERVAL_SEC", &c.UpdateIntervalSec)
	envBool("WORLDCSS_FORCE_TEXT_COLORS", &c.ForceTextColors)
	if v := os.Getenv("WORLDCSS_FORCED_TEXT_COLOR"); v != "" {
		c.ForcedTextColor = v
	}
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	c.RegisterFlags(pflag.CommandLine)
	pflag.Parse()
}

// RegisterFlags binds every config field to a flag on fs
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	// Service flags
	fs.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	fs.IntVar(&c.APIPort, "api-port", c.APIPort, "HTTP API port")
	fs.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port (agent only)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	// Cache flags
	fs.StringVar(&c.CacheBackend, "cache-backend", c.CacheBackend, "Cache backend (file, memory, redis, postgres)")
	fs.StringVar(&c.CacheDir, "cache-dir", c.CacheDir, "Directory for the file cache backend")
	fs.IntVar(&c.CacheMaxAgeSec, "cache-max-age", c.CacheMaxAgeSec, "Maximum entry age in seconds before the sweep evicts it")
	fs.IntVar(&c.CacheSweepIntervalSec, "cache-sweep-interval", c.CacheSweepIntervalSec, "Cache sweep interval in seconds")
	fs.IntVar(&c.SolarCacheTTLSec, "solar-cache-ttl", c.SolarCacheTTLSec, "Solar position cache TTL in seconds")
	fs.IntVar(&c.WeatherCacheTTLSec, "weather-cache-ttl", c.WeatherCacheTTLSec, "Weather cache TTL in seconds")
	fs.IntVar(&c.LocationCacheTTLSec, "location-cache-ttl", c.LocationCacheTTLSec, "Location cache TTL in seconds")
	fs.IntVar(&c.SolarBucketSec, "solar-bucket", c.SolarBucketSec, "Time bucket in seconds used to quantize solar cache keys")
	fs.BoolVar(&c.CoalesceMisses, "coalesce-misses", c.CoalesceMisses, "Deduplicate concurrent cache misses for the same key")
	fs.BoolVar(&c.ClearCache, "clear-cache", c.ClearCache, "Remove every cache entry and exit")

	// Redis flags
	fs.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	fs.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")
	fs.StringVar(&c.RedisKeyPrefix, "redis-key-prefix", c.RedisKeyPrefix, "Prefix for cache keys stored in Redis")

	// Postgres flags
	fs.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	fs.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	fs.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres user")
	fs.StringVar(&c.PostgresPassword, "postgres-password", c.PostgresPassword, "Postgres password")
	fs.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database")
	fs.StringVar(&c.PostgresSSLMode, "postgres-sslmode", c.PostgresSSLMode, "Postgres sslmode")

	// MQTT flags
	fs.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	fs.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	fs.StringVar(&c.MQTTUser, "mqtt-user", c.MQTTUser, "MQTT username")
	fs.StringVar(&c.MQTTPassword, "mqtt-password", c.MQTTPassword, "MQTT password")
	fs.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")
	fs.StringVar(&c.MQTTTopicPrefix, "mqtt-topic-prefix", c.MQTTTopicPrefix, "Prefix for published theme topics")

	// Provider flags
	fs.StringVar(&c.OpenWeatherAPIKey, "openweather-api-key", c.OpenWeatherAPIKey, "OpenWeatherMap API key")
	fs.StringVar(&c.OpenWeatherEndpoint, "openweather-endpoint", c.OpenWeatherEndpoint, "OpenWeatherMap current weather endpoint")
	fs.StringVar(&c.OpenWeatherUnits, "openweather-units", c.OpenWeatherUnits, "OpenWeatherMap units (metric, imperial, standard)")
	fs.StringVar(&c.GeolocationEndpoint, "geolocation-endpoint", c.GeolocationEndpoint, "IP geolocation endpoint")
	fs.IntVar(&c.ProviderTimeoutSec, "provider-timeout", c.ProviderTimeoutSec, "Upstream provider timeout in seconds")

	// Location flags
	fs.Float64Var(&c.Latitude, "latitude", c.Latitude, "Fallback latitude, also the agent's location")
	fs.Float64Var(&c.Longitude, "longitude", c.Longitude, "Fallback longitude, also the agent's location")
	fs.StringVar(&c.LocationName, "location-name", c.LocationName, "Location name used in published topics")

	// Theme flags
	fs.StringVar(&c.ThemeConfigPath, "theme-config", c.ThemeConfigPath, "Path to a YAML theme configuration")
	fs.IntVar(&c.UpdateIntervalSec, "update-interval", c.UpdateIntervalSec, "Theme re-evaluation interval in seconds")
	fs.BoolVar(&c.ForceTextColors, "force-text-colors", c.ForceTextColors, "Always use the forced text color")
	fs.StringVar(&c.ForcedTextColor, "forced-text-color", c.ForcedTextColor, "Forced text color (#000000 or #ffffff)")
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("Service name is required")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API port must be between 1 and 65535")
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("Health port must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	switch c.CacheBackend {
	case "file":
		if c.CacheDir == "" {
			return fmt.Errorf("cache directory is required for the file backend")
		}
	case "memory":
	case "redis":
		if c.RedisHost == "" {
			return fmt.Errorf("Redis host is required")
		}
		if c.RedisPort <= 0 || c.RedisPort > 65535 {
			return fmt.Errorf("Redis port must be between 1 and 65535")
		}
	case "postgres":
		if c.PostgresHost == "" || c.PostgresDB == "" {
			return fmt.Errorf("Postgres host and database are required")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be file, memory, redis, or postgres)", c.CacheBackend)
	}

	for name, v := range map[string]int{
		"cache max age":        c.CacheMaxAgeSec,
		"cache sweep interval": c.CacheSweepIntervalSec,
		"solar cache TTL":      c.SolarCacheTTLSec,
		"weather cache TTL":    c.WeatherCacheTTLSec,
		"location cache TTL":   c.LocationCacheTTLSec,
		"solar bucket":         c.SolarBucketSec,
		"update interval":      c.UpdateIntervalSec,
		"provider timeout":     c.ProviderTimeoutSec,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}

	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}

	if c.ForceTextColors && c.ForcedTextColor == "" {
		return fmt.Errorf("forced text color is required when force-text-colors is set")
	}

	return nil
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresConnectionString returns a lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}

// Seconds converts one of the *Sec fields to a duration
func Seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(name); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}
