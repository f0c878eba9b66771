package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Camera       CameraConfig
	Queue        QueueConfig
	Archive      ArchiveConfig
	Redis        RedisConfig
	Insurance    InsuranceConfig
	SensorBridge SensorBridgeConfig
	Staff        StaffConfig
	OTEL         OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// CameraConfig holds camera capture configuration
type CameraConfig struct {
	// Device is the v4l2 capture device path.
	Device string
	Width  int
	Height int
	FPS    float64
	// FreshnessWindow is the maximum age of a decoded scan before it is
	// treated as absent.
	FreshnessWindow time.Duration
	// ScanCooldown debounces repeated decodes of the same code.
	ScanCooldown time.Duration
	// StreamFPS bounds the MJPEG viewer rate, independent of capture.
	StreamFPS float64
	// Enabled turns the capture worker on. Disabled deployments serve the
	// placeholder frame and rely on manual code entry.
	Enabled bool
}

// QueueConfig holds scheduler configuration
type QueueConfig struct {
	// AvgVisitMinutes maps priority lane to average visit duration.
	AvgVisitHighMin   int
	AvgVisitMediumMin int
	AvgVisitLowMin    int
	// DoneRetention is how long a done encounter is kept before purge;
	// its token becomes reusable only after the purge.
	DoneRetention time.Duration
}

// ArchiveConfig holds the completed-encounter archive database configuration
type ArchiveConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration for the outbound event feed
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// InsuranceConfig holds eligibility adapter configuration
type InsuranceConfig struct {
	Adapter string // "mock" or "http"
	BaseURL string
	APIKey  string
}

// SensorBridgeConfig holds the sensor bridge notification target
type SensorBridgeConfig struct {
	URL string
}

// StaffConfig holds staff session configuration
type StaffConfig struct {
	Password   string
	SecretKey  string
	SessionTTL time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("APP_ENV", "development"),
		},
		Camera: CameraConfig{
			Device:          getEnv("CAMERA_DEVICE", "/dev/video0"),
			Width:           getEnvAsInt("CAMERA_WIDTH", 1280),
			Height:          getEnvAsInt("CAMERA_HEIGHT", 720),
			FPS:             getEnvAsFloat("CAMERA_FPS", 15),
			FreshnessWindow: getEnvAsDuration("SCAN_FRESHNESS_WINDOW", 2*time.Second),
			ScanCooldown:    getEnvAsDuration("SCAN_COOLDOWN", 3*time.Second),
			StreamFPS:       getEnvAsFloat("CAMERA_STREAM_FPS", 25),
			Enabled:         getEnvAsBool("CAMERA_ENABLED", true),
		},
		Queue: QueueConfig{
			AvgVisitHighMin:   getEnvAsInt("AVG_VISIT_HIGH_MIN", 35),
			AvgVisitMediumMin: getEnvAsInt("AVG_VISIT_MEDIUM_MIN", 25),
			AvgVisitLowMin:    getEnvAsInt("AVG_VISIT_LOW_MIN", 15),
			DoneRetention:     getEnvAsDuration("DONE_RETENTION", 30*time.Minute),
		},
		Archive: ArchiveConfig{
			Enabled:  getEnvAsBool("ARCHIVE_ENABLED", false),
			Host:     getEnv("ARCHIVE_DB_HOST", "localhost"),
			Port:     getEnvAsInt("ARCHIVE_DB_PORT", 5432),
			User:     getEnv("ARCHIVE_DB_USER", "postgres"),
			Password: getEnv("ARCHIVE_DB_PASSWORD", ""),
			Database: getEnv("ARCHIVE_DB_NAME", "clinicflow"),
			SSLMode:  getEnv("ARCHIVE_DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Insurance: InsuranceConfig{
			Adapter: getEnv("INSURANCE_ADAPTER", "mock"),
			BaseURL: getEnv("INSURANCE_BASE_URL", ""),
			APIKey:  getEnv("INSURANCE_API_KEY", ""),
		},
		SensorBridge: SensorBridgeConfig{
			URL: getEnv("SENSOR_BRIDGE_URL", ""),
		},
		Staff: StaffConfig{
			Password:   getEnv("STAFF_ACCESS_PASSWORD", "1234"),
			SecretKey:  getEnv("APP_SECRET_KEY", "dev-only-change-me"),
			SessionTTL: getEnvAsDuration("STAFF_SESSION_TTL", 8*time.Hour),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "clinicflow"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// ArchiveDSN returns the PostgreSQL connection string for the archive
func (c *ArchiveConfig) ArchiveDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
