package config

import (
	"time"

	"github.com/spf13/viper"
)

// Storage driver names.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config holds every process-level setting. It is loaded once at startup and
// injected into constructors; nothing reads the environment after Load.
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	StorageDriver string
	UploadDir     string
	BaseURL       string

	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string

	RabbitMQURL string
}

// Load reads configuration from the environment with sensible defaults.
func Load() *Config {
	v := viper.New()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "shopapi")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ACCESS_EXPIRY", "15m")
	v.SetDefault("JWT_REFRESH_EXPIRY", "720h")

	v.SetDefault("STORAGE_DRIVER", StorageLocal)
	v.SetDefault("UPLOAD_DIR", "uploads")

	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")

	v.SetDefault("RABBITMQ_URL", "")

	v.AutomaticEnv()

	return &Config{
		Env:  v.GetString("APP_ENV"),
		Port: v.GetString("APP_PORT"),

		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),

		JWTAccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
		JWTRefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
		AccessTokenTTL:   parseDuration(v.GetString("JWT_ACCESS_EXPIRY"), 15*time.Minute),
		RefreshTokenTTL:  parseDuration(v.GetString("JWT_REFRESH_EXPIRY"), 720*time.Hour),

		StorageDriver: v.GetString("STORAGE_DRIVER"),
		UploadDir:     v.GetString("UPLOAD_DIR"),
		BaseURL:       v.GetString("BASE_URL"),

		S3Bucket:    v.GetString("S3_BUCKET"),
		S3Region:    v.GetString("S3_REGION"),
		S3AccessKey: v.GetString("S3_ACCESS_KEY"),
		S3SecretKey: v.GetString("S3_SECRET_KEY"),

		RabbitMQURL: v.GetString("RABBITMQ_URL"),
	}
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
