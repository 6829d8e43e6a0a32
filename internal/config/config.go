package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	S3      S3Config
	Storage StorageConfig
	Upload  UploadConfig
	Log     LogConfig
	Parser  ParserConfig
	CORS    CORSConfig
	Queue   QueueConfig
}

// QueueConfig holds parse queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
	ParseTimeoutSecs int `mapstructure:"parse_timeout_secs"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ParserConfig holds EPD parser settings.
type ParserConfig struct {
	// ProfilePath points to a layout profile YAML. Empty uses the embedded default.
	ProfilePath string `mapstructure:"profile_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// StorageConfig selects where uploaded source files are archived.
type StorageConfig struct {
	// Provider is "s3" or "noop".
	Provider string `mapstructure:"provider"`
}

// UploadConfig limits accepted uploads.
type UploadConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
}

// MaxBytes returns the upload limit in bytes.
func (u *UploadConfig) MaxBytes() int64 {
	return u.MaxFileSizeMB << 20
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the EPD_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "epd")
	v.SetDefault("db.password", "epd_secret")
	v.SetDefault("db.name", "epd_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "eu-central-1")
	v.SetDefault("s3.bucket", "epd-uploads")
	v.SetDefault("s3.endpoint", "")

	v.SetDefault("storage.provider", "noop")
	v.SetDefault("upload.max_file_size_mb", 20)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 5)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.parse_timeout_secs", 60)

	v.SetDefault("parser.profile_path", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":              "EPD_SERVER_PORT",
		"server.read_timeout":      "EPD_SERVER_READ_TIMEOUT",
		"server.write_timeout":     "EPD_SERVER_WRITE_TIMEOUT",
		"server.environment":       "EPD_SERVER_ENVIRONMENT",
		"db.host":                  "EPD_DB_HOST",
		"db.port":                  "EPD_DB_PORT",
		"db.user":                  "EPD_DB_USER",
		"db.password":              "EPD_DB_PASSWORD",
		"db.name":                  "EPD_DB_NAME",
		"db.sslmode":               "EPD_DB_SSLMODE",
		"db.max_open":              "EPD_DB_MAX_OPEN",
		"db.max_idle":              "EPD_DB_MAX_IDLE",
		"s3.region":                "EPD_S3_REGION",
		"s3.bucket":                "EPD_S3_BUCKET",
		"s3.endpoint":              "EPD_S3_ENDPOINT",
		"s3.access_key":            "EPD_S3_ACCESS_KEY",
		"s3.secret_key":            "EPD_S3_SECRET_KEY",
		"storage.provider":         "EPD_STORAGE_PROVIDER",
		"upload.max_file_size_mb":  "EPD_UPLOAD_MAX_FILE_SIZE_MB",
		"log.level":                "EPD_LOG_LEVEL",
		"log.format":               "EPD_LOG_FORMAT",
		"cors.allowed_origins":     "EPD_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs": "EPD_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":        "EPD_QUEUE_MAX_RETRIES",
		"queue.concurrency":        "EPD_QUEUE_CONCURRENCY",
		"queue.parse_timeout_secs": "EPD_QUEUE_PARSE_TIMEOUT_SECS",
		"parser.profile_path":      "EPD_PARSER_PROFILE_PATH",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if EPD_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("EPD_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Storage = StorageConfig{Provider: v.GetString("storage.provider")}
	cfg.Upload = UploadConfig{MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb")}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
		ParseTimeoutSecs: v.GetInt("queue.parse_timeout_secs"),
	}
	cfg.Parser = ParserConfig{ProfilePath: v.GetString("parser.profile_path")}

	if cfg.Queue.Concurrency < 1 {
		return nil, fmt.Errorf("config: queue.concurrency must be positive, got %d", cfg.Queue.Concurrency)
	}
	switch cfg.Storage.Provider {
	case "s3", "noop":
	default:
		return nil, fmt.Errorf("config: unknown storage.provider %q", cfg.Storage.Provider)
	}

	return cfg, nil
}
