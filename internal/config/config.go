package config

import (
	"flag"
	"regexp"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Storage
	DatabaseDSN string `env:"DATABASE_URI"`
	DriveRoot   string `env:"DRIVE_ROOT"`
	BlobPath    string `env:"BLOB_PATH"`

	// Server-side settings
	AuthSecret  string        `env:"AUTH_SECRET"`
	BaseURL     string        `env:"BASE_URL"`
	EnableHTTPS bool          `env:"ENABLE_HTTPS"`
	UploadMaxMB int           `env:"UPLOAD_MAX_MB"`
	TaskTimeout time.Duration `env:"TASK_TIMEOUT"`

	// Integrations
	RedisURL       string `env:"REDIS_URL"`
	MetricsEnabled bool   `env:"METRICS_ENABLED"`

	ServerURL string `env:"-"`
	Version   bool   `env:"-"` // show version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (путь SQLite или DSN postgres)")
	flag.StringVar(&cfg.DriveRoot, "drive-root", cfg.DriveRoot, "корневая папка дисков пользователей")
	flag.StringVar(&cfg.BlobPath, "blob-path", cfg.BlobPath, "папка статических ресурсов (defaultArtwork.jpg)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "адрес сервера в виде host:port")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS scheme for ServerURL")
	flag.IntVar(&cfg.UploadMaxMB, "upload-max-mb", cfg.UploadMaxMB, "максимальный размер загружаемого файла, МБ")
	flag.DurationVar(&cfg.TaskTimeout, "task-timeout", cfg.TaskTimeout, "предельное время выполнения задачи плагина")
	flag.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "redis://host:port для публикации событий (пусто — выключено)")
	flag.BoolVar(&cfg.MetricsEnabled, "metrics", cfg.MetricsEnabled, "отдавать метрики Prometheus на /metrics")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show version and exit")

	flag.Parse()

	// Defaults
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "xms.db"
	}
	if cfg.DriveRoot == "" {
		cfg.DriveRoot = "./root/drive"
	}
	if cfg.BlobPath == "" {
		cfg.BlobPath = "./root/blob"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 512
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Minute
	}
	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	return cfg
}

// UploadLimit возвращает предел размера загрузки в байтах.
func (c *Config) UploadLimit() int64 {
	return int64(c.UploadMaxMB) * 1024 * 1024
}
