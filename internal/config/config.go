package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Supported inventory database drivers.
const (
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds runtime configuration for the API service and the watch console.
type Config struct {
	AppName     string
	Environment string
	LogLevel    string
	LogFormat   string

	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	APIToken        string

	DBEnabled      bool
	DBDriver       string
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBConnTimeout  time.Duration
	DBQueryTimeout time.Duration
	SQLitePath     string
	PostgresURL    string

	InventoryDefaultLimit int
	InventoryMaxLimit     int

	WatchAPIBaseURL     string
	WatchAPIToken       string
	WatchDebounce       time.Duration
	WatchPollInterval   time.Duration
	WatchFetchTimeout   time.Duration
	WatchInventoryLimit int
	WatchProfilePath    string

	ExportDir         string
	ExportS3Bucket    string
	ExportS3Region    string
	ExportS3Prefix    string
	ExportS3Endpoint  string
	ExportS3PathStyle bool
}

// FromEnv loads configuration from environment variables with sensible defaults.
func FromEnv() Config {
	loadConfigDefaultsFromFile()
	loadSecretsDefaultsFromFile()

	return Config{
		AppName:               getEnv("APP_NAME", "Inventory Intelligence Platform"),
		Environment:           getEnv("APP_ENVIRONMENT", "local"),
		LogLevel:              getEnv("APP_LOG_LEVEL", "info"),
		LogFormat:             getEnv("APP_LOG_FORMAT", "text"),
		ListenAddr:            getEnv("APP_LISTEN_ADDR", ":8080"),
		ReadTimeout:           time.Duration(getEnvInt("APP_READ_TIMEOUT_SEC", 10)) * time.Second,
		WriteTimeout:          time.Duration(getEnvInt("APP_WRITE_TIMEOUT_SEC", 20)) * time.Second,
		ShutdownTimeout:       time.Duration(getEnvInt("APP_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		APIToken:              getEnv("APP_API_TOKEN", ""),
		DBEnabled:             getEnvBool("APP_DB_ENABLED", true),
		DBDriver:              strings.ToLower(getEnv("APP_DB_DRIVER", DriverSQLite)),
		DBHost:                getEnv("APP_DB_HOST", "127.0.0.1"),
		DBPort:                getEnvInt("APP_DB_PORT", 3306),
		DBUser:                getEnv("APP_DB_USER", "inventory"),
		DBPassword:            getEnv("APP_DB_PASSWORD", ""),
		DBName:                getEnv("APP_DB_NAME", "inventory"),
		DBConnTimeout:         time.Duration(getEnvInt("APP_DB_CONN_TIMEOUT_SEC", 5)) * time.Second,
		DBQueryTimeout:        time.Duration(getEnvInt("APP_DB_QUERY_TIMEOUT_SEC", 10)) * time.Second,
		SQLitePath:            getEnv("APP_SQLITE_PATH", "./inventory.db"),
		PostgresURL:           getEnv("APP_POSTGRES_URL", ""),
		InventoryDefaultLimit: getEnvInt("APP_INVENTORY_DEFAULT_LIMIT", 200),
		InventoryMaxLimit:     getEnvInt("APP_INVENTORY_MAX_LIMIT", 2000),
		WatchAPIBaseURL:       getEnv("APP_WATCH_API_URL", "http://127.0.0.1:8080"),
		WatchAPIToken:         getEnv("APP_WATCH_API_TOKEN", ""),
		WatchDebounce:         time.Duration(getEnvInt("APP_WATCH_DEBOUNCE_MS", 220)) * time.Millisecond,
		WatchPollInterval:     time.Duration(getEnvInt("APP_WATCH_POLL_SEC", 60)) * time.Second,
		WatchFetchTimeout:     time.Duration(getEnvInt("APP_WATCH_FETCH_TIMEOUT_SEC", 15)) * time.Second,
		WatchInventoryLimit:   getEnvInt("APP_WATCH_INVENTORY_LIMIT", 200),
		WatchProfilePath:      getEnv("APP_WATCH_PROFILE", ""),
		ExportDir:             getEnv("APP_EXPORT_DIR", "."),
		ExportS3Bucket:        getEnv("APP_EXPORT_S3_BUCKET", ""),
		ExportS3Region:        getEnv("APP_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Prefix:        getEnv("APP_EXPORT_S3_PREFIX", "exports/"),
		ExportS3Endpoint:      getEnv("APP_EXPORT_S3_ENDPOINT", ""),
		ExportS3PathStyle:     getEnvBool("APP_EXPORT_S3_PATH_STYLE", false),
	}
}

func loadConfigDefaultsFromFile() {
	bootstrapCandidates := []string{
		"./aging-dashboard.env",
		"/etc/default/aging-dashboard",
	}

	for _, candidate := range bootstrapCandidates {
		_ = applyEnvDefaultsFromFile(absPath(candidate))
	}

	candidates := make([]string, 0, 2)
	if explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, "/etc/aging-dashboard/config.env")

	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(absPath(candidate)); err == nil {
			return
		}
	}
}

func loadSecretsDefaultsFromFile() {
	candidates := make([]string, 0, 3)
	if explicit := strings.TrimSpace(os.Getenv("APP_SECRETS_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if credDir := strings.TrimSpace(os.Getenv("CREDENTIALS_DIRECTORY")); credDir != "" {
		credName := strings.TrimSpace(os.Getenv("APP_SECRETS_CREDENTIAL_NAME"))
		if credName == "" {
			credName = "app-secrets"
		}
		candidates = append(candidates, filepath.Join(credDir, credName))
	}
	candidates = append(candidates, "/etc/aging-dashboard/secrets.env")
	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(candidate); err == nil {
			return
		}
	}
}

func absPath(candidate string) string {
	if filepath.IsAbs(candidate) {
		return candidate
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, candidate)
	}
	return candidate
}

// applyEnvDefaultsFromFile sets KEY=VALUE pairs from path without overriding
// variables already present in the environment.
func applyEnvDefaultsFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if key == "" {
			continue
		}

		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}

		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}

	return scanner.Err()
}

// DSN returns the database/sql driver name and data source for the configured backend.
func (c Config) DSN() (driverName, dsn string, err error) {
	switch c.DBDriver {
	case DriverMySQL:
		return "mysql", c.MySQLDSN(), nil
	case DriverSQLite:
		path := strings.TrimSpace(c.SQLitePath)
		if path == "" {
			return "", "", fmt.Errorf("APP_SQLITE_PATH required for sqlite driver")
		}
		return "sqlite", path, nil
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresURL) == "" {
			return "", "", fmt.Errorf("APP_POSTGRES_URL required for postgres driver")
		}
		return "pgx", c.PostgresURL, nil
	default:
		return "", "", fmt.Errorf("unsupported APP_DB_DRIVER %q", c.DBDriver)
	}
}

// MySQLDSN returns a mysql driver DSN with safe defaults for TCP access.
func (c Config) MySQLDSN() string {
	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("timeout", c.DBConnTimeout.String())
	params.Set("readTimeout", c.DBQueryTimeout.String())
	params.Set("writeTimeout", c.DBQueryTimeout.String())
	params.Set("charset", "utf8mb4")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, params.Encode())
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}
