package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

const (
	DriverPostgres = "pgx"
	DriverDuckDB   = "duckdb"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	DB            DBConfig
	Warehouse     WarehouseConfig
	Model         ModelConfig
	Generator     GeneratorConfig
	Agent         AgentConfig
	Export        ExportConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DBConfig holds the connection settings of the warehouse database. All five
// fields come from the environment and have no defaults.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type WarehouseConfig struct {
	Driver          string
	DuckDBPath      string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type ModelConfig struct {
	Provider    string
	Name        string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
}

type GeneratorConfig struct {
	MaxRetries int
}

type AgentConfig struct {
	MaxIterations int
	Timeout       time.Duration
	EnforceSchema bool
}

type ExportConfig struct {
	Enabled bool
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("QUERYSTUDIO_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid QUERYSTUDIO_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	db, err := loadDBConfig(lookup)
	if err != nil {
		return Config{}, err
	}
	cfg.DB = db

	if err := applyString(lookup, "ANTHROPIC_MODEL", &cfg.Model.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANTHROPIC_API_KEY", &cfg.Model.APIKey); err != nil {
		return Config{}, err
	}

	steps := []func() error{
		func() error { return applyString(lookup, "QUERYSTUDIO_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "QUERYSTUDIO_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "QUERYSTUDIO_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "QUERYSTUDIO_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "QUERYSTUDIO_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "QUERYSTUDIO_WAREHOUSE_DRIVER", &cfg.Warehouse.Driver) },
		func() error { return applyString(lookup, "QUERYSTUDIO_WAREHOUSE_DUCKDB_PATH", &cfg.Warehouse.DuckDBPath) },
		func() error { return applyInt(lookup, "QUERYSTUDIO_WAREHOUSE_MAX_OPEN_CONNS", &cfg.Warehouse.MaxOpenConns) },
		func() error {
			return applyDuration(lookup, "QUERYSTUDIO_WAREHOUSE_CONN_MAX_LIFETIME", &cfg.Warehouse.ConnMaxLifetime)
		},
		func() error { return applyString(lookup, "QUERYSTUDIO_MODEL_PROVIDER", &cfg.Model.Provider) },
		func() error { return applyString(lookup, "QUERYSTUDIO_MODEL_BASE_URL", &cfg.Model.BaseURL) },
		func() error { return applyFloat(lookup, "QUERYSTUDIO_MODEL_TEMPERATURE", &cfg.Model.Temperature) },
		func() error { return applyInt64(lookup, "QUERYSTUDIO_MODEL_MAX_TOKENS", &cfg.Model.MaxTokens) },
		func() error { return applyDuration(lookup, "QUERYSTUDIO_MODEL_TIMEOUT", &cfg.Model.Timeout) },
		func() error { return applyInt(lookup, "QUERYSTUDIO_GENERATOR_MAX_RETRIES", &cfg.Generator.MaxRetries) },
		func() error { return applyInt(lookup, "QUERYSTUDIO_AGENT_MAX_ITERATIONS", &cfg.Agent.MaxIterations) },
		func() error { return applyDuration(lookup, "QUERYSTUDIO_AGENT_TIMEOUT", &cfg.Agent.Timeout) },
		func() error { return applyBool(lookup, "QUERYSTUDIO_AGENT_ENFORCE_SCHEMA", &cfg.Agent.EnforceSchema) },
		func() error { return applyBool(lookup, "QUERYSTUDIO_EXPORT_ENABLED", &cfg.Export.Enabled) },
		func() error { return applyString(lookup, "QUERYSTUDIO_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "QUERYSTUDIO_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "QUERYSTUDIO_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "QUERYSTUDIO_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error {
			return applyString(lookup, "QUERYSTUDIO_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "QUERYSTUDIO_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "QUERYSTUDIO_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "QUERYSTUDIO_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},
		func() error { return applyBool(lookup, "QUERYSTUDIO_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "QUERYSTUDIO_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyBool(lookup, "QUERYSTUDIO_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "QUERYSTUDIO_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	cfg.Model.Provider = strings.ToLower(cfg.Model.Provider)
	cfg.Warehouse.Driver = strings.ToLower(cfg.Warehouse.Driver)

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	switch cfg.Model.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return Config{}, fmt.Errorf("invalid QUERYSTUDIO_MODEL_PROVIDER: %q", cfg.Model.Provider)
	}
	switch cfg.Warehouse.Driver {
	case DriverPostgres:
	case DriverDuckDB:
		if cfg.Warehouse.DuckDBPath == "" {
			return Config{}, fmt.Errorf("QUERYSTUDIO_WAREHOUSE_DUCKDB_PATH is required for the duckdb driver")
		}
	default:
		return Config{}, fmt.Errorf("invalid QUERYSTUDIO_WAREHOUSE_DRIVER: %q", cfg.Warehouse.Driver)
	}
	if cfg.Generator.MaxRetries < 0 {
		return Config{}, fmt.Errorf("QUERYSTUDIO_GENERATOR_MAX_RETRIES must be >= 0")
	}
	return cfg, nil
}

// LoadDBConfig reads only the warehouse connection settings.
func LoadDBConfig(lookup LookupFunc) (DBConfig, error) {
	if lookup == nil {
		return DBConfig{}, fmt.Errorf("lookup function is required")
	}
	return loadDBConfig(lookup)
}

func loadDBConfig(lookup LookupFunc) (DBConfig, error) {
	var cfg DBConfig
	required := []struct {
		key string
		dst *string
	}{
		{"DB_HOST", &cfg.Host},
		{"DB_PORT", &cfg.Port},
		{"DB_USER_NAME", &cfg.User},
		{"DB_USER_PASSWORD", &cfg.Password},
		{"DB_DATABASE", &cfg.Database},
	}
	for _, item := range required {
		raw, ok := lookup(item.key)
		if !ok {
			return DBConfig{}, fmt.Errorf("environment variable %s not found", item.key)
		}
		*item.dst = strings.TrimSpace(raw)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return DBConfig{}, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "querystudio"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		Warehouse: WarehouseConfig{
			Driver:          DriverPostgres,
			MaxOpenConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Model: ModelConfig{
			Provider:    ProviderAnthropic,
			BaseURL:     "https://api.openai.com",
			Temperature: 0,
			MaxTokens:   4096,
			Timeout:     60 * time.Second,
		},
		Generator: GeneratorConfig{
			MaxRetries: 3,
		},
		Agent: AgentConfig{
			MaxIterations: 15,
			Timeout:       2 * time.Minute,
			EnforceSchema: false,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "querystudio",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
