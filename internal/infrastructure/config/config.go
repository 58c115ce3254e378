package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds all configuration for the churn trainer and serving daemon,
// loaded from environment variables.
type Config struct {
	HTTPPort  int
	GRPCPort  int
	Data      DataConfig
	Artifacts ArtifactConfig
	Training  TrainingConfig
	Serving   ServingConfig
	DB        DBConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
	LogLevel  string
	LogFormat string
}

// DataConfig selects where training customers come from.
type DataConfig struct {
	// Source is "csv" or "postgres".
	Source  string
	CSVPath string
}

// ArtifactConfig holds output locations of a training run.
type ArtifactConfig struct {
	ModelDir  string
	ReportDir string
	ChartDir  string
}

// TrainingConfig holds run parameters.
type TrainingConfig struct {
	// Schedule is a cron expression; empty runs once.
	Schedule     string
	Seed         uint64
	TestFraction float64
	RunTimeout   time.Duration
	// Segments is the customer segment count; 0 turns segmentation off.
	Segments int
}

// ServingConfig holds prediction API settings.
type ServingConfig struct {
	RetentionConfigPath string
	TLSCertFile         string
	TLSKeyFile          string
	CORSOrigins         []string
	ShutdownTimeout     time.Duration
	GRPCReflection      bool
}

// DBConfig holds PostgreSQL connection parameters. URL overrides the rest.
type DBConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	Table    string
	MaxConns int32
	MinConns int32
}

// KafkaConfig holds Kafka connection parameters. No brokers disables
// event publishing.
type KafkaConfig struct {
	Brokers       []string
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
	TLS           bool
	SASLEnabled   bool
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
	Insecure     bool
}

// Load reads configuration from the environment. Values in envFiles are
// loaded first without overriding variables that are already set; missing
// files are skipped.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := Config{
		HTTPPort: getEnvInt("HTTP_PORT", 8090),
		GRPCPort: getEnvInt("GRPC_PORT", 9090),
		Data: DataConfig{
			Source:  strings.ToLower(getEnv("CHURN_DATA_SOURCE", "csv")),
			CSVPath: getEnv("CHURN_DATA_PATH", filepath.Join("data", "bank_customers.csv")),
		},
		Artifacts: ArtifactConfig{
			ModelDir:  getEnv("CHURN_MODEL_DIR", "models"),
			ReportDir: getEnv("CHURN_REPORT_DIR", "reports"),
			ChartDir:  getEnv("CHURN_CHART_DIR", filepath.Join("reports", "charts")),
		},
		Training: TrainingConfig{
			Schedule:     getEnv("CHURN_TRAIN_SCHEDULE", ""),
			Seed:         cast.ToUint64(getEnv("CHURN_SEED", "42")),
			TestFraction: getEnvFloat("CHURN_TEST_FRACTION", 0.2),
			RunTimeout:   getEnvDuration("CHURN_RUN_TIMEOUT", 30*time.Minute),
			Segments:     getEnvInt("CHURN_SEGMENTS", 4),
		},
		Serving: ServingConfig{
			RetentionConfigPath: getEnv("CHURN_RETENTION_CONFIG", ""),
			TLSCertFile:         getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:          getEnv("TLS_KEY_FILE", ""),
			CORSOrigins:         getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			ShutdownTimeout:     getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			GRPCReflection:      getEnvBool("GRPC_REFLECTION", false),
		},
		DB: DBConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "churn"),
			Password: getEnv("DB_PASSWORD", "churn_dev_password"),
			Name:     getEnv("DB_NAME", "churn"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Table:    getEnv("DB_CUSTOMER_TABLE", "customers"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 1)),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", nil),
			SASLMechanism: getEnv("KAFKA_SASL_MECHANISM", "PLAIN"),
			SASLUsername:  getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:  getEnv("KAFKA_SASL_PASSWORD", ""),
			TLS:           getEnvBool("KAFKA_TLS", false),
			SASLEnabled:   getEnvBool("KAFKA_SASL_ENABLED", false),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "churn-service"),
			Insecure:     getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	var errs []error
	switch c.Data.Source {
	case "csv":
		if c.Data.CSVPath == "" {
			errs = append(errs, errors.New("CHURN_DATA_PATH is required for the csv source"))
		}
	case "postgres":
	default:
		errs = append(errs, fmt.Errorf("CHURN_DATA_SOURCE %q is not csv or postgres", c.Data.Source))
	}
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		errs = append(errs, fmt.Errorf("CHURN_TEST_FRACTION %v must be in (0,1)", c.Training.TestFraction))
	}
	if c.Training.Segments < 0 {
		errs = append(errs, fmt.Errorf("CHURN_SEGMENTS %d must not be negative", c.Training.Segments))
	}
	if (c.Serving.TLSCertFile == "") != (c.Serving.TLSKeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}
	if c.Artifacts.ModelDir == "" {
		errs = append(errs, errors.New("CHURN_MODEL_DIR is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// GRPCAddr returns the full gRPC listen address.
func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

// HTTPAddr returns the full HTTP listen address.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// TLSEnabled reports whether the gRPC server should terminate TLS.
func (c Config) TLSEnabled() bool {
	return c.Serving.TLSCertFile != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := cast.ToIntE(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := cast.ToFloat64E(val); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := cast.ToBoolE(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := cast.ToDurationE(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
