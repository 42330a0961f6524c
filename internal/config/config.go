package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/flagday/scorecard/internal/platform/logging"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Config stores runtime configuration for the scorecard service.
type Config struct {
	AppEnv                  string
	ServiceName             string
	ServiceVersion          string
	HTTPAddr                string
	DBURL                   string
	DBDisablePreparedBinary bool
	CORSAllowedOrigins      []string
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	ScorerToken             string

	PprofEnabled bool
	PprofAddr    string

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	TickerEnabled               bool
	TickerBaseURL               string
	TickerToken                 string
	TickerTimeout               time.Duration
	TickerMaxRetries            int
	TickerCircuitEnabled        bool
	TickerCircuitFailureCount   int
	TickerCircuitOpenTimeout    time.Duration
	TickerCircuitHalfOpenMaxReq int

	LogLevel logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	tickerEnabled, err := strconv.ParseBool(getEnv("TICKER_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TICKER_ENABLED: %w", err)
	}
	tickerBaseURL := strings.TrimSpace(getEnv("TICKER_BASE_URL", ""))
	if tickerEnabled && tickerBaseURL == "" {
		return Config{}, fmt.Errorf("TICKER_BASE_URL is required when TICKER_ENABLED=true")
	}
	tickerTimeout, err := time.ParseDuration(getEnv("TICKER_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TICKER_TIMEOUT: %w", err)
	}
	if tickerTimeout <= 0 {
		return Config{}, fmt.Errorf("TICKER_TIMEOUT must be > 0")
	}
	tickerMaxRetries, err := getEnvAsInt("TICKER_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse TICKER_MAX_RETRIES: %w", err)
	}
	if tickerMaxRetries < 0 {
		return Config{}, fmt.Errorf("TICKER_MAX_RETRIES must be >= 0")
	}
	tickerCircuitEnabled, err := strconv.ParseBool(getEnv("TICKER_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TICKER_CIRCUIT_ENABLED: %w", err)
	}
	tickerCircuitFailureCount, err := getEnvAsInt("TICKER_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse TICKER_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if tickerCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("TICKER_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	tickerCircuitOpenTimeout, err := time.ParseDuration(getEnv("TICKER_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TICKER_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if tickerCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("TICKER_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	tickerCircuitHalfOpenMaxReq, err := getEnvAsInt("TICKER_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse TICKER_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if tickerCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("TICKER_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	cfg := Config{
		AppEnv:                      appEnv,
		ServiceName:                 getEnv("APP_SERVICE_NAME", "scorecard-api"),
		ServiceVersion:              getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                    getEnv("APP_HTTP_ADDR", ":8080"),
		DBURL:                       getEnv("DB_URL", ""),
		DBDisablePreparedBinary:     dbDisablePreparedBinary,
		CORSAllowedOrigins:          splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ReadTimeout:                 readTimeout,
		WriteTimeout:                writeTimeout,
		ScorerToken:                 strings.TrimSpace(getEnv("SCORER_TOKEN", "")),
		PprofEnabled:                pprofEnabled,
		PprofAddr:                   pprofAddr,
		UptraceEnabled:              uptraceEnabled,
		UptraceDSN:                  uptraceDSN,
		PyroscopeEnabled:            pyroscopeEnabled,
		PyroscopeServerAddress:      pyroscopeServerAddress,
		PyroscopeAuthToken:          strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:      strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:  strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:         pyroscopeUploadRate,
		TickerEnabled:               tickerEnabled,
		TickerBaseURL:               tickerBaseURL,
		TickerToken:                 strings.TrimSpace(getEnv("TICKER_TOKEN", "")),
		TickerTimeout:               tickerTimeout,
		TickerMaxRetries:            tickerMaxRetries,
		TickerCircuitEnabled:        tickerCircuitEnabled,
		TickerCircuitFailureCount:   tickerCircuitFailureCount,
		TickerCircuitOpenTimeout:    tickerCircuitOpenTimeout,
		TickerCircuitHalfOpenMaxReq: tickerCircuitHalfOpenMaxReq,
		LogLevel:                    parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}

	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parseAppEnv(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case EnvDev:
		return EnvDev, nil
	case EnvProd:
		return EnvProd, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q, expected %s or %s", v, EnvDev, EnvProd)
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}
