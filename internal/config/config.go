package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/docqa-client/internal/core/domain"
)

type Config struct {
	LogLevel string

	BackendURL          string
	DocumentURLTemplate string

	RequestTimeoutSeconds int
	UploadTimeoutSeconds  int

	ProgressIntervalMS   int
	ProgressStep         int
	ProgressCeiling      int
	ProgressResetDelayMS int

	AcceptExtensions []string

	BackendRateLimitRPS   float64
	BackendRateLimitBurst int

	BreakerEnabled            bool
	BreakerMinRequests        int
	BreakerFailureRatio       float64
	BreakerOpenTimeoutSeconds int

	MetricsAddr string

	NATSURL     string
	NATSSubject string

	NoColor bool
}

// Load reads .env, then the optional YAML file named by CONFIG_FILE, then the
// environment. The environment wins over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	file, err := readFileSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}
	src := source{file: file}

	backendURL := strings.TrimRight(src.str("BACKEND_URL", "http://localhost:8000"), "/")

	return Config{
		LogLevel: src.str("LOG_LEVEL", "warn"),

		BackendURL:          backendURL,
		DocumentURLTemplate: src.str("DOCUMENT_URL_TEMPLATE", backendURL+"/documents/"+domain.DocumentIDPlaceholder),

		RequestTimeoutSeconds: src.integer("REQUEST_TIMEOUT_SECONDS", 60),
		UploadTimeoutSeconds:  src.integer("UPLOAD_TIMEOUT_SECONDS", 300),

		ProgressIntervalMS:   src.integer("PROGRESS_INTERVAL_MS", 500),
		ProgressStep:         src.integer("PROGRESS_STEP", 10),
		ProgressCeiling:      src.integer("PROGRESS_CEILING", 90),
		ProgressResetDelayMS: src.integer("PROGRESS_RESET_DELAY_MS", 1000),

		AcceptExtensions: splitList(src.str("ACCEPT_EXTENSIONS", ".pdf,.doc,.docx,.txt")),

		BackendRateLimitRPS:   src.float("BACKEND_RATE_LIMIT_RPS", 0),
		BackendRateLimitBurst: src.integer("BACKEND_RATE_LIMIT_BURST", 1),

		BreakerEnabled:            src.boolean("BREAKER_ENABLED", true),
		BreakerMinRequests:        src.integer("BREAKER_MIN_REQUESTS", 5),
		BreakerFailureRatio:       src.float("BREAKER_FAILURE_RATIO", 0.6),
		BreakerOpenTimeoutSeconds: src.integer("BREAKER_OPEN_TIMEOUT_SECONDS", 15),

		MetricsAddr: src.str("METRICS_ADDR", ""),

		NATSURL:     src.str("NATS_URL", ""),
		NATSSubject: src.str("NATS_SUBJECT", "docqa.document.current"),

		NoColor: src.boolean("NO_COLOR", false),
	}, nil
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSeconds) * time.Second
}

func (c Config) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressIntervalMS) * time.Millisecond
}

func (c Config) ProgressResetDelay() time.Duration {
	return time.Duration(c.ProgressResetDelayMS) * time.Millisecond
}

func (c Config) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.BreakerOpenTimeoutSeconds) * time.Second
}

func readFileSource(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	out := make(map[string]string, len(values))
	for key, value := range values {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			out[strings.ToUpper(key)] = strings.Join(parts, ",")
		default:
			out[strings.ToUpper(key)] = fmt.Sprint(v)
		}
	}
	return out, nil
}

type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) str(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) integer(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func (s source) float(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) boolean(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, part)
	}
	return out
}
