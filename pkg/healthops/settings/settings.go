// Package settings loads the runtime configuration: model access, the
// conversation store, logging, telemetry and hospital thresholds.
//
// Values are layered: built-in defaults, then an optional config file
// (YAML, JSON or TOML), then explicit overrides such as command-line flags.
// The OpenAI key falls back to the OPENAI_API_KEY environment variable,
// which may come from a .env file.
package settings

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/randalmurphal/healthops/pkg/flowgraph/config"
	fgerrors "github.com/randalmurphal/healthops/pkg/flowgraph/errors"
	"github.com/randalmurphal/healthops/pkg/flowgraph/llm"
	"github.com/randalmurphal/healthops/pkg/flowgraph/observability"
	"github.com/randalmurphal/healthops/pkg/healthops/hospital"
	"github.com/randalmurphal/healthops/pkg/healthops/nodes"
	"github.com/randalmurphal/healthops/pkg/healthops/store"
)

// Keys recognised in config files and overrides.
const (
	KeyOpenAIAPIKey   = "openai_api_key"
	KeyOpenAIBaseURL  = "openai_base_url"
	KeyModelName      = "model_name"
	KeyTemperature    = "temperature"
	KeyMaxTokens      = "max_tokens"
	KeyMaxRetries     = "max_retries"
	KeyRequestTimeout = "request_timeout"
	KeyRetryBackoff   = "retry_backoff"
	KeyStoreBackend   = "store_backend"
	KeyStoreDSN       = "store_dsn"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
	KeyDepartments    = "departments"
	KeyMetrics        = "metrics_enabled"
	KeyTracing        = "tracing_enabled"
	KeyThresholds     = "thresholds"
)

// ErrMissingAPIKey is returned by Validate when no key is configured.
var ErrMissingAPIKey = errors.New("missing required setting: openai_api_key")

// Settings is the resolved configuration.
type Settings struct {
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	ModelName      string
	Temperature    float64
	MaxTokens      int
	MaxRetries     int
	RequestTimeout time.Duration
	RetryBackoff   time.Duration

	StoreBackend string
	StoreDSN     string

	LogLevel  string
	LogFormat string

	Departments    []string
	MetricsEnabled bool
	TracingEnabled bool

	Thresholds hospital.Thresholds
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		ModelName:      llm.DefaultModel,
		Temperature:    0,
		MaxTokens:      1024,
		MaxRetries:     3,
		RequestTimeout: 30 * time.Second,
		RetryBackoff:   time.Second,
		StoreBackend:   store.BackendMemory,
		LogLevel:       "info",
		LogFormat:      observability.FormatText,
		Departments:    append([]string(nil), nodes.DefaultDepartments...),
		Thresholds:     hospital.DefaultThresholds(),
	}
}

// FromConfig overlays cfg on the defaults.
func FromConfig(cfg config.Config) Settings {
	d := Defaults()
	return Settings{
		OpenAIAPIKey:   cfg.String(KeyOpenAIAPIKey, d.OpenAIAPIKey),
		OpenAIBaseURL:  cfg.String(KeyOpenAIBaseURL, d.OpenAIBaseURL),
		ModelName:      cfg.String(KeyModelName, d.ModelName),
		Temperature:    cfg.Float(KeyTemperature, d.Temperature),
		MaxTokens:      cfg.Int(KeyMaxTokens, d.MaxTokens),
		MaxRetries:     cfg.Int(KeyMaxRetries, d.MaxRetries),
		RequestTimeout: cfg.Duration(KeyRequestTimeout, d.RequestTimeout),
		RetryBackoff:   cfg.Duration(KeyRetryBackoff, d.RetryBackoff),
		StoreBackend:   cfg.String(KeyStoreBackend, d.StoreBackend),
		StoreDSN:       cfg.String(KeyStoreDSN, d.StoreDSN),
		LogLevel:       cfg.String(KeyLogLevel, d.LogLevel),
		LogFormat:      cfg.String(KeyLogFormat, d.LogFormat),
		Departments:    cfg.StringSlice(KeyDepartments, d.Departments),
		MetricsEnabled: cfg.Bool(KeyMetrics, d.MetricsEnabled),
		TracingEnabled: cfg.Bool(KeyTracing, d.TracingEnabled),
		Thresholds:     hospital.ThresholdsFromConfig(cfg.Sub(KeyThresholds)),
	}
}

// Load reads .env (if present), the config file at path (if non-empty)
// and then applies overrides. Dotted override keys such as
// "thresholds.supply_low" address nested values.
func Load(path string, overrides map[string]any) (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := config.New(nil)
	if path != "" {
		fileCfg, err := config.FromFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("load config: %w", err)
		}
		cfg = fileCfg
	}
	cfg = cfg.Merge(nest(overrides))

	s := FromConfig(cfg)
	if s.OpenAIAPIKey == "" {
		s.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	return s, nil
}

// nest turns "a.b" keys into nested maps so they merge into file values.
func nest(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		parts := strings.Split(k, ".")
		cur := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cur[p] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = v
	}
	return out
}

// Validate checks the settings needed to run. requireKey is false for
// offline runs with the mock client.
func (s Settings) Validate(requireKey bool) error {
	if requireKey && s.OpenAIAPIKey == "" {
		return ErrMissingAPIKey
	}
	if s.ModelName == "" {
		return invalid(KeyModelName, "must not be empty")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return invalid(KeyTemperature, "must be within [0, 2], got %v", s.Temperature)
	}
	if s.MaxTokens <= 0 {
		return invalid(KeyMaxTokens, "must be positive, got %d", s.MaxTokens)
	}
	if s.MaxRetries < 1 {
		return invalid(KeyMaxRetries, "must be at least 1, got %d", s.MaxRetries)
	}
	switch s.StoreBackend {
	case store.BackendMemory, store.BackendSQLite:
	case store.BackendPostgres:
		if s.StoreDSN == "" {
			return invalid(KeyStoreDSN, "required for the postgres backend")
		}
	default:
		return invalid(KeyStoreBackend, "unknown backend %q", s.StoreBackend)
	}
	if _, err := observability.ParseLevel(s.LogLevel); err != nil {
		return invalid(KeyLogLevel, "%v", err)
	}
	if s.LogFormat != observability.FormatText && s.LogFormat != observability.FormatJSON {
		return invalid(KeyLogFormat, "must be %q or %q", observability.FormatText, observability.FormatJSON)
	}
	if len(s.Departments) == 0 {
		return invalid(KeyDepartments, "must not be empty")
	}
	if err := s.Thresholds.Validate(); err != nil {
		return invalid(KeyThresholds, "%v", err)
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return &fgerrors.ValidationError{Field: key, Message: fmt.Sprintf(format, args...)}
}

// Logger builds the logger described by LogLevel and LogFormat.
func (s Settings) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := observability.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, err
	}
	return observability.NewLogger(level, s.LogFormat, w), nil
}

// NodeOptions returns the node configuration derived from the settings.
func (s Settings) NodeOptions() nodes.Options {
	return nodes.Options{Thresholds: s.Thresholds, Departments: s.Departments}
}

// OpenStore opens the configured conversation store.
func (s Settings) OpenStore() (store.Store, error) {
	return store.Open(s.StoreBackend, s.StoreDSN)
}

// ModelClient wraps base with the configured timeout, retry policy and
// telemetry. The timeout bounds each attempt.
func (s Settings) ModelClient(base llm.Client, logger *slog.Logger) llm.Client {
	client := llm.WithTimeout(base, s.RequestTimeout)
	retry := fgerrors.NewRetryConfig(
		fgerrors.WithMaxAttempts(s.MaxRetries),
		fgerrors.WithInitialBackoff(s.RetryBackoff),
	)
	client = llm.WithRetry(client, retry, logger)

	var metrics observability.MetricsRecorder = observability.NoopMetrics{}
	if s.MetricsEnabled {
		metrics = observability.NewMetricsRecorder()
	}
	var spans observability.SpanManager = observability.NoopSpanManager{}
	if s.TracingEnabled {
		spans = observability.NewSpanManager()
	}
	return llm.Instrument(client, s.ModelName, metrics, spans, logger)
}

// OpenAIClient builds the production client.
func (s Settings) OpenAIClient() (*llm.OpenAIClient, error) {
	opts := []llm.OpenAIOption{
		llm.WithModel(s.ModelName),
		llm.WithDefaultTemperature(s.Temperature),
		llm.WithDefaultMaxTokens(s.MaxTokens),
		llm.WithRequestTimeout(s.RequestTimeout),
	}
	if s.OpenAIBaseURL != "" {
		opts = append(opts, llm.WithBaseURL(s.OpenAIBaseURL))
	}
	return llm.NewOpenAIClient(s.OpenAIAPIKey, opts...)
}
