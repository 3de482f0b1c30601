package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/healthops/pkg/flowgraph/config"
)

func TestNew_NilMap(t *testing.T) {
	cfg := config.New(nil)
	assert.NotNil(t, cfg.Raw())
	assert.False(t, cfg.Has("model_name"))
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{"present", map[string]any{"model_name": "gpt-4o"}, "gpt-4o"},
		{"empty string kept", map[string]any{"model_name": ""}, ""},
		{"missing", map[string]any{}, "fallback"},
		{"wrong type", map[string]any{"model_name": 4}, "fallback"},
		{"nil map", nil, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.New(tt.data).String("model_name", "fallback"))
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  time.Duration
	}{
		{"string", "45s", 45 * time.Second},
		{"compound string", "1m30s", 90 * time.Second},
		{"int seconds", 30, 30 * time.Second},
		{"int64 seconds", int64(12), 12 * time.Second},
		{"float seconds", 1.5, 1500 * time.Millisecond},
		{"duration", 2 * time.Minute, 2 * time.Minute},
		{"zero", 0, 0},
		{"bad string", "soon", 10 * time.Second},
		{"wrong type", true, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"request_timeout": tt.value})
			assert.Equal(t, tt.want, cfg.Duration("request_timeout", 10*time.Second))
		})
	}
}

func TestBool(t *testing.T) {
	cfg := config.New(map[string]any{"metrics_enabled": true, "tracing_enabled": "yes"})

	assert.True(t, cfg.Bool("metrics_enabled", false))
	assert.False(t, cfg.Bool("tracing_enabled", false), "strings are not coerced")
	assert.True(t, cfg.Bool("missing", true))
}

func TestInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"int", 3, 3},
		{"int64", int64(5), 5},
		{"whole float", 7.0, 7},
		{"fractional float", 7.5, -1},
		{"string", "3", -1},
		{"negative", -2, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"max_retries": tt.value})
			assert.Equal(t, tt.want, cfg.Int("max_retries", -1))
		})
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{"float", 0.2, 0.2},
		{"int", 1, 1.0},
		{"int64", int64(2), 2.0},
		{"string", "0.2", 9.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"temperature": tt.value})
			assert.InDelta(t, tt.want, cfg.Float("temperature", 9.9), 1e-9)
		})
	}
}

func TestStringSlice(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  []string
	}{
		{"string slice", []string{"ER", "ICU"}, []string{"ER", "ICU"}},
		{"any slice", []any{"ER", "Surgery"}, []string{"ER", "Surgery"}},
		{"mixed slice", []any{"ER", 3}, []string{"default"}},
		{"scalar", "ER", []string{"default"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"departments": tt.value})
			assert.Equal(t, tt.want, cfg.StringSlice("departments", []string{"default"}))
		})
	}
}

func TestAny(t *testing.T) {
	cfg := config.New(map[string]any{"store_backend": "sqlite"})
	assert.Equal(t, "sqlite", cfg.Any("store_backend", nil))
	assert.Nil(t, cfg.Any("store_dsn", nil))
}

func TestDottedKeys(t *testing.T) {
	cfg := config.New(map[string]any{
		"thresholds": map[string]any{
			"occupancy_critical": 90.0,
			"supply": map[string]any{"low": 0.4},
		},
		"log.level": "debug",
	})

	assert.InDelta(t, 90.0, cfg.Float("thresholds.occupancy_critical", 0), 1e-9)
	assert.InDelta(t, 0.4, cfg.Float("thresholds.supply.low", 0), 1e-9)
	assert.True(t, cfg.Has("thresholds.supply"))
	assert.False(t, cfg.Has("thresholds.missing"))
	assert.Equal(t, "debug", cfg.String("log.level", ""), "flat keys win over nesting")
	assert.InDelta(t, 0.4, cfg.Sub("thresholds").Float("supply.low", 0), 1e-9)
	assert.Empty(t, cfg.Sub("log.level").Raw())
}

func TestMerge(t *testing.T) {
	base := config.New(map[string]any{
		"model_name":  "gpt-4o-mini",
		"max_retries": 3,
		"thresholds":  map[string]any{"occupancy_critical": 90.0, "occupancy_high": 80.0},
	})

	merged := base.Merge(map[string]any{
		"model_name": "gpt-4o",
		"thresholds": map[string]any{"occupancy_high": 75.0},
	})

	assert.Equal(t, "gpt-4o", merged.String("model_name", ""))
	assert.Equal(t, 3, merged.Int("max_retries", 0))
	assert.InDelta(t, 90.0, merged.Float("thresholds.occupancy_critical", 0), 1e-9)
	assert.InDelta(t, 75.0, merged.Float("thresholds.occupancy_high", 0), 1e-9)

	// base is untouched
	assert.Equal(t, "gpt-4o-mini", base.String("model_name", ""))
	assert.InDelta(t, 80.0, base.Float("thresholds.occupancy_high", 0), 1e-9)
}

func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
model_name: gpt-4o-mini
temperature: 0
departments: [ER, ICU]
thresholds:
  occupancy_critical: 90
`))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.String("model_name", ""))
	assert.Equal(t, []string{"ER", "ICU"}, cfg.StringSlice("departments", nil))
	assert.InDelta(t, 90.0, cfg.Float("thresholds.occupancy_critical", 0), 1e-9)

	_, err = config.FromYAML([]byte("model_name: [unclosed"))
	assert.ErrorContains(t, err, "parse yaml")
}

func TestFromJSON(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"max_retries": 2, "store_backend": "memory"}`))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Int("max_retries", 0))
	assert.Equal(t, "memory", cfg.String("store_backend", ""))

	_, err = config.FromJSON([]byte(`{"max_retries":`))
	assert.ErrorContains(t, err, "parse json")
}

func TestFromTOML(t *testing.T) {
	cfg, err := config.FromTOML([]byte(`
model_name = "gpt-4o-mini"
max_retries = 4
request_timeout = "20s"

[thresholds]
supply_critical = 0.25
`))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.String("model_name", ""))
	assert.Equal(t, 4, cfg.Int("max_retries", 0))
	assert.Equal(t, 20*time.Second, cfg.Duration("request_timeout", 0))
	assert.InDelta(t, 0.25, cfg.Float("thresholds.supply_critical", 0), 1e-9)

	_, err = config.FromTOML([]byte(`model_name = `))
	assert.ErrorContains(t, err, "parse toml")
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"yaml", write("a.yaml", "store_backend: sqlite\n"), ""},
		{"yml upper case", write("b.YML", "store_backend: sqlite\n"), ""},
		{"json", write("c.json", `{"store_backend": "sqlite"}`), ""},
		{"toml", write("d.toml", `store_backend = "sqlite"`), ""},
		{"unsupported", write("e.ini", "store_backend=sqlite"), "unsupported config file extension"},
		{"missing", filepath.Join(dir, "nope.yaml"), "read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.FromFile(tt.path)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "sqlite", cfg.String("store_backend", ""))
		})
	}
}
