/*
Package config provides typed access to loosely structured configuration.

A Config wraps a map[string]any as decoded from YAML, JSON or TOML and
returns the supplied default whenever a key is missing or holds a value of
the wrong shape:

	cfg, err := config.FromFile("healthops.toml")
	if err != nil {
	    return err
	}
	timeout := cfg.Duration("request_timeout", 30*time.Second)
	critical := cfg.Float("thresholds.occupancy_critical", 90)

Dotted keys descend into nested tables. A flat key containing a dot takes
precedence over nesting.

# Type Coercion

Duration accepts a time.ParseDuration string, a number of seconds (int,
int64, float64) or a time.Duration. Int accepts float64 only when it has no
fractional part. Float accepts any integer type.

# Layering

Merge returns a new Config with overrides applied on top. Nested maps merge
recursively, so a partial thresholds table only replaces the keys it names.

Config is safe for concurrent reads. Nothing in this package modifies a map
after it is wrapped.
*/
package config
