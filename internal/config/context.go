package config

import "context"

// configKey is used to store the loaded config in command contexts.
type configKey struct{}

// NewContext returns a context carrying the loaded config.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from a command context. Returns nil when
// no config was loaded (help and completion paths).
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return nil
}
