package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in command contexts.
type loggerKey struct{}

var configFileUsed string

// findConfigFile finds the config file to use.
// Priority: explicit path > mdlh.yaml > mdlh.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("mdlh.yaml"); err == nil {
		return "mdlh.yaml"
	}
	if _, err := os.Stat("mdlh.yml"); err == nil {
		return "mdlh.yml"
	}
	return ""
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state_path":             DefaultStateFile,
		"verbose":                false,
		"output":                 DefaultOutput,
		"source.type":            DefaultSourceType,
		"refresh.interval":       DefaultInterval,
		"refresh.max_depth":      DefaultMaxDepth,
		"refresh.keep_snapshots": DefaultKeepSnapshots,
		"repair.threshold_days":  DefaultThresholdDays,
		"server.host":            DefaultServerHost,
		"server.port":            DefaultServerPort,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables (MDLH_ prefix)
	// Transform: MDLH_STATE_PATH -> state_path, MDLH_SOURCE__PASSWORD -> source.password
	if err := k.Load(env.Provider("MDLH_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "MDLH_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")

			// The CLI uses --state for brevity; the config key is state_path
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	expandSourceEnvVars(&cfg.Source)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.StatePath == "" {
		return fmt.Errorf("state_path must not be empty")
	}
	if cfg.Refresh.MaxDepth <= 0 {
		return fmt.Errorf("refresh.max_depth must be positive, got %d", cfg.Refresh.MaxDepth)
	}
	if cfg.Refresh.Interval < 0 {
		return fmt.Errorf("refresh.interval must not be negative, got %s", cfg.Refresh.Interval)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	return nil
}

// ConfigFileUsed returns the path to the config file that was loaded, if any.
func ConfigFileUsed() string {
	return configFileUsed
}

// LoggerKey returns the context key used for storing the logger. It lets the
// commands package retrieve the logger without an import cycle with cli.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from a command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

// expandSourceEnvVars expands environment variables in credential-bearing
// source fields so secrets can stay out of mdlh.yaml.
func expandSourceEnvVars(s *SourceConfig) {
	s.User = expandEnvVars(s.User)
	s.Password = expandEnvVars(s.Password)
	s.Host = expandEnvVars(s.Host)
	s.Account = expandEnvVars(s.Account)
	s.Database = expandEnvVars(s.Database)
}
