package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)

	for name, check := range cfg.Checks {
		cfg.Checks[name] = check.WithDefaults()
	}

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns in secret-bearing fields.
func substituteEnvVars(cfg *Config) {
	cfg.Source.FeatureService.Token = expandEnvVar(cfg.Source.FeatureService.Token)

	cfg.Source.Database.Host = expandEnvVar(cfg.Source.Database.Host)
	cfg.Source.Database.User = expandEnvVar(cfg.Source.Database.User)
	cfg.Source.Database.Password = expandEnvVar(cfg.Source.Database.Password)
	cfg.Source.Database.Database = expandEnvVar(cfg.Source.Database.Database)
	cfg.Source.Database.Path = expandEnvVar(cfg.Source.Database.Path)

	cfg.Notifier.Command.Path = expandEnvVar(cfg.Notifier.Command.Path)
	for i, arg := range cfg.Notifier.Command.Args {
		cfg.Notifier.Command.Args[i] = expandEnvVar(arg)
	}
	cfg.Notifier.SMTP.Host = expandEnvVar(cfg.Notifier.SMTP.Host)
	cfg.Notifier.SMTP.Username = expandEnvVar(cfg.Notifier.SMTP.Username)
	cfg.Notifier.SMTP.Password = expandEnvVar(cfg.Notifier.SMTP.Password)

	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// GetCheck retrieves a specific check configuration by name.
func (c *Config) GetCheck(name string) (*CheckConfig, error) {
	check, exists := c.Checks[name]
	if !exists {
		return nil, fmt.Errorf("check %q not found in configuration", name)
	}
	return &check, nil
}

// ListChecks returns all check names defined in the configuration, sorted.
func (c *Config) ListChecks() []string {
	checks := make([]string, 0, len(c.Checks))
	for name := range c.Checks {
		checks = append(checks, name)
	}
	sort.Strings(checks)
	return checks
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, timeoutSeconds int, skipNotify bool) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if timeoutSeconds > 0 {
		c.Source.TimeoutSeconds = timeoutSeconds
	}
	if skipNotify {
		c.Notifier.Type = NotifierLog
	}
}
