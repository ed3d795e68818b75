package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*RuleAPIConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultRuleAPIConfig
	d := DefaultRuleAPIConfig()
	v.SetDefault("rule_api.host", d.Host)
	v.SetDefault("rule_api.http_port", d.HTTPPort)
	v.SetDefault("rule_api.grpc_port", d.GRPCPort)
	v.SetDefault("rule_api.max_connections", d.MaxConnections)
	v.SetDefault("rule_api.request_timeout", d.RequestTimeout.String())
	v.SetDefault("rule_api.max_batch_size", d.MaxBatchSize)
	v.SetDefault("rule_api.max_body_bytes", d.MaxBodyBytes)
	v.SetDefault("rule_api.rules_file", "")
	v.SetDefault("rule_api.seed_db_url", "")
	v.SetDefault("rule_api.metrics_enabled", d.MetricsEnabled)

	// Bind environment variables with RK_ prefix
	v.SetEnvPrefix("RK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Credentials must come from the environment, never the file.
		if err := validateNoSecretsInConfig(configPath); err != nil {
			return nil, err
		}
	}

	cfg := &RuleAPIConfig{
		Host:           v.GetString("rule_api.host"),
		HTTPPort:       v.GetInt("rule_api.http_port"),
		GRPCPort:       v.GetInt("rule_api.grpc_port"),
		MaxConnections: v.GetInt("rule_api.max_connections"),
		RequestTimeout: v.GetDuration("rule_api.request_timeout"),
		MaxBatchSize:   v.GetInt("rule_api.max_batch_size"),
		MaxBodyBytes:   v.GetInt64("rule_api.max_body_bytes"),
		RulesFile:      v.GetString("rule_api.rules_file"),
		SeedDBURL:      v.GetString("rule_api.seed_db_url"),
		MetricsEnabled: v.GetBool("rule_api.metrics_enabled"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks port ranges, distinct listeners and positive limits.
func (c *RuleAPIConfig) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.GRPCPort <= 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("grpc_port must be between 1 and 65535, got %d", c.GRPCPort)
	}
	if c.HTTPPort == c.GRPCPort {
		return fmt.Errorf("http_port and grpc_port must differ, both are %d", c.HTTPPort)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", c.MaxConnections)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", c.RequestTimeout)
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", c.MaxBatchSize)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

// validateNoSecretsInConfig rejects a seed database URL with an embedded
// password in the config file itself (12-factor principle). The same URL is
// accepted from RK_RULE_API_SEED_DB_URL or --db-url.
func validateNoSecretsInConfig(configPath string) error {
	file := viper.New()
	file.SetConfigFile(configPath)
	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	raw := file.GetString("rule_api.seed_db_url")
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid seed_db_url: %w", err)
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return fmt.Errorf("database passwords not allowed in config files (use RK_RULE_API_SEED_DB_URL environment variable)")
	}
	return nil
}
