// Package config provides configuration management for the rulekeeper service.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/solatis/rulekeeper/internal/types"
)

// RuleAPIConfig holds configuration for the HTTP and gRPC rule APIs.
type RuleAPIConfig struct {
	Host           string
	HTTPPort       int
	GRPCPort       int
	MaxConnections int
	RequestTimeout time.Duration
	MaxBatchSize   int
	MaxBodyBytes   int64
	RulesFile      string
	SeedDBURL      string
	MetricsEnabled bool
}

// DefaultRuleAPIConfig returns configuration with default values.
func DefaultRuleAPIConfig() *RuleAPIConfig {
	return &RuleAPIConfig{
		Host:           "0.0.0.0",
		HTTPPort:       8080,
		GRPCPort:       50051,
		MaxConnections: 1000,
		RequestTimeout: 30 * time.Second,
		MaxBatchSize:   types.DefaultMaxBatchSize,
		MaxBodyBytes:   types.DefaultMaxBodyBytes,
		MetricsEnabled: true,
	}
}

// HTTPAddr returns host:port for the REST listener.
func (c *RuleAPIConfig) HTTPAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.HTTPPort))
}

// GRPCAddr returns host:port for the gRPC listener.
func (c *RuleAPIConfig) GRPCAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.GRPCPort))
}
