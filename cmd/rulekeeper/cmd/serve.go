package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/rulekeeper/internal/bootstrap"
	"github.com/solatis/rulekeeper/internal/core/api"
	"github.com/solatis/rulekeeper/internal/core/config"
	"github.com/solatis/rulekeeper/internal/core/metrics"
	"github.com/solatis/rulekeeper/internal/core/server"
	"github.com/solatis/rulekeeper/internal/store"
)

// Version is overridden at build time with -ldflags "-X ...cmd.Version=...".
var Version = "0.1.0"

const healthInterval = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC rule APIs",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("http-port", 8080, "REST API port")
	serveCmd.Flags().Int("grpc-port", 50051, "gRPC API port")
	serveCmd.Flags().String("rules-file", "", "JSON or YAML file with initial rules")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initial, err := bootstrap.Load(ctx, bootstrap.Sources{RulesFile: cfg.RulesFile, SeedDBURL: cfg.SeedDBURL}, logger)
	if err != nil {
		return fmt.Errorf("failed to load initial rules: %w", err)
	}
	ruleStore, err := store.New(initial...)
	if err != nil {
		return fmt.Errorf("failed to build rule store: %w", err)
	}

	var (
		collector      *metrics.Collector
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector(nil)
		metricsHandler = collector.Handler()
	}

	svc, err := api.NewService(ruleStore, collector, logger, cfg)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	httpServer, err := server.NewHTTPServer(cfg, svc, logger, metricsHandler)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}
	grpcServer, err := server.NewGRPCServer(cfg, svc, logger)
	if err != nil {
		return fmt.Errorf("failed to create grpc server: %w", err)
	}

	logger.Info("starting rulekeeper",
		zap.String("version", Version),
		zap.String("http_addr", cfg.HTTPAddr()),
		zap.String("grpc_addr", cfg.GRPCAddr()),
		zap.Int("rules", ruleStore.Len()),
	)

	errChan := make(chan error, 2)
	go func() { errChan <- httpServer.Start(ctx) }()
	go func() { errChan <- grpcServer.Start(ctx) }()
	go grpcServer.WatchHealth(ctx, healthInterval)

	var serveErr error
	select {
	case serveErr = <-errChan:
		logger.Error("server stopped", zap.Error(serveErr))
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("grpc shutdown", zap.Error(err))
	}
	return serveErr
}

// applyServeFlags lets explicit flags override config file and environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.RuleAPIConfig) error {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("http-port") {
		cfg.HTTPPort, _ = flags.GetInt("http-port")
	}
	if flags.Changed("grpc-port") {
		cfg.GRPCPort, _ = flags.GetInt("grpc-port")
	}
	if flags.Changed("rules-file") {
		cfg.RulesFile, _ = flags.GetString("rules-file")
	}
	if dbURL != "" {
		cfg.SeedDBURL = dbURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.RulesFile != "" {
		if _, err := os.Stat(cfg.RulesFile); err != nil {
			return fmt.Errorf("rules file: %w", err)
		}
	}
	return nil
}
