package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
	"github.com/dil-najha/Performance-Insights-sub001/internal/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var configPath, environment string
	flag.StringVar(&configPath, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&environment, "env", "", "Logging preset: development, staging, production or test")
	flag.Usage = printUsage
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if environment != "" {
		logging.SetupEnvironmentLogging(cfg, environment)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg, version)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Performance Insights Server

Usage:
  %s [options]

Options:
  -config string
        Path to configuration file (YAML)
  -env string
        Logging preset (development, staging, production, test);
        replaces the logging section of the configuration
  -h, --help
        Show this help message

Environment Variables:
  Any setting can be overridden with a PI_ prefixed variable, for example
  PI_SERVER_PORT, PI_HISTORY_DATA_PATH or PI_CACHE_BACKEND.

Examples:
  # Start with defaults
  %s

  # Start with a config file
  %s -config /etc/perf-insights/config.yaml

  # Production logging preset
  %s -env production

  # Keep history in memory and use redis for the result cache
  PI_HISTORY_IN_MEMORY=true PI_CACHE_BACKEND=redis %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}
