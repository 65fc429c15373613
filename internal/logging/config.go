package logging

import (
	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
)

// DevelopmentLoggingConfig is verbose console output for local runs.
func DevelopmentLoggingConfig() config.LoggingConfig {
	return config.LoggingConfig{
		Level:                "debug",
		Format:               "console",
		Output:               "stdout",
		EnableRequestTracing: true,
		EnableCorrelationIDs: true,
	}
}

// ProductionLoggingConfig emits JSON at info level.
func ProductionLoggingConfig() config.LoggingConfig {
	return config.LoggingConfig{
		Level:                "info",
		Format:               "json",
		Output:               "stdout",
		EnableRequestTracing: true,
		EnableCorrelationIDs: true,
	}
}

// TestLoggingConfig keeps test output quiet.
func TestLoggingConfig() config.LoggingConfig {
	return config.LoggingConfig{
		Level:                "error",
		Format:               "json",
		Output:               "stderr",
		EnableRequestTracing: false,
		EnableCorrelationIDs: false,
	}
}

// SetupEnvironmentLogging replaces cfg.Logging with the preset for
// environment and records the environment on the tracing resource. Unknown
// names leave cfg untouched.
func SetupEnvironmentLogging(cfg *config.Config, environment string) {
	switch environment {
	case "development", "dev":
		cfg.Logging = DevelopmentLoggingConfig()
	case "production", "prod":
		cfg.Logging = ProductionLoggingConfig()
	case "test", "testing":
		cfg.Logging = TestLoggingConfig()
	case "staging", "stage":
		prodConfig := ProductionLoggingConfig()
		prodConfig.Level = "debug"
		cfg.Logging = prodConfig
	default:
		return
	}
	cfg.Tracing.Environment = environment
}
