package config

// ObservabilityConfig holds observability configuration. Defaults are set
// by config.Load before env.Load runs, since the env package does not
// interpret struct-tag defaults.
type ObservabilityConfig struct {
	OTelEnabled bool   `env:"PIPELINE_OTEL_ENABLED"`
	ServiceName string `env:"PIPELINE_SERVICE_NAME"`
}
