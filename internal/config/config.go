// Package config loads the pipeline's runtime configuration from the
// environment, following the env.Load convention: Go struct literals
// establish defaults, then env.Load overlays anything set in the
// environment and runs any nested Validator.
package config

import (
	"fmt"

	"github.com/careerdocs/pipeline/internal/env"
)

// Config holds the complete configuration for the orchestrator binary.
type Config struct {
	Mongo         MongoConfig
	Redis         RedisConfig
	AMQP          AMQPConfig
	Admission     AdmissionConfig
	Dispatch      DispatchConfig
	Observability ObservabilityConfig
}

// Load reads Config from the environment, starting from documented
// defaults for every field env.Load does not support defaulting.
func Load() (*Config, error) {
	cfg := &Config{
		AMQP: AMQPConfig{
			RequestQueue:   "career_docs_queue",
			ResponseQueue:  "career_docs_response_queue",
			ManagerQueue:   "application_manager_queue",
			ProvidersQueue: "providers_queue",
			SkyvernQueue:   "skyvern_queue",
		},
		Admission: DefaultAdmissionConfig(),
		Dispatch:  DefaultDispatchConfig(),
		Observability: ObservabilityConfig{
			OTelEnabled: true,
			ServiceName: "careerdocs-pipeline",
		},
	}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}
