package config

import "time"

// AdmissionConfig controls the Refill Loop's admission behavior.
type AdmissionConfig struct {
	// MaxInflight is the maximum number of requests the Refill Loop lets
	// sit in career_docs_queue at once (MAX_INFLIGHT).
	MaxInflight int `env:"PIPELINE_MAX_INFLIGHT"`

	// RefillPeriod is how often the timer trigger runs a refill cycle,
	// independent of the event and external triggers.
	RefillPeriod time.Duration `env:"PIPELINE_REFILL_PERIOD"`
}

// DefaultAdmissionConfig returns the documented defaults as Go values,
// applied before env.Load since the env package does not read struct-tag
// defaults.
func DefaultAdmissionConfig() AdmissionConfig {
	return AdmissionConfig{
		MaxInflight:  100,
		RefillPeriod: 600 * time.Second,
	}
}
