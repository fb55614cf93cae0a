package config

import "strings"

// DispatchConfig controls which applier queues the Dispatch Publisher uses
// and which portals route to the native-provider path.
type DispatchConfig struct {
	ProvidersEnabled bool `env:"PIPELINE_PROVIDERS_ENABLED"`
	SkyvernEnabled   bool `env:"PIPELINE_SKYVERN_ENABLED"`

	// ProviderPortals is a comma-separated override of the default
	// native-applier portal set. Empty means "use the built-in default".
	ProviderPortals string `env:"PIPELINE_PROVIDER_PORTALS"`
}

// DefaultDispatchConfig returns the documented defaults, applied before
// env.Load since the env package does not read struct-tag defaults.
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		ProvidersEnabled: true,
		SkyvernEnabled:   false,
	}
}

// ParsePortals splits the comma-separated ProviderPortals override into a
// set, trimming whitespace and skipping empty entries. Returns nil if no
// override was configured.
func (c DispatchConfig) ParsePortals() map[string]struct{} {
	if strings.TrimSpace(c.ProviderPortals) == "" {
		return nil
	}
	set := make(map[string]struct{})
	for _, p := range strings.Split(c.ProviderPortals, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}
