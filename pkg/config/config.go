// Package config loads application configuration from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Data is the complete application configuration.
type Data struct {
	Stations  StationsData  `yaml:"stations"`
	Resolver  ResolverData  `yaml:"resolver"`
	Providers ProvidersData `yaml:"providers"`
	Cache     CacheData     `yaml:"cache"`
	REST      *RESTData     `yaml:"rest,omitempty"`
}

// StationsData configures the station index.
type StationsData struct {
	File                 string `yaml:"file"`
	Country              string `yaml:"country,omitempty"`
	CapabilityCutoffYear int    `yaml:"capability_cutoff_year,omitempty"`
	QualityRecencyYear   int    `yaml:"quality_recency_year,omitempty"`
	RefreshMinutes       int    `yaml:"refresh_minutes,omitempty"`
}

// ResolverData configures distance reporting and the tier ceiling.
type ResolverData struct {
	Unit    string  `yaml:"unit,omitempty"`    // "km" (default) or "mi"
	Ceiling float64 `yaml:"ceiling,omitempty"` // in Unit; 0 means the 200 km default
}

// ProvidersData configures the remote data sources per tier.
type ProvidersData struct {
	NCEI           NCEIData           `yaml:"ncei,omitempty"`
	VisualCrossing VisualCrossingData `yaml:"visualcrossing,omitempty"`
	OpenMeteo      OpenMeteoData      `yaml:"openmeteo,omitempty"`
}

// NCEIData configures the station-network archive client.
type NCEIData struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// VisualCrossingData configures the secondary provider.
type VisualCrossingData struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	APIKey         string `yaml:"api_key,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// OpenMeteoData configures the gridded archive used for the modeled and
// reanalysis tiers.
type OpenMeteoData struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// CacheData configures the fetched-record cache.
type CacheData struct {
	Path     string `yaml:"path,omitempty"` // empty disables caching
	TTLHours int    `yaml:"ttl_hours,omitempty"`
}

// RESTData configures the HTTP API server.
type RESTData struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// Load reads and validates a YAML configuration file.
func Load(filename string) (*Data, error) {
	cfgFile, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var data Data
	if err := yaml.Unmarshal(cfgFile, &data); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &data, nil
}

// Validate checks the loaded configuration for required fields and obvious
// mistakes.
func (d *Data) Validate() error {
	if d.Stations.File == "" {
		return fmt.Errorf("stations.file is required")
	}
	if d.Resolver.Ceiling < 0 {
		return fmt.Errorf("resolver.ceiling must be non-negative, got %v", d.Resolver.Ceiling)
	}
	switch d.Resolver.Unit {
	case "", "km", "mi":
	default:
		return fmt.Errorf("resolver.unit must be \"km\" or \"mi\", got %q", d.Resolver.Unit)
	}
	if d.Stations.RefreshMinutes < 0 {
		return fmt.Errorf("stations.refresh_minutes must be non-negative, got %d", d.Stations.RefreshMinutes)
	}
	if d.REST != nil && d.REST.ListenAddr == "" {
		d.REST.ListenAddr = ":8080"
	}
	return nil
}
