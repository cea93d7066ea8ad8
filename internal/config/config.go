// Package config loads the engine's startup configuration from a JSON
// file, following the same pointer-field-with-defaults pattern the
// teacher's tuning config used: every field is optional, so a partial
// file only overrides what it mentions.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// Config is the root engine configuration. Every field is a pointer so
// a partially-specified JSON file leaves the rest at their defaults.
type Config struct {
	StoreRoot             *string `json:"store_root,omitempty"`
	BusCapacity           *int    `json:"bus_capacity,omitempty"`
	DetectionRangeMeters  *float64 `json:"detection_range_meters,omitempty"`
	DetectionRadiusMeters *float64 `json:"detection_radius_meters,omitempty"`
	IndexPath             *string `json:"index_path,omitempty"`
	GNSSSource            *string `json:"gnss_source,omitempty"`
}

// Valid values for GNSSSource.
const (
	GNSSSourceFake   = "fake"
	GNSSSourceSerial = "serial"
	GNSSSourcePCAP   = "pcap"
	GNSSSourceGPSD   = "gpsd"
)

// DefaultConfig returns the baseline configuration used when no file is
// given, or when a field is omitted from the loaded file.
func DefaultConfig() *Config {
	storeRoot := "rapid"
	if dir, err := os.UserCacheDir(); err == nil {
		storeRoot = filepath.Join(dir, "rapid")
	}
	return &Config{
		StoreRoot:             ptrString(storeRoot),
		BusCapacity:           ptrInt(100),
		DetectionRangeMeters:  ptrFloat64(25.0),
		DetectionRadiusMeters: ptrFloat64(500.0),
		IndexPath:             ptrString(filepath.Join(storeRoot, "index.db")),
		GNSSSource:            ptrString(GNSSSourceFake),
	}
}

// EmptyConfig returns a Config with every field nil. LoadConfig unmarshals
// into one of these so only the fields present in the file are set; call
// WithDefaults to fill in the rest.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig reads and validates a configuration file. The file must
// have a .json extension and be under 1MB. Fields it omits remain nil;
// call WithDefaults on the result to get a fully-populated Config.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// WithDefaults returns a copy of c with every nil field filled in from
// DefaultConfig.
func (c *Config) WithDefaults() *Config {
	d := DefaultConfig()
	merged := *c
	if merged.StoreRoot == nil {
		merged.StoreRoot = d.StoreRoot
	}
	if merged.BusCapacity == nil {
		merged.BusCapacity = d.BusCapacity
	}
	if merged.DetectionRangeMeters == nil {
		merged.DetectionRangeMeters = d.DetectionRangeMeters
	}
	if merged.DetectionRadiusMeters == nil {
		merged.DetectionRadiusMeters = d.DetectionRadiusMeters
	}
	if merged.IndexPath == nil {
		merged.IndexPath = d.IndexPath
	}
	if merged.GNSSSource == nil {
		merged.GNSSSource = d.GNSSSource
	}
	return &merged
}

// Validate checks that any set fields hold sane values.
func (c *Config) Validate() error {
	if c.BusCapacity != nil && *c.BusCapacity <= 0 {
		return fmt.Errorf("bus_capacity must be positive, got %d", *c.BusCapacity)
	}
	if c.DetectionRangeMeters != nil && *c.DetectionRangeMeters <= 0 {
		return fmt.Errorf("detection_range_meters must be positive, got %f", *c.DetectionRangeMeters)
	}
	if c.DetectionRadiusMeters != nil && *c.DetectionRadiusMeters <= 0 {
		return fmt.Errorf("detection_radius_meters must be positive, got %f", *c.DetectionRadiusMeters)
	}
	if c.GNSSSource != nil {
		switch *c.GNSSSource {
		case GNSSSourceFake, GNSSSourceSerial, GNSSSourcePCAP, GNSSSourceGPSD:
		default:
			return fmt.Errorf("gnss_source must be one of fake, serial, pcap, gpsd, got %q", *c.GNSSSource)
		}
	}
	return nil
}

// GetStoreRoot returns StoreRoot or its default.
func (c *Config) GetStoreRoot() string {
	if c.StoreRoot == nil {
		return *DefaultConfig().StoreRoot
	}
	return *c.StoreRoot
}

// GetBusCapacity returns BusCapacity or its default.
func (c *Config) GetBusCapacity() int {
	if c.BusCapacity == nil {
		return *DefaultConfig().BusCapacity
	}
	return *c.BusCapacity
}

// GetDetectionRangeMeters returns DetectionRangeMeters or its default.
func (c *Config) GetDetectionRangeMeters() float64 {
	if c.DetectionRangeMeters == nil {
		return *DefaultConfig().DetectionRangeMeters
	}
	return *c.DetectionRangeMeters
}

// GetDetectionRadiusMeters returns DetectionRadiusMeters or its default.
func (c *Config) GetDetectionRadiusMeters() float64 {
	if c.DetectionRadiusMeters == nil {
		return *DefaultConfig().DetectionRadiusMeters
	}
	return *c.DetectionRadiusMeters
}

// GetIndexPath returns IndexPath or its default.
func (c *Config) GetIndexPath() string {
	if c.IndexPath == nil {
		return *DefaultConfig().IndexPath
	}
	return *c.IndexPath
}

// GetGNSSSource returns GNSSSource or its default.
func (c *Config) GetGNSSSource() string {
	if c.GNSSSource == nil {
		return *DefaultConfig().GNSSSource
	}
	return *c.GNSSSource
}
