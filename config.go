package manzoori

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from YAML or JSON. The zero-value is useful - all nested
// fields inherit their package defaults.
type Config struct {
	Store  StoreConfig  `json:"store" yaml:"store"`
	Events EventsConfig `json:"events" yaml:"events"`
}

// StoreConfig selects where queued changes live.
type StoreConfig struct {
	// BaseURL roots a durable change store on any afs-resolvable location
	// (plain path, file://, mem://, s3://, ...). Empty keeps changes in
	// memory.
	BaseURL string `json:"baseURL" yaml:"baseURL"`
}

// EventsConfig tunes the capture/decision event stream.
type EventsConfig struct {
	Buffer int `json:"buffer" yaml:"buffer"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Events: EventsConfig{Buffer: 100},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Events.Buffer < 0 {
		return fmt.Errorf("events.buffer must be >= 0")
	}
	return nil
}

// LoadConfig reads a YAML (or JSON) config document from any afs-resolvable
// URL, overlaying the defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", URL, err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return config, nil
}
