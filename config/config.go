package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/cost"
	"github.com/kilianp07/ecofleet/core/metrics"
	"github.com/kilianp07/ecofleet/core/replay"
	"github.com/kilianp07/ecofleet/core/search"
	"github.com/kilianp07/ecofleet/core/sim"
	"github.com/kilianp07/ecofleet/infra/mqtt"
	"github.com/kilianp07/ecofleet/infra/redis"
)

type Config struct {
	City       city.GridConfig `json:"city"`
	Fleet      FleetConfig     `json:"fleet"`
	Cost       cost.Config     `json:"cost"`
	Search     search.Config   `json:"search"`
	Simulation sim.Config      `json:"simulation"`
	Metrics    metrics.Config  `json:"metrics"`
	Replay     replay.Config   `json:"replay"`
	MQTT       mqtt.Config     `json:"mqtt"`
	Redis      redis.Config    `json:"redis"`
	API        APIConfig       `json:"api"`
}

// Default returns a configuration with every section defaulted, as used
// when no file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.City.SetDefaults()
	c.Fleet.SetDefaults()
	c.Cost.SetDefaults()
	c.Search.SetDefaults()
	c.Simulation.SetDefaults()
	c.Replay.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
	if c.Redis.Enabled() {
		c.Redis.SetDefaults()
	}
	c.API.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"city", c.City.Validate},
		{"fleet", c.Fleet.Validate},
		{"cost", c.Cost.Validate},
		{"search", c.Search.Validate},
		{"simulation", c.Simulation.Validate},
		{"replay", c.Replay.Validate},
		{"mqtt", c.MQTT.Validate},
		{"redis", c.Redis.Validate},
		{"api", c.API.Validate},
		{"fleet", c.checkSeats},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}

// checkSeats rejects generated requests larger than any vehicle.
func (c *Config) checkSeats() error {
	if c.Simulation.MaxPassengers > c.Fleet.Capacity {
		return fmt.Errorf("capacity %d is below simulation max_passengers %d",
			c.Fleet.Capacity, c.Simulation.MaxPassengers)
	}
	return nil
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides: K_SEARCH__STRATEGY sets search.strategy.
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "k_")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
