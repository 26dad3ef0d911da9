package replay

import (
	"fmt"

	"github.com/kilianp07/ecofleet/core/factory"
)

// Config selects and configures the replay backend.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	DSN        string `json:"dsn"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 7
	}
}

// Validate checks the backend settings.
func (c Config) Validate() error {
	switch c.Backend {
	case "memory":
	case "jsonl", "rotating", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("replay: backend %s requires a path", c.Backend)
		}
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("replay: backend postgres requires a dsn")
		}
	default:
		return fmt.Errorf("replay: unknown backend %q", c.Backend)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("replay: rotation settings must not be negative")
	}
	return nil
}

var backends = factory.NewRegistry[Store]()

func init() {
	_ = backends.Register("memory", func(map[string]any) (Store, error) { return NewMemoryStore(), nil })
	_ = backends.Register("jsonl", func(m map[string]any) (Store, error) {
		var c Config
		if err := factory.Decode(m, &c); err != nil {
			return nil, err
		}
		return NewJSONLStore(c.Path)
	})
	_ = backends.Register("rotating", func(m map[string]any) (Store, error) {
		var c Config
		if err := factory.Decode(m, &c); err != nil {
			return nil, err
		}
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	_ = backends.Register("sqlite", func(m map[string]any) (Store, error) {
		var c Config
		if err := factory.Decode(m, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
	_ = backends.Register("postgres", func(m map[string]any) (Store, error) {
		var c Config
		if err := factory.Decode(m, &c); err != nil {
			return nil, err
		}
		return NewSQLStore(Postgres, c.DSN)
	})
}

// NewStore opens the backend selected by cfg.
func NewStore(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return backends.Create(factory.ModuleConfig{Type: cfg.Backend, Conf: map[string]any{
		"path":         cfg.Path,
		"dsn":          cfg.DSN,
		"max_size_mb":  cfg.MaxSizeMB,
		"max_backups":  cfg.MaxBackups,
		"max_age_days": cfg.MaxAgeDays,
	}})
}
