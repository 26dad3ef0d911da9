package config

import "fmt"

// APIConfig configures the HTTP server exposing metrics and the replay API.
type APIConfig struct {
	// Addr is the listen address. Empty disables the server.
	Addr string `json:"addr"`
	// Token protects the replay endpoints with a bearer token when set.
	Token string `json:"token"`
	// LingerSeconds keeps the server up after the run ends.
	LingerSeconds int `json:"linger_seconds"`
}

func (c *APIConfig) SetDefaults() {}

func (c APIConfig) Validate() error {
	if c.LingerSeconds < 0 {
		return fmt.Errorf("linger_seconds must be non-negative")
	}
	return nil
}
