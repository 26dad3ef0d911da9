package city

import (
	"fmt"
	"math/rand"
)

// GridConfig describes a synthetic Manhattan-style city.
type GridConfig struct {
	Rows             int     `json:"rows"`
	Cols             int     `json:"cols"`
	BlockKm          float64 `json:"block_km"`
	SpeedKmh         float64 `json:"speed_kmh"`
	ChargingStations int     `json:"charging_stations"`
	FuelStations     int     `json:"fuel_stations"`
	Seed             int64   `json:"seed"`
}

// SetDefaults applies sane defaults.
func (c *GridConfig) SetDefaults() {
	if c.Rows == 0 {
		c.Rows = 6
	}
	if c.Cols == 0 {
		c.Cols = 6
	}
	if c.BlockKm == 0 {
		c.BlockKm = 1
	}
	if c.SpeedKmh == 0 {
		c.SpeedKmh = 30
	}
	if c.ChargingStations == 0 {
		c.ChargingStations = 4
	}
	if c.FuelStations == 0 {
		c.FuelStations = 4
	}
}

// Validate checks mandatory fields.
func (c GridConfig) Validate() error {
	if c.Rows < 2 || c.Cols < 2 {
		return fmt.Errorf("grid needs at least 2x2 nodes, got %dx%d", c.Rows, c.Cols)
	}
	if c.BlockKm <= 0 || c.SpeedKmh <= 0 {
		return fmt.Errorf("block_km and speed_kmh must be positive")
	}
	// one garage and at least two street nodes for random requests
	if 1+c.ChargingStations+c.FuelStations+2 > c.Rows*c.Cols {
		return fmt.Errorf("grid %dx%d too small for %d charging and %d fuel stations",
			c.Rows, c.Cols, c.ChargingStations, c.FuelStations)
	}
	return nil
}

// NewGrid builds a grid city with two-way streets between orthogonal
// neighbours. Travel times vary by up to ±20% around the configured speed.
// The garage and energy stations are placed at random nodes drawn from
// cfg.Seed.
func NewGrid(cfg GridConfig) (*City, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	n := cfg.Rows * cfg.Cols
	kinds := make([]NodeType, n)
	perm := rng.Perm(n)
	kinds[perm[0]] = Garage
	for i := 0; i < cfg.ChargingStations; i++ {
		kinds[perm[1+i]] = Charging
	}
	for i := 0; i < cfg.FuelStations; i++ {
		kinds[perm[1+cfg.ChargingStations+i]] = Fueling
	}

	c := New()
	id := func(r, col int) int64 { return int64(r*cfg.Cols + col) }
	for r := 0; r < cfg.Rows; r++ {
		for col := 0; col < cfg.Cols; col++ {
			x, y := float64(col)*cfg.BlockKm, float64(r)*cfg.BlockKm
			if err := c.AddNode(id(r, col), x, y, kinds[id(r, col)]); err != nil {
				return nil, err
			}
		}
	}
	minutes := func() float64 {
		return cfg.BlockKm / cfg.SpeedKmh * 60 * (0.8 + 0.4*rng.Float64())
	}
	for r := 0; r < cfg.Rows; r++ {
		for col := 0; col < cfg.Cols; col++ {
			if col+1 < cfg.Cols {
				if err := c.AddStreet(id(r, col), id(r, col+1), cfg.BlockKm, minutes()); err != nil {
					return nil, err
				}
			}
			if r+1 < cfg.Rows {
				if err := c.AddStreet(id(r, col), id(r+1, col), cfg.BlockKm, minutes()); err != nil {
					return nil, err
				}
			}
		}
	}
	return c, nil
}
