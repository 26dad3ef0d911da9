package config

import (
	"fmt"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/model"
)

// FleetConfig sizes the fleet. Every vehicle starts at the garage with a
// full battery or tank.
type FleetConfig struct {
	Electric          int     `json:"electric"`
	Combustion        int     `json:"combustion"`
	ElectricRangeKm   float64 `json:"electric_range_km"`
	CombustionRangeKm float64 `json:"combustion_range_km"`
	Capacity          int     `json:"capacity"`
}

// SetDefaults applies sane defaults.
func (c *FleetConfig) SetDefaults() {
	if c.Electric == 0 && c.Combustion == 0 {
		c.Electric, c.Combustion = 2, 1
	}
	if c.ElectricRangeKm == 0 {
		c.ElectricRangeKm = 200
	}
	if c.CombustionRangeKm == 0 {
		c.CombustionRangeKm = 600
	}
	if c.Capacity == 0 {
		c.Capacity = 4
	}
}

// Validate checks mandatory fields.
func (c FleetConfig) Validate() error {
	if c.Electric < 0 || c.Combustion < 0 || c.Electric+c.Combustion == 0 {
		return fmt.Errorf("fleet needs at least one vehicle")
	}
	if c.ElectricRangeKm <= 0 || c.CombustionRangeKm <= 0 || c.Capacity <= 0 {
		return fmt.Errorf("ranges and capacity must be positive")
	}
	return nil
}

// Build creates the fleet at the garage of g, or at its first node when the
// city has no garage. Electric vehicles are named E1..En, combustion ones C1..Cn.
func (c FleetConfig) Build(g *city.City) ([]*model.Vehicle, error) {
	start, err := garage(g)
	if err != nil {
		return nil, err
	}
	fleet := make([]*model.Vehicle, 0, c.Electric+c.Combustion)
	add := func(prefix string, n int, class model.VehicleClass, km float64) {
		for i := 1; i <= n; i++ {
			fleet = append(fleet, &model.Vehicle{
				ID:       fmt.Sprintf("%s%d", prefix, i),
				Class:    class,
				Location: start,
				Range:    km,
				MaxRange: km,
				Capacity: c.Capacity,
			})
		}
	}
	add("E", c.Electric, model.Electric, c.ElectricRangeKm)
	add("C", c.Combustion, model.Combustion, c.CombustionRangeKm)
	return fleet, nil
}

func garage(g *city.City) (int64, error) {
	if ids := g.NodesOfType(city.Garage); len(ids) > 0 {
		return ids[0], nil
	}
	if ids := g.Nodes(); len(ids) > 0 {
		return ids[0], nil
	}
	return 0, fmt.Errorf("city has no nodes")
}
