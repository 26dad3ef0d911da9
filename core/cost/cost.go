// Package cost prices fleet actions in money, time and emissions and folds
// them into the weighted cost the planner minimises.
package cost

import (
	"fmt"
	"math"

	"github.com/kilianp07/ecofleet/core/model"
)

// Config holds the weights and rates of the cost model.
type Config struct {
	// Alpha, Beta and Gamma weight money, minutes and grams of CO2. They are
	// not required to sum to one.
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`

	RateElectricPerKm     float64 `json:"rate_electric_per_km"`
	RateCombustionPerKm   float64 `json:"rate_combustion_per_km"`
	RatePerMinute         float64 `json:"rate_per_minute"`
	IncludeTimeInMonetary bool    `json:"include_time_in_monetary"`
	CO2PerKmCombustion    float64 `json:"co2_per_km_combustion"`

	ServiceMinutes         float64 `json:"service_minutes"`
	LowBatteryFraction     float64 `json:"low_battery_fraction"`
	RechargeKmPerMinute    float64 `json:"recharge_km_per_minute"`
	EnergyPricePerKm       float64 `json:"energy_price_per_km"`
	DissatisfactionPenalty float64 `json:"dissatisfaction_penalty"`
	RiskPenalty            float64 `json:"risk_penalty"`
	// PickupSafetyMargin multiplies the trip distance a vehicle must be able
	// to cover before boarding. A negative value disables the check.
	PickupSafetyMargin float64 `json:"pickup_safety_margin"`
	// RechargeThreshold is the range fraction below which recharging is
	// allowed. One means any vehicle below max range.
	RechargeThreshold float64 `json:"recharge_threshold"`
}

// DefaultConfig returns the reference tariff.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills zero values with the reference tariff. Alpha, Beta and
// Gamma are only defaulted when all three are zero.
func (c *Config) SetDefaults() {
	if c.Alpha == 0 && c.Beta == 0 && c.Gamma == 0 {
		c.Alpha, c.Beta, c.Gamma = 0.1, 0.45, 0.05
	}
	setDefault(&c.RateElectricPerKm, 0.05)
	setDefault(&c.RateCombustionPerKm, 0.15)
	setDefault(&c.RatePerMinute, 0.5)
	setDefault(&c.CO2PerKmCombustion, 120)
	setDefault(&c.ServiceMinutes, 2)
	setDefault(&c.LowBatteryFraction, 0.2)
	setDefault(&c.RechargeKmPerMinute, 5)
	setDefault(&c.EnergyPricePerKm, 0.1)
	setDefault(&c.DissatisfactionPenalty, 10)
	setDefault(&c.RiskPenalty, 5)
	setDefault(&c.PickupSafetyMargin, 1.1)
	setDefault(&c.RechargeThreshold, 1)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Alpha < 0 || c.Beta < 0 || c.Gamma < 0 {
		return fmt.Errorf("cost weights must be non-negative")
	}
	if c.RechargeKmPerMinute <= 0 {
		return fmt.Errorf("recharge_km_per_minute must be positive")
	}
	if c.RechargeThreshold <= 0 || c.RechargeThreshold > 1 {
		return fmt.Errorf("recharge_threshold must be in (0, 1]")
	}
	if c.LowBatteryFraction < 0 || c.LowBatteryFraction >= 1 {
		return fmt.Errorf("low_battery_fraction must be in [0, 1)")
	}
	return nil
}

func setDefault(v *float64, d float64) {
	if *v == 0 {
		*v = d
	}
}

// Breakdown is the price of one action.
type Breakdown struct {
	Weighted float64
	Money    float64
	CO2      float64
}

// Add returns the component-wise sum.
func (b Breakdown) Add(o Breakdown) Breakdown {
	return Breakdown{Weighted: b.Weighted + o.Weighted, Money: b.Money + o.Money, CO2: b.CO2 + o.CO2}
}

// Model evaluates actions against a Config.
type Model struct {
	cfg Config
}

// NewModel returns a cost model for cfg.
func NewModel(cfg Config) *Model { return &Model{cfg: cfg} }

// Config returns the model configuration.
func (m *Model) Config() Config { return m.cfg }

// RatePerKm returns the running cost of the vehicle class.
func (m *Model) RatePerKm(class model.VehicleClass) float64 {
	if class == model.Combustion {
		return m.cfg.RateCombustionPerKm
	}
	return m.cfg.RateElectricPerKm
}

// Emissions returns the grams of CO2 emitted over km.
func (m *Model) Emissions(class model.VehicleClass, km float64) float64 {
	if class == model.Combustion {
		return km * m.cfg.CO2PerKmCombustion
	}
	return 0
}

// ActionCost prices driving km in minutes with the given vehicle.
func (m *Model) ActionCost(v *model.Vehicle, km, minutes float64) Breakdown {
	money := km * m.RatePerKm(v.Class)
	if m.cfg.IncludeTimeInMonetary {
		money += minutes * m.cfg.RatePerMinute
	}
	co2 := m.Emissions(v.Class, km)
	return Breakdown{
		Weighted: m.cfg.Alpha*money + m.cfg.Beta*minutes + m.cfg.Gamma*co2,
		Money:    money,
		CO2:      co2,
	}
}

// Pickup prices boarding r into v, penalties included.
func (m *Model) Pickup(v *model.Vehicle, r *model.Request) Breakdown {
	b := m.ActionCost(v, 0, m.cfg.ServiceMinutes)
	if r.PrefersZeroEmission && v.Class == model.Combustion {
		b.Weighted += m.cfg.DissatisfactionPenalty
	}
	if v.RangeFraction() < m.cfg.LowBatteryFraction {
		b.Weighted += m.cfg.RiskPenalty
	}
	return b
}

// Dropoff prices alighting.
func (m *Model) Dropoff(v *model.Vehicle) Breakdown {
	return m.ActionCost(v, 0, m.cfg.ServiceMinutes)
}

// RechargeMinutes returns the whole minutes needed to recover km of range.
func (m *Model) RechargeMinutes(km float64) float64 {
	return math.Ceil(km / m.cfg.RechargeKmPerMinute)
}

// Recharge prices restoring km of range. Energy is billed on top of the time.
func (m *Model) Recharge(v *model.Vehicle, km float64) Breakdown {
	b := m.ActionCost(v, 0, m.RechargeMinutes(km))
	energy := km * m.cfg.EnergyPricePerKm
	b.Money += energy
	b.Weighted += m.cfg.Alpha * energy
	return b
}

// CanRecharge reports whether v is low enough to be worth recharging.
func (m *Model) CanRecharge(v *model.Vehicle) bool {
	return v.Range < v.MaxRange*m.cfg.RechargeThreshold
}

// CanCarry reports whether v has enough range for the trip distance km
// under the safety margin policy.
func (m *Model) CanCarry(v *model.Vehicle, km float64) bool {
	if m.cfg.PickupSafetyMargin < 0 {
		return true
	}
	return v.Range >= km*m.cfg.PickupSafetyMargin
}
