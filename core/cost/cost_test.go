package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/ecofleet/core/model"
)

func TestActionCost(t *testing.T) {
	m := NewModel(DefaultConfig())
	ev := &model.Vehicle{ID: "E1", Class: model.Electric, Range: 100, MaxRange: 200}
	ice := &model.Vehicle{ID: "C1", Class: model.Combustion, Range: 100, MaxRange: 600}

	b := m.ActionCost(ev, 10, 20)
	assert.InDelta(t, 0.5, b.Money, 1e-9)
	assert.Zero(t, b.CO2)
	assert.InDelta(t, 0.1*0.5+0.45*20, b.Weighted, 1e-9)

	b = m.ActionCost(ice, 10, 20)
	assert.InDelta(t, 1.5, b.Money, 1e-9)
	assert.InDelta(t, 1200, b.CO2, 1e-9)
	assert.InDelta(t, 0.1*1.5+0.45*20+0.05*1200, b.Weighted, 1e-9)
}

func TestActionCostTimeInMonetary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeTimeInMonetary = true
	m := NewModel(cfg)
	ev := &model.Vehicle{Class: model.Electric, MaxRange: 200}
	b := m.ActionCost(ev, 10, 20)
	assert.InDelta(t, 0.5+20*0.5, b.Money, 1e-9)
}

/*
TestPickupPenalties verifies the fixed penalties.

	Cases:
	- eco passenger in an electric vehicle: no penalty
	- eco passenger in a combustion vehicle: dissatisfaction penalty
	- low battery pickup: risk penalty
*/
func TestPickupPenalties(t *testing.T) {
	m := NewModel(DefaultConfig())
	eco := &model.Request{PrefersZeroEmission: true}
	ev := &model.Vehicle{Class: model.Electric, Range: 150, MaxRange: 200}
	ice := &model.Vehicle{Class: model.Combustion, Range: 500, MaxRange: 600}
	low := &model.Vehicle{Class: model.Electric, Range: 10, MaxRange: 200}

	base := m.Pickup(ev, eco).Weighted
	assert.InDelta(t, 0.45*2, base, 1e-9)
	assert.InDelta(t, base+10, m.Pickup(ice, eco).Weighted, 1e-9)
	assert.InDelta(t, base+5, m.Pickup(low, &model.Request{}).Weighted, 1e-9)
}

func TestRecharge(t *testing.T) {
	m := NewModel(DefaultConfig())
	ev := &model.Vehicle{Class: model.Electric, Range: 189, MaxRange: 200}
	assert.Equal(t, 3.0, m.RechargeMinutes(11))

	b := m.Recharge(ev, 11)
	assert.InDelta(t, 1.1, b.Money, 1e-9)
	assert.InDelta(t, 0.45*3+0.1*1.1, b.Weighted, 1e-9)
	assert.True(t, m.CanRecharge(ev))
	assert.False(t, m.CanRecharge(&model.Vehicle{Range: 200, MaxRange: 200}))
}

func TestCanCarry(t *testing.T) {
	m := NewModel(DefaultConfig())
	v := &model.Vehicle{Range: 12, MaxRange: 200}
	assert.True(t, m.CanCarry(v, 10))
	assert.False(t, m.CanCarry(v, 11))

	cfg := DefaultConfig()
	cfg.PickupSafetyMargin = -1
	assert.True(t, NewModel(cfg).CanCarry(v, 100))
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	assert.NoError(t, c.Validate())
	c.RechargeThreshold = 1.5
	assert.Error(t, c.Validate())
}
