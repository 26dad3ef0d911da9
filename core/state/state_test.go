package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/cost"
	"github.com/kilianp07/ecofleet/core/model"
)

// triangle: 1 <-> 2 <-> 3 (charging), 2 -> 4
func triangle(t *testing.T) *city.City {
	t.Helper()
	c := city.New()
	require.NoError(t, c.AddNode(1, 0, 0, city.Street))
	require.NoError(t, c.AddNode(2, 2, 0, city.Street))
	require.NoError(t, c.AddNode(3, 2, 2, city.Charging))
	require.NoError(t, c.AddNode(4, 4, 0, city.Fueling))
	require.NoError(t, c.AddStreet(1, 2, 2, 4))
	require.NoError(t, c.AddStreet(2, 3, 2, 4))
	require.NoError(t, c.AddRoad(2, 4, 2, 4))
	return c
}

func kinds(states []*State) []ActionKind {
	out := make([]ActionKind, len(states))
	for i, s := range states {
		out[i] = s.Action.Kind
	}
	return out
}

func TestSuccessorsPickupAndMove(t *testing.T) {
	g := triangle(t)
	m := cost.NewModel(cost.DefaultConfig())
	req := &model.Request{ID: 100, Origin: 1, Destination: 2, Passengers: 1, Deadline: 60}
	v := &model.Vehicle{ID: "E1", Location: 1, Range: 50, MaxRange: 100, Capacity: 4}
	root := New([]*model.Vehicle{v}, []*model.Request{req}, 0)

	succ := root.Successors(g, m)
	require.Equal(t, []ActionKind{Pickup, Move}, kinds(succ))

	pick := succ[0]
	assert.True(t, pick.Vehicles[0].Occupied)
	assert.Same(t, req, pick.Vehicles[0].Onboard[0])
	assert.Empty(t, pick.Pending)
	assert.Len(t, root.Pending, 1, "parent pending list untouched")
	assert.False(t, root.Vehicles[0].Occupied, "parent vehicle untouched")
	assert.Equal(t, 2.0, pick.Time)
	assert.Same(t, root, pick.Parent)
	assert.Equal(t, "[E1] pickup request 100 at 1", pick.Describe())

	mv := succ[1]
	assert.Equal(t, int64(2), mv.Vehicles[0].Location)
	assert.Equal(t, 48.0, mv.Vehicles[0].Range)
	assert.Equal(t, 4.0, mv.Time)
}

/*
TestSuccessorsPreconditions checks the guards of each action.

	Cases:
	- expired request cannot be picked up
	- request larger than capacity cannot be picked up
	- insufficient range for the trip blocks pickup
	- range below edge distance blocks the move
	- occupied vehicle at destination only drops off or moves
*/
func TestSuccessorsPreconditions(t *testing.T) {
	g := triangle(t)
	m := cost.NewModel(cost.DefaultConfig())

	expired := &model.Request{ID: 1, Origin: 1, Destination: 2, Passengers: 1, Deadline: 5}
	s := New([]*model.Vehicle{{ID: "E1", Location: 1, Range: 50, MaxRange: 100, Capacity: 4}}, []*model.Request{expired}, 6)
	assert.Equal(t, []ActionKind{Move}, kinds(s.Successors(g, m)))

	crowd := &model.Request{ID: 2, Origin: 1, Destination: 2, Passengers: 5, Deadline: 60}
	s = New([]*model.Vehicle{{ID: "E1", Location: 1, Range: 50, MaxRange: 100, Capacity: 4}}, []*model.Request{crowd}, 0)
	assert.Equal(t, []ActionKind{Move}, kinds(s.Successors(g, m)))

	far := &model.Request{ID: 3, Origin: 1, Destination: 4, Passengers: 1, Deadline: 60}
	s = New([]*model.Vehicle{{ID: "E1", Location: 1, Range: 3, MaxRange: 100, Capacity: 4}}, []*model.Request{far}, 0)
	assert.Equal(t, []ActionKind{Move}, kinds(s.Successors(g, m)))

	s = New([]*model.Vehicle{{ID: "E1", Location: 1, Range: 1, MaxRange: 100, Capacity: 4}}, nil, 0)
	assert.Empty(t, s.Successors(g, m))

	ride := &model.Request{ID: 4, Origin: 1, Destination: 2, Passengers: 1, Deadline: 60}
	s = New([]*model.Vehicle{{ID: "E1", Location: 2, Range: 50, MaxRange: 100, Capacity: 4, Occupied: true, Onboard: []*model.Request{ride}}}, nil, 0)
	succ := s.Successors(g, m)
	assert.Equal(t, []ActionKind{Dropoff, Move, Move, Move}, kinds(succ))
	assert.False(t, succ[0].Vehicles[0].Occupied)
	assert.True(t, succ[0].IsGoal())
}

func TestSuccessorsRangeSoundness(t *testing.T) {
	g := triangle(t)
	m := cost.NewModel(cost.DefaultConfig())
	fleet := []*model.Vehicle{
		{ID: "E1", Class: model.Electric, Location: 3, Range: 37, MaxRange: 100, Capacity: 4},
		{ID: "C1", Class: model.Combustion, Location: 3, Range: 10, MaxRange: 600, Capacity: 4},
	}
	root := New(fleet, nil, 0)
	recharges := 0
	for _, s := range root.Successors(g, m) {
		i := s.Action.Vehicle
		parent, child := root.Vehicles[i], s.Vehicles[i]
		switch s.Action.Kind {
		case Move:
			e, ok := g.EdgeCost(s.Action.From, s.Action.To)
			require.True(t, ok)
			assert.LessOrEqual(t, child.Range, parent.Range-e.DistanceKm+1e-9)
			assert.GreaterOrEqual(t, child.Range, 0.0)
		case Recharge:
			recharges++
			assert.Equal(t, child.MaxRange, child.Range)
		}
	}
	assert.Equal(t, 1, recharges, "only the electric vehicle sits on a matching station")

	full := New([]*model.Vehicle{{ID: "E1", Location: 3, Range: 100, MaxRange: 100, Capacity: 4}}, nil, 0)
	for _, s := range full.Successors(g, m) {
		assert.NotEqual(t, Recharge, s.Action.Kind, "full vehicles do not top off")
	}
}

func TestRechargeCost(t *testing.T) {
	g := triangle(t)
	m := cost.NewModel(cost.DefaultConfig())
	root := New([]*model.Vehicle{{ID: "E1", Location: 3, Range: 89, MaxRange: 100, Capacity: 4}}, nil, 10)
	succ := root.Successors(g, m)
	require.Equal(t, Recharge, succ[0].Action.Kind)
	assert.Equal(t, 13.0, succ[0].Time, "11 km at 5 km/min rounds up to 3 minutes")
	assert.InDelta(t, 1.1, succ[0].Money, 1e-9)
}

func TestIsGoal(t *testing.T) {
	req := &model.Request{ID: 1}
	free := &model.Vehicle{ID: "E1"}
	busy := &model.Vehicle{ID: "E2", Occupied: true, Onboard: []*model.Request{req}}

	cases := []struct {
		name    string
		fleet   []*model.Vehicle
		pending []*model.Request
		want    bool
	}{
		{"empty", []*model.Vehicle{free}, nil, true},
		{"pending", []*model.Vehicle{free}, []*model.Request{req}, false},
		{"occupied", []*model.Vehicle{free, busy}, nil, false},
		{"no fleet", nil, nil, true},
	}
	for _, c := range cases {
		s := New(c.fleet, c.pending, 0)
		want := len(s.Pending) == 0
		for _, v := range s.Vehicles {
			want = want && !v.Occupied
		}
		assert.Equal(t, c.want, s.IsGoal(), c.name)
		assert.Equal(t, want, s.IsGoal(), c.name)
	}
}

func TestSignatureIdempotence(t *testing.T) {
	g := triangle(t)
	m := cost.NewModel(cost.DefaultConfig())
	r1 := &model.Request{ID: 7, Origin: 3, Destination: 1, Passengers: 1, Deadline: 99}
	r2 := &model.Request{ID: 8, Origin: 3, Destination: 2, Passengers: 1, Deadline: 99}
	root := New([]*model.Vehicle{{ID: "E1", Location: 1, Range: 59, MaxRange: 100, Capacity: 4}}, []*model.Request{r1, r2}, 0)

	// 1 -> 2 -> 1 -> 2 lands on 2 with 53 km, 1 -> 2 with 57 km: same bucket.
	step := func(s *State, to int64) *State {
		for _, n := range s.Successors(g, m) {
			if n.Action.Kind == Move && n.Action.To == to {
				return n
			}
		}
		t.Fatalf("no move to %d", to)
		return nil
	}
	long := step(step(step(root, 2), 1), 2)
	short := step(root, 2)
	assert.NotEqual(t, long.Cost, short.Cost)
	assert.Equal(t, short.Signature(10), long.Signature(10))

	reordered := New(short.Vehicles, []*model.Request{r2, r1}, 0)
	assert.Equal(t, short.Signature(10), reordered.Signature(10), "pending order is irrelevant")

	assert.NotEqual(t, short.Signature(1), long.Signature(1), "finer buckets separate them")
	other := New(short.Vehicles, []*model.Request{r1}, 0)
	assert.NotEqual(t, short.Signature(10), other.Signature(10))
}

func TestPathRoundTrip(t *testing.T) {
	g := triangle(t)
	m := cost.NewModel(cost.DefaultConfig())
	req := &model.Request{ID: 100, Origin: 1, Destination: 3, Passengers: 1, Deadline: 60}
	root := New([]*model.Vehicle{{ID: "E1", Location: 1, Range: 50, MaxRange: 100, Capacity: 4}}, []*model.Request{req}, 0)

	s := root
	for _, want := range []ActionKind{Pickup, Move, Move, Dropoff} {
		var next *State
		for _, n := range s.Successors(g, m) {
			if n.Action.Kind == want && (want != Move || n.Action.To > n.Action.From) {
				next = n
				break
			}
		}
		require.NotNil(t, next, "missing %s", want)
		s = next
	}
	require.True(t, s.IsGoal())

	path := s.Path()
	require.Len(t, path, 5)
	assert.Same(t, root, path[0])
	recorded := s.Actions()
	for k := 1; k < len(path); k++ {
		a, err := Derive(path[k-1], path[k])
		require.NoError(t, err)
		assert.Equal(t, recorded[k-1], a)
		assert.Equal(t, recorded[k-1].String(), a.String())
	}
	_, err := Derive(path[0], path[0])
	assert.ErrorIs(t, err, ErrNoTransition)
}

func TestCloneDetaches(t *testing.T) {
	req := &model.Request{ID: 1}
	s := New([]*model.Vehicle{{ID: "E1", Range: 5}}, []*model.Request{req}, 3)
	s.Congested = []city.RoadID{{From: 1, To: 2}}
	c := s.Clone()
	c.Vehicles[0].Range = 1
	c.Pending = nil
	c.Congested[0].From = 9
	assert.Equal(t, 5.0, s.Vehicles[0].Range)
	assert.Len(t, s.Pending, 1)
	assert.Equal(t, int64(1), s.Congested[0].From)
	assert.Nil(t, c.Parent)
}
