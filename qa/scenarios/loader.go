package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/model"
)

type NodeDef struct {
	ID   int64   `yaml:"id"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	Type string  `yaml:"type,omitempty"`
}

type RoadDef struct {
	From    int64   `yaml:"from"`
	To      int64   `yaml:"to"`
	Km      float64 `yaml:"km"`
	Minutes float64 `yaml:"minutes"`
	OneWay  bool    `yaml:"one_way,omitempty"`
}

type VehicleDef struct {
	ID       string  `yaml:"id"`
	Class    string  `yaml:"class"`
	Location int64   `yaml:"location"`
	Range    float64 `yaml:"range"`
	MaxRange float64 `yaml:"max_range"`
	Capacity int     `yaml:"capacity"`
}

func (v VehicleDef) ToModel() (*model.Vehicle, error) {
	class := model.Electric
	if v.Class != "" {
		c, err := model.ParseVehicleClass(v.Class)
		if err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", v.ID, err)
		}
		class = c
	}
	capacity := v.Capacity
	if capacity == 0 {
		capacity = 4
	}
	veh := &model.Vehicle{
		ID:       v.ID,
		Class:    class,
		Location: v.Location,
		Range:    v.Range,
		MaxRange: v.MaxRange,
		Capacity: capacity,
	}
	return veh, veh.Validate()
}

type RequestDef struct {
	ID          int   `yaml:"id"`
	Origin      int64 `yaml:"origin"`
	Destination int64 `yaml:"destination"`
	Passengers  int   `yaml:"passengers"`
	Deadline    int   `yaml:"deadline"`
	PrefersEco  bool  `yaml:"prefers_eco,omitempty"`
}

func (r RequestDef) ToModel() *model.Request {
	p := r.Passengers
	if p == 0 {
		p = 1
	}
	return &model.Request{
		ID:                  r.ID,
		Origin:              r.Origin,
		Destination:         r.Destination,
		Passengers:          p,
		Deadline:            r.Deadline,
		PrefersZeroEmission: r.PrefersEco,
	}
}

// SimulationDef switches a scenario from a single search to a simulator run
// with the requests injected before the first tick.
type SimulationDef struct {
	MaxTicks         int `yaml:"max_ticks"`
	PlanningBudgetMS int `yaml:"planning_budget_ms"`
}

type Expected struct {
	Solvable    bool     `yaml:"solvable"`
	MinSteps    int      `yaml:"min_steps,omitempty"`
	MaxSteps    int      `yaml:"max_steps,omitempty"`
	MustInclude []string `yaml:"must_include,omitempty"`

	Completed int    `yaml:"completed,omitempty"`
	Failed    int    `yaml:"failed,omitempty"`
	Reason    string `yaml:"reason,omitempty"`
	// NeverPlanned lists request ids the planner must not be offered.
	NeverPlanned []int `yaml:"never_planned,omitempty"`
}

type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Nodes       []NodeDef      `yaml:"nodes"`
	Roads       []RoadDef      `yaml:"roads"`
	Vehicles    []VehicleDef   `yaml:"vehicles"`
	Requests    []RequestDef   `yaml:"requests"`
	Strategies  []string       `yaml:"strategies,omitempty"`
	BucketKm    float64        `yaml:"bucket_km,omitempty"`
	Simulation  *SimulationDef `yaml:"simulation,omitempty"`
	Expected    Expected       `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	return &sc, nil
}

// Build turns the fixture into a city, a fleet and the request list.
func (sc *Scenario) Build() (*city.City, []*model.Vehicle, []*model.Request, error) {
	c := city.New()
	for _, n := range sc.Nodes {
		kind, err := city.ParseNodeType(n.Type)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("node %d: %w", n.ID, err)
		}
		if err := c.AddNode(n.ID, n.X, n.Y, kind); err != nil {
			return nil, nil, nil, err
		}
	}
	for _, r := range sc.Roads {
		add := c.AddStreet
		if r.OneWay {
			add = c.AddRoad
		}
		if err := add(r.From, r.To, r.Km, r.Minutes); err != nil {
			return nil, nil, nil, err
		}
	}
	fleet := make([]*model.Vehicle, 0, len(sc.Vehicles))
	for _, v := range sc.Vehicles {
		veh, err := v.ToModel()
		if err != nil {
			return nil, nil, nil, err
		}
		if err := city.CheckNodes(c, veh.Location); err != nil {
			return nil, nil, nil, fmt.Errorf("vehicle %s: %w", veh.ID, err)
		}
		fleet = append(fleet, veh)
	}
	reqs := make([]*model.Request, 0, len(sc.Requests))
	for _, r := range sc.Requests {
		req := r.ToModel()
		if err := city.CheckNodes(c, req.Origin, req.Destination); err != nil {
			return nil, nil, nil, fmt.Errorf("request %d: %w", req.ID, err)
		}
		if err := req.Validate(); err != nil {
			return nil, nil, nil, err
		}
		reqs = append(reqs, req)
	}
	return c, fleet, reqs, nil
}
