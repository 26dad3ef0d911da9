// Package city holds the road network consulted by the planner and the
// simulator. Provider is the contract the search engine depends on; City is
// the gonum-backed implementation used by the CLI, the scenarios and tests.
package city

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrUnknownNode reports a lookup of a node the provider does not know.
var ErrUnknownNode = errors.New("unknown node")

// NodeType classifies intersections.
type NodeType int

const (
	Street NodeType = iota
	Garage
	Charging
	Fueling
)

// String returns a human-readable representation of the node type.
func (t NodeType) String() string {
	switch t {
	case Street:
		return "street"
	case Garage:
		return "garage"
	case Charging:
		return "charging"
	case Fueling:
		return "fueling"
	default:
		return "unknown"
	}
}

// ParseNodeType converts a fixture string into a NodeType.
func ParseNodeType(s string) (NodeType, error) {
	switch s {
	case "", "street":
		return Street, nil
	case "garage":
		return Garage, nil
	case "charging":
		return Charging, nil
	case "fueling", "fuel":
		return Fueling, nil
	default:
		return 0, fmt.Errorf("unknown node type %q", s)
	}
}

// Edge is the cost of traversing a directed road.
type Edge struct {
	DistanceKm float64
	TimeMin    float64
}

// RoadID identifies a directed road.
type RoadID struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Provider exposes the road network to states, heuristics and the simulator.
// Implementations must be safe for concurrent readers.
type Provider interface {
	HasNode(id int64) bool
	// Neighbors returns the heads of the roads leaving id, in ascending order.
	Neighbors(id int64) []int64
	// EdgeCost returns false when there is no road from u to v.
	EdgeCost(u, v int64) (Edge, bool)
	NodeType(id int64) NodeType
	// StraightLine is a guidance estimate only and never a traversal cost.
	StraightLine(a, b int64) float64
	RandomFreeLocation(rng *rand.Rand) int64
}

// CheckNodes returns ErrUnknownNode for the first id missing from p.
func CheckNodes(p Provider, ids ...int64) error {
	for _, id := range ids {
		if !p.HasNode(id) {
			return fmt.Errorf("%w: %d", ErrUnknownNode, id)
		}
	}
	return nil
}
