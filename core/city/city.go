package city

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// congestedRatio is the slowdown above which a road is reported as congested.
const congestedRatio = 1.5

type node struct {
	id   int64
	x, y float64
	kind NodeType
}

func (n node) ID() int64 { return n.id }

// road is stored as-is in the gonum graph so travel time rides along with
// the distance weight.
type road struct {
	from, to node
	km       float64
	minutes  float64
	freeFlow float64
}

func (r road) From() graph.Node         { return r.from }
func (r road) To() graph.Node           { return r.to }
func (r road) Weight() float64          { return r.km }
func (r road) ReversedEdge() graph.Edge { return road{from: r.to, to: r.from, km: r.km, minutes: r.minutes, freeFlow: r.freeFlow} }

// City is a directed road network with typed intersections. Road weights are
// distances in km; travel time is carried by each road and can be slowed
// down by Congest.
type City struct {
	mu      sync.RWMutex
	g       *simple.WeightedDirectedGraph
	streets []int64
}

// New returns an empty city.
func New() *City {
	return &City{g: simple.NewWeightedDirectedGraph(0, math.Inf(1))}
}

// AddNode adds an intersection at planar coordinates expressed in km.
func (c *City) AddNode(id int64, x, y float64, kind NodeType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.g.Node(id) != nil {
		return fmt.Errorf("duplicate node %d", id)
	}
	c.g.AddNode(node{id: id, x: x, y: y, kind: kind})
	if kind == Street {
		c.streets = append(c.streets, id)
		sort.Slice(c.streets, func(i, j int) bool { return c.streets[i] < c.streets[j] })
	}
	return nil
}

// AddRoad adds a one-way road from u to v.
func (c *City) AddRoad(u, v int64, km, minutes float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addRoad(u, v, km, minutes)
}

// AddStreet adds a two-way road between u and v.
func (c *City) AddStreet(u, v int64, km, minutes float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.addRoad(u, v, km, minutes); err != nil {
		return err
	}
	return c.addRoad(v, u, km, minutes)
}

func (c *City) addRoad(u, v int64, km, minutes float64) error {
	if u == v {
		return fmt.Errorf("self loop on %d", u)
	}
	if km <= 0 || minutes <= 0 {
		return fmt.Errorf("road %d->%d: distance and time must be positive", u, v)
	}
	from, ok := c.g.Node(u).(node)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, u)
	}
	to, ok := c.g.Node(v).(node)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, v)
	}
	c.g.SetWeightedEdge(road{from: from, to: to, km: km, minutes: minutes, freeFlow: minutes})
	return nil
}

func (c *City) HasNode(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.g.Node(id) != nil
}

// Nodes returns all node ids in ascending order.
func (c *City) Nodes() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedIDs(c.g.Nodes())
}

func (c *City) Neighbors(id int64) []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.g.Node(id) == nil {
		return nil
	}
	return sortedIDs(c.g.From(id))
}

func (c *City) EdgeCost(u, v int64) (Edge, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.g.WeightedEdge(u, v).(road)
	if !ok {
		return Edge{}, false
	}
	return Edge{DistanceKm: r.km, TimeMin: r.minutes}, true
}

// NodeType returns Street for unknown ids; use CheckNodes to fail fast on
// malformed input.
func (c *City) NodeType(id int64) NodeType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n, ok := c.g.Node(id).(node); ok {
		return n.kind
	}
	return Street
}

// StraightLine returns the euclidean distance in km, or 0 if either node is
// unknown.
func (c *City) StraightLine(a, b int64) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	na, ok := c.g.Node(a).(node)
	if !ok {
		return 0
	}
	nb, ok := c.g.Node(b).(node)
	if !ok {
		return 0
	}
	return math.Hypot(na.x-nb.x, na.y-nb.y)
}

// RandomFreeLocation picks a street node. Cities without streets fall back
// to any node.
func (c *City) RandomFreeLocation(rng *rand.Rand) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.streets) > 0 {
		return c.streets[rng.Intn(len(c.streets))]
	}
	ids := sortedIDs(c.g.Nodes())
	if len(ids) == 0 {
		return 0
	}
	return ids[rng.Intn(len(ids))]
}

// NodesOfType returns the ids of the nodes with the given type.
func (c *City) NodesOfType(kind NodeType) []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []int64
	it := c.g.Nodes()
	for it.Next() {
		if n, ok := it.Node().(node); ok && n.kind == kind {
			out = append(out, n.id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reachable reports whether a road path leads from u to v.
func (c *City) Reachable(u, v int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	from := c.g.Node(u)
	if from == nil || c.g.Node(v) == nil {
		return false
	}
	if u == v {
		return true
	}
	return !math.IsInf(path.DijkstraFrom(from, c.g).WeightTo(v), 1)
}

// Congest restores free-flow times on every road, then slows n random roads
// down by factor.
func (c *City) Congest(rng *rand.Rand, n int, factor float64) error {
	if factor < 1 {
		return errors.New("congestion factor must be >= 1")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	roads := c.roads()
	for _, r := range roads {
		r.minutes = r.freeFlow
		c.g.SetWeightedEdge(r)
	}
	if n > len(roads) {
		n = len(roads)
	}
	for _, i := range rng.Perm(len(roads))[:n] {
		r := roads[i]
		r.minutes = r.freeFlow * factor
		c.g.SetWeightedEdge(r)
	}
	return nil
}

// CongestedEdges lists the roads running noticeably slower than free flow.
func (c *City) CongestedEdges() []RoadID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []RoadID
	for _, r := range c.roads() {
		if r.minutes > r.freeFlow*congestedRatio {
			out = append(out, RoadID{From: r.from.id, To: r.to.id})
		}
	}
	return out
}

// roads returns every road ordered by (from, to). Callers hold the lock.
func (c *City) roads() []road {
	var out []road
	it := c.g.WeightedEdges()
	for it.Next() {
		if r, ok := it.WeightedEdge().(road); ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].from.id != out[j].from.id {
			return out[i].from.id < out[j].from.id
		}
		return out[i].to.id < out[j].to.id
	})
	return out
}

func sortedIDs(it graph.Nodes) []int64 {
	var ids []int64
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
