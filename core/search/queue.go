package search

import (
	"container/heap"

	"github.com/kilianp07/ecofleet/core/state"
)

type entry struct {
	priority float64
	seq      int
	g        float64
	sig      string
	state    *state.State
}

// frontier is a min-heap on priority; equal priorities pop in insertion
// order.
type frontier struct {
	items []*entry
	seq   int
}

func (f *frontier) Len() int { return len(f.items) }
func (f *frontier) Less(i, j int) bool {
	if f.items[i].priority != f.items[j].priority {
		return f.items[i].priority < f.items[j].priority
	}
	return f.items[i].seq < f.items[j].seq
}
func (f *frontier) Swap(i, j int) { f.items[i], f.items[j] = f.items[j], f.items[i] }
func (f *frontier) Push(x any)   { f.items = append(f.items, x.(*entry)) }
func (f *frontier) Pop() any {
	old := f.items
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	f.items = old[:n-1]
	return e
}

func (f *frontier) push(s *state.State, sig string, priority float64) {
	f.seq++
	heap.Push(f, &entry{priority: priority, seq: f.seq, g: s.Cost, sig: sig, state: s})
}

func (f *frontier) pop() *entry { return heap.Pop(f).(*entry) }
