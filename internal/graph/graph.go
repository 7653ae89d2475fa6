// Package graph implements the node-and-wire substrate every signal path is
// built on. Units are registered once and live for the lifetime of the graph;
// wiring changes are serialized against block rendering so they always land
// between blocks.
package graph

import (
	"sync"
)

// DefaultBlockSize is the number of frames rendered per block.
const DefaultBlockSize = 256

type entry struct {
	unit    Unit
	index   int
	enabled bool
}

// Graph owns the registered units and renders them block by block.
type Graph struct {
	mu        sync.Mutex
	blockSize int
	entries   []*entry
	byUnit    map[Unit]*entry
	order     []*entry
	dirty     bool
}

// New creates an empty graph. A non-positive blockSize selects DefaultBlockSize.
func New(blockSize int) *Graph {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Graph{
		blockSize: blockSize,
		byUnit:    make(map[Unit]*entry),
	}
}

func (g *Graph) BlockSize() int { return g.blockSize }

// Add registers units. Registering a unit twice is a no-op.
func (g *Graph) Add(units ...Unit) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, u := range units {
		if u == nil {
			continue
		}
		if _, ok := g.byUnit[u]; ok {
			continue
		}
		e := &entry{unit: u, index: len(g.entries), enabled: true}
		for _, o := range u.Outputs() {
			o.owner = e
		}
		g.entries = append(g.entries, e)
		g.byUnit[u] = e
		g.dirty = true
	}
}

// Contains reports whether u is registered.
func (g *Graph) Contains(u Unit) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.byUnit[u]
	return ok
}

// Len returns the number of registered units.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Connect adds a summing edge from out to in. Connecting the same pair twice
// adds two edges.
func (g *Graph) Connect(out *Output, in *Input) {
	g.connect(out, in, false)
}

// ConnectDelayed adds an edge whose reader sees the source's previous block.
// Feedback paths must use it so the render order stays well defined.
func (g *Graph) ConnectDelayed(out *Output, in *Input) {
	g.connect(out, in, true)
}

func (g *Graph) connect(out *Output, in *Input, delayed bool) {
	if out == nil || in == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	in.edges = append(in.edges, edge{src: out, delayed: delayed})
	g.dirty = true
}

// Disconnect removes every edge from out into in.
func (g *Graph) Disconnect(out *Output, in *Input) {
	if out == nil || in == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := in.edges[:0]
	for _, e := range in.edges {
		if e.src != out {
			kept = append(kept, e)
		}
	}
	clear(in.edges[len(kept):])
	in.edges = kept
	g.dirty = true
}

// DisconnectAll removes every edge into in.
func (g *Graph) DisconnectAll(in *Input) {
	if in == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(in.edges) == 0 {
		return
	}
	clear(in.edges)
	in.edges = in.edges[:0]
	g.dirty = true
}

// Connections returns the number of edges into in.
func (g *Graph) Connections(in *Input) int {
	if in == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(in.edges)
}

// IsConnected reports whether out feeds in.
func (g *Graph) IsConnected(out *Output, in *Input) bool {
	if out == nil || in == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range in.edges {
		if e.src == out {
			return true
		}
	}
	return false
}

// SetEnabled includes or excludes a registered unit from rendering. A
// disabled unit keeps its state and its outputs read as silence.
func (g *Graph) SetEnabled(u Unit, enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.byUnit[u]
	if !ok || e.enabled == enabled {
		return
	}
	e.enabled = enabled
	if !enabled {
		for _, o := range u.Outputs() {
			o.zero()
		}
	}
}

// Enabled reports whether u is registered and rendering.
func (g *Graph) Enabled(u Unit) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.byUnit[u]
	return ok && e.enabled
}

// Render processes one block of at most BlockSize frames.
func (g *Graph) Render(frames int) {
	if frames <= 0 {
		return
	}
	if frames > g.blockSize {
		frames = g.blockSize
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dirty {
		g.sort()
	}
	for _, e := range g.entries {
		if !e.enabled {
			continue
		}
		for _, o := range e.unit.Outputs() {
			o.swap()
		}
	}
	for _, e := range g.order {
		if !e.enabled {
			continue
		}
		for _, in := range e.unit.Inputs() {
			in.gather(frames)
		}
		e.unit.Render(frames)
	}
}

// sort orders the units so every undelayed source renders before its readers.
func (g *Graph) sort() {
	n := len(g.entries)
	indegree := make([]int, n)
	readers := make([][]int, n)
	for _, e := range g.entries {
		for _, in := range e.unit.Inputs() {
			for _, ed := range in.edges {
				if ed.delayed || ed.src.owner == nil || ed.src.owner == e {
					continue
				}
				src := ed.src.owner.index
				readers[src] = append(readers[src], e.index)
				indegree[e.index]++
			}
		}
	}
	order := make([]*entry, 0, n)
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	placed := make([]bool, n)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		placed[i] = true
		order = append(order, g.entries[i])
		for _, r := range readers[i] {
			indegree[r]--
			if indegree[r] == 0 {
				queue = append(queue, r)
			}
		}
	}
	// Units caught in an undeclared cycle keep registration order.
	for i := 0; i < n; i++ {
		if !placed[i] {
			order = append(order, g.entries[i])
		}
	}
	g.order = order
	g.dirty = false
}
