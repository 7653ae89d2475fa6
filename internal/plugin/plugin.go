// Package plugin defines the plugin capability interface, its control ports
// and the registry that hands out one instance per plugin type.
package plugin

import (
	"sync"

	"github.com/cbegin/polysynth-go/internal/graph"
)

// Plugin is a named bundle of units with audio terminals and control ports.
type Plugin interface {
	URI() string
	DisplayName() string
	// Initialize wires the plugin's internal units. Calling it again is a no-op.
	Initialize()
	Units() []graph.Unit
	Inputs() map[string]*graph.Input
	Outputs() map[string]*graph.Output
	Ports() []*Port
	// SetPortValue reports false when the symbol is unknown.
	SetPortValue(symbol string, v PortValue) bool
	PortValue(symbol string) (PortValue, bool)
}

// Base implements the bookkeeping side of Plugin. Concrete plugins embed it
// and declare their units, terminals and ports in their constructor.
type Base struct {
	uri  string
	name string
	g    *graph.Graph

	units   []graph.Unit
	inputs  map[string]*graph.Input
	outputs map[string]*graph.Output
	ports   []*Port
	bySym   map[string]*Port

	once sync.Once
	wire func(g *graph.Graph)
}

// NewBase creates the bookkeeping for a plugin rendered in g.
func NewBase(g *graph.Graph, uri, name string) *Base {
	return &Base{
		uri:     uri,
		name:    name,
		g:       g,
		inputs:  make(map[string]*graph.Input),
		outputs: make(map[string]*graph.Output),
		bySym:   make(map[string]*Port),
	}
}

func (b *Base) URI() string         { return b.uri }
func (b *Base) DisplayName() string { return b.name }
func (b *Base) Graph() *graph.Graph { return b.g }

// AddUnits declares the units the plugin owns.
func (b *Base) AddUnits(us ...graph.Unit) {
	b.units = append(b.units, us...)
}

// AddInput exposes a unit input under name.
func (b *Base) AddInput(name string, in *graph.Input) {
	b.inputs[name] = in
}

// AddOutput exposes a unit output under name.
func (b *Base) AddOutput(name string, out *graph.Output) {
	b.outputs[name] = out
}

// AddPorts declares control ports. A repeated symbol replaces nothing and is dropped.
func (b *Base) AddPorts(ps ...*Port) {
	for _, p := range ps {
		if _, dup := b.bySym[p.Symbol]; dup {
			continue
		}
		b.ports = append(b.ports, p)
		b.bySym[p.Symbol] = p
	}
}

// OnInitialize sets the internal wiring run once by Initialize.
func (b *Base) OnInitialize(fn func(g *graph.Graph)) {
	b.wire = fn
}

// Initialize registers the units and runs the internal wiring once.
func (b *Base) Initialize() {
	b.once.Do(func() {
		b.g.Add(b.units...)
		if b.wire != nil {
			b.wire(b.g)
		}
		for _, p := range b.ports {
			p.Set(p.Value())
		}
	})
}

func (b *Base) Units() []graph.Unit               { return b.units }
func (b *Base) Inputs() map[string]*graph.Input   { return b.inputs }
func (b *Base) Outputs() map[string]*graph.Output { return b.outputs }
func (b *Base) Ports() []*Port                    { return b.ports }

// Input returns a named input or nil.
func (b *Base) Input(name string) *graph.Input { return b.inputs[name] }

// Output returns a named output or nil.
func (b *Base) Output(name string) *graph.Output { return b.outputs[name] }

// Port returns a port by symbol or nil.
func (b *Base) Port(symbol string) *Port { return b.bySym[symbol] }

func (b *Base) SetPortValue(symbol string, v PortValue) bool {
	p, ok := b.bySym[symbol]
	if !ok {
		return false
	}
	p.Set(v)
	return true
}

func (b *Base) PortValue(symbol string) (PortValue, bool) {
	p, ok := b.bySym[symbol]
	if !ok {
		return nil, false
	}
	return p.Value(), true
}

// Float reads a port as float32; unknown symbols read as 0.
func (b *Base) Float(symbol string) float32 {
	if p, ok := b.bySym[symbol]; ok {
		return p.Float()
	}
	return 0
}

// SetFloat writes a float to a port; unknown symbols are ignored.
func (b *Base) SetFloat(symbol string, v float32) {
	b.SetPortValue(symbol, FloatValue(v))
}
