// Package automation owns the pre-built parameter automation setups. Each
// control id gets one player feeding one or more scale+offset units, each of
// which fans out to its target inputs. While an automation is active its
// scalers own the targets; clearing it hands them back to manual control.
package automation

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/cbegin/polysynth-go/internal/graph"
	"github.com/cbegin/polysynth-go/internal/units"
)

// Target describes one scaled branch of a control id.
type Target struct {
	Scale  float64
	Offset float64
	Inputs []*graph.Input
	// Capture snapshots the manual value and returns the closure that
	// re-applies it through the normal setter.
	Capture func() func()
}

// Setup is one pre-wired branch: the shared player, its scaler and targets.
type Setup struct {
	Player  *units.AutomationPlayer
	Scaler  *units.ScaleOffset
	Targets []*graph.Input
	Capture func() func()
}

type control struct {
	player  *units.AutomationPlayer
	setups  []*Setup
	restore []func()
	active  bool
}

// Manager activates and deactivates automations. It is safe for concurrent
// use; curve playback itself happens inside the graph.
type Manager struct {
	mu         sync.Mutex
	g          *graph.Graph
	sampleRate float64
	log        *slog.Logger
	controls   map[string]*control
}

func NewManager(g *graph.Graph, sampleRate float64, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		g:          g,
		sampleRate: sampleRate,
		log:        logger,
		controls:   make(map[string]*control),
	}
}

// Register builds the setups for id. Every target shares one player, so a
// single curve drives all branches in lockstep. Units are added to the graph
// disabled and only render while the automation is active.
func (m *Manager) Register(id string, targets ...Target) error {
	if len(targets) == 0 {
		return fmt.Errorf("automation %q: no targets", id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.controls[id]; ok {
		return fmt.Errorf("automation %q: already registered", id)
	}
	c := &control{player: units.NewAutomationPlayer(m.sampleRate)}
	m.g.Add(c.player)
	m.g.SetEnabled(c.player, false)
	for _, t := range targets {
		s := &Setup{
			Player:  c.player,
			Scaler:  units.NewScaleOffset(t.Scale, t.Offset),
			Targets: slices.Clone(t.Inputs),
			Capture: t.Capture,
		}
		m.g.Add(s.Scaler)
		m.g.SetEnabled(s.Scaler, false)
		m.g.Connect(c.player.Out, s.Scaler.In)
		c.setups = append(c.setups, s)
	}
	m.controls[id] = c
	return nil
}

// Setups returns the branches registered for id.
func (m *Manager) Setups(id string) []*Setup {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.controls[id]; ok {
		return slices.Clone(c.setups)
	}
	return nil
}

// Set loads a curve for id and starts it, displacing manual control of the
// targets. Re-setting an active id replaces its curve and keeps the value
// captured at first activation. Unknown ids report false.
func (m *Manager) Set(id string, times, values []float32, count int, duration float32, mode int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controls[id]
	if !ok {
		m.log.Debug("automation: unknown control", "id", id)
		return false
	}
	if !c.active {
		c.restore = c.restore[:0]
		for _, s := range c.setups {
			if s.Capture != nil {
				c.restore = append(c.restore, s.Capture())
			}
		}
	}
	for _, s := range c.setups {
		for _, in := range s.Targets {
			m.g.DisconnectAll(in)
			m.g.Connect(s.Scaler.Out, in)
		}
		m.g.SetEnabled(s.Scaler, true)
	}
	c.player.Load(units.NewPath(times, values, count, duration, mode))
	c.player.Start()
	m.g.SetEnabled(c.player, true)
	c.active = true
	m.log.Debug("automation: set", "id", id, "points", min(count, len(times), len(values)), "mode", mode)
	return true
}

// Clear stops the automation for id, disconnects its targets and restores
// the manual values captured at activation. Clearing an inactive id is a
// no-op.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	c, ok := m.controls[id]
	if !ok || !c.active {
		m.mu.Unlock()
		return
	}
	c.player.Stop()
	m.g.SetEnabled(c.player, false)
	for _, s := range c.setups {
		for _, in := range s.Targets {
			m.g.Disconnect(s.Scaler.Out, in)
		}
		m.g.SetEnabled(s.Scaler, false)
	}
	restore := c.restore
	c.restore = nil
	c.active = false
	m.mu.Unlock()

	// Setters may call back into the manager.
	for _, fn := range restore {
		fn()
	}
	m.log.Debug("automation: cleared", "id", id)
}

// ClearAll clears every active automation.
func (m *Manager) ClearAll() {
	for _, id := range m.Active() {
		m.Clear(id)
	}
}

func (m *Manager) IsActive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controls[id]
	return ok && c.active
}

// Has reports whether id is a registered control.
func (m *Manager) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.controls[id]
	return ok
}

// Position is the playback position of id in seconds.
func (m *Manager) Position(id string) float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.controls[id]; ok {
		return c.player.Position()
	}
	return 0
}

// Active lists the active control ids, sorted.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, c := range m.controls {
		if c.active {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// IDs lists every registered control id, sorted.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.controls))
	for id := range m.controls {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
