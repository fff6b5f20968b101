// Package markerview provides marker factories that keep marker state in
// memory instead of drawing it. The headless host and the tests use them to
// observe what a real UI layer would have been told.
package markerview

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/OCAP2/indicator/pkg/core"
)

// State is the last value of every setter for one marker.
type State struct {
	Handle   core.MarkerHandle
	Active   bool
	X, Y     float64
	Rotation float64
	Scale    float64
	Text     *string
}

// TextValue returns the label or "" when hidden.
func (s State) TextValue() string {
	if s.Text == nil {
		return ""
	}
	return *s.Text
}

// DrawPoint converts the marker position to a surface of the given height
// whose origin is the top-left corner.
func (s State) DrawPoint(height float64) (x, y float64) {
	return s.X, height - s.Y
}

// Heading is the unit vector the marker rotation points along, in the same
// top-left space as DrawPoint. A rotation of zero points up the screen.
func (s State) Heading() (dx, dy float64) {
	a := (s.Rotation + 90) * math.Pi / 180
	return math.Cos(a), -math.Sin(a)
}

// Memory is a core.MarkerFactory backed by a map.
type Memory struct {
	mu        sync.RWMutex
	next      core.MarkerHandle
	markers   map[core.MarkerHandle]*State
	created   int
	destroyed int
	// Fail makes Create return an error when set.
	Fail error
}

// NewMemory creates an empty Memory factory.
func NewMemory() *Memory {
	return &Memory{
		markers: make(map[core.MarkerHandle]*State),
	}
}

func (m *Memory) Create() (core.MarkerHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, m.Fail
	}
	m.next++
	m.created++
	m.markers[m.next] = &State{Handle: m.next, Scale: 1}
	return m.next, nil
}

func (m *Memory) Destroy(h core.MarkerHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.markers[h]; ok {
		delete(m.markers, h)
		m.destroyed++
	}
}

func (m *Memory) SetActive(h core.MarkerHandle, active bool) {
	m.update(h, func(s *State) { s.Active = active })
}

func (m *Memory) SetPosition(h core.MarkerHandle, x, y float64) {
	m.update(h, func(s *State) { s.X, s.Y = x, y })
}

func (m *Memory) SetRotation(h core.MarkerHandle, degrees float64) {
	m.update(h, func(s *State) { s.Rotation = degrees })
}

func (m *Memory) SetScale(h core.MarkerHandle, factor float64) {
	m.update(h, func(s *State) { s.Scale = factor })
}

func (m *Memory) SetDistanceText(h core.MarkerHandle, text *string) {
	m.update(h, func(s *State) {
		if text == nil {
			s.Text = nil
			return
		}
		v := *text
		s.Text = &v
	})
}

func (m *Memory) update(h core.MarkerHandle, fn func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.markers[h]
	if !ok {
		panic(fmt.Sprintf("markerview: setter called on unknown marker %d", h))
	}
	fn(s)
}

// Get returns a copy of the state of h.
func (m *Memory) Get(h core.MarkerHandle) (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.markers[h]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// ActiveMarkers returns the active markers ordered by handle.
func (m *Memory) ActiveMarkers() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]State, 0, len(m.markers))
	for _, s := range m.markers {
		if s.Active {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Live returns the number of markers created and not yet destroyed.
func (m *Memory) Live() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.markers)
}

// Created returns how many markers were ever created.
func (m *Memory) Created() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.created
}

// Destroyed returns how many markers were destroyed.
func (m *Memory) Destroyed() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.destroyed
}
