package sequence

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yohamta/donburi"
)

var (
	// ErrUnknownSystem is returned when running or unregistering a SystemID
	// that is not registered.
	ErrUnknownSystem = errors.New("sequence: unknown system")
	// ErrCallbackReleased is returned by Call after Unregister.
	ErrCallbackReleased = errors.New("sequence: callback released")
	// ErrForeignWorld is returned when a value bound to one world is used
	// with another.
	ErrForeignWorld = errors.New("sequence: value is bound to another world")
)

// SystemID names a procedure registered with a world's Systems registry.
type SystemID uint32

type systemFunc func(w donburi.World, input any) error

// Systems is the per-world registry of dynamically registered procedures.
// It lives on a singleton entity; use SystemsOf to reach it.
type Systems struct {
	slots map[SystemID]systemFunc
	next  SystemID
}

var systemsComponent = donburi.NewComponentType[Systems]()

// SystemsOf returns the registry of w, creating it on first use.
func SystemsOf(w donburi.World) *Systems {
	if entry, ok := systemsComponent.First(w); ok {
		return systemsComponent.Get(entry)
	}
	entry := w.Entry(w.Create(systemsComponent))
	s := systemsComponent.Get(entry)
	s.slots = make(map[SystemID]systemFunc)
	return s
}

// Register stores fn and returns its slot.
func (s *Systems) Register(fn func(w donburi.World, input any) error) SystemID {
	s.next++
	s.slots[s.next] = fn
	return s.next
}

// Run invokes the procedure registered under id.
func (s *Systems) Run(w donburi.World, id SystemID, input any) error {
	fn, ok := s.slots[id]
	if !ok {
		return fmt.Errorf("run system %d: %w", id, ErrUnknownSystem)
	}
	return fn(w, input)
}

// Unregister releases the slot of id.
func (s *Systems) Unregister(id SystemID) error {
	if _, ok := s.slots[id]; !ok {
		return fmt.Errorf("unregister system %d: %w", id, ErrUnknownSystem)
	}
	delete(s.slots, id)
	return nil
}

// Len returns the number of registered procedures.
func (s *Systems) Len() int { return len(s.slots) }

// DynamicSystem is the type-erased capability behind a Callback.
type DynamicSystem[I any] interface {
	// Call runs the procedure with input.
	Call(w donburi.World, input I) error
	// Unregister performs any cleanup required before the value is dropped.
	Unregister(w donburi.World) error
}

// Callback is a shareable handle to a world-mutating procedure. Copies share
// the same registration. Call and Unregister are mutually exclusive, and a
// procedure must not call its own Callback.
type Callback[I any] struct {
	shared *lockedSystem[I]
}

type lockedSystem[I any] struct {
	mu  sync.Mutex
	sys DynamicSystem[I]
}

// NewCallback wraps fn. Registration with the world is deferred until the
// first Call.
func NewCallback[I any](fn func(w donburi.World, input I) error) Callback[I] {
	return Callback[I]{shared: &lockedSystem[I]{sys: &maybeRegistered[I]{proc: fn}}}
}

// Call registers the procedure on first use, then runs it.
func (c Callback[I]) Call(w donburi.World, input I) error {
	if c.shared == nil {
		return ErrCallbackReleased
	}
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()
	return c.shared.sys.Call(w, input)
}

// Unregister releases the registration slot, if one was taken. It is safe to
// call more than once. After Unregister, Call returns ErrCallbackReleased.
// A callback bound to another world is left untouched.
func (c Callback[I]) Unregister(w donburi.World) error {
	if c.shared == nil {
		return nil
	}
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()
	return c.shared.sys.Unregister(w)
}

// Registered reports whether the procedure currently holds a registry slot.
func (c Callback[I]) Registered() bool {
	if c.shared == nil {
		return false
	}
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()
	m, ok := c.shared.sys.(*maybeRegistered[I])
	return ok && m.state == stateBound
}

type registration uint8

const (
	stateUnbound registration = iota
	stateBound
	stateReleased
)

// maybeRegistered holds either the raw procedure or the slot it was
// registered under.
type maybeRegistered[I any] struct {
	state registration
	proc  func(w donburi.World, input I) error
	id    SystemID
	world donburi.World
}

func (m *maybeRegistered[I]) Call(w donburi.World, input I) error {
	switch m.state {
	case stateReleased:
		return ErrCallbackReleased
	case stateUnbound:
		proc := m.proc
		m.id = SystemsOf(w).Register(func(w donburi.World, input any) error {
			return proc(w, input.(I))
		})
		m.world = w
		m.proc = nil
		m.state = stateBound
	case stateBound:
		if m.world != w {
			return ErrForeignWorld
		}
	}
	return SystemsOf(w).Run(w, m.id, input)
}

func (m *maybeRegistered[I]) Unregister(w donburi.World) error {
	if m.state == stateBound && m.world != w {
		return ErrForeignWorld
	}
	prev := m.state
	m.state = stateReleased
	m.proc = nil
	if prev != stateBound {
		return nil
	}
	m.world = nil
	return SystemsOf(w).Unregister(m.id)
}
