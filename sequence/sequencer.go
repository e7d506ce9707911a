package sequence

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
)

// Bridge translates fragment events of the kinds it owns into world effects
// and eventually into FragmentEndEvent deliveries.
type Bridge interface {
	// Resolve advances the bridge by dt and publishes the tokens of the
	// activations it finished.
	Resolve(w donburi.World, dt time.Duration) error
	// Drain returns errors raised inside the bridge's event handlers.
	Drain(w donburi.World) error
}

// Stats is a snapshot of the sequencing state of a world.
type Stats struct {
	Roots            int
	Countdowns       int
	ActiveObservers  int
	DormantObservers int
	Minted           uint64
	Stale            int
}

// Sequencer drives a Player and its bridges in a fixed phase order:
//
//  1. bridges resolve: delays, then conditions, then added bridges
//  2. the player consumes end tokens and advances, running hooks
//  3. stop, start and complete events are dispatched
//  4. bridges drain handler errors
//
// A token delivered in phase 1 is consumed in phase 2 of the same Update,
// and the start of the next leaf reaches bridges only in phase 3, so a leaf
// can never end and restart inside one dispatch.
type Sequencer struct {
	world      donburi.World
	log        zerolog.Logger
	player     *Player
	delays     *DelayBridge
	conditions *ConditionBridge
	bridges    []Bridge
	ticks      uint64
}

// NewSequencer builds a Player with the delay and condition bridges on w.
func NewSequencer(w donburi.World, opts ...Option) *Sequencer {
	p := NewPlayer(w, opts...)
	return &Sequencer{
		world:      w,
		log:        p.log,
		player:     p,
		delays:     NewDelayBridge(w, p.log),
		conditions: NewConditionBridge(w, p.log),
	}
}

// AddBridge appends b to the bridges resolved after delays and conditions.
func (s *Sequencer) AddBridge(b Bridge) { s.bridges = append(s.bridges, b) }

// Player returns the sequencer's player.
func (s *Sequencer) Player() *Player { return s.player }

// Conditions returns the condition bridge.
func (s *Sequencer) Conditions() *ConditionBridge { return s.conditions }

// World returns the world the sequencer drives.
func (s *Sequencer) World() donburi.World { return s.world }

// Spawn starts playback of t.
func (s *Sequencer) Spawn(t *Tree) (Root, error) { return s.player.Spawn(t) }

// Despawn withdraws root.
func (s *Sequencer) Despawn(root Root) { s.player.Despawn(root) }

// Playing reports whether root is live.
func (s *Sequencer) Playing(root Root) bool { return s.player.Playing(root) }

// Ticks returns the number of completed updates.
func (s *Sequencer) Ticks() uint64 { return s.ticks }

// Update runs one step. The first error aborts the remaining phases.
func (s *Sequencer) Update(dt time.Duration) error {
	if err := s.delays.Resolve(s.world, dt); err != nil {
		return fmt.Errorf("resolve delays: %w", err)
	}
	if err := s.conditions.Resolve(s.world, dt); err != nil {
		return fmt.Errorf("resolve conditions: %w", err)
	}
	for _, b := range s.bridges {
		if err := b.Resolve(s.world, dt); err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
	}

	s.player.Age(dt)
	if err := s.player.Advance(); err != nil {
		return fmt.Errorf("advance: %w", err)
	}

	FragmentStopEvent.ProcessEvents(s.world)
	FragmentStartEvent.ProcessEvents(s.world)
	FragmentCompleteEvent.ProcessEvents(s.world)

	if err := s.delays.Drain(s.world); err != nil {
		return fmt.Errorf("delay handlers: %w", err)
	}
	if err := s.conditions.Drain(s.world); err != nil {
		return fmt.Errorf("condition handlers: %w", err)
	}
	for _, b := range s.bridges {
		if err := b.Drain(s.world); err != nil {
			return fmt.Errorf("bridge handlers: %w", err)
		}
	}
	s.ticks++
	return nil
}

// Stats returns a snapshot of the sequencing state.
func (s *Sequencer) Stats() Stats {
	return Stats{
		Roots:            len(s.player.order),
		Countdowns:       Countdowns(s.world),
		ActiveObservers:  s.conditions.Active(),
		DormantObservers: s.conditions.Dormant(s.world),
		Minted:           s.player.Minted(),
		Stale:            s.player.Stale(),
	}
}
