package sequence

import (
	"time"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// FragmentEvent describes one fragment transition. Leaf events carry the
// payload of their kind and the token that ends the activation; composite
// events carry a zero token.
type FragmentEvent struct {
	Root     Root
	Fragment FragmentID
	Kind     Kind
	Token    EndToken

	Dialog Dialog        // valid for KindDialog
	Pause  time.Duration // valid for KindPause
}

// End returns the token a bridge delivers to finish this activation.
func (e FragmentEvent) End() EndToken { return e.Token }

// Leaf reports whether the event belongs to an atomic fragment.
func (e FragmentEvent) Leaf() bool { return e.Kind.Leaf() }

// Live reports whether the root of e still exists in w. A start queued for a
// root that was despawned before dispatch is not live, and bridges skip it.
func (e FragmentEvent) Live(w donburi.World) bool { return w.Valid(e.Root.entity) }

var (
	// FragmentStartEvent fires when a fragment becomes active. Bridges
	// subscribe to it and react to the leaf kinds they own.
	FragmentStartEvent = events.NewEventType[FragmentEvent]()

	// FragmentEndEvent is the inbound channel of the Player: bridges publish
	// the token of a finished activation here.
	FragmentEndEvent = events.NewEventType[EndToken]()

	// FragmentStopEvent fires when an active leaf is withdrawn without
	// completing: a race it lost, or a despawned root. Bridges release any
	// state they hold for the token.
	FragmentStopEvent = events.NewEventType[FragmentEvent]()

	// FragmentCompleteEvent fires after a fragment (leaf or composite) has
	// played through and its on-end hooks ran.
	FragmentCompleteEvent = events.NewEventType[FragmentEvent]()
)
