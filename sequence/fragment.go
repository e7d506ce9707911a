package sequence

import (
	"fmt"
	"time"

	"github.com/yohamta/donburi"
)

// Kind is the closed set of fragment kinds. Adding a kind means extending
// this set and teaching the Player and a bridge about it.
type Kind uint8

const (
	KindSequence  Kind = iota // composite: children play left to right
	KindRace                  // composite: leaf children start together, first to end wins
	KindDialog                // leaf: lines of text for the textbox
	KindPause                 // leaf: a timed delay
	KindCondition             // leaf: gated on an observed world event
)

// Leaf reports whether k is an atomic kind.
func (k Kind) Leaf() bool { return k >= KindDialog }

func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindRace:
		return "race"
	case KindDialog:
		return "dialog"
	case KindPause:
		return "pause"
	case KindCondition:
		return "condition"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Policy controls whether a fragment may replay when its parent is visited
// again.
type Policy uint8

const (
	PolicyInherit Policy = iota // use the nearest marked ancestor; Always at the root
	PolicyAlways                // replay on every visit
	PolicyOnce                  // consumed after the first full playback
)

func (p Policy) String() string {
	switch p {
	case PolicyAlways:
		return "always"
	case PolicyOnce:
		return "once"
	default:
		return "inherit"
	}
}

// Dialog is the payload of a dialog fragment: one or more lines shown in a
// single textbox session.
type Dialog struct {
	Lines    []string
	Retained bool
}

// Node is an unspawned description of narrative content. Nodes are pure
// values: nothing touches a world until the Tree built from them is spawned.
// A Node belongs to at most one Tree.
type Node struct {
	kind     Kind
	dialog   Dialog
	pause    time.Duration
	observer *Observer
	children []*Node

	policy  Policy
	onStart []Callback[Hook]
	onEnd   []Callback[Hook]

	// invalid records the authoring mistake that turned this node into a
	// no-op, if any.
	invalid string
}

// Say builds a dialog fragment. Several lines form one textbox session and
// end with a single close.
func Say(lines ...string) *Node {
	return &Node{kind: KindDialog, dialog: Dialog{Lines: lines}}
}

// Wait builds a pause fragment of duration d.
func Wait(d time.Duration) *Node {
	if d < 0 {
		d = 0
	}
	return &Node{kind: KindPause, pause: d}
}

// Delay builds a pause fragment lasting the given number of seconds.
func Delay(seconds float64) *Node {
	return Wait(time.Duration(seconds * float64(time.Second)))
}

// Seq builds a composite whose children play strictly left to right. Items
// are converted with Into.
func Seq(items ...any) *Node {
	return &Node{kind: KindSequence, children: intoAll(items)}
}

// Race builds a composite whose leaf children start together; the first one
// to end completes the race and the rest are stopped. Items are converted
// with Into.
func Race(items ...any) *Node {
	return &Node{kind: KindRace, children: intoAll(items)}
}

// Into converts a content literal into a fragment:
//
//	string, []string          dialog
//	time.Duration             pause
//	float32, float64          pause in seconds
//	int, int32, int64, uint   pause in milliseconds
//	*Node                     itself
//
// Anything else becomes an empty no-op composite that is reported when the
// tree is first spawned.
func Into(item any) *Node {
	switch v := item.(type) {
	case *Node:
		if v == nil {
			return invalidNode("nil *Node")
		}
		return v
	case string:
		return Say(v)
	case []string:
		return Say(v...)
	case time.Duration:
		return Wait(v)
	case float64:
		return Delay(v)
	case float32:
		return Delay(float64(v))
	case int:
		return Wait(time.Duration(v) * time.Millisecond)
	case int32:
		return Wait(time.Duration(v) * time.Millisecond)
	case int64:
		return Wait(time.Duration(v) * time.Millisecond)
	case uint:
		return Wait(time.Duration(v) * time.Millisecond)
	default:
		return invalidNode(fmt.Sprintf("unsupported fragment literal %T", item))
	}
}

func intoAll(items []any) []*Node {
	nodes := make([]*Node, 0, len(items))
	for _, item := range items {
		nodes = append(nodes, Into(item))
	}
	return nodes
}

func invalidNode(reason string) *Node {
	return &Node{kind: KindSequence, invalid: reason}
}

// Kind returns the fragment kind of n.
func (n *Node) Kind() Kind { return n.kind }

// Children returns the direct children of a composite. The returned slice
// must not be mutated.
func (n *Node) Children() []*Node { return n.children }

// Once marks n as consumed after its first full playback. Once dominates
// Always when both are applied.
func (n *Node) Once() *Node {
	n.policy = PolicyOnce
	return n
}

// Always marks n as replayable. It has no effect on a node already marked
// Once.
func (n *Node) Always() *Node {
	if n.policy != PolicyOnce {
		n.policy = PolicyAlways
	}
	return n
}

// Retain keeps the textbox visible after a dialog fragment closes. It is
// ignored on other kinds.
func (n *Node) Retain() *Node {
	if n.kind == KindDialog {
		n.dialog.Retained = true
	}
	return n
}

// OnStart attaches fn to run when n becomes active.
func (n *Node) OnStart(fn HookFunc) *Node {
	return n.OnStartCallback(NewCallback[Hook](fn))
}

// OnEnd attaches fn to run when n completes.
func (n *Node) OnEnd(fn HookFunc) *Node {
	return n.OnEndCallback(NewCallback[Hook](fn))
}

// OnStartCallback attaches a shared callback to run when n becomes active.
func (n *Node) OnStartCallback(cb Callback[Hook]) *Node {
	n.onStart = append(n.onStart, cb)
	return n
}

// OnEndCallback attaches a shared callback to run when n completes.
func (n *Node) OnEndCallback(cb Callback[Hook]) *Node {
	n.onEnd = append(n.onEnd, cb)
	return n
}

// HookFunc is a hook procedure. It may mutate the world, spawn roots and
// publish events.
type HookFunc = func(w donburi.World, h Hook) error

// Hook is the input handed to on-start and on-end callbacks.
type Hook struct {
	Root     Root
	Fragment FragmentID
	Kind     Kind
}
