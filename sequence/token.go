package sequence

import (
	"fmt"

	"github.com/yohamta/donburi"
)

// FragmentID identifies a materialized fragment node. It is both the storage
// location of the node (a donburi entity) and its correlation key for events.
type FragmentID struct {
	entity donburi.Entity
	valid  bool
}

// Entity returns the donburi entity backing the fragment.
func (id FragmentID) Entity() donburi.Entity { return id.entity }

// Valid reports whether id refers to a materialized fragment.
func (id FragmentID) Valid() bool { return id.valid }

func (id FragmentID) String() string {
	if !id.valid {
		return "fragment(none)"
	}
	return fmt.Sprintf("fragment(%v)", id.entity)
}

func fragmentID(e donburi.Entity) FragmentID { return FragmentID{entity: e, valid: true} }

// Root is the handle of one playback root: an independently scheduled
// instantiation of a Tree.
type Root struct {
	entity donburi.Entity
	valid  bool
}

// Entity returns the donburi entity backing the root.
func (r Root) Entity() donburi.Entity { return r.entity }

// Valid reports whether r was ever a spawned root. A valid root may already
// be exhausted; use Player.Playing to check liveness.
func (r Root) Valid() bool { return r.valid }

func (r Root) String() string {
	if !r.valid {
		return "root(none)"
	}
	return fmt.Sprintf("root(%v)", r.entity)
}

// EndToken is the single-use correlation value minted for one activation of a
// leaf. Exactly one delivery of a matching token advances its root; tokens of
// earlier activations of the same fragment never match a later one.
type EndToken struct {
	Root     Root
	Fragment FragmentID
	serial   uint64
}

// Serial returns the activation number the token was minted with. Serials
// are unique per Player.
func (t EndToken) Serial() uint64 { return t.serial }

// IsZero reports whether t is the zero token carried by composite start
// events.
func (t EndToken) IsZero() bool { return t.serial == 0 }

func (t EndToken) String() string {
	return fmt.Sprintf("token(%d %v %v)", t.serial, t.Root, t.Fragment)
}
