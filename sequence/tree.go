package sequence

import (
	"fmt"

	"github.com/yohamta/donburi"
)

// Tree is an immutable, indexed fragment hierarchy built from a root Node.
// Its nodes are materialized as entities the first time it is spawned and
// keep their playback history (completion counts, parked observers) for as
// long as the tree lives, so re-spawning honours Once policies.
type Tree struct {
	nodes    []*Node
	parents  []int
	children [][]int
	indexOf  map[*Node]int
	invalid  []string

	world    donburi.World
	entities []donburi.Entity
	live     Root
	warned   bool
	released bool
}

// fragmentData is the component every materialized node carries.
type fragmentData struct {
	tree        *Tree
	index       int
	completions int
	activations int
}

var fragmentComponent = donburi.NewComponentType[fragmentData]()

// Build indexes the hierarchy under root depth-first. It has no side effect
// on any world. A node that appears twice is replaced by a no-op, as is a nil
// root.
func Build(root *Node) *Tree {
	t := &Tree{indexOf: make(map[*Node]int)}
	var visit func(n *Node, parent int) int
	visit = func(n *Node, parent int) int {
		if n == nil {
			n = invalidNode("nil *Node")
		}
		if _, seen := t.indexOf[n]; seen {
			n = invalidNode("node reused within one tree")
		}
		idx := len(t.nodes)
		t.indexOf[n] = idx
		t.nodes = append(t.nodes, n)
		t.parents = append(t.parents, parent)
		t.children = append(t.children, nil)
		if n.invalid != "" {
			t.invalid = append(t.invalid, n.invalid)
		}
		for i, child := range n.children {
			ci := visit(child, idx)
			t.children[idx] = append(t.children[idx], ci)
			if n.kind == KindRace && !t.nodes[ci].kind.Leaf() {
				t.invalid = append(t.invalid, fmt.Sprintf("race child %d is a %v; only leaves race", i, t.nodes[ci].kind))
			}
		}
		return idx
	}
	visit(root, -1)
	return t
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Root returns the root node.
func (t *Tree) Root() *Node { return t.nodes[0] }

// Invalid returns the authoring mistakes found while building.
func (t *Tree) Invalid() []string { return t.invalid }

// Materialized reports whether the tree's nodes exist in a world.
func (t *Tree) Materialized() bool { return t.world != nil }

// Fragment returns the id of n once the tree is materialized.
func (t *Tree) Fragment(n *Node) (FragmentID, bool) {
	idx, ok := t.indexOf[n]
	if !ok || t.world == nil {
		return FragmentID{}, false
	}
	return fragmentID(t.entities[idx]), true
}

// Completions returns how many times n has played through.
func (t *Tree) Completions(n *Node) int {
	idx, ok := t.indexOf[n]
	if !ok || t.world == nil {
		return 0
	}
	return t.data(idx).completions
}

// Activations returns how many times n has been started.
func (t *Tree) Activations(n *Node) int {
	idx, ok := t.indexOf[n]
	if !ok || t.world == nil {
		return 0
	}
	return t.data(idx).activations
}

func (t *Tree) materialize(w donburi.World) error {
	if t.world != nil {
		if t.world != w {
			return ErrForeignWorld
		}
		return nil
	}
	t.world = w
	t.entities = make([]donburi.Entity, len(t.nodes))
	for i, n := range t.nodes {
		var e donburi.Entity
		if n.kind == KindCondition {
			e = w.Create(fragmentComponent, observerComponent)
		} else {
			e = w.Create(fragmentComponent)
		}
		entry := w.Entry(e)
		fragmentComponent.SetValue(entry, fragmentData{tree: t, index: i})
		if n.kind == KindCondition {
			installObserver(entry, n.observer)
		}
		t.entities[i] = e
	}
	return nil
}

// dematerialize removes every node entity from the world.
func (t *Tree) dematerialize() {
	if t.world == nil {
		return
	}
	for _, e := range t.entities {
		if t.world.Valid(e) {
			t.world.Remove(e)
		}
	}
	t.entities = nil
	t.world = nil
}

func (t *Tree) data(idx int) *fragmentData {
	return fragmentComponent.Get(t.world.Entry(t.entities[idx]))
}

func (t *Tree) id(idx int) FragmentID { return fragmentID(t.entities[idx]) }

// effectivePolicy resolves inherited policies; the root defaults to Always.
func (t *Tree) effectivePolicy(idx int) Policy {
	for i := idx; i >= 0; i = t.parents[i] {
		if p := t.nodes[i].policy; p != PolicyInherit {
			return p
		}
	}
	return PolicyAlways
}

func (t *Tree) eligible(idx int) bool {
	if t.effectivePolicy(idx) == PolicyAlways {
		return true
	}
	return t.data(idx).completions == 0
}

// playable reports whether the subtree at idx can reach an eligible leaf.
func (t *Tree) playable(idx int) bool {
	if !t.eligible(idx) {
		return false
	}
	n := t.nodes[idx]
	if n.kind.Leaf() {
		return true
	}
	for _, ci := range t.children[idx] {
		if n.kind == KindRace && !t.nodes[ci].kind.Leaf() {
			continue
		}
		if t.playable(ci) {
			return true
		}
	}
	return false
}
