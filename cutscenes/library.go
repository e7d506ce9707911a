// Package cutscenes holds the authored scenes of the game.
package cutscenes

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/CorvusPrudens/time-marches-on/sequence"
)

// Library is a named set of built trees. Each tree is built once, so the
// once-state of a scene survives every spawn through the same Library.
type Library struct {
	trees map[string]*sequence.Tree
}

// New returns an empty Library.
func New() *Library {
	return &Library{trees: make(map[string]*sequence.Tree)}
}

// NewLibrary returns a Library of every authored scene.
func NewLibrary() *Library {
	l := New()
	l.MustAdd("intro", Intro())
	l.MustAdd("tea", Tea())
	l.MustAdd("park", Park())
	l.MustAdd("park_man_one", ParkManOne())
	l.MustAdd("park_man_two", ParkManTwo())
	l.MustAdd("visitor", Visitor())
	l.MustAdd("sturgeon", SturgeonScene())
	for i, n := range Shadows() {
		l.MustAdd(fmt.Sprintf("shadow_%d", i+1), n)
	}
	return l
}

// Add builds root under name.
func (l *Library) Add(name string, root *sequence.Node) (*sequence.Tree, error) {
	if _, ok := l.trees[name]; ok {
		return nil, fmt.Errorf("cutscene %q already defined", name)
	}
	t := sequence.Build(root)
	l.trees[name] = t
	return t, nil
}

// MustAdd is like Add but panics on a duplicate name.
func (l *Library) MustAdd(name string, root *sequence.Node) *sequence.Tree {
	t, err := l.Add(name, root)
	if err != nil {
		panic(err)
	}
	return t
}

// Get returns the tree called name.
func (l *Library) Get(name string) (*sequence.Tree, bool) {
	t, ok := l.trees[name]
	return t, ok
}

// Names returns the scene names in sorted order.
func (l *Library) Names() []string {
	names := maps.Keys(l.trees)
	slices.Sort(names)
	return names
}

// Len returns the number of scenes.
func (l *Library) Len() int { return len(l.trees) }

// Merge adds every scene of other. Names already present are an error.
func (l *Library) Merge(other *Library) error {
	for _, name := range other.Names() {
		if _, ok := l.trees[name]; ok {
			return fmt.Errorf("cutscene %q already defined", name)
		}
		l.trees[name] = other.trees[name]
	}
	return nil
}
