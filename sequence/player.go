package sequence

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
)

// ErrTreeReleased is returned when spawning a tree after Release.
var ErrTreeReleased = errors.New("sequence: tree released")

// PlayerState is the phase of one playback root.
type PlayerState uint8

const (
	StateIdle       PlayerState = iota // not yet spawned
	StateWalking                       // descending to the next eligible leaf
	StateLeafActive                    // waiting for the active unit's token
	StateExhausted                     // fully played; the root is gone
)

func (s PlayerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWalking:
		return "walking"
	case StateLeafActive:
		return "leaf-active"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// frame is one composite on the walk stack.
type frame struct {
	node int
	next int
}

// unit is the single schedulable unit a cursor waits on: one leaf, or the
// leaf children of a race started together.
type unit struct {
	node   int
	race   bool
	leaves []int
	tokens []EndToken
}

type cursor struct {
	root   Root
	tree   *Tree
	state  PlayerState
	stack  []frame
	active *unit
	age    time.Duration
	done   bool
}

type rootData struct {
	cursor *cursor
}

var rootComponent = donburi.NewComponentType[rootData]()

// CursorState is a snapshot of one playback root.
type CursorState struct {
	State  PlayerState
	Active []FragmentID
	Tokens []EndToken
	Depth  int
	// Age is how long the active unit has been waiting.
	Age time.Duration
}

// Player walks spawned trees and advances each root when the token of its
// active unit is delivered. It owns every cursor; bridges reach it only
// through FragmentEndEvent or Deliver.
type Player struct {
	world  donburi.World
	log    zerolog.Logger
	serial uint64
	roots  map[donburi.Entity]*cursor
	order  []*cursor
	inbox  []EndToken
	stale  int
}

// Option configures a Player.
type Option func(*Player)

// WithLogger sets the logger of the Player.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Player) { p.log = log }
}

// NewPlayer returns a Player bound to w. It subscribes to FragmentEndEvent;
// queued tokens are consumed by Advance.
func NewPlayer(w donburi.World, opts ...Option) *Player {
	p := &Player{
		world: w,
		log:   zerolog.Nop(),
		roots: make(map[donburi.Entity]*cursor),
	}
	for _, opt := range opts {
		opt(p)
	}
	FragmentEndEvent.Subscribe(w, p.receive)
	return p
}

// World returns the world the player is bound to.
func (p *Player) World() donburi.World { return p.world }

// Logger returns the player's logger.
func (p *Player) Logger() zerolog.Logger { return p.log }

func (p *Player) receive(_ donburi.World, token EndToken) {
	p.inbox = append(p.inbox, token)
}

// Spawn starts playback of t and returns its root. If t already has a live
// root, that root is returned unchanged. A tree with no eligible leaf is a
// no-op and returns the zero Root.
func (p *Player) Spawn(t *Tree) (Root, error) {
	if t == nil || t.Len() == 0 {
		return Root{}, nil
	}
	if t.released {
		return Root{}, ErrTreeReleased
	}
	if t.live.Valid() {
		if c, ok := p.roots[t.live.entity]; ok && !c.done {
			return t.live, nil
		}
	}
	if err := t.materialize(p.world); err != nil {
		return Root{}, fmt.Errorf("spawn: %w", err)
	}
	if !t.warned {
		t.warned = true
		for _, reason := range t.invalid {
			p.log.Warn().Str("reason", reason).Msg("fragment ignored")
		}
	}
	if !t.playable(0) {
		p.log.Debug().Msg("spawn skipped: no eligible fragment")
		return Root{}, nil
	}

	e := p.world.Create(rootComponent)
	c := &cursor{root: Root{entity: e, valid: true}, tree: t, state: StateWalking}
	rootComponent.SetValue(p.world.Entry(e), rootData{cursor: c})
	p.roots[e] = c
	p.order = append(p.order, c)
	t.live = c.root
	p.log.Debug().Stringer("root", c.root).Int("fragments", t.Len()).Msg("root spawned")

	if err := p.enter(c, 0); err != nil {
		return c.root, err
	}
	return c.root, p.walk(c)
}

// Despawn withdraws root mid-stream. Stop events for its active unit are
// dispatched before Despawn returns, so bridges release what they hold for
// it. Starts still queued for root are skipped when dispatched, since the
// root entity is gone. Unknown roots are ignored.
func (p *Player) Despawn(root Root) {
	c, ok := p.roots[root.entity]
	if !ok || c.done {
		return
	}
	if c.active != nil {
		for i, leaf := range c.active.leaves {
			FragmentStopEvent.Publish(p.world, p.event(c, leaf, c.active.tokens[i]))
		}
		c.active = nil
	}
	p.finish(c)
	FragmentStopEvent.ProcessEvents(p.world)
	p.log.Debug().Stringer("root", root).Msg("root despawned")
}

// Deliver hands token to its root. A token that does not match the root's
// active unit, including a second delivery of the same token, is ignored.
func (p *Player) Deliver(token EndToken) error {
	c, ok := p.roots[token.Root.entity]
	if !ok || c.done || c.active == nil {
		p.drop(token)
		return nil
	}
	u := c.active
	won := -1
	for i, t := range u.tokens {
		if t == token {
			won = i
			break
		}
	}
	if won < 0 {
		p.drop(token)
		return nil
	}

	c.active = nil
	c.age = 0
	c.state = StateWalking
	if err := p.complete(c, u.leaves[won]); err != nil {
		return err
	}
	if u.race {
		for i, leaf := range u.leaves {
			if i != won {
				FragmentStopEvent.Publish(p.world, p.event(c, leaf, u.tokens[i]))
			}
		}
		if err := p.complete(c, u.node); err != nil {
			return err
		}
	}
	return p.walk(c)
}

func (p *Player) drop(token EndToken) {
	p.stale++
	p.log.Debug().Stringer("token", token).Msg("stale token ignored")
}

// Advance consumes every queued FragmentEndEvent, including tokens queued by
// hooks while advancing.
func (p *Player) Advance() error {
	var errs []error
	for {
		FragmentEndEvent.ProcessEvents(p.world)
		if len(p.inbox) == 0 {
			break
		}
		inbox := p.inbox
		p.inbox = nil
		for _, token := range inbox {
			if err := p.Deliver(token); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Playing reports whether root is live.
func (p *Player) Playing(root Root) bool {
	c, ok := p.roots[root.entity]
	return ok && !c.done
}

// Cursor returns a snapshot of root.
func (p *Player) Cursor(root Root) (CursorState, bool) {
	c, ok := p.roots[root.entity]
	if !ok || c.done {
		return CursorState{State: StateExhausted}, false
	}
	s := CursorState{State: c.state, Depth: len(c.stack), Age: c.age}
	if c.active != nil {
		for i, leaf := range c.active.leaves {
			s.Active = append(s.Active, c.tree.id(leaf))
			s.Tokens = append(s.Tokens, c.active.tokens[i])
		}
	}
	return s, true
}

// Roots returns the live roots in spawn order.
func (p *Player) Roots() []Root {
	roots := make([]Root, 0, len(p.order))
	for _, c := range p.order {
		roots = append(roots, c.root)
	}
	return roots
}

// Minted returns the number of tokens minted so far.
func (p *Player) Minted() uint64 { return p.serial }

// Stale returns the number of tokens ignored so far.
func (p *Player) Stale() int { return p.stale }

// Age adds dt to the waiting time of every active unit.
func (p *Player) Age(dt time.Duration) {
	for _, c := range p.order {
		if c.active != nil {
			c.age += dt
		}
	}
}

// Release despawns t if it is live, unregisters its hooks and removes its
// nodes from the world. A released tree is spent: Spawn returns
// ErrTreeReleased for it, and a second Release does nothing.
func (p *Player) Release(t *Tree) error {
	if t.released {
		return nil
	}
	t.released = true
	if t.live.Valid() {
		p.Despawn(t.live)
		t.live = Root{}
	}
	var errs []error
	for _, n := range t.nodes {
		for _, cb := range n.onStart {
			if err := cb.Unregister(p.world); err != nil {
				errs = append(errs, err)
			}
		}
		for _, cb := range n.onEnd {
			if err := cb.Unregister(p.world); err != nil {
				errs = append(errs, err)
			}
		}
	}
	t.dematerialize()
	t.warned = false
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// walk descends until a unit is active or the root is exhausted.
func (p *Player) walk(c *cursor) error {
	for c.active == nil && !c.done {
		if len(c.stack) == 0 {
			p.finish(c)
			return nil
		}
		top := &c.stack[len(c.stack)-1]
		children := c.tree.children[top.node]
		if top.next >= len(children) {
			node := top.node
			c.stack = c.stack[:len(c.stack)-1]
			if err := p.complete(c, node); err != nil {
				return err
			}
			continue
		}
		child := children[top.next]
		top.next++
		if !c.tree.eligible(child) {
			continue
		}
		if err := p.enter(c, child); err != nil {
			return err
		}
	}
	return nil
}

// enter activates node idx: a leaf or race becomes the active unit, a
// sequence is pushed.
func (p *Player) enter(c *cursor, idx int) error {
	t := c.tree
	switch n := t.nodes[idx]; n.kind {
	case KindSequence:
		if err := p.start(c, idx, EndToken{}); err != nil {
			return err
		}
		c.stack = append(c.stack, frame{node: idx})
	case KindRace:
		if err := p.start(c, idx, EndToken{}); err != nil {
			return err
		}
		u := &unit{node: idx, race: true}
		for _, ci := range t.children[idx] {
			if !t.nodes[ci].kind.Leaf() || !t.eligible(ci) {
				continue
			}
			u.leaves = append(u.leaves, ci)
			u.tokens = append(u.tokens, p.mint(c, ci))
		}
		if len(u.leaves) == 0 {
			return p.complete(c, idx)
		}
		c.active = u
		c.state = StateLeafActive
		for i, leaf := range u.leaves {
			if err := p.start(c, leaf, u.tokens[i]); err != nil {
				return err
			}
		}
	default:
		token := p.mint(c, idx)
		c.active = &unit{node: idx, leaves: []int{idx}, tokens: []EndToken{token}}
		c.state = StateLeafActive
		if err := p.start(c, idx, token); err != nil {
			return err
		}
	}
	return nil
}

func (p *Player) mint(c *cursor, idx int) EndToken {
	p.serial++
	return EndToken{Root: c.root, Fragment: c.tree.id(idx), serial: p.serial}
}

func (p *Player) start(c *cursor, idx int, token EndToken) error {
	t := c.tree
	t.data(idx).activations++
	FragmentStartEvent.Publish(p.world, p.event(c, idx, token))
	p.log.Debug().Stringer("root", c.root).Stringer("fragment", t.id(idx)).
		Stringer("kind", t.nodes[idx].kind).Uint64("token", token.serial).Msg("fragment started")
	return p.hooks(c, idx, t.nodes[idx].onStart, "on-start")
}

func (p *Player) complete(c *cursor, idx int) error {
	t := c.tree
	t.data(idx).completions++
	err := p.hooks(c, idx, t.nodes[idx].onEnd, "on-end")
	FragmentCompleteEvent.Publish(p.world, p.event(c, idx, EndToken{}))
	p.log.Debug().Stringer("root", c.root).Stringer("fragment", t.id(idx)).
		Stringer("kind", t.nodes[idx].kind).Msg("fragment completed")
	return err
}

func (p *Player) hooks(c *cursor, idx int, cbs []Callback[Hook], which string) error {
	if len(cbs) == 0 {
		return nil
	}
	h := Hook{Root: c.root, Fragment: c.tree.id(idx), Kind: c.tree.nodes[idx].kind}
	for _, cb := range cbs {
		if err := cb.Call(p.world, h); err != nil {
			return fmt.Errorf("%s hook of %v: %w", which, h.Fragment, err)
		}
	}
	return nil
}

func (p *Player) event(c *cursor, idx int, token EndToken) FragmentEvent {
	n := c.tree.nodes[idx]
	ev := FragmentEvent{Root: c.root, Fragment: c.tree.id(idx), Kind: n.kind, Token: token}
	switch n.kind {
	case KindDialog:
		ev.Dialog = n.dialog
	case KindPause:
		ev.Pause = n.pause
	}
	return ev
}

// finish removes an exhausted or despawned root.
func (p *Player) finish(c *cursor) {
	if c.done {
		return
	}
	c.done = true
	c.state = StateExhausted
	c.stack = nil
	delete(p.roots, c.root.entity)
	for i, o := range p.order {
		if o == c {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	if c.tree.live == c.root {
		c.tree.live = Root{}
	}
	if p.world.Valid(c.root.entity) {
		p.world.Remove(c.root.entity)
	}
}
