package sequence

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

var (
	// ErrMissingObserver is returned when a condition fragment starts without
	// an observer component.
	ErrMissingObserver = errors.New("sequence: expected observer on condition fragment")
	// ErrObserverActive is returned when an observer that is already active
	// is activated again.
	ErrObserverActive = errors.New("sequence: observer already active")
)

// ObserverMode is the state of a condition fragment's observer.
type ObserverMode uint8

const (
	ObserverDormant ObserverMode = iota // parked: registration data held, no dispatch
	ObserverActive                      // live: receives events of its type
)

func (m ObserverMode) String() string {
	if m == ObserverActive {
		return "active"
	}
	return "dormant"
}

// Observer is the registration data of a condition fragment: the event type
// it watches and the predicate closure, including whatever state the closure
// captured. The same value moves between the dormant and active slots of an
// ObserverState; it is never rebuilt.
type Observer struct {
	watch watch
	check func(w donburi.World, ev any) (bool, error)
	seen  int
}

// Seen returns how many events the observer has evaluated while active.
func (o *Observer) Seen() int { return o.seen }

// watch binds one event type to a bridge.
type watch struct {
	key     any
	name    string
	install func(w donburi.World, b *ConditionBridge)
	process func(w donburi.World)
}

// ObserverState is the per-fragment component holding an observer in exactly
// one of two slots.
type ObserverState struct {
	mode    ObserverMode
	active  *Observer
	dormant *Observer
	handle  uint64
	token   EndToken
}

// Mode returns the current mode.
func (s *ObserverState) Mode() ObserverMode { return s.mode }

var observerComponent = donburi.NewComponentType[ObserverState]()

func installObserver(entry *donburi.Entry, obs *Observer) {
	observerComponent.SetValue(entry, ObserverState{mode: ObserverDormant, dormant: obs})
}

// ObserverOf returns the observer state of a condition fragment.
func ObserverOf(w donburi.World, id FragmentID) (*ObserverState, bool) {
	if !id.Valid() || !w.Valid(id.Entity()) {
		return nil, false
	}
	entry := w.Entry(id.Entity())
	if !entry.HasComponent(observerComponent) {
		return nil, false
	}
	return observerComponent.Get(entry), true
}

// Con builds a condition fragment that ends the first time pred returns true
// for an event of type E published while the fragment is active.
func Con[E any](on *events.EventType[E], pred func(w donburi.World, ev E) bool) *Node {
	return ConErr(on, func(w donburi.World, ev E) (bool, error) { return pred(w, ev), nil })
}

// ConErr is Con with a fallible predicate. An error is fatal for the step
// and the observer is parked without retry.
func ConErr[E any](on *events.EventType[E], pred func(w donburi.World, ev E) (bool, error)) *Node {
	return &Node{kind: KindCondition, observer: watchFor(on, pred)}
}

// On builds a condition fragment satisfied by any event of type E. fn, if
// not nil, runs with the event before the fragment ends.
func On[E any](on *events.EventType[E], fn func(w donburi.World, ev E)) *Node {
	return OnErr(on, func(w donburi.World, ev E) error {
		if fn != nil {
			fn(w, ev)
		}
		return nil
	})
}

// OnErr is On with a fallible trigger.
func OnErr[E any](on *events.EventType[E], fn func(w donburi.World, ev E) error) *Node {
	return ConErr(on, func(w donburi.World, ev E) (bool, error) {
		if fn == nil {
			return true, nil
		}
		if err := fn(w, ev); err != nil {
			return false, err
		}
		return true, nil
	})
}

func watchFor[E any](on *events.EventType[E], pred func(w donburi.World, ev E) (bool, error)) *Observer {
	return &Observer{
		watch: watch{
			key:  on,
			name: fmt.Sprintf("%T", *new(E)),
			install: func(w donburi.World, b *ConditionBridge) {
				on.Subscribe(w, func(w donburi.World, ev E) { b.dispatch(w, on, ev) })
			},
			process: func(w donburi.World) { on.ProcessEvents(w) },
		},
		check: func(w donburi.World, ev any) (bool, error) { return pred(w, ev.(E)) },
	}
}

type liveObserver struct {
	handle uint64
	entity donburi.Entity
}

// ConditionBridge activates condition observers while their fragment is the
// active leaf and delivers the fragment's token on satisfaction.
type ConditionBridge struct {
	log     zerolog.Logger
	watched map[any]watch
	order   []any
	live    map[any][]liveObserver
	next    uint64
	errs    []error
}

// NewConditionBridge subscribes the bridge to fragment events of w.
func NewConditionBridge(w donburi.World, log zerolog.Logger) *ConditionBridge {
	b := &ConditionBridge{
		log:     log.With().Str("bridge", "condition").Logger(),
		watched: make(map[any]watch),
		live:    make(map[any][]liveObserver),
	}
	FragmentStartEvent.Subscribe(w, b.onStart)
	FragmentStopEvent.Subscribe(w, b.onStop)
	return b
}

func (b *ConditionBridge) onStart(w donburi.World, ev FragmentEvent) {
	if ev.Kind != KindCondition || !ev.Live(w) {
		return
	}
	if err := b.Unpark(w, ev.Fragment, ev.Token); err != nil {
		b.errs = append(b.errs, fmt.Errorf("start %v: %w", ev.Fragment, err))
	}
}

func (b *ConditionBridge) onStop(w donburi.World, ev FragmentEvent) {
	if ev.Kind != KindCondition {
		return
	}
	st, ok := ObserverOf(w, ev.Fragment)
	if !ok || st.token != ev.Token {
		return
	}
	b.park(ev.Fragment.Entity(), st)
}

// Unpark moves the observer of id into its active slot, bound to token.
func (b *ConditionBridge) Unpark(w donburi.World, id FragmentID, token EndToken) error {
	st, ok := ObserverOf(w, id)
	if !ok {
		return ErrMissingObserver
	}
	if st.mode == ObserverActive {
		return ErrObserverActive
	}
	obs := st.dormant
	if obs == nil {
		return ErrMissingObserver
	}
	b.ensureWatched(w, obs.watch)
	b.next++
	st.active, st.dormant = obs, nil
	st.mode = ObserverActive
	st.handle = b.next
	st.token = token
	b.live[obs.watch.key] = append(b.live[obs.watch.key], liveObserver{handle: b.next, entity: id.Entity()})
	b.log.Debug().Stringer("fragment", id).Str("event", obs.watch.name).Msg("observer unparked")
	return nil
}

// Park moves the observer of id back to its dormant slot. Parking a dormant
// or missing observer is a no-op.
func (b *ConditionBridge) Park(w donburi.World, id FragmentID) {
	if st, ok := ObserverOf(w, id); ok {
		b.park(id.Entity(), st)
	}
}

func (b *ConditionBridge) park(e donburi.Entity, st *ObserverState) {
	if st.mode != ObserverActive {
		return
	}
	obs := st.active
	key := obs.watch.key
	list := b.live[key]
	for i, l := range list {
		if l.handle == st.handle {
			b.live[key] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	st.dormant, st.active = obs, nil
	st.mode = ObserverDormant
	st.handle = 0
	st.token = EndToken{}
	b.log.Debug().Stringer("fragment", fragmentID(e)).Msg("observer parked")
}

func (b *ConditionBridge) ensureWatched(w donburi.World, wt watch) {
	if _, ok := b.watched[wt.key]; ok {
		return
	}
	b.watched[wt.key] = wt
	b.order = append(b.order, wt.key)
	wt.install(w, b)
}

func (b *ConditionBridge) dispatch(w donburi.World, key any, ev any) {
	snapshot := append([]liveObserver(nil), b.live[key]...)
	for _, l := range snapshot {
		if !w.Valid(l.entity) {
			continue
		}
		entry := w.Entry(l.entity)
		if !entry.HasComponent(observerComponent) {
			continue
		}
		st := observerComponent.Get(entry)
		// Parked earlier in this batch, or re-activated under a new handle.
		if st.mode != ObserverActive || st.handle != l.handle {
			continue
		}
		obs := st.active
		obs.seen++
		ok, err := obs.check(w, ev)
		if err != nil {
			b.errs = append(b.errs, fmt.Errorf("condition %v on %s: %w", fragmentID(l.entity), obs.watch.name, err))
			b.park(l.entity, st)
			continue
		}
		if !ok {
			continue
		}
		token := st.token
		b.park(l.entity, st)
		FragmentEndEvent.Publish(w, token)
	}
}

// Resolve evaluates every queued event of the watched types against the
// active observers.
func (b *ConditionBridge) Resolve(w donburi.World, _ time.Duration) error {
	for _, key := range b.order {
		b.watched[key].process(w)
	}
	return b.Drain(w)
}

// Drain returns the errors collected inside event handlers since the last
// call.
func (b *ConditionBridge) Drain(donburi.World) error {
	if len(b.errs) == 0 {
		return nil
	}
	err := errors.Join(b.errs...)
	b.errs = nil
	return err
}

// Active returns the number of active observers.
func (b *ConditionBridge) Active() int {
	n := 0
	for _, list := range b.live {
		n += len(list)
	}
	return n
}

// Dormant returns the number of parked observers in w.
func (b *ConditionBridge) Dormant(w donburi.World) int {
	n := 0
	observerComponent.Each(w, func(entry *donburi.Entry) {
		if observerComponent.Get(entry).mode == ObserverDormant {
			n++
		}
	})
	return n
}
