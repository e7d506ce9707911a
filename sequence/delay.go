package sequence

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
	"golang.org/x/exp/slices"
)

// countdown is a timer entity. Pause fragments carry their token; RunAfter
// timers carry a callback instead.
type countdown struct {
	remaining time.Duration
	token     EndToken
	run       *Callback[struct{}]
	seq       uint64
}

var (
	countdownComponent = donburi.NewComponentType[countdown]()
	countdownQuery     = donburi.NewQuery(filter.Contains(countdownComponent))
)

// countdownClock numbers the countdowns of one world in creation order. It
// lives on a singleton entity next to the timers it orders.
type countdownClock struct {
	last uint64
}

var countdownClockComponent = donburi.NewComponentType[countdownClock]()

func nextCountdownSeq(w donburi.World) uint64 {
	entry, ok := countdownClockComponent.First(w)
	if !ok {
		entry = w.Entry(w.Create(countdownClockComponent))
	}
	clock := countdownClockComponent.Get(entry)
	clock.last++
	return clock.last
}

func spawnCountdown(w donburi.World, c countdown) donburi.Entity {
	c.seq = nextCountdownSeq(w)
	e := w.Create(countdownComponent)
	countdownComponent.SetValue(w.Entry(e), c)
	return e
}

// RunAfter runs cb once after d has elapsed, then unregisters it. The timer
// advances with the DelayBridge of w.
func RunAfter(w donburi.World, d time.Duration, cb Callback[struct{}]) {
	if d < 0 {
		d = 0
	}
	spawnCountdown(w, countdown{remaining: d, run: &cb})
}

// RunAfterFunc is RunAfter for a plain function.
func RunAfterFunc(w donburi.World, d time.Duration, fn func(w donburi.World) error) {
	RunAfter(w, d, NewCallback(func(w donburi.World, _ struct{}) error { return fn(w) }))
}

// Countdowns returns the number of pending timers in w.
func Countdowns(w donburi.World) int { return countdownQuery.Count(w) }

// DelayBridge owns pause fragments: it spawns a countdown per activation and
// delivers the token when it expires.
type DelayBridge struct {
	log  zerolog.Logger
	errs []error
}

// NewDelayBridge subscribes the bridge to fragment events of w.
func NewDelayBridge(w donburi.World, log zerolog.Logger) *DelayBridge {
	b := &DelayBridge{log: log.With().Str("bridge", "delay").Logger()}
	FragmentStartEvent.Subscribe(w, b.onStart)
	FragmentStopEvent.Subscribe(w, b.onStop)
	return b
}

func (b *DelayBridge) onStart(w donburi.World, ev FragmentEvent) {
	if ev.Kind != KindPause || !ev.Live(w) {
		return
	}
	spawnCountdown(w, countdown{remaining: ev.Pause, token: ev.Token})
}

func (b *DelayBridge) onStop(w donburi.World, ev FragmentEvent) {
	if ev.Kind != KindPause {
		return
	}
	var stale []donburi.Entity
	countdownQuery.Each(w, func(entry *donburi.Entry) {
		if countdownComponent.Get(entry).token == ev.Token {
			stale = append(stale, entry.Entity())
		}
	})
	for _, e := range stale {
		w.Remove(e)
	}
}

// Resolve advances every countdown by dt. Expired pause countdowns deliver
// their token; expired RunAfter timers run their callback. Both are removed.
func (b *DelayBridge) Resolve(w donburi.World, dt time.Duration) error {
	type expiry struct {
		entity donburi.Entity
		c      countdown
	}
	var expired []expiry
	countdownQuery.Each(w, func(entry *donburi.Entry) {
		c := countdownComponent.Get(entry)
		c.remaining -= dt
		if c.remaining <= 0 {
			expired = append(expired, expiry{entity: entry.Entity(), c: *c})
		}
	})
	slices.SortFunc(expired, func(a, b expiry) int {
		switch {
		case a.c.seq < b.c.seq:
			return -1
		case a.c.seq > b.c.seq:
			return 1
		}
		return 0
	})

	for _, x := range expired {
		w.Remove(x.entity)
		if x.c.run != nil {
			cb := *x.c.run
			if err := cb.Call(w, struct{}{}); err != nil {
				b.errs = append(b.errs, fmt.Errorf("run after: %w", err))
			}
			if err := cb.Unregister(w); err != nil {
				b.errs = append(b.errs, fmt.Errorf("run after: %w", err))
			}
			continue
		}
		FragmentEndEvent.Publish(w, x.c.token)
	}
	return b.Drain(w)
}

// Drain returns the errors collected since the last call.
func (b *DelayBridge) Drain(donburi.World) error {
	if len(b.errs) == 0 {
		return nil
	}
	err := errors.Join(b.errs...)
	b.errs = nil
	return err
}
