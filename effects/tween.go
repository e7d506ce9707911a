// Package effects runs tweens over screen state (camera position, zoom,
// overlay fades) and exposes them to fragment trees.
package effects

import (
	"fmt"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

// TweenGroup animates up to 4 float64 fields simultaneously. Start it with
// Start so Update runs every frame, or call Update directly.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	fields [4]*float64
	to     [4]float64
	Done   bool
}

// NewTweenGroup animates each field towards the value of to at the same
// index. Extra fields beyond four are ignored.
func NewTweenGroup(fields []*float64, to []float64, d time.Duration, fn ease.TweenFunc) *TweenGroup {
	if fn == nil {
		fn = ease.Linear
	}
	g := &TweenGroup{}
	for i := 0; i < len(fields) && i < len(to) && i < len(g.tweens); i++ {
		g.tweens[i] = gween.New(float32(*fields[i]), float32(to[i]), float32(d.Seconds()), fn)
		g.fields[i] = fields[i]
		g.to[i] = to[i]
		g.count++
	}
	return g
}

// Update advances all tweens by dt seconds and writes values to the fields.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		if finished {
			*g.fields[i] = g.to[i]
			continue
		}
		*g.fields[i] = float64(val)
		allDone = false
	}
	g.Done = allDone
}

// finish jumps every field to its end value.
func (g *TweenGroup) finish() {
	for i := 0; i < g.count; i++ {
		*g.fields[i] = g.to[i]
	}
	g.Done = true
}

// TweenID identifies a started tween.
type TweenID struct {
	entity donburi.Entity
	serial uint64
}

func (id TweenID) String() string { return fmt.Sprintf("tween(%d)", id.serial) }

// TweenFinishedEvent is published once per started tween, when it completes
// or is replaced by a newer tween of the same name.
type TweenFinishedEvent struct {
	ID       TweenID
	Name     string
	Replaced bool
}

var TweenFinishedEventType = events.NewEventType[TweenFinishedEvent]()

type running struct {
	id    TweenID
	name  string
	group *TweenGroup
}

var (
	tweenComponent = donburi.NewComponentType[running]()
	tweenQuery     = donburi.NewQuery(filter.Contains(tweenComponent))

	// tweenSerials holds the last TweenID serial handed out in a world.
	tweenSerials = donburi.NewComponentType[uint64]()
)

func nextTweenSerial(w donburi.World) uint64 {
	entry, ok := tweenSerials.First(w)
	if !ok {
		entry = w.Entry(w.Create(tweenSerials))
	}
	serial := tweenSerials.Get(entry)
	*serial++
	return *serial
}

// Finish jumps the running tweens called name to their end values and
// removes them. It returns how many there were.
func Finish(w donburi.World, name string) int {
	var replaced []running
	tweenQuery.Each(w, func(entry *donburi.Entry) {
		if r := tweenComponent.Get(entry); r.name == name {
			replaced = append(replaced, *r)
		}
	})
	for _, r := range replaced {
		r.group.finish()
		w.Remove(r.id.entity)
		TweenFinishedEventType.Publish(w, TweenFinishedEvent{ID: r.id, Name: r.name, Replaced: true})
	}
	return len(replaced)
}

// Start registers g under name. A running tween of the same name is finished
// first; build g after calling Finish to tween from its end values.
func Start(w donburi.World, name string, g *TweenGroup) TweenID {
	if name != "" {
		Finish(w, name)
	}
	serial := nextTweenSerial(w)
	e := w.Create(tweenComponent)
	id := TweenID{entity: e, serial: serial}
	tweenComponent.SetValue(w.Entry(e), running{id: id, name: name, group: g})
	return id
}

// Running returns the number of registered tweens.
func Running(w donburi.World) int { return tweenQuery.Count(w) }

// Update advances every registered tween by dt and removes the finished ones.
func Update(w donburi.World, dt time.Duration) {
	var done []running
	tweenQuery.Each(w, func(entry *donburi.Entry) {
		r := tweenComponent.Get(entry)
		r.group.Update(float32(dt.Seconds()))
		if r.group.Done {
			done = append(done, *r)
		}
	})
	for _, r := range done {
		w.Remove(r.id.entity)
		TweenFinishedEventType.Publish(w, TweenFinishedEvent{ID: r.id, Name: r.name})
	}
}
