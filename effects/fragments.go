package effects

import (
	"time"

	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"

	"github.com/CorvusPrudens/time-marches-on/sequence"
)

// Await builds a condition fragment satisfied by the next tween called name
// to finish.
func Await(name string) *sequence.Node {
	return sequence.Con(TweenFinishedEventType, func(_ donburi.World, ev TweenFinishedEvent) bool {
		return ev.Name == name
	})
}

// tweenFragment starts a tween when the fragment activates and ends the
// fragment when that tween finishes.
func tweenFragment(start func(w donburi.World) TweenID) *sequence.Node {
	var current TweenID
	n := sequence.Con(TweenFinishedEventType, func(_ donburi.World, ev TweenFinishedEvent) bool {
		return ev.ID == current
	})
	return n.OnStart(func(w donburi.World, _ sequence.Hook) error {
		current = start(w)
		return nil
	})
}

// Scroll builds a fragment that scrolls cam to (x, y).
func Scroll(cam *Camera, x, y float64, d time.Duration, fn ease.TweenFunc) *sequence.Node {
	return tweenFragment(func(w donburi.World) TweenID { return cam.ScrollTo(w, x, y, d, fn) })
}

// Zoom builds a fragment that zooms cam.
func Zoom(cam *Camera, zoom float64, d time.Duration, fn ease.TweenFunc) *sequence.Node {
	return tweenFragment(func(w donburi.World) TweenID { return cam.ZoomTo(w, zoom, d, fn) })
}

// Fade builds a fragment that fades o to alpha.
func Fade(o *Overlay, alpha float64, d time.Duration, fn ease.TweenFunc) *sequence.Node {
	return tweenFragment(func(w donburi.World) TweenID { return o.FadeTo(w, alpha, d, fn) })
}
