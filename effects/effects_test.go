package effects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"

	"github.com/CorvusPrudens/time-marches-on/sequence"
)

func TestTweenGroupWritesFields(t *testing.T) {
	a, b := 0.0, 10.0
	g := NewTweenGroup([]*float64{&a, &b}, []float64{10, 0}, time.Second, ease.Linear)
	g.Update(0.5)
	assert.InDelta(t, 5, a, 0.01)
	assert.InDelta(t, 5, b, 0.01)
	assert.False(t, g.Done)
	g.Update(0.5)
	assert.InDelta(t, 10, a, 0.01)
	assert.True(t, g.Done)
}

func TestStartRunsUntilFinished(t *testing.T) {
	w := donburi.NewWorld()
	var finished []TweenFinishedEvent
	TweenFinishedEventType.Subscribe(w, func(_ donburi.World, ev TweenFinishedEvent) { finished = append(finished, ev) })

	v := 0.0
	id := Start(w, "value", NewTweenGroup([]*float64{&v}, []float64{1}, 200*time.Millisecond, nil))
	assert.Equal(t, 1, Running(w))
	Update(w, 100*time.Millisecond)
	TweenFinishedEventType.ProcessEvents(w)
	assert.Empty(t, finished)
	Update(w, 100*time.Millisecond)
	TweenFinishedEventType.ProcessEvents(w)
	require.Len(t, finished, 1)
	assert.Equal(t, id, finished[0].ID)
	assert.False(t, finished[0].Replaced)
	assert.Zero(t, Running(w))
	assert.InDelta(t, 1, v, 0.001)
}

func TestStartReplacesSameName(t *testing.T) {
	w := donburi.NewWorld()
	var finished []TweenFinishedEvent
	TweenFinishedEventType.Subscribe(w, func(_ donburi.World, ev TweenFinishedEvent) { finished = append(finished, ev) })

	cam := NewCamera(Rect{Width: 640, Height: 360})
	first := cam.ScrollTo(w, 100, 100, time.Second, ease.Linear)
	second := cam.ScrollTo(w, 0, 0, time.Second, ease.Linear)
	TweenFinishedEventType.ProcessEvents(w)

	require.Len(t, finished, 1)
	assert.Equal(t, first, finished[0].ID)
	assert.True(t, finished[0].Replaced)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 100.0, cam.X, "replaced tween jumps to its end")
	assert.Equal(t, 1, Running(w))
}

func TestTweenSerialsArePerWorld(t *testing.T) {
	w1, w2 := donburi.NewWorld(), donburi.NewWorld()
	var a, b float64
	Start(w1, "", NewTweenGroup([]*float64{&a}, []float64{1}, time.Second, nil))
	second := Start(w1, "", NewTweenGroup([]*float64{&a}, []float64{1}, time.Second, nil))
	first := Start(w2, "", NewTweenGroup([]*float64{&b}, []float64{1}, time.Second, nil))

	assert.Equal(t, "tween(2)", second.String())
	assert.Equal(t, "tween(1)", first.String(), "a fresh world counts from one")
	assert.Equal(t, 2, Running(w1))
	assert.Equal(t, 1, Running(w2))
}

func TestCameraClampAndProjection(t *testing.T) {
	cam := NewCamera(Rect{Width: 200, Height: 100})
	assert.Equal(t, 100.0, cam.X)
	assert.Equal(t, 50.0, cam.Y)

	cam.Zoom = 2
	sx, sy := cam.WorldToScreen(110, 55)
	assert.Equal(t, 120.0, sx)
	assert.Equal(t, 60.0, sy)
	wx, wy := cam.ScreenToWorld(sx, sy)
	assert.InDelta(t, 110, wx, 1e-9)
	assert.InDelta(t, 55, wy, 1e-9)
	assert.Equal(t, Rect{X: 50, Y: 25, Width: 100, Height: 50}, cam.VisibleBounds())

	cam.SetBounds(Rect{Width: 300, Height: 300})
	cam.X, cam.Y = -50, 1000
	cam.Update()
	assert.Equal(t, 50.0, cam.X)
	assert.Equal(t, 275.0, cam.Y)
	cam.ClearBounds()
	cam.X = -50
	cam.Update()
	assert.Equal(t, -50.0, cam.X)
}

func TestFragmentsEndWithTheirTween(t *testing.T) {
	w := donburi.NewWorld()
	seq := sequence.NewSequencer(w)
	cam := NewCamera(Rect{Width: 640, Height: 360})
	fade := &Overlay{}
	tree := sequence.Build(sequence.Seq(
		Scroll(cam, 0, 0, 500*time.Millisecond, ease.InOutQuad),
		Fade(fade, 1, 250*time.Millisecond, nil),
	))
	root, err := seq.Spawn(tree)
	require.NoError(t, err)

	step := func(dt time.Duration) {
		t.Helper()
		require.NoError(t, seq.Update(dt))
		Update(w, dt)
		cam.Update()
	}
	for i := 0; i < 5; i++ {
		step(100 * time.Millisecond)
	}
	assert.InDelta(t, 0, cam.X, 0.01)
	assert.True(t, seq.Playing(root))

	for i := 0; i < 10 && seq.Playing(root); i++ {
		step(100 * time.Millisecond)
	}
	assert.False(t, seq.Playing(root))
	assert.InDelta(t, 1, fade.Alpha, 0.001)
	assert.Zero(t, Running(w))
}

func TestAwaitMatchesName(t *testing.T) {
	w := donburi.NewWorld()
	seq := sequence.NewSequencer(w)
	root, err := seq.Spawn(sequence.Build(Await("door")))
	require.NoError(t, err)
	require.NoError(t, seq.Update(0))

	v := 0.0
	Start(w, "window", NewTweenGroup([]*float64{&v}, []float64{1}, 0, nil))
	Update(w, 0)
	require.NoError(t, seq.Update(0))
	assert.True(t, seq.Playing(root))

	Start(w, "door", NewTweenGroup([]*float64{&v}, []float64{0}, 0, nil))
	Update(w, 0)
	require.NoError(t, seq.Update(0))
	assert.False(t, seq.Playing(root))
}
