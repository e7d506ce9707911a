package input

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/yohamta/donburi"
)

type fakeSource struct {
	just    map[ebiten.Key]bool
	held    map[ebiten.Key]bool
	buttons map[ebiten.StandardGamepadButton]bool
	mouse   bool
}

func newFake() *fakeSource {
	return &fakeSource{
		just:    map[ebiten.Key]bool{},
		held:    map[ebiten.Key]bool{},
		buttons: map[ebiten.StandardGamepadButton]bool{},
	}
}

func (f *fakeSource) KeyJustPressed(k ebiten.Key) bool { return f.just[k] }
func (f *fakeSource) KeyPressed(k ebiten.Key) bool     { return f.held[k] }
func (f *fakeSource) ButtonJustPressed(b ebiten.StandardGamepadButton) bool {
	return f.buttons[b]
}
func (f *fakeSource) MouseJustPressed(ebiten.MouseButton) bool { return f.mouse }

func collect(w donburi.World) *[]InteractEvent {
	var got []InteractEvent
	InteractEventType.Subscribe(w, func(_ donburi.World, ev InteractEvent) { got = append(got, ev) })
	return &got
}

func TestKeyboardInteract(t *testing.T) {
	w := donburi.NewWorld()
	got := collect(w)
	src := newFake()
	in := New(src, DefaultBindings())

	in.Update(w)
	InteractEventType.ProcessEvents(w)
	assert.Empty(t, *got)

	src.just[ebiten.KeySpace] = true
	src.just[ebiten.KeyEnter] = true
	src.held[ebiten.KeyShiftLeft] = true
	in.Update(w)
	InteractEventType.ProcessEvents(w)
	assert.Equal(t, []InteractEvent{{Action: ActionInteract, Source: SourceKeyboard, Modifiers: ModShift}}, *got)
}

func TestGamepadAndMouse(t *testing.T) {
	w := donburi.NewWorld()
	got := collect(w)
	src := newFake()
	in := New(src, DefaultBindings())

	src.buttons[ebiten.StandardGamepadButtonRightBottom] = true
	in.Update(w)
	src.buttons[ebiten.StandardGamepadButtonRightBottom] = false
	src.mouse = true
	in.Update(w)
	InteractEventType.ProcessEvents(w)

	if assert.Len(t, *got, 2) {
		assert.Equal(t, SourceGamepad, (*got)[0].Source)
		assert.Equal(t, SourceMouse, (*got)[1].Source)
	}

	noMouse := New(src, Bindings{})
	*got = nil
	noMouse.Update(w)
	InteractEventType.ProcessEvents(w)
	assert.Empty(t, *got)
}

func TestInjectDrainsOnePerFrame(t *testing.T) {
	w := donburi.NewWorld()
	got := collect(w)
	src := newFake()
	in := New(src, DefaultBindings())
	in.SetEnabled(false)

	in.Inject(ActionInteract)
	in.Inject(ActionInteract)
	assert.Equal(t, 2, in.Pending())

	src.just[ebiten.KeySpace] = true
	in.Update(w)
	assert.Equal(t, 1, in.Pending())
	in.Update(w)
	assert.Equal(t, 0, in.Pending())
	in.Update(w)
	InteractEventType.ProcessEvents(w)

	assert.Len(t, *got, 2, "device polling is disabled")
	for _, ev := range *got {
		assert.Equal(t, SourceInjected, ev.Source)
	}
}
