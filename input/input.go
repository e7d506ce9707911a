// Package input turns keyboard, gamepad and mouse presses into game actions
// published as donburi events.
package input

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// Action is a game-level input.
type Action uint8

const (
	ActionInteract Action = iota // advance dialogue, interact with the world
)

func (a Action) String() string {
	switch a {
	case ActionInteract:
		return "interact"
	default:
		return "unknown"
	}
}

// Source identifies the device an action came from.
type Source uint8

const (
	SourceKeyboard Source = iota
	SourceGamepad
	SourceMouse
	SourceInjected // queued with Inject
)

// KeyModifiers is a bitmask of keyboard modifier keys.
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota // Shift key
	ModCtrl                           // Control key
	ModAlt                            // Alt / Option key
	ModMeta                           // Meta / Command / Windows key
)

// InteractEvent is published once per frame in which a bound input fired.
type InteractEvent struct {
	Action    Action
	Source    Source
	Modifiers KeyModifiers
}

// InteractEventType carries InteractEvent.
var InteractEventType = events.NewEventType[InteractEvent]()

// Bindings maps devices to ActionInteract.
type Bindings struct {
	Keys    []ebiten.Key
	Buttons []ebiten.StandardGamepadButton
	Mouse   bool // left click interacts
}

// DefaultBindings binds Space, Enter, J and E, the south face button and the
// left mouse button.
func DefaultBindings() Bindings {
	return Bindings{
		Keys:    []ebiten.Key{ebiten.KeySpace, ebiten.KeyEnter, ebiten.KeyJ, ebiten.KeyE},
		Buttons: []ebiten.StandardGamepadButton{ebiten.StandardGamepadButtonRightBottom},
		Mouse:   true,
	}
}

// KeySource is the polled device state. EbitenSource reads the real devices;
// tests substitute their own.
type KeySource interface {
	KeyJustPressed(k ebiten.Key) bool
	KeyPressed(k ebiten.Key) bool
	ButtonJustPressed(b ebiten.StandardGamepadButton) bool
	MouseJustPressed(b ebiten.MouseButton) bool
}

// EbitenSource polls ebiten through inpututil.
type EbitenSource struct {
	gamepads []ebiten.GamepadID
}

// KeyJustPressed reports whether k went down this frame.
func (s *EbitenSource) KeyJustPressed(k ebiten.Key) bool { return inpututil.IsKeyJustPressed(k) }

// KeyPressed reports whether k is held.
func (s *EbitenSource) KeyPressed(k ebiten.Key) bool { return ebiten.IsKeyPressed(k) }

// ButtonJustPressed reports whether b went down this frame on any standard
// gamepad.
func (s *EbitenSource) ButtonJustPressed(b ebiten.StandardGamepadButton) bool {
	s.gamepads = ebiten.AppendGamepadIDs(s.gamepads[:0])
	for _, id := range s.gamepads {
		if ebiten.IsStandardGamepadLayoutAvailable(id) && inpututil.IsStandardGamepadButtonJustPressed(id, b) {
			return true
		}
	}
	return false
}

// MouseJustPressed reports whether b went down this frame.
func (s *EbitenSource) MouseJustPressed(b ebiten.MouseButton) bool {
	return inpututil.IsMouseButtonJustPressed(b)
}

// Input publishes actions from a KeySource and from injected actions.
type Input struct {
	bindings Bindings
	source   KeySource
	queue    []Action
	enabled  bool
}

// New returns an Input polling src. A nil src polls ebiten.
func New(src KeySource, b Bindings) *Input {
	if src == nil {
		src = &EbitenSource{}
	}
	return &Input{bindings: b, source: src, enabled: true}
}

// SetEnabled turns device polling on or off. Injected actions are always
// delivered.
func (in *Input) SetEnabled(enabled bool) { in.enabled = enabled }

// Inject queues a synthetic action. The queue is drained one action per
// Update, and a frame that consumes one ignores the devices.
func (in *Input) Inject(a Action) {
	in.queue = append(in.queue, a)
}

// Pending returns the number of queued injected actions.
func (in *Input) Pending() int { return len(in.queue) }

// Update publishes at most one InteractEvent for this frame.
func (in *Input) Update(w donburi.World) {
	mods := in.readModifiers()
	if len(in.queue) > 0 {
		a := in.queue[0]
		copy(in.queue, in.queue[1:])
		in.queue = in.queue[:len(in.queue)-1]
		InteractEventType.Publish(w, InteractEvent{Action: a, Source: SourceInjected, Modifiers: mods})
		return
	}
	if !in.enabled {
		return
	}
	if src, ok := in.poll(); ok {
		InteractEventType.Publish(w, InteractEvent{Action: ActionInteract, Source: src, Modifiers: mods})
	}
}

func (in *Input) poll() (Source, bool) {
	for _, k := range in.bindings.Keys {
		if in.source.KeyJustPressed(k) {
			return SourceKeyboard, true
		}
	}
	for _, b := range in.bindings.Buttons {
		if in.source.ButtonJustPressed(b) {
			return SourceGamepad, true
		}
	}
	if in.bindings.Mouse && in.source.MouseJustPressed(ebiten.MouseButtonLeft) {
		return SourceMouse, true
	}
	return 0, false
}

func (in *Input) readModifiers() KeyModifiers {
	var mods KeyModifiers
	src := in.source
	if src.KeyPressed(ebiten.KeyShift) || src.KeyPressed(ebiten.KeyShiftLeft) || src.KeyPressed(ebiten.KeyShiftRight) {
		mods |= ModShift
	}
	if src.KeyPressed(ebiten.KeyControl) || src.KeyPressed(ebiten.KeyControlLeft) || src.KeyPressed(ebiten.KeyControlRight) {
		mods |= ModCtrl
	}
	if src.KeyPressed(ebiten.KeyAlt) || src.KeyPressed(ebiten.KeyAltLeft) || src.KeyPressed(ebiten.KeyAltRight) {
		mods |= ModAlt
	}
	if src.KeyPressed(ebiten.KeyMeta) || src.KeyPressed(ebiten.KeyMetaLeft) || src.KeyPressed(ebiten.KeyMetaRight) {
		mods |= ModMeta
	}
	return mods
}
