package textbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"

	"github.com/CorvusPrudens/time-marches-on/input"
)

type harness struct {
	t      *testing.T
	w      donburi.World
	sys    *System
	closed []ClosedEvent
}

func newHarness(t *testing.T, opts ...Option) *harness {
	h := &harness{t: t, w: donburi.NewWorld()}
	h.sys = NewSystem(h.w, opts...)
	ClosedEventType.Subscribe(h.w, func(_ donburi.World, ev ClosedEvent) { h.closed = append(h.closed, ev) })
	return h
}

func (h *harness) step(dt time.Duration) {
	h.t.Helper()
	require.NoError(h.t, h.sys.Update(h.w, dt))
	ClosedEventType.ProcessEvents(h.w)
}

func (h *harness) press() {
	h.t.Helper()
	input.InteractEventType.Publish(h.w, input.InteractEvent{Action: input.ActionInteract})
	h.step(0)
}

func (h *harness) box() *Box {
	h.t.Helper()
	entry, err := Current(h.w)
	require.NoError(h.t, err)
	require.NotNil(h.t, entry, "no textbox")
	return Component.Get(entry)
}

func TestTypewriterReveal(t *testing.T) {
	h := newHarness(t, WithCPS(10))
	TextboxEventType.Publish(h.w, Section(Narrator("abcdef")))
	h.step(0)
	assert.Equal(t, "", h.box().Text())

	h.step(250 * time.Millisecond)
	assert.Equal(t, "ab", h.box().Text())
	h.step(250 * time.Millisecond)
	assert.Equal(t, "abcde", h.box().Text())
	h.step(time.Second)
	assert.Equal(t, "abcdef", h.box().Text())
	assert.False(t, h.box().Revealing())
}

func TestThreeLinesOneClose(t *testing.T) {
	h := newHarness(t)
	TextboxEventType.Publish(h.w, TextboxEvent{Lines: []TextBlurb{
		MainCharacter("Hello, world!"), MainCharacter("How are you?"), MainCharacter("Goodbye."),
	}})
	h.step(time.Second)
	assert.Equal(t, "Hello, world!", h.box().Text())

	h.press()
	h.step(time.Second)
	assert.Equal(t, "How are you?", h.box().Text())

	h.press()
	h.step(time.Second)
	assert.Equal(t, "Goodbye.", h.box().Text())
	assert.Empty(t, h.closed)

	h.press()
	assert.Len(t, h.closed, 1)
	assert.False(t, Visible(h.w))
}

func TestPressWhileRevealingShowsAll(t *testing.T) {
	h := newHarness(t, WithCPS(1))
	TextboxEventType.Publish(h.w, Section(Narrator("a long line")))
	h.step(time.Second)
	require.True(t, h.box().Revealing())

	h.press()
	assert.Equal(t, "a long line", h.box().Text())
	assert.Empty(t, h.closed)

	h.press()
	assert.Len(t, h.closed, 1)
}

func TestBatchesQueueBehindEachOther(t *testing.T) {
	h := newHarness(t, WithCPS(0))
	TextboxEventType.Publish(h.w, Section(Narrator("first")))
	TextboxEventType.Publish(h.w, Section(Narrator("second")))
	h.step(0)
	assert.Equal(t, "first", h.box().Text())
	assert.Equal(t, 1, h.box().Pending())

	h.press()
	assert.Len(t, h.closed, 1)
	h.step(0)
	assert.Equal(t, "second", h.box().Text())

	h.press()
	assert.Len(t, h.closed, 2)
	assert.False(t, Visible(h.w))
	assert.Equal(t, 2, h.sys.Closes())
}

func TestRetainedBoxStaysVisible(t *testing.T) {
	h := newHarness(t, WithCPS(0))
	TextboxEventType.Publish(h.w, TextboxEvent{Lines: []TextBlurb{Narrator("held")}, Retained: true})
	h.step(0)
	h.press()
	require.Len(t, h.closed, 1)
	assert.True(t, h.closed[0].Retained)
	assert.True(t, Visible(h.w))
	assert.True(t, h.box().Closed())

	h.press()
	assert.Len(t, h.closed, 1, "a closed retained box ignores input")

	TextboxEventType.Publish(h.w, Section(Narrator("replacement")))
	h.step(0)
	assert.False(t, h.box().Closed())
	assert.Equal(t, "replacement", h.box().Text())
}

func TestCloseInteractionDropsLines(t *testing.T) {
	h := newHarness(t)
	TextboxEventType.Publish(h.w, TextboxEvent{Lines: []TextBlurb{Narrator("a"), Narrator("b")}})
	h.step(0)
	CloseInteractionType.Publish(h.w, CloseInteraction{})
	h.step(0)
	assert.Len(t, h.closed, 1)
	assert.False(t, Visible(h.w))

	CloseInteractionType.Publish(h.w, CloseInteraction{})
	h.step(0)
	assert.Len(t, h.closed, 1)
}

func TestGlyphCallbackSkipsSpaces(t *testing.T) {
	h := newHarness(t, WithCPS(0))
	var glyphs []rune
	CharacterEventType.Publish(h.w, CharacterEvent{
		Sprite: NewCharacterSprite("luna.png"),
		Glyph:  func(_ donburi.World, r rune) { glyphs = append(glyphs, r) },
	})
	TextboxEventType.Publish(h.w, Section(Narrator("a b")))
	h.step(0)
	assert.Equal(t, []rune{'a', 'b'}, glyphs)
	assert.Equal(t, "luna.png", h.box().Sprite().Path)
}

func TestMoreThanOneTextboxIsAnError(t *testing.T) {
	h := newHarness(t)
	h.w.Create(Component)
	h.w.Create(Component)
	TextboxEventType.Publish(h.w, Section(Narrator("x")))
	err := h.sys.Update(h.w, 0)
	assert.ErrorIs(t, err, ErrTextboxCount)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"the quick", "brown fox"}, Wrap("the quick brown fox", 10))
	assert.Equal(t, []string{""}, Wrap("", 10))
	assert.Equal(t, []string{"no wrap here"}, Wrap("no wrap here", 0))
}
