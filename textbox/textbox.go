// Package textbox models the on-screen dialogue box: a queue of line batches,
// a typewriter reveal, and close semantics driven by interact input.
package textbox

import (
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"

	"github.com/CorvusPrudens/time-marches-on/input"
)

// ErrTextboxCount is returned when the world holds more than one textbox.
var ErrTextboxCount = errors.New("textbox: expected exactly one textbox")

// DefaultCPS is the reveal rate used when none is configured.
const DefaultCPS = 30

// Style selects how a line is framed.
type Style uint8

const (
	StyleMainCharacter Style = iota // spoken, quoted
	StyleNarrator                   // narration, unquoted
)

// TextBlurb is one line of the textbox.
type TextBlurb struct {
	Text  string
	Style Style
}

// MainCharacter returns a spoken line.
func MainCharacter(text string) TextBlurb { return TextBlurb{Text: text, Style: StyleMainCharacter} }

// Narrator returns a narration line.
func Narrator(text string) TextBlurb { return TextBlurb{Text: text, Style: StyleNarrator} }

// CharacterSprite is the portrait shown beside the text.
type CharacterSprite struct {
	Path string
}

// NewCharacterSprite returns the sprite at path, relative to the character
// texture directory.
func NewCharacterSprite(path string) *CharacterSprite { return &CharacterSprite{Path: path} }

// GlyphFunc runs for every revealed non-space glyph, typically publishing a
// sound.
type GlyphFunc func(w donburi.World, r rune)

// TextboxEvent asks for a batch of lines. Lines of one batch share a single
// close.
type TextboxEvent struct {
	Lines    []TextBlurb
	Retained bool
}

// Section returns a batch of one line.
func Section(line TextBlurb) TextboxEvent { return TextboxEvent{Lines: []TextBlurb{line}} }

// CharacterEvent sets the speaker of the batches shown after it.
type CharacterEvent struct {
	Sprite *CharacterSprite
	Glyph  GlyphFunc
}

// CloseInteraction closes the current batch immediately.
type CloseInteraction struct{}

// ClosedEvent is published once per batch when it closes.
type ClosedEvent struct {
	Retained bool
}

var (
	TextboxEventType     = events.NewEventType[TextboxEvent]()
	CharacterEventType   = events.NewEventType[CharacterEvent]()
	CloseInteractionType = events.NewEventType[CloseInteraction]()
	ClosedEventType      = events.NewEventType[ClosedEvent]()
)

type batch struct {
	lines     []TextBlurb
	retained  bool
	character CharacterEvent
}

// Box is the textbox component.
type Box struct {
	current batch
	pending []batch
	line    int
	runes   []rune
	shown   int
	carry   float64
	// closed is set on a retained box whose batch has closed; it stays
	// visible until the next batch replaces it.
	closed bool
}

// Line returns the full current line.
func (b *Box) Line() TextBlurb {
	if b.line >= len(b.current.lines) {
		return TextBlurb{}
	}
	return b.current.lines[b.line]
}

// Text returns the revealed part of the current line.
func (b *Box) Text() string { return string(b.runes[:b.shown]) }

// Revealing reports whether the typewriter is still running.
func (b *Box) Revealing() bool { return b.shown < len(b.runes) }

// Closed reports whether a retained box is showing an already closed batch.
func (b *Box) Closed() bool { return b.closed }

// Sprite returns the speaker portrait, if any.
func (b *Box) Sprite() *CharacterSprite { return b.current.character.Sprite }

// Pending returns the number of batches queued behind the current one.
func (b *Box) Pending() int { return len(b.pending) }

func (b *Box) load(bt batch) {
	b.current = bt
	b.line = 0
	b.closed = false
	b.setLine()
}

func (b *Box) setLine() {
	b.runes = []rune(b.Line().Text)
	b.shown = 0
	b.carry = 0
}

var (
	Component = donburi.NewComponentType[Box]()
	boxQuery  = donburi.NewQuery(filter.Contains(Component))
)

// Current returns the textbox entry of w, or nil when none is shown.
func Current(w donburi.World) (*donburi.Entry, error) {
	switch n := boxQuery.Count(w); n {
	case 0:
		return nil, nil
	case 1:
		entry, _ := boxQuery.First(w)
		return entry, nil
	default:
		return nil, fmt.Errorf("%w: found %d", ErrTextboxCount, n)
	}
}

// Visible reports whether a textbox is on screen.
func Visible(w donburi.World) bool {
	entry, err := Current(w)
	return err == nil && entry != nil
}

// Option configures a System.
type Option func(*System)

// WithCPS sets the reveal rate in characters per second. Zero or less
// reveals lines instantly.
func WithCPS(cps float64) Option { return func(s *System) { s.cps = cps } }

// WithLogger sets the logger of the System.
func WithLogger(log zerolog.Logger) Option { return func(s *System) { s.log = log } }

// System owns the textbox entity of a world.
type System struct {
	cps       float64
	log       zerolog.Logger
	character CharacterEvent
	errs      []error
	closes    int
}

// NewSystem subscribes a System to the textbox and input events of w.
func NewSystem(w donburi.World, opts ...Option) *System {
	s := &System{cps: DefaultCPS, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	CharacterEventType.Subscribe(w, s.onCharacter)
	TextboxEventType.Subscribe(w, s.onShow)
	CloseInteractionType.Subscribe(w, s.onClose)
	input.InteractEventType.Subscribe(w, s.onInteract)
	return s
}

// Closes returns the number of batches closed so far.
func (s *System) Closes() int { return s.closes }

// Update processes queued textbox, character, close and interact events,
// then advances the typewriter by dt.
func (s *System) Update(w donburi.World, dt time.Duration) error {
	CharacterEventType.ProcessEvents(w)
	TextboxEventType.ProcessEvents(w)
	CloseInteractionType.ProcessEvents(w)
	input.InteractEventType.ProcessEvents(w)

	if err := s.reveal(w, dt); err != nil {
		s.errs = append(s.errs, err)
	}
	if len(s.errs) == 0 {
		return nil
	}
	err := errors.Join(s.errs...)
	s.errs = nil
	return err
}

func (s *System) onCharacter(_ donburi.World, ev CharacterEvent) {
	s.character = ev
}

func (s *System) onShow(w donburi.World, ev TextboxEvent) {
	if len(ev.Lines) == 0 {
		s.log.Warn().Msg("empty textbox batch ignored")
		return
	}
	bt := batch{lines: ev.Lines, retained: ev.Retained, character: s.character}
	entry, err := Current(w)
	if err != nil {
		s.errs = append(s.errs, err)
		return
	}
	if entry == nil {
		entry = w.Entry(w.Create(Component))
		box := Component.Get(entry)
		box.load(bt)
		s.log.Debug().Int("lines", len(bt.lines)).Msg("textbox opened")
		return
	}
	box := Component.Get(entry)
	if box.closed {
		box.load(bt)
		return
	}
	box.pending = append(box.pending, bt)
}

func (s *System) onClose(w donburi.World, _ CloseInteraction) {
	entry, err := Current(w)
	if err != nil {
		s.errs = append(s.errs, err)
		return
	}
	if entry == nil {
		return
	}
	box := Component.Get(entry)
	if box.closed {
		entry.Remove()
		return
	}
	s.finish(w, entry, box)
}

func (s *System) onInteract(w donburi.World, ev input.InteractEvent) {
	if ev.Action != input.ActionInteract {
		return
	}
	entry, err := Current(w)
	if err != nil {
		s.errs = append(s.errs, err)
		return
	}
	if entry == nil {
		return
	}
	box := Component.Get(entry)
	switch {
	case box.closed:
	case box.Revealing():
		box.shown = len(box.runes)
	case box.line+1 < len(box.current.lines):
		box.line++
		box.setLine()
	default:
		s.finish(w, entry, box)
	}
}

// finish closes the current batch and shows the next one, if queued.
func (s *System) finish(w donburi.World, entry *donburi.Entry, box *Box) {
	retained := box.current.retained
	s.closes++
	ClosedEventType.Publish(w, ClosedEvent{Retained: retained})
	switch {
	case len(box.pending) > 0:
		next := box.pending[0]
		box.pending = box.pending[1:]
		box.load(next)
	case retained:
		box.closed = true
		box.shown = len(box.runes)
	default:
		entry.Remove()
		s.log.Debug().Msg("textbox closed")
	}
}

func (s *System) reveal(w donburi.World, dt time.Duration) error {
	entry, err := Current(w)
	if err != nil || entry == nil {
		return err
	}
	box := Component.Get(entry)
	if !box.Revealing() {
		return nil
	}
	prev := box.shown
	if s.cps <= 0 {
		box.shown = len(box.runes)
	} else {
		box.carry += s.cps * dt.Seconds()
		n := int(box.carry)
		box.carry -= float64(n)
		box.shown = min(box.shown+n, len(box.runes))
	}
	if glyph := box.current.character.Glyph; glyph != nil {
		for _, r := range box.runes[prev:box.shown] {
			if !unicode.IsSpace(r) {
				glyph(w, r)
			}
		}
	}
	return nil
}
