// Package cutscene connects dialog fragments to the textbox and gives them
// speakers.
package cutscene

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"

	"github.com/CorvusPrudens/time-marches-on/sequence"
	"github.com/CorvusPrudens/time-marches-on/textbox"
)

type outstanding struct {
	token     sequence.EndToken
	cancelled bool
}

// DialogueBridge shows dialog fragments in the textbox and ends them when
// their batch closes. Tokens are held in start order and resolved in that
// order, one per ClosedEvent.
type DialogueBridge struct {
	log     zerolog.Logger
	pending []outstanding
	shown   int
}

// NewDialogueBridge subscribes a DialogueBridge to the fragment and textbox
// events of w. Add it to a sequencer with AddBridge.
func NewDialogueBridge(w donburi.World, log zerolog.Logger) *DialogueBridge {
	b := &DialogueBridge{log: log}
	sequence.FragmentStartEvent.Subscribe(w, b.onStart)
	sequence.FragmentStopEvent.Subscribe(w, b.onStop)
	textbox.ClosedEventType.Subscribe(w, b.onClosed)
	return b
}

// Pending returns the number of dialog tokens awaiting a close.
func (b *DialogueBridge) Pending() int { return len(b.pending) }

// Shown returns the number of dialog fragments sent to the textbox.
func (b *DialogueBridge) Shown() int { return b.shown }

func (b *DialogueBridge) onStart(w donburi.World, ev sequence.FragmentEvent) {
	if ev.Kind != sequence.KindDialog || !ev.Live(w) {
		return
	}
	lines := make([]textbox.TextBlurb, 0, len(ev.Dialog.Lines))
	for _, l := range ev.Dialog.Lines {
		lines = append(lines, textbox.MainCharacter(l))
	}
	b.pending = append(b.pending, outstanding{token: ev.Token})
	b.shown++
	textbox.TextboxEventType.Publish(w, textbox.TextboxEvent{Lines: lines, Retained: ev.Dialog.Retained})
}

// onStop cancels the token so its close is swallowed. The batch on screen is
// closed right away; a queued one still shows.
func (b *DialogueBridge) onStop(w donburi.World, ev sequence.FragmentEvent) {
	if ev.Kind != sequence.KindDialog {
		return
	}
	for i := range b.pending {
		if b.pending[i].token != ev.Token || b.pending[i].cancelled {
			continue
		}
		b.pending[i].cancelled = true
		if i == 0 {
			textbox.CloseInteractionType.Publish(w, textbox.CloseInteraction{})
		}
		b.log.Debug().Stringer("token", ev.Token).Msg("dialog cancelled")
		return
	}
}

func (b *DialogueBridge) onClosed(w donburi.World, _ textbox.ClosedEvent) {
	if len(b.pending) == 0 {
		return
	}
	head := b.pending[0]
	b.pending = b.pending[1:]
	if head.cancelled {
		return
	}
	sequence.FragmentEndEvent.Publish(w, head.token)
}

// Resolve consumes the textbox closes of the previous frame.
func (b *DialogueBridge) Resolve(w donburi.World, _ time.Duration) error {
	textbox.ClosedEventType.ProcessEvents(w)
	return nil
}

// Drain implements sequence.Bridge.
func (b *DialogueBridge) Drain(donburi.World) error { return nil }
