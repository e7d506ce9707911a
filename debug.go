package timemarches

import (
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/rs/zerolog"

	"github.com/CorvusPrudens/time-marches-on/effects"
	"github.com/CorvusPrudens/time-marches-on/sequence"
	"github.com/CorvusPrudens/time-marches-on/textbox"
)

// StallAfter is how long a unit may wait before debug mode warns about it.
const StallAfter = 30 * time.Second

// Stats is a snapshot of a running game.
type Stats struct {
	Frames          uint64
	Sequence        sequence.Stats
	PendingDialogue int
	TextboxVisible  bool
	Tweens          int
	SamplesPlayed   int
}

// Stats returns a snapshot of the game's state.
func (g *Game) Stats() Stats {
	return Stats{
		Frames:          g.frames,
		Sequence:        g.seq.Stats(),
		PendingDialogue: g.dialogue.Pending(),
		TextboxVisible:  textbox.Visible(g.world),
		Tweens:          effects.Running(g.world),
		SamplesPlayed:   g.audio.Played(),
	}
}

func debugLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
		Level(zerolog.DebugLevel).
		With().Timestamp().Str("component", "timemarches").Logger()
}

// SetDebugMode enables or disables debug mode. When enabled, stats are logged
// once per second, units waiting longer than StallAfter are reported and the
// stats are drawn over the screen. A game without a logger gets one writing
// to stderr; systems built before the call keep the logger they had.
func (g *Game) SetDebugMode(enabled bool) {
	g.debug = enabled
	if enabled && g.log.GetLevel() == zerolog.Disabled {
		g.log = debugLogger()
	}
}

// debugLog logs the stats and stalled units. Called at the end of each step.
func (g *Game) debugLog() {
	if !g.debug || g.frames%uint64(g.cfg.TPS) != 0 {
		return
	}
	st := g.Stats()
	g.log.Debug().
		Uint64("frame", st.Frames).
		Int("roots", st.Sequence.Roots).
		Int("countdowns", st.Sequence.Countdowns).
		Int("observers_active", st.Sequence.ActiveObservers).
		Int("observers_dormant", st.Sequence.DormantObservers).
		Int("dialogue_pending", st.PendingDialogue).
		Bool("textbox", st.TextboxVisible).
		Int("tweens", st.Tweens).
		Int("stale", st.Sequence.Stale).
		Msg("stats")
	g.checkStalls()
}

// checkStalls warns once per token about units that have waited longer than
// StallAfter, usually a condition whose event never arrives.
func (g *Game) checkStalls() {
	live := make(map[sequence.EndToken]bool, len(g.stalled))
	for _, root := range g.seq.Player().Roots() {
		cur, ok := g.seq.Player().Cursor(root)
		if !ok || cur.Age < StallAfter {
			continue
		}
		for _, tok := range cur.Tokens {
			live[tok] = true
			if g.stalled[tok] {
				continue
			}
			g.log.Warn().
				Stringer("root", root).
				Stringer("token", tok).
				Dur("waiting", cur.Age).
				Msg("unit stalled")
		}
	}
	g.stalled = live
}

func (g *Game) drawStats(screen *ebiten.Image) {
	st := g.Stats()
	ebitenutil.DebugPrint(screen, fmt.Sprintf(
		"FPS: %.1f TPS: %.1f\nroots: %d countdowns: %d observers: %d/%d\ndialogue: %d tweens: %d",
		ebiten.ActualFPS(), ebiten.ActualTPS(),
		st.Sequence.Roots, st.Sequence.Countdowns,
		st.Sequence.ActiveObservers, st.Sequence.DormantObservers,
		st.PendingDialogue, st.Tweens))
}
