// Package audio turns audio trigger events into playback on a Sink.
package audio

import (
	"errors"
	"fmt"
	"math/rand"
	"path"
	"time"

	"github.com/rs/zerolog"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// Bus routes a sound to a volume group.
type Bus uint8

const (
	BusSfx Bus = iota
	BusMusic
)

func (b Bus) String() string {
	if b == BusMusic {
		return "music"
	}
	return "sfx"
}

// Range is a closed interval a pitch is drawn from. The zero Range plays at
// the natural pitch.
type Range struct {
	Min, Max float64
}

// Around returns the range 1±spread.
func Around(spread float64) Range { return Range{Min: 1 - spread, Max: 1 + spread} }

// Between returns the range [lo, hi].
func Between(lo, hi float64) Range { return Range{Min: lo, Max: hi} }

// Pick draws a pitch from r.
func (r Range) Pick(rng *rand.Rand) float64 {
	if r.Min <= 0 && r.Max <= 0 {
		return 1
	}
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Sample describes one sound.
type Sample struct {
	Path   string
	Volume float64 // linear
	Pitch  Range
	Loop   bool
	Bus    Bus
}

// GlyphSample returns the path of a typewriter glyph sound.
func GlyphSample(name string) string { return path.Join("audio", "sfx", "glyphs", name) }

// PlayEvent plays a sample.
type PlayEvent struct {
	Sample Sample
}

// FadeEvent moves the volume of a bus to To over Duration.
type FadeEvent struct {
	Bus      Bus
	To       float64
	Duration time.Duration
	Ease     ease.TweenFunc
}

// StopEvent stops every sound on a bus.
type StopEvent struct {
	Bus Bus
}

var (
	PlayEventType = events.NewEventType[PlayEvent]()
	FadeEventType = events.NewEventType[FadeEvent]()
	StopEventType = events.NewEventType[StopEvent]()
)

// Play publishes a PlayEvent for s.
func Play(w donburi.World, s Sample) { PlayEventType.Publish(w, PlayEvent{Sample: s}) }

// Sink performs playback.
type Sink interface {
	Play(s Sample, pitch float64) error
	SetVolume(bus Bus, volume float64)
	Stop(bus Bus)
}

// Option configures a System.
type Option func(*System)

// WithLogger sets the logger of the System.
func WithLogger(log zerolog.Logger) Option { return func(s *System) { s.log = log } }

// WithRand sets the source of pitch variation.
func WithRand(rng *rand.Rand) Option { return func(s *System) { s.rng = rng } }

// System dispatches audio events to a Sink and runs bus fades.
type System struct {
	sink    Sink
	log     zerolog.Logger
	rng     *rand.Rand
	volumes map[Bus]float64
	fades   map[Bus]*gween.Tween
	played  int
	errs    []error
}

// NewSystem subscribes a System to the audio events of w.
func NewSystem(w donburi.World, sink Sink, opts ...Option) *System {
	s := &System{
		sink:    sink,
		log:     zerolog.Nop(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		volumes: map[Bus]float64{BusSfx: 1, BusMusic: 1},
		fades:   make(map[Bus]*gween.Tween),
	}
	for _, opt := range opts {
		opt(s)
	}
	PlayEventType.Subscribe(w, s.onPlay)
	FadeEventType.Subscribe(w, s.onFade)
	StopEventType.Subscribe(w, s.onStop)
	return s
}

// Played returns the number of samples played.
func (s *System) Played() int { return s.played }

// Volume returns the current volume of bus.
func (s *System) Volume(bus Bus) float64 { return s.volumes[bus] }

// Update dispatches queued audio events and advances fades by dt.
func (s *System) Update(w donburi.World, dt time.Duration) error {
	StopEventType.ProcessEvents(w)
	FadeEventType.ProcessEvents(w)
	PlayEventType.ProcessEvents(w)

	for bus, tw := range s.fades {
		v, done := tw.Update(float32(dt.Seconds()))
		s.volumes[bus] = float64(v)
		s.sink.SetVolume(bus, float64(v))
		if done {
			delete(s.fades, bus)
		}
	}

	if len(s.errs) == 0 {
		return nil
	}
	err := errors.Join(s.errs...)
	s.errs = nil
	return err
}

func (s *System) onPlay(_ donburi.World, ev PlayEvent) {
	pitch := ev.Sample.Pitch.Pick(s.rng)
	if err := s.sink.Play(ev.Sample, pitch); err != nil {
		s.errs = append(s.errs, fmt.Errorf("play %s: %w", ev.Sample.Path, err))
		return
	}
	s.played++
}

func (s *System) onFade(_ donburi.World, ev FadeEvent) {
	fn := ev.Ease
	if fn == nil {
		fn = ease.Linear
	}
	if ev.Duration <= 0 {
		delete(s.fades, ev.Bus)
		s.volumes[ev.Bus] = ev.To
		s.sink.SetVolume(ev.Bus, ev.To)
		return
	}
	s.fades[ev.Bus] = gween.New(float32(s.volumes[ev.Bus]), float32(ev.To), float32(ev.Duration.Seconds()), fn)
}

func (s *System) onStop(_ donburi.World, ev StopEvent) {
	delete(s.fades, ev.Bus)
	s.sink.Stop(ev.Bus)
	s.log.Debug().Stringer("bus", ev.Bus).Msg("bus stopped")
}

// NopSink discards playback.
type NopSink struct{}

func (NopSink) Play(Sample, float64) error { return nil }
func (NopSink) SetVolume(Bus, float64)     {}
func (NopSink) Stop(Bus)                   {}
