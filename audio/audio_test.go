package audio

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

type played struct {
	sample Sample
	pitch  float64
}

type recordingSink struct {
	played  []played
	volumes map[Bus]float64
	stopped []Bus
	err     error
}

func (r *recordingSink) Play(s Sample, pitch float64) error {
	if r.err != nil {
		return r.err
	}
	r.played = append(r.played, played{s, pitch})
	return nil
}

func (r *recordingSink) SetVolume(bus Bus, v float64) {
	if r.volumes == nil {
		r.volumes = map[Bus]float64{}
	}
	r.volumes[bus] = v
}

func (r *recordingSink) Stop(bus Bus) { r.stopped = append(r.stopped, bus) }

func TestPlayDrawsPitchFromRange(t *testing.T) {
	w := donburi.NewWorld()
	sink := &recordingSink{}
	sys := NewSystem(w, sink, WithRand(rand.New(rand.NewSource(1))))

	for i := 0; i < 20; i++ {
		Play(w, Sample{Path: GlyphSample("low.wav"), Volume: 0.5, Pitch: Between(1.0, 1.15)})
	}
	Play(w, Sample{Path: "audio/music/quiet-halls.ogg", Loop: true, Bus: BusMusic})
	require.NoError(t, sys.Update(w, 0))

	require.Len(t, sink.played, 21)
	for _, p := range sink.played[:20] {
		assert.GreaterOrEqual(t, p.pitch, 1.0)
		assert.LessOrEqual(t, p.pitch, 1.15)
	}
	assert.Equal(t, 1.0, sink.played[20].pitch)
	assert.Equal(t, "audio/sfx/glyphs/low.wav", sink.played[0].sample.Path)
	assert.Equal(t, 21, sys.Played())
}

func TestRange(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	r := Around(0.02)
	assert.InDelta(t, 0.98, r.Min, 1e-9)
	assert.InDelta(t, 1.02, r.Max, 1e-9)
	assert.Equal(t, 0.8, Between(0.8, 0.8).Pick(rng))
	assert.Equal(t, 1.0, Range{}.Pick(rng))
}

func TestFadeTweensBusVolume(t *testing.T) {
	w := donburi.NewWorld()
	sink := &recordingSink{}
	sys := NewSystem(w, sink)

	FadeEventType.Publish(w, FadeEvent{Bus: BusMusic, To: 0, Duration: time.Second})
	require.NoError(t, sys.Update(w, 0))
	require.NoError(t, sys.Update(w, 500*time.Millisecond))
	assert.InDelta(t, 0.5, sys.Volume(BusMusic), 0.01)
	require.NoError(t, sys.Update(w, 500*time.Millisecond))
	assert.InDelta(t, 0.0, sink.volumes[BusMusic], 0.01)
	assert.Equal(t, 1.0, sys.Volume(BusSfx))

	FadeEventType.Publish(w, FadeEvent{Bus: BusSfx, To: 0.25})
	require.NoError(t, sys.Update(w, 0))
	assert.Equal(t, 0.25, sink.volumes[BusSfx])
}

func TestStopAndErrors(t *testing.T) {
	w := donburi.NewWorld()
	sink := &recordingSink{err: assert.AnError}
	sys := NewSystem(w, sink)

	StopEventType.Publish(w, StopEvent{Bus: BusMusic})
	Play(w, Sample{Path: "missing.wav"})
	err := sys.Update(w, 0)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []Bus{BusMusic}, sink.stopped)
	assert.Zero(t, sys.Played())
	assert.NoError(t, sys.Update(w, 0))
}
