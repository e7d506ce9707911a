package audio

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/rs/zerolog"
)

// DefaultSampleRate is the rate of the shared ebiten audio context.
const DefaultSampleRate = 44100

type voice struct {
	player *audio.Player
	volume float64
}

// EbitenSink plays samples read from an fs.FS through ebiten's audio
// context. Pitch is applied by resampling; a pitch of 1.1 plays 10% faster.
type EbitenSink struct {
	ctx     *audio.Context
	fsys    fs.FS
	log     zerolog.Logger
	files   map[string][]byte
	voices  map[Bus][]voice
	volumes map[Bus]float64
}

// NewEbitenSink returns a sink reading from fsys. It reuses the process-wide
// audio context if one exists.
func NewEbitenSink(fsys fs.FS, log zerolog.Logger) *EbitenSink {
	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(DefaultSampleRate)
	}
	return &EbitenSink{
		ctx:     ctx,
		fsys:    fsys,
		log:     log,
		files:   make(map[string][]byte),
		voices:  make(map[Bus][]voice),
		volumes: map[Bus]float64{BusSfx: 1, BusMusic: 1},
	}
}

func (e *EbitenSink) read(name string) ([]byte, error) {
	if data, ok := e.files[name]; ok {
		return data, nil
	}
	data, err := fs.ReadFile(e.fsys, name)
	if err != nil {
		return nil, err
	}
	e.files[name] = data
	return data, nil
}

type stream interface {
	io.ReadSeeker
	Length() int64
}

func (e *EbitenSink) decode(name string, data []byte, pitch float64) (stream, error) {
	rate := int(float64(e.ctx.SampleRate()) / pitch)
	src := bytes.NewReader(data)
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".wav":
		return wav.DecodeWithSampleRate(rate, src)
	case ".ogg":
		return vorbis.DecodeWithSampleRate(rate, src)
	default:
		return nil, fmt.Errorf("unsupported audio format %q", ext)
	}
}

// Play starts s at pitch.
func (e *EbitenSink) Play(s Sample, pitch float64) error {
	if pitch <= 0 {
		pitch = 1
	}
	data, err := e.read(s.Path)
	if err != nil {
		return err
	}
	st, err := e.decode(s.Path, data, pitch)
	if err != nil {
		return err
	}
	var src io.Reader = st
	if s.Loop {
		src = audio.NewInfiniteLoop(st, st.Length())
	}
	p, err := e.ctx.NewPlayer(src)
	if err != nil {
		return err
	}
	p.SetVolume(s.Volume * e.volumes[s.Bus])
	p.Play()
	e.prune(s.Bus)
	e.voices[s.Bus] = append(e.voices[s.Bus], voice{player: p, volume: s.Volume})
	e.log.Debug().Str("sample", s.Path).Float64("pitch", pitch).Msg("sample started")
	return nil
}

// SetVolume scales every voice on bus.
func (e *EbitenSink) SetVolume(bus Bus, volume float64) {
	e.volumes[bus] = volume
	for _, v := range e.voices[bus] {
		v.player.SetVolume(v.volume * volume)
	}
}

// Stop closes every voice on bus.
func (e *EbitenSink) Stop(bus Bus) {
	for _, v := range e.voices[bus] {
		_ = v.player.Close()
	}
	delete(e.voices, bus)
}

// prune drops finished one-shot voices.
func (e *EbitenSink) prune(bus Bus) {
	live := e.voices[bus][:0]
	for _, v := range e.voices[bus] {
		if v.player.IsPlaying() {
			live = append(live, v)
			continue
		}
		_ = v.player.Close()
	}
	e.voices[bus] = live
}
