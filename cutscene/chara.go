package cutscene

import (
	"fmt"

	"github.com/yohamta/donburi"

	"github.com/CorvusPrudens/time-marches-on/audio"
	"github.com/CorvusPrudens/time-marches-on/sequence"
	"github.com/CorvusPrudens/time-marches-on/textbox"
)

// Chara is a speaker: a portrait and a typewriter voice.
type Chara uint8

const (
	Narrator Chara = iota
	DistressedNarrator1
	DistressedNarrator2
	Father
	Luna
	Stranger
	Sturgeon
	Shadow
)

var charaNames = [...]string{
	Narrator:            "narrator",
	DistressedNarrator1: "distressed_narrator",
	DistressedNarrator2: "distressed_narrator2",
	Father:              "father",
	Luna:                "luna",
	Stranger:            "stranger",
	Sturgeon:            "sturgeon",
	Shadow:              "shadow",
}

func (c Chara) String() string {
	if int(c) < len(charaNames) {
		return charaNames[c]
	}
	return fmt.Sprintf("chara(%d)", uint8(c))
}

// ParseChara returns the speaker called name.
func ParseChara(name string) (Chara, bool) {
	for i, n := range charaNames {
		if n == name {
			return Chara(i), true
		}
	}
	return 0, false
}

// Sprite returns the portrait of c, or nil for voices without one.
func (c Chara) Sprite() *textbox.CharacterSprite {
	switch c {
	case Father:
		return textbox.NewCharacterSprite("main.png")
	case Luna:
		return textbox.NewCharacterSprite("luna.png")
	case Sturgeon:
		return textbox.NewCharacterSprite("sturgeon.png")
	case Shadow:
		return textbox.NewCharacterSprite("shadow.png")
	default:
		return nil
	}
}

// Voice returns the glyph sample of c.
func (c Chara) Voice() audio.Sample {
	s := audio.Sample{Path: audio.GlyphSample("low.wav"), Volume: 0.5}
	switch c {
	case Narrator:
		s.Pitch = audio.Around(0.02)
	case DistressedNarrator1:
		s.Pitch, s.Volume = audio.Between(1.0, 1.15), 0.6
	case DistressedNarrator2:
		s.Pitch, s.Volume = audio.Between(1.0, 1.30), 0.7
	case Father:
		s.Path = audio.GlyphSample("medium.wav")
		s.Pitch = audio.Around(0.02)
	case Luna:
		s.Path = audio.GlyphSample("high.wav")
		s.Pitch = audio.Between(0.75, 0.85)
	case Stranger:
		s.Pitch = audio.Between(0.75, 0.85)
	case Sturgeon, Shadow:
		s.Pitch = audio.Between(0.45, 0.75)
	}
	return s
}

// Event returns the CharacterEvent that makes c the speaker.
func (c Chara) Event() textbox.CharacterEvent { return Voiced(c.Sprite(), c.Voice()) }

// Attach makes c the speaker whenever n starts.
func (c Chara) Attach(n *sequence.Node) *sequence.Node { return Speak(n, c.Event()) }

// Speak publishes ev whenever n starts.
func Speak(n *sequence.Node, ev textbox.CharacterEvent) *sequence.Node {
	return n.OnStart(func(w donburi.World, _ sequence.Hook) error {
		textbox.CharacterEventType.Publish(w, ev)
		return nil
	})
}

// Voiced returns the CharacterEvent of a portrait and glyph sample.
func Voiced(sprite *textbox.CharacterSprite, voice audio.Sample) textbox.CharacterEvent {
	return textbox.CharacterEvent{
		Sprite: sprite,
		Glyph:  func(w donburi.World, _ rune) { audio.Play(w, voice) },
	}
}

// Say builds a dialog fragment spoken by c.
func (c Chara) Say(lines ...string) *sequence.Node {
	return c.Attach(sequence.Say(lines...))
}

// Lines builds a sequence of separate dialog fragments spoken by c, each
// closed on its own.
func (c Chara) Lines(lines ...string) *sequence.Node {
	items := make([]any, 0, len(lines))
	for _, l := range lines {
		items = append(items, c.Say(l))
	}
	return sequence.Seq(items...)
}
