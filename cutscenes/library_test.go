package cutscenes

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"

	"github.com/CorvusPrudens/time-marches-on/audio"
	"github.com/CorvusPrudens/time-marches-on/cutscene"
	"github.com/CorvusPrudens/time-marches-on/input"
	"github.com/CorvusPrudens/time-marches-on/sequence"
	"github.com/CorvusPrudens/time-marches-on/textbox"
)

// playThrough spawns name and clicks through it, returning the lines shown
// and the samples played.
func playThrough(t *testing.T, w donburi.World, seq *sequence.Sequencer, box *textbox.System, tree *sequence.Tree) (lines []string, sounds []string) {
	t.Helper()
	audio.PlayEventType.Subscribe(w, func(_ donburi.World, ev audio.PlayEvent) {
		sounds = append(sounds, ev.Sample.Path)
	})
	textbox.TextboxEventType.Subscribe(w, func(_ donburi.World, ev textbox.TextboxEvent) {
		for _, l := range ev.Lines {
			lines = append(lines, l.Text)
		}
	})

	root, err := seq.Spawn(tree)
	require.NoError(t, err)
	require.True(t, root.Valid())
	for i := 0; i < 2000 && seq.Playing(root); i++ {
		if textbox.Visible(w) {
			input.InteractEventType.Publish(w, input.InteractEvent{Action: input.ActionInteract})
		}
		require.NoError(t, box.Update(w, 500*time.Millisecond))
		require.NoError(t, seq.Update(500*time.Millisecond))
		audio.PlayEventType.ProcessEvents(w)
	}
	require.False(t, seq.Playing(root), "scene did not finish")
	return lines, sounds
}

func newWorld() (donburi.World, *sequence.Sequencer, *textbox.System) {
	w := donburi.NewWorld()
	box := textbox.NewSystem(w, textbox.WithCPS(0))
	seq := sequence.NewSequencer(w)
	seq.AddBridge(cutscene.NewDialogueBridge(w, zerolog.Nop()))
	return w, seq, box
}

func TestLibraryHoldsEveryScene(t *testing.T) {
	l := NewLibrary()
	assert.Equal(t, 15, l.Len())
	for _, name := range []string{"intro", "tea", "park", "park_man_one", "park_man_two", "visitor", "sturgeon", "shadow_1", "shadow_8"} {
		tree, ok := l.Get(name)
		require.True(t, ok, name)
		assert.Empty(t, tree.Invalid(), name)
	}
	names := l.Names()
	assert.Equal(t, "intro", names[0])
	assert.Equal(t, "visitor", names[len(names)-1])

	_, err := l.Add("tea", Tea())
	assert.Error(t, err)
	assert.Error(t, l.Merge(NewLibrary()))
}

func TestTeaPlaysOnce(t *testing.T) {
	w, seq, box := newWorld()
	tea, _ := NewLibrary().Get("tea")

	lines, sounds := playThrough(t, w, seq, box, tea)
	require.Len(t, lines, 21)
	assert.Equal(t, "Oh, Luna, there you are.", lines[0])
	assert.Equal(t, "Thanks for the tea, honey.", lines[len(lines)-1])
	assert.Contains(t, sounds, "audio/sfx/laugh.wav")
	assert.Contains(t, sounds, "audio/sfx/glyphs/high.wav")

	again, err := seq.Spawn(tea)
	require.NoError(t, err)
	assert.False(t, again.Valid())
}

func TestShadowWhispers(t *testing.T) {
	w, seq, box := newWorld()
	l := NewLibrary()
	tree, _ := l.Get("shadow_5")
	lines, sounds := playThrough(t, w, seq, box, tree)
	assert.Equal(t, []string{"alone"}, lines)
	assert.Len(t, sounds, len("alone"))
	for _, s := range sounds {
		assert.Equal(t, "audio/sfx/glyphs/low.wav", s)
	}
}
