package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

type recordingBridge struct {
	log *[]string
	err error
}

func (b *recordingBridge) Resolve(donburi.World, time.Duration) error {
	*b.log = append(*b.log, "resolve")
	return nil
}

func (b *recordingBridge) Drain(donburi.World) error {
	*b.log = append(*b.log, "drain")
	return b.err
}

func TestSequencerPhaseOrder(t *testing.T) {
	w, s := newTestSequencer(t)
	var log []string
	s.AddBridge(&recordingBridge{log: &log})
	FragmentStartEvent.Subscribe(w, func(_ donburi.World, ev FragmentEvent) {
		log = append(log, "start "+ev.Kind.String())
	})
	tree := Build(Seq(
		Wait(0).OnEnd(func(donburi.World, Hook) error {
			log = append(log, "advance")
			return nil
		}),
		"next",
	))
	_, err := s.Spawn(tree)
	require.NoError(t, err)

	require.NoError(t, s.Update(0))
	assert.Equal(t, []string{"resolve", "start sequence", "start pause", "drain"}, log)

	log = nil
	require.NoError(t, s.Update(0))
	assert.Equal(t, []string{"resolve", "advance", "start dialog", "drain"}, log)
	assert.Equal(t, uint64(2), s.Ticks())
}

func TestSequencerDrainErrorAbortsStep(t *testing.T) {
	_, s := newTestSequencer(t)
	var log []string
	s.AddBridge(&recordingBridge{log: &log, err: assert.AnError})
	err := s.Update(frame60)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, s.Ticks())
}

func TestRaceTimeoutLeavesConditionDormant(t *testing.T) {
	w, s := newTestSequencer(t)
	checks := 0
	never := Con(bumpEvent, func(donburi.World, int) bool {
		checks++
		return false
	})
	timeout := Delay(5)
	tree := Build(Seq(Delay(1), Race(timeout, never)).Always())

	play := func() Root {
		root, err := s.Spawn(tree)
		require.NoError(t, err)
		require.NoError(t, s.Update(0))
		return root
	}

	root := play()
	require.NoError(t, s.Update(time.Second))
	assert.Equal(t, 1, s.Stats().ActiveObservers)
	assert.Equal(t, 1, s.Stats().Countdowns)
	require.NoError(t, s.Update(5*time.Second))

	assert.False(t, s.Playing(root))
	assert.Equal(t, 1, tree.Completions(timeout))
	assert.Zero(t, tree.Completions(never))
	assert.Equal(t, ObserverDormant, observerMode(t, w, tree, never))
	assert.Zero(t, s.Stats().ActiveObservers)
	assert.Zero(t, s.Stats().Countdowns)

	bumpEvent.Publish(w, 1)
	require.NoError(t, s.Update(frame60))
	assert.Zero(t, checks)

	// The next cycle activates the leading pause first.
	root = play()
	bumpEvent.Publish(w, 1)
	require.NoError(t, s.Update(500*time.Millisecond))
	assert.Zero(t, checks)
	assert.Equal(t, ObserverDormant, observerMode(t, w, tree, never))

	require.NoError(t, s.Update(500*time.Millisecond))
	assert.Equal(t, ObserverActive, observerMode(t, w, tree, never))

	bumpEvent.Publish(w, 1)
	require.NoError(t, s.Update(5*time.Second))
	assert.Equal(t, 1, checks)
	assert.False(t, s.Playing(root))
	assert.Equal(t, ObserverDormant, observerMode(t, w, tree, never))
	assert.Equal(t, 2, tree.Completions(timeout))
	assert.Zero(t, s.Stats().Stale)
}

func TestSequencerStats(t *testing.T) {
	_, s := newTestSequencer(t)
	_, err := s.Spawn(Build(Seq(Delay(1), Con(bumpEvent, func(donburi.World, int) bool { return true }))))
	require.NoError(t, err)
	require.NoError(t, s.Update(0))
	assert.Equal(t, Stats{Roots: 1, Countdowns: 1, DormantObservers: 1, Minted: 1}, s.Stats())
}
