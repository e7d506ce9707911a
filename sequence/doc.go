// Package sequence plays narrative fragment trees against a [donburi] world.
//
// A tree is authored from pure [Node] values and indexed with [Build]:
//
//	intro := sequence.Build(sequence.Seq(
//		"Hello, world!",
//		1500, // milliseconds
//		sequence.On(game.DoorOpened, nil),
//		"You came back.",
//	).Always().Once())
//
// Nothing touches the world until the tree is spawned. [Player.Spawn]
// materializes one entity per node, then walks the tree and activates the
// first eligible leaf. Each activation emits a [FragmentStartEvent] carrying
// a fresh [EndToken]; the leaf ends only when that exact token is published
// on [FragmentEndEvent]. Tokens from earlier activations never match.
//
// # Bridges
//
// Bridges own the leaf kinds. The [DelayBridge] counts pauses down, the
// [ConditionBridge] activates a condition's observer while it is the active
// leaf and parks it again afterwards, and the dialogue bridge in the
// cutscene package waits for the textbox to close. A [Sequencer] runs them
// all in a fixed phase order each frame:
//
//	seq := sequence.NewSequencer(world, sequence.WithLogger(log))
//	seq.AddBridge(dialogue)
//	root, err := seq.Spawn(intro)
//	// every frame
//	err = seq.Update(time.Second / 60)
//
// # Policies
//
// [Node.Once] consumes a subtree after its first full playback, and
// [Node.Always] lets it replay. Unmarked nodes inherit the nearest marked
// ancestor; an unmarked root replays. Once wins over Always on the same
// node. Interrupting a once subtree with [Player.Despawn] keeps the
// children that did complete, so the next spawn resumes after them.
//
// # Races
//
// [Race] starts its leaf children together. The first token delivered wins;
// the others receive [FragmentStopEvent] and the race completes. A timeout
// is a pause racing a condition:
//
//	sequence.Race(sequence.Delay(5), sequence.Con(game.Collided, touchesDoor))
//
// # Callbacks
//
// Hooks attached with [Node.OnStart] and [Node.OnEnd] are [Callback] values.
// A callback registers with the world's [Systems] registry on its first call
// and is released by [Callback.Unregister] or [Player.Release].
//
// [donburi]: https://github.com/yohamta/donburi
package sequence
