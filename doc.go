// Package timemarches runs the cutscenes of Time Marches On on [Ebitengine].
//
// Content is authored as trees of fragments (see package sequence): dialogue
// lines, pauses, conditions waiting on world events, sequences and races.
// A [Game] owns a donburi world, the sequencer that plays those trees and the
// systems that show text, tween the camera and play sounds.
//
// # Quick start
//
// The simplest way to play is [Run], which creates a window and game loop:
//
//	cfg, err := config.Load(".env")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := timemarches.Run(cfg); err != nil {
//		log.Fatal(err)
//	}
//
// For tests and tools, build a headless game with [NewGame] and advance it
// with [Game.Step]:
//
//	g, _ := timemarches.NewGame(cfg, timemarches.WithKeySource(keys))
//	for !g.Idle() {
//		g.Input().Inject(input.ActionInteract)
//		_ = g.Step(time.Second / 60)
//	}
//
// # Frame order
//
// Each step runs input, then the textbox, then the sequencer, then tweens,
// then audio. A press is seen by the textbox on the frame it happens, and the
// closed dialogue reaches the sequencer in the same step.
//
// # Triggers
//
// Game code signals story beats with [Game.Fire]. A fragment built with
// [Triggered], or a script step `wait: name` the registry does not know,
// ends on the next trigger with that name. Triggers nothing is waiting for
// are dropped.
//
// # Playtests
//
// [LoadPlaytest] reads a JSON script of advance, wait, spawn, fire, expect
// and screenshot steps. Attach it with [Game.SetPlaytest] to drive a window,
// or call [Playtest.Run] to drive a headless game.
//
// # Debug mode
//
// [Game.SetDebugMode], or TMO_DEBUG=true, logs stats once per second, warns
// about units waiting longer than [StallAfter] and draws the stats on screen.
package timemarches
