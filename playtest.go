package timemarches

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CorvusPrudens/time-marches-on/input"
)

// ErrExpectation is returned when an expect step does not hold.
var ErrExpectation = errors.New("playtest expectation failed")

// playStep is a single action in a playtest script.
type playStep struct {
	Action  string  `json:"action"`
	Scene   string  `json:"scene,omitempty"`
	Name    string  `json:"name,omitempty"`
	Label   string  `json:"label,omitempty"`
	Frames  int     `json:"frames,omitempty"`
	Text    *string `json:"text,omitempty"`
	Visible *bool   `json:"visible,omitempty"`
	Idle    *bool   `json:"idle,omitempty"`
}

// playScript is the top-level JSON structure for a playtest.
type playScript struct {
	Steps []playStep `json:"steps"`
}

// Playtest sequences injected actions, triggers and checks across frames.
// Attach to a Game via SetPlaytest, or drive a headless Game with Run.
type Playtest struct {
	steps     []playStep
	cursor    int
	waitCount int
	done      bool
}

// LoadPlaytest parses a JSON playtest. Actions are:
//
//	advance     inject one Interact press
//	wait        do nothing for "frames" frames
//	spawn       spawn the cutscene "scene"
//	fire        fire the trigger "name"
//	expect      check "text", "visible" and/or "idle"
//	screenshot  capture the next drawn frame as "label"
func LoadPlaytest(jsonData []byte) (*Playtest, error) {
	var script playScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse playtest: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse playtest: no steps")
	}
	for i, st := range script.Steps {
		switch st.Action {
		case "advance", "wait", "screenshot":
		case "spawn":
			if st.Scene == "" {
				return nil, fmt.Errorf("parse playtest: step %d: spawn needs a scene", i+1)
			}
		case "fire":
			if st.Name == "" {
				return nil, fmt.Errorf("parse playtest: step %d: fire needs a name", i+1)
			}
		case "expect":
			if st.Text == nil && st.Visible == nil && st.Idle == nil {
				return nil, fmt.Errorf("parse playtest: step %d: expect checks nothing", i+1)
			}
		default:
			return nil, fmt.Errorf("parse playtest: step %d: unknown action %q", i+1, st.Action)
		}
	}
	return &Playtest{steps: script.Steps}, nil
}

// Done reports whether all steps have been executed.
func (p *Playtest) Done() bool {
	return p.done
}

// Run steps g headlessly until the playtest is done, a step fails or
// maxFrames frames have passed.
func (p *Playtest) Run(g *Game, maxFrames int) error {
	for i := 0; i < maxFrames; i++ {
		if err := p.step(g); err != nil {
			return err
		}
		if p.done {
			return nil
		}
		if err := g.Step(g.dt); err != nil {
			return err
		}
	}
	return fmt.Errorf("playtest: not done after %d frames (step %d of %d)", maxFrames, p.cursor, len(p.steps))
}

// step advances the playtest by one frame.
func (p *Playtest) step(g *Game) error {
	if p.done {
		return nil
	}
	// Wait for injected presses to drain before advancing.
	if g.input.Pending() > 0 {
		return nil
	}
	if p.waitCount > 0 {
		p.waitCount--
		return nil
	}
	if p.cursor >= len(p.steps) {
		p.done = true
		return nil
	}

	st := p.steps[p.cursor]
	p.cursor++

	switch st.Action {
	case "advance":
		g.input.Inject(input.ActionInteract)
	case "wait":
		if st.Frames > 0 {
			p.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "spawn":
		if _, err := g.Spawn(st.Scene); err != nil {
			return fmt.Errorf("playtest step %d: %w", p.cursor, err)
		}
	case "fire":
		g.Fire(st.Name)
	case "expect":
		if err := p.expect(g, st); err != nil {
			return fmt.Errorf("playtest step %d: %w", p.cursor, err)
		}
	case "screenshot":
		g.Screenshot(st.Label)
	}

	if p.cursor >= len(p.steps) && p.waitCount == 0 && g.input.Pending() == 0 {
		p.done = true
	}
	return nil
}

func (p *Playtest) expect(g *Game, st playStep) error {
	if st.Text != nil {
		if got := g.Text(); got != *st.Text {
			return fmt.Errorf("%w: text is %q, want %q", ErrExpectation, got, *st.Text)
		}
	}
	if st.Visible != nil {
		if got := g.Stats().TextboxVisible; got != *st.Visible {
			return fmt.Errorf("%w: textbox visible is %v, want %v", ErrExpectation, got, *st.Visible)
		}
	}
	if st.Idle != nil {
		if got := g.Idle(); got != *st.Idle {
			return fmt.Errorf("%w: idle is %v, want %v", ErrExpectation, got, *st.Idle)
		}
	}
	return nil
}
