package timemarches

import (
	"errors"
	"testing"
)

func TestLoadPlaytest(t *testing.T) {
	data := []byte(`{
		"steps": [
			{"action": "spawn", "scene": "tea"},
			{"action": "wait", "frames": 3},
			{"action": "advance"},
			{"action": "expect", "text": "Hello", "visible": true}
		]
	}`)

	p, err := LoadPlaytest(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(p.steps))
	}
	if p.steps[0].Action != "spawn" || p.steps[0].Scene != "tea" {
		t.Error("step 0 mismatch")
	}
	if p.steps[1].Action != "wait" || p.steps[1].Frames != 3 {
		t.Error("step 1 mismatch")
	}
	if st := p.steps[3]; st.Text == nil || *st.Text != "Hello" || st.Visible == nil || !*st.Visible || st.Idle != nil {
		t.Error("step 3 mismatch")
	}
}

func TestLoadPlaytest_Invalid(t *testing.T) {
	for name, data := range map[string]string{
		"json":    `not json`,
		"empty":   `{"steps": []}`,
		"unknown": `{"steps": [{"action": "click"}]}`,
		"spawn":   `{"steps": [{"action": "spawn"}]}`,
		"fire":    `{"steps": [{"action": "fire"}]}`,
		"expect":  `{"steps": [{"action": "expect"}]}`,
	} {
		if _, err := LoadPlaytest([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestPlaytestRunsIntro(t *testing.T) {
	g := newTestGame(t, cfgFor("intro"))
	p, err := LoadPlaytest([]byte(`{"steps": [
		{"action": "wait", "frames": 2},
		{"action": "expect", "text": "Hello, world!", "idle": false},
		{"action": "advance"},
		{"action": "expect", "text": "How are you?"},
		{"action": "advance"},
		{"action": "expect", "idle": true, "visible": false}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Run(g, 100); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !p.Done() {
		t.Error("expected playtest to be done")
	}
}

func TestPlaytestSpawnAndFire(t *testing.T) {
	g := newTestGame(t, cfgFor(""))
	p, err := LoadPlaytest([]byte(`{"steps": [
		{"action": "spawn", "scene": "park_man_one"},
		{"action": "fire", "name": "unused"},
		{"action": "wait", "frames": 2},
		{"action": "expect", "visible": true},
		{"action": "screenshot", "label": "park"}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Run(g, 100); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(g.screenshots) != 1 || g.screenshots[0] != "park" {
		t.Errorf("screenshots = %v, want [park]", g.screenshots)
	}
}

func TestPlaytestExpectationFails(t *testing.T) {
	g := newTestGame(t, cfgFor("intro"))
	p, err := LoadPlaytest([]byte(`{"steps": [{"action": "expect", "idle": true}]}`))
	if err != nil {
		t.Fatal(err)
	}
	err = p.Run(g, 10)
	if !errors.Is(err, ErrExpectation) {
		t.Fatalf("err = %v, want ErrExpectation", err)
	}
}

func TestPlaytestUnknownScene(t *testing.T) {
	g := newTestGame(t, cfgFor(""))
	p, err := LoadPlaytest([]byte(`{"steps": [{"action": "spawn", "scene": "nowhere"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Run(g, 10); !errors.Is(err, ErrUnknownCutscene) {
		t.Fatalf("err = %v, want ErrUnknownCutscene", err)
	}
}

func TestPlaytestAttachedToUpdate(t *testing.T) {
	g := newTestGame(t, cfgFor(""))
	p, err := LoadPlaytest([]byte(`{"steps": [{"action": "wait", "frames": 3}]}`))
	if err != nil {
		t.Fatal(err)
	}
	g.SetPlaytest(p)
	for i := 0; i < 4; i++ {
		if err := g.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if !p.Done() {
		t.Error("expected playtest to be done after its wait")
	}
	if g.Frames() != 4 {
		t.Errorf("frames = %d, want 4", g.Frames())
	}
}
