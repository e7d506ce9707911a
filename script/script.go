// Package script loads cutscenes from YAML.
//
// A document has two sections. characters declares speakers, optionally
// extending another script speaker or a built-in one. cutscenes declares
// named trees built from steps:
//
//	characters:
//	  elder:
//	    extends: stranger
//	    sprite: elder.png
//	cutscenes:
//	  porch:
//	    policy: once
//	    steps:
//	      - "Who's there?"          # spoken by the main character
//	      - 1500                    # pause in milliseconds
//	      - 0.5                     # pause in seconds
//	      - say: [Evening., Lovely night.]
//	        chara: elder
//	      - race:
//	          - wait: door_opened
//	          - pause: 10
//
// Named conditions and hooks are resolved through a Registry.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/jinzhu/copier"
	"github.com/yohamta/donburi"
	"gopkg.in/yaml.v3"

	"github.com/CorvusPrudens/time-marches-on/audio"
	"github.com/CorvusPrudens/time-marches-on/cutscene"
	"github.com/CorvusPrudens/time-marches-on/cutscenes"
	"github.com/CorvusPrudens/time-marches-on/sequence"
	"github.com/CorvusPrudens/time-marches-on/textbox"
)

var (
	ErrUnknownCondition = errors.New("unknown condition")
	ErrUnknownHook      = errors.New("unknown hook")
	ErrUnknownCharacter = errors.New("unknown character")
)

// Registry maps the names a script may reference to code.
type Registry struct {
	conditions map[string]func() *sequence.Node
	hooks      map[string]sequence.HookFunc
	otherwise  func(name string) *sequence.Node
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conditions: make(map[string]func() *sequence.Node),
		hooks:      make(map[string]sequence.HookFunc),
	}
}

// Condition registers a factory of condition fragments under name. A fresh
// fragment is built for every use.
func (r *Registry) Condition(name string, build func() *sequence.Node) *Registry {
	r.conditions[name] = build
	return r
}

// Otherwise sets the factory used for condition names that were not
// registered. Without one, unregistered names are an error.
func (r *Registry) Otherwise(build func(name string) *sequence.Node) *Registry {
	r.otherwise = build
	return r
}

func (r *Registry) condition(name string) (*sequence.Node, bool) {
	if build, ok := r.conditions[name]; ok {
		return build(), true
	}
	if r.otherwise != nil {
		return r.otherwise(name), true
	}
	return nil, false
}

// Hook registers fn under name.
func (r *Registry) Hook(name string, fn sequence.HookFunc) *Registry {
	r.hooks[name] = fn
	return r
}

// Sound registers a hook under name that plays s.
func (r *Registry) Sound(name string, s audio.Sample) *Registry {
	return r.Hook(name, func(w donburi.World, _ sequence.Hook) error {
		audio.Play(w, s)
		return nil
	})
}

// Character is a speaker declared in a script.
type Character struct {
	Extends string    `yaml:"extends"`
	Sprite  string    `yaml:"sprite"`
	Voice   string    `yaml:"voice"`
	Volume  float64   `yaml:"volume"`
	Pitch   []float64 `yaml:"pitch"`
}

func fromChara(c cutscene.Chara) Character {
	v := c.Voice()
	ch := Character{Voice: v.Path, Volume: v.Volume, Pitch: []float64{v.Pitch.Min, v.Pitch.Max}}
	if s := c.Sprite(); s != nil {
		ch.Sprite = s.Path
	}
	return ch
}

func (c Character) event() textbox.CharacterEvent {
	var sprite *textbox.CharacterSprite
	if c.Sprite != "" {
		sprite = textbox.NewCharacterSprite(c.Sprite)
	}
	s := audio.Sample{Path: c.Voice, Volume: c.Volume}
	switch len(c.Pitch) {
	case 1:
		s.Pitch = audio.Between(c.Pitch[0], c.Pitch[0])
	case 2:
		s.Pitch = audio.Between(c.Pitch[0], c.Pitch[1])
	}
	if s.Path == "" {
		return textbox.CharacterEvent{Sprite: sprite}
	}
	return cutscene.Voiced(sprite, s)
}

type document struct {
	Characters map[string]Character `yaml:"characters"`
	Cutscenes  map[string]scene     `yaml:"cutscenes"`
}

type scene struct {
	Policy string    `yaml:"policy"`
	Steps  yaml.Node `yaml:"steps"`
}

// step is the mapping form of a step.
type step struct {
	Say     yaml.Node `yaml:"say"`
	Chara   string    `yaml:"chara"`
	Retain  bool      `yaml:"retain"`
	Pause   *float64  `yaml:"pause"`
	Seq     yaml.Node `yaml:"seq"`
	Race    yaml.Node `yaml:"race"`
	Wait    string    `yaml:"wait"`
	OnStart string    `yaml:"on_start"`
	OnEnd   string    `yaml:"on_end"`
	Policy  string    `yaml:"policy"`
}

var stepKeys = map[string]bool{
	"say": true, "chara": true, "retain": true, "pause": true, "seq": true,
	"race": true, "wait": true, "on_start": true, "on_end": true, "policy": true,
}

// LoadFS reads the script at name from fsys.
func LoadFS(fsys fs.FS, name string, reg *Registry) (*cutscenes.Library, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	lib, err := Load(data, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return lib, nil
}

// Load parses a script document.
func Load(data []byte, reg *Registry) (*cutscenes.Library, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	l := &loader{reg: reg, decl: doc.Characters, chars: make(map[string]Character)}
	for name := range doc.Characters {
		if _, err := l.character(name, nil); err != nil {
			return nil, err
		}
	}

	lib := cutscenes.New()
	for name, sc := range doc.Cutscenes {
		root, err := l.steps(&sc.Steps, "")
		if err != nil {
			return nil, fmt.Errorf("cutscene %q: %w", name, err)
		}
		if err := applyPolicy(root, sc.Policy); err != nil {
			return nil, fmt.Errorf("cutscene %q: %w", name, err)
		}
		if _, err := lib.Add(name, root); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

type loader struct {
	reg   *Registry
	decl  map[string]Character
	chars map[string]Character
}

// character resolves name and its extends chain.
func (l *loader) character(name string, seen []string) (Character, error) {
	if c, ok := l.chars[name]; ok {
		return c, nil
	}
	decl, ok := l.decl[name]
	if !ok {
		if c, ok := cutscene.ParseChara(name); ok {
			return fromChara(c), nil
		}
		return Character{}, fmt.Errorf("%w %q", ErrUnknownCharacter, name)
	}
	for _, s := range seen {
		if s == name {
			return Character{}, fmt.Errorf("character %q extends itself", name)
		}
	}

	var resolved Character
	if decl.Extends != "" {
		parent, err := l.character(decl.Extends, append(seen, name))
		if err != nil {
			return Character{}, fmt.Errorf("character %q: %w", name, err)
		}
		if err := copier.CopyWithOption(&resolved, &parent, copier.Option{DeepCopy: true}); err != nil {
			return Character{}, err
		}
	}
	if err := copier.CopyWithOption(&resolved, &decl, copier.Option{IgnoreEmpty: true, DeepCopy: true}); err != nil {
		return Character{}, err
	}
	resolved.Extends = ""
	l.chars[name] = resolved
	return resolved, nil
}

// list converts the children of a sequence node.
func (l *loader) list(y *yaml.Node, at string) ([]any, error) {
	if y.Kind == 0 {
		return nil, nil
	}
	if y.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("step %s (line %d): expected a list", at, y.Line)
	}
	items := make([]any, 0, len(y.Content))
	for i, c := range y.Content {
		n, err := l.step(c, join(at, i))
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, nil
}

func (l *loader) steps(y *yaml.Node, at string) (*sequence.Node, error) {
	items, err := l.list(y, at)
	if err != nil {
		return nil, err
	}
	return sequence.Seq(items...), nil
}

func join(at string, i int) string {
	if at == "" {
		return strconv.Itoa(i + 1)
	}
	return at + "." + strconv.Itoa(i+1)
}

func (l *loader) step(y *yaml.Node, at string) (*sequence.Node, error) {
	switch y.Kind {
	case yaml.ScalarNode:
		return scalar(y, at)
	case yaml.SequenceNode:
		return l.steps(y, at)
	case yaml.MappingNode:
	default:
		return nil, fmt.Errorf("step %s (line %d): unsupported step", at, y.Line)
	}

	for i := 0; i+1 < len(y.Content); i += 2 {
		if key := y.Content[i].Value; !stepKeys[key] {
			return nil, fmt.Errorf("step %s (line %d): unknown key %q", at, y.Content[i].Line, key)
		}
	}
	var s step
	if err := y.Decode(&s); err != nil {
		return nil, fmt.Errorf("step %s: %w", at, err)
	}
	n, err := l.mapping(&s, at)
	if err != nil {
		return nil, fmt.Errorf("step %s (line %d): %w", at, y.Line, err)
	}
	return n, nil
}

func scalar(y *yaml.Node, at string) (*sequence.Node, error) {
	switch y.ShortTag() {
	case "!!str":
		return sequence.Say(y.Value), nil
	case "!!int":
		ms, err := strconv.ParseInt(y.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", at, err)
		}
		return sequence.Wait(time.Duration(ms) * time.Millisecond), nil
	case "!!float":
		sec, err := strconv.ParseFloat(y.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", at, err)
		}
		return sequence.Delay(sec), nil
	default:
		return nil, fmt.Errorf("step %s (line %d): unsupported value %q", at, y.Line, y.Value)
	}
}

func (l *loader) mapping(s *step, at string) (*sequence.Node, error) {
	var (
		n     *sequence.Node
		kinds int
	)
	if s.Say.Kind != 0 {
		kinds++
		var lines []string
		switch s.Say.Kind {
		case yaml.ScalarNode:
			lines = []string{s.Say.Value}
		default:
			if err := s.Say.Decode(&lines); err != nil {
				return nil, err
			}
		}
		n = sequence.Say(lines...)
		if s.Retain {
			n.Retain()
		}
	}
	if s.Pause != nil {
		kinds++
		n = sequence.Delay(*s.Pause)
	}
	if s.Seq.Kind != 0 {
		kinds++
		var err error
		if n, err = l.steps(&s.Seq, at); err != nil {
			return nil, err
		}
	}
	if s.Race.Kind != 0 {
		kinds++
		items, err := l.list(&s.Race, at)
		if err != nil {
			return nil, err
		}
		n = sequence.Race(items...)
	}
	if s.Wait != "" {
		kinds++
		var ok bool
		if n, ok = l.reg.condition(s.Wait); !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownCondition, s.Wait)
		}
	}
	if kinds != 1 {
		return nil, fmt.Errorf("expected exactly one of say, pause, seq, race, wait; got %d", kinds)
	}

	if s.Chara != "" {
		c, err := l.character(s.Chara, nil)
		if err != nil {
			return nil, err
		}
		cutscene.Speak(n, c.event())
	}
	if s.OnStart != "" {
		fn, ok := l.reg.hooks[s.OnStart]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownHook, s.OnStart)
		}
		n.OnStart(fn)
	}
	if s.OnEnd != "" {
		fn, ok := l.reg.hooks[s.OnEnd]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownHook, s.OnEnd)
		}
		n.OnEnd(fn)
	}
	if err := applyPolicy(n, s.Policy); err != nil {
		return nil, err
	}
	return n, nil
}

func applyPolicy(n *sequence.Node, policy string) error {
	switch policy {
	case "":
	case "once":
		n.Always().Once()
	case "always":
		n.Always()
	default:
		return fmt.Errorf("unknown policy %q", policy)
	}
	return nil
}
