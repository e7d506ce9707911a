package timemarches

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"

	"github.com/CorvusPrudens/time-marches-on/audio"
	"github.com/CorvusPrudens/time-marches-on/config"
	"github.com/CorvusPrudens/time-marches-on/cutscene"
	"github.com/CorvusPrudens/time-marches-on/cutscenes"
	"github.com/CorvusPrudens/time-marches-on/effects"
	"github.com/CorvusPrudens/time-marches-on/input"
	"github.com/CorvusPrudens/time-marches-on/script"
	"github.com/CorvusPrudens/time-marches-on/sequence"
	"github.com/CorvusPrudens/time-marches-on/textbox"
)

// ErrUnknownCutscene is returned when a cutscene name is not in the library.
var ErrUnknownCutscene = errors.New("unknown cutscene")

// TriggerEvent is a named, game-defined occurrence that conditions can wait
// for. Script steps such as `wait: door_opened` resolve to triggers unless
// the registry names them.
type TriggerEvent struct {
	Name string
}

// TriggerEventType carries TriggerEvent.
var TriggerEventType = events.NewEventType[TriggerEvent]()

// Triggered builds a condition fragment satisfied by the next trigger called
// name.
func Triggered(name string) *sequence.Node {
	return sequence.Con(TriggerEventType, func(_ donburi.World, ev TriggerEvent) bool {
		return ev.Name == name
	})
}

// Option configures a Game.
type Option func(*Game)

// WithKeySource replaces device polling, typically with a fake in tests.
func WithKeySource(src input.KeySource) Option { return func(g *Game) { g.keys = src } }

// WithSink sets where audio is played. The default discards it.
func WithSink(sink audio.Sink) Option { return func(g *Game) { g.sink = sink } }

// WithLogger sets the logger shared by the game and its systems.
func WithLogger(log zerolog.Logger) Option { return func(g *Game) { g.log = log } }

// WithLibrary replaces the built-in cutscene library.
func WithLibrary(lib *cutscenes.Library) Option { return func(g *Game) { g.lib = lib } }

// WithRegistry sets the names a script may reference. Names it does not
// register resolve to triggers.
func WithRegistry(reg *script.Registry) Option { return func(g *Game) { g.reg = reg } }

// WithAssets sets the filesystem scripts and sounds are read from. The
// default is the directory named by the config.
func WithAssets(fsys fs.FS) Option { return func(g *Game) { g.assets = fsys } }

// WithSetup registers fn to run once the systems exist, before the startup
// cutscene is spawned. Setups run in order; the first error aborts NewGame.
func WithSetup(fn func(g *Game) error) Option {
	return func(g *Game) { g.setups = append(g.setups, fn) }
}

// WithBackdrop sets a function drawing the scene behind the textbox and
// overlay, through the game's camera.
func WithBackdrop(fn func(screen *ebiten.Image, cam *effects.Camera)) Option {
	return func(g *Game) { g.backdrop = fn }
}

// Game ties a donburi world to its sequencer and systems and implements
// ebiten.Game. Each Update runs input, textbox, sequencer, effects and audio in
// that order.
type Game struct {
	cfg    config.Config
	log    zerolog.Logger
	world  donburi.World
	assets fs.FS
	keys   input.KeySource
	sink   audio.Sink
	reg    *script.Registry
	lib    *cutscenes.Library
	setups []func(g *Game) error

	backdrop func(screen *ebiten.Image, cam *effects.Camera)

	input    *input.Input
	textbox  *textbox.System
	seq      *sequence.Sequencer
	dialogue *cutscene.DialogueBridge
	audio    *audio.System
	camera   *effects.Camera
	overlay  *effects.Overlay

	dt          time.Duration
	frames      uint64
	debug       bool
	stalled     map[sequence.EndToken]bool
	playtest    *Playtest
	screenshots []string
	// ScreenshotDir is where playtest screenshots are written.
	ScreenshotDir string
}

// NewGame builds a headless-capable Game from cfg. The cutscene named by
// cfg.Cutscene, if any, is spawned immediately.
func NewGame(cfg config.Config, opts ...Option) (*Game, error) {
	g := &Game{
		cfg:           cfg,
		log:           zerolog.Nop(),
		world:         donburi.NewWorld(),
		sink:          audio.NopSink{},
		stalled:       make(map[sequence.EndToken]bool),
		ScreenshotDir: "screenshots",
	}
	for _, opt := range opts {
		opt(g)
	}
	if cfg.TPS <= 0 {
		return nil, fmt.Errorf("invalid tps %d", cfg.TPS)
	}
	g.dt = time.Second / time.Duration(cfg.TPS)
	if g.assets == nil {
		g.assets = os.DirFS(cfg.AssetDir)
	}
	if g.lib == nil {
		g.lib = cutscenes.NewLibrary()
	}
	if cfg.Debug {
		g.SetDebugMode(true)
	}
	if err := g.loadScript(); err != nil {
		return nil, err
	}

	g.input = input.New(g.keys, input.DefaultBindings())
	g.textbox = textbox.NewSystem(g.world, textbox.WithCPS(cfg.TextCPS), textbox.WithLogger(g.log))
	g.seq = sequence.NewSequencer(g.world, sequence.WithLogger(g.log))
	g.dialogue = cutscene.NewDialogueBridge(g.world, g.log)
	g.seq.AddBridge(g.dialogue)
	g.audio = audio.NewSystem(g.world, g.sink, audio.WithLogger(g.log))
	g.camera = effects.NewCamera(effects.Rect{Width: float64(cfg.Width), Height: float64(cfg.Height)})
	g.overlay = &effects.Overlay{}

	for _, setup := range g.setups {
		if err := setup(g); err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	if cfg.Cutscene != "" {
		if _, err := g.Spawn(cfg.Cutscene); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Game) loadScript() error {
	if g.cfg.Script == "" {
		return nil
	}
	reg := g.reg
	if reg == nil {
		reg = script.NewRegistry()
	}
	reg.Otherwise(Triggered)
	lib, err := script.LoadFS(g.assets, g.cfg.Script, reg)
	if err != nil {
		return err
	}
	if err := g.lib.Merge(lib); err != nil {
		return fmt.Errorf("script %s: %w", g.cfg.Script, err)
	}
	g.log.Info().Str("script", g.cfg.Script).Int("cutscenes", lib.Len()).Msg("script loaded")
	return nil
}

// World returns the world the game runs in.
func (g *Game) World() donburi.World { return g.world }

// Sequencer returns the game's sequencer.
func (g *Game) Sequencer() *sequence.Sequencer { return g.seq }

// Library returns the cutscenes the game can spawn.
func (g *Game) Library() *cutscenes.Library { return g.lib }

// Input returns the game's input, which accepts injected actions.
func (g *Game) Input() *input.Input { return g.input }

// Camera returns the game's camera.
func (g *Game) Camera() *effects.Camera { return g.camera }

// Overlay returns the full-screen fade overlay.
func (g *Game) Overlay() *effects.Overlay { return g.overlay }

// Audio returns the audio system.
func (g *Game) Audio() *audio.System { return g.audio }

// Frames returns the number of steps run.
func (g *Game) Frames() uint64 { return g.frames }

// Spawn starts the cutscene called name.
func (g *Game) Spawn(name string) (sequence.Root, error) {
	tree, ok := g.lib.Get(name)
	if !ok {
		return sequence.Root{}, fmt.Errorf("%w %q", ErrUnknownCutscene, name)
	}
	root, err := g.seq.Spawn(tree)
	if err != nil {
		return sequence.Root{}, fmt.Errorf("spawn %q: %w", name, err)
	}
	g.log.Info().Str("cutscene", name).Stringer("root", root).Msg("spawned")
	return root, nil
}

// Despawn withdraws root.
func (g *Game) Despawn(root sequence.Root) {
	g.seq.Despawn(root)
	g.log.Info().Stringer("root", root).Msg("despawned")
}

// Fire publishes the trigger called name. It is seen on the next step by the
// conditions waiting at that time.
func (g *Game) Fire(name string) {
	TriggerEventType.Publish(g.world, TriggerEvent{Name: name})
}

// Idle reports whether no cutscene is playing and no textbox is shown.
func (g *Game) Idle() bool {
	return len(g.seq.Player().Roots()) == 0 && !textbox.Visible(g.world)
}

// Text returns the revealed text of the textbox, or "" when none is shown.
func (g *Game) Text() string {
	entry, err := textbox.Current(g.world)
	if err != nil || entry == nil {
		return ""
	}
	return textbox.Component.Get(entry).Text()
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	if g.playtest != nil {
		if err := g.playtest.step(g); err != nil {
			g.log.Error().Err(err).Msg("playtest failed")
			return err
		}
	}
	return g.Step(g.dt)
}

// Step advances the game by dt. A sequencing or textbox error is fatal;
// audio errors are logged and play continues.
func (g *Game) Step(dt time.Duration) error {
	g.input.Update(g.world)
	if err := g.textbox.Update(g.world, dt); err != nil {
		return g.fail(fmt.Errorf("textbox: %w", err))
	}
	// Only conditions already waiting see a trigger; the rest are dropped.
	TriggerEventType.ProcessEvents(g.world)
	if err := g.seq.Update(dt); err != nil {
		return g.fail(fmt.Errorf("sequence: %w", err))
	}
	effects.Update(g.world, dt)
	g.camera.Update()
	if err := g.audio.Update(g.world, dt); err != nil {
		g.log.Warn().Err(err).Msg("audio")
	}
	g.frames++
	g.debugLog()
	return nil
}

func (g *Game) fail(err error) error {
	g.log.Error().Err(err).Uint64("frame", g.frames).Msg("frame aborted")
	return err
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 0x10, G: 0x10, B: 0x18, A: 0xff})
	if g.backdrop != nil {
		g.backdrop(screen, g.camera)
	}
	textbox.Draw(screen, g.world, textbox.Layout{
		X:     16,
		Y:     g.cfg.Height - 72,
		Width: (g.cfg.Width - 32) / 6,
	})
	g.drawOverlay(screen)
	if g.debug {
		g.drawStats(screen)
	}
	g.flushScreenshots(screen)
}

var whitePixel *ebiten.Image

func (g *Game) drawOverlay(screen *ebiten.Image) {
	if g.overlay.Alpha <= 0 {
		return
	}
	if whitePixel == nil {
		whitePixel = ebiten.NewImage(1, 1)
		whitePixel.Fill(color.White)
	}
	b := screen.Bounds()
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(float64(b.Dx()), float64(b.Dy()))
	op.ColorScale.Scale(0, 0, 0, float32(min(g.overlay.Alpha, 1)))
	screen.DrawImage(whitePixel, &op)
}

// Layout implements ebiten.Game.
func (g *Game) Layout(int, int) (int, int) { return g.cfg.Width, g.cfg.Height }

// SetPlaytest attaches a playtest that is stepped from Update before the
// game advances.
func (g *Game) SetPlaytest(p *Playtest) { g.playtest = p }

// Run opens a window and plays the game until it is closed or a frame fails.
// Audio is read from cfg.AssetDir.
func Run(cfg config.Config, opts ...Option) error {
	log := zerolog.Nop()
	if cfg.Debug {
		log = debugLogger()
	}
	sink := audio.NewEbitenSink(os.DirFS(cfg.AssetDir), log)
	g, err := NewGame(cfg, append([]Option{WithSink(sink), WithLogger(log)}, opts...)...)
	if err != nil {
		return err
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width*2, cfg.Height*2)
	ebiten.SetTPS(cfg.TPS)
	return ebiten.RunGame(g)
}
