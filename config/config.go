// Package config loads game settings from defaults, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/joho/godotenv"
)

// Prefix is the prefix of every recognised variable.
const Prefix = "TMO_"

// Config holds the settings of a game.
type Config struct {
	Title    string
	Width    int
	Height   int
	TPS      int
	TextCPS  float64
	Debug    bool
	AssetDir string // root of textures, audio and scripts
	Script   string // YAML script relative to AssetDir, optional
	Cutscene string // scene spawned on startup
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Title:    "Time Marches On",
		Width:    640,
		Height:   360,
		TPS:      60,
		TextCPS:  30,
		AssetDir: "assets",
		Cutscene: "intro",
	}
}

// Load returns Default overlaid with the variables of the given .env files
// (missing files are skipped) and then with the process environment. Later
// files override earlier ones.
func Load(paths ...string) (Config, error) {
	vars := make(map[string]string)
	for _, p := range paths {
		m, err := godotenv.Read(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", p, err)
		}
		for k, v := range m {
			vars[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, Prefix) {
			vars[k] = v
		}
	}
	return FromVars(vars)
}

// FromVars returns Default overlaid with vars. Empty values are ignored.
func FromVars(vars map[string]string) (Config, error) {
	var over Config
	var errs []error
	str := func(name string, dst *string) {
		*dst = vars[Prefix+name]
	}
	num := func(name string, dst *int) {
		if v := vars[Prefix+name]; v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				errs = append(errs, fmt.Errorf("config: %s%s: invalid positive integer %q", Prefix, name, v))
				return
			}
			*dst = n
		}
	}
	str("TITLE", &over.Title)
	num("WIDTH", &over.Width)
	num("HEIGHT", &over.Height)
	num("TPS", &over.TPS)
	if v := vars[Prefix+"TEXT_CPS"]; v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %sTEXT_CPS: invalid number %q", Prefix, v))
		}
		over.TextCPS = f
	}
	if v := vars[Prefix+"DEBUG"]; v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %sDEBUG: invalid boolean %q", Prefix, v))
		}
		over.Debug = b
	}
	str("ASSET_DIR", &over.AssetDir)
	str("SCRIPT", &over.Script)
	str("CUTSCENE", &over.Cutscene)
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	cfg := Default()
	if err := copier.CopyWithOption(&cfg, &over, copier.Option{IgnoreEmpty: true}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
