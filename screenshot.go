package timemarches

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Screenshot queues a labeled capture of the next drawn frame. Files land in
// ScreenshotDir as <time>_f<frame>_<label>.png.
func (g *Game) Screenshot(label string) {
	g.screenshots = append(g.screenshots, label)
}

func (g *Game) flushScreenshots(screen *ebiten.Image) {
	if len(g.screenshots) == 0 {
		return
	}
	labels := g.screenshots
	g.screenshots = g.screenshots[:0]

	if err := os.MkdirAll(g.ScreenshotDir, 0o755); err != nil {
		g.log.Warn().Err(err).Str("dir", g.ScreenshotDir).Msg("screenshot skipped")
		return
	}
	frame := capture(screen)
	stamp := time.Now().Format("20060102_150405")
	for _, label := range labels {
		name := fmt.Sprintf("%s_f%d_%s.png", stamp, g.frames, fileLabel(label))
		path := filepath.Join(g.ScreenshotDir, name)
		if err := savePNG(path, frame); err != nil {
			g.log.Warn().Err(err).Str("path", path).Msg("screenshot failed")
			continue
		}
		g.log.Info().Str("path", path).Str("label", label).Msg("screenshot saved")
	}
}

// capture copies screen into an image.RGBA. Both hold premultiplied alpha,
// so the pixels are read as they are and png converts on encode.
func capture(screen *ebiten.Image) *image.RGBA {
	b := screen.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	screen.ReadPixels(img.Pix)
	return img
}

func savePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}

// fileLabel keeps letters, digits, '-' and '.' of label and turns every
// other rune into '_'.
func fileLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, label)
}
