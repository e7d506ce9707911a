package textbox

import (
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/yohamta/donburi"
)

// Layout is the on-screen placement of the box.
type Layout struct {
	X, Y  int
	Width int // characters per row; zero disables wrapping
}

// Wrap breaks text into rows of at most width runes on word boundaries.
func Wrap(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	var rows []string
	var row []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		if len(row) > 0 && len(row)+1+len(w) > width {
			rows = append(rows, string(row))
			row = row[:0]
		}
		if len(row) > 0 {
			row = append(row, ' ')
		}
		row = append(row, w...)
	}
	if len(row) > 0 || len(rows) == 0 {
		rows = append(rows, string(row))
	}
	return rows
}

// Format returns the revealed text framed for its style.
func Format(box *Box) string {
	text := box.Text()
	if box.Line().Style == StyleMainCharacter && text != "" {
		text = "\"" + text
		if !box.Revealing() {
			text += "\""
		}
	}
	return text
}

// Draw prints the textbox of w onto screen with the debug font.
func Draw(screen *ebiten.Image, w donburi.World, at Layout) {
	entry, err := Current(w)
	if err != nil || entry == nil {
		return
	}
	box := Component.Get(entry)
	var b strings.Builder
	if sprite := box.Sprite(); sprite != nil {
		b.WriteString("[" + strings.TrimSuffix(sprite.Path, ".png") + "]\n")
	}
	b.WriteString(strings.Join(Wrap(Format(box), at.Width), "\n"))
	if !box.Revealing() && !box.Closed() {
		b.WriteString(" >")
	}
	ebitenutil.DebugPrintAt(screen, b.String(), at.X, at.Y)
}
