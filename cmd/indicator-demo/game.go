package main

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/OCAP2/indicator/internal/host"
	"github.com/OCAP2/indicator/internal/markerview"
)

const markerRadius = 10

var (
	backgroundColor = color.RGBA{0x16, 0x1a, 0x22, 0xff}
	markerColor     = color.RGBA{0xf2, 0xb1, 0x34, 0xff}
	pointerColor    = color.RGBA{0xff, 0xff, 0xff, 0xc0}
)

// Game steps the host once per ebiten update and draws the active markers.
// Space pauses, R forces a refresh.
type Game struct {
	host   *host.Host
	views  *markerview.Memory
	width  int
	height int
	paused bool
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || g.host.Run.Done() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.host.Engine.Refresh()
	}
	if g.paused {
		return nil
	}
	g.host.Step(time.Second / time.Duration(ebiten.TPS()))
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	for _, m := range g.views.ActiveMarkers() {
		if m.Scale <= 0 {
			continue
		}
		x, y := m.DrawPoint(float64(g.height))
		r := markerRadius * m.Scale
		dx, dy := m.Heading()

		vector.DrawFilledCircle(screen, float32(x), float32(y), float32(r), markerColor, true)
		vector.StrokeLine(screen,
			float32(x), float32(y),
			float32(x+dx*2*r), float32(y+dy*2*r),
			2, pointerColor, true)

		if text := m.TextValue(); text != "" {
			ebitenutil.DebugPrintAt(screen, text, int(x+r)+4, int(y)-8)
		}
	}

	stats := g.host.Engine.Stats()
	status := fmt.Sprintf("t=%s tick %d  markers %d  on %d off %d behind %d culled %d",
		g.host.Run.Elapsed().Round(time.Millisecond), stats.Tick, stats.MarkersActive,
		stats.OnScreen, stats.OffScreen, stats.BehindCamera, stats.Culled)
	if g.paused {
		status += "  [paused]"
	}
	ebitenutil.DebugPrint(screen, status)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.width, g.height
}
