package main

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/kyberias/HRMC/pkg/grid"
)

const (
	screenWidth  = 800
	screenHeight = 600

	cellWidth  = 48
	cellHeight = 24
	floorX     = 10
	floorY     = 100
	programX   = 530
	lineHeight = 16
	maxDelay   = 64
)

var (
	background = color.RGBA{0x20, 0x1c, 0x18, 0xff}
	cellBorder = color.RGBA{0x80, 0x70, 0x60, 0xff}
	cellFill   = color.RGBA{0x40, 0x38, 0x30, 0xff}
	highlight  = color.RGBA{0xf0, 0xc0, 0x40, 0xff}
)

// Game draws the memory floor and program and steps the machine.
//
// Space pauses, N steps once while paused, R restarts, Up and Down change speed.
type Game struct {
	s      *session
	face   *text.GoXFace
	cols   int
	paused bool
	delay  int // ticks between steps
	tick   int
}

func NewGame(s *session, cols, delay int) *Game {
	if cols <= 0 {
		cols = grid.DefaultColumns
	}
	return &Game{
		s:      s,
		face:   text.NewGoXFace(basicfont.Face7x13),
		cols:   cols,
		paused: true,
		delay:  max(delay, 1),
	}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.s.reset(); err != nil {
			return err
		}
		g.paused = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyUp) {
		g.delay = max(g.delay/2, 1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDown) {
		g.delay = min(g.delay*2, maxDelay)
	}

	if g.paused {
		if inpututil.IsKeyJustPressed(ebiten.KeyN) {
			g.s.step()
		}
		return nil
	}
	g.tick++
	if g.tick%g.delay == 0 && !g.s.step() {
		g.paused = true
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)
	ebitenutil.DebugPrintAt(screen, g.status(), floorX, 4)
	ebitenutil.DebugPrintAt(screen, "inbox:  "+joinInts(g.s.pending), floorX, 40)
	ebitenutil.DebugPrintAt(screen, "outbox: "+joinInts(g.s.outbox), floorX, 56)
	g.drawFloor(screen)
	g.drawProgram(screen)
}

func (g *Game) status() string {
	vm := g.s.vm
	acc := "empty"
	if v, ok := vm.Accumulator(); ok {
		acc = fmt.Sprint(v)
	}
	state := "running"
	switch {
	case g.s.err != nil:
		state = "fault: " + g.s.err.Error()
	case vm.Halted():
		state = "halted"
	case g.paused:
		state = "paused"
	}
	return fmt.Sprintf("PC %d  ACC %s  steps %d  delay %d\n%s   [space] run/pause [n] step [r] restart",
		vm.PC(), acc, vm.Steps(), g.delay, state)
}

func (g *Game) drawFloor(screen *ebiten.Image) {
	for i, v := range g.s.vm.Memory() {
		x, y := grid.GetGridCoords(i, g.cols)
		px := float32(floorX + x*cellWidth)
		py := float32(floorY + y*cellHeight)
		vector.DrawFilledRect(screen, px, py, cellWidth-2, cellHeight-2, cellFill, false)
		vector.StrokeRect(screen, px, py, cellWidth-2, cellHeight-2, 1, cellBorder, false)
		g.drawText(screen, fmt.Sprint(v), float64(px+4), float64(py+4), color.White)
	}
}

func (g *Game) drawProgram(screen *ebiten.Image) {
	prog := g.s.vm.Program()
	rows := (screenHeight - floorY) / lineHeight
	first := max(0, min(g.s.vm.PC()-rows/2, len(prog)-rows))
	for row := 0; row < rows && first+row < len(prog); row++ {
		i := first + row
		line := fmt.Sprintf(" %3d  %s", i, prog[i])
		clr := color.Color(color.White)
		if i == g.s.vm.PC() {
			line = ">" + line[1:]
			clr = highlight
		}
		g.drawText(screen, line, programX, float64(floorY+row*lineHeight), clr)
	}
}

func (g *Game) drawText(screen *ebiten.Image, s string, x, y float64, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, s, g.face, op)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}
