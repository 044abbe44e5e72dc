package viz

import (
	"math"
	"sort"
	"strings"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/structure"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of braille cells; each cell holds 2x4 dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the dot at (x, y) in dot coordinates, which span
// (Width*2) x (Height*4).
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Lit counts the dots that are on.
func (c *Canvas) Lit() int {
	n := 0
	for _, row := range c.Grid {
		for _, r := range row {
			for bits := r - 0x2800; bits != 0; bits &= bits - 1 {
				n++
			}
		}
	}
	return n
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Camera orbits the box centre. Rotations are applied about x, then y, then z.
type Camera struct {
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{RotX: 0.4, RotY: -0.5, Zoom: 1}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) rotate(p dynamo.Vec3) dynamo.Vec3 {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p[1], p[2] = p[1]*cx-p[2]*sx, p[1]*sx+p[2]*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p[0], p[2] = p[0]*cy+p[2]*sy, -p[0]*sy+p[2]*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p[0], p[1] = p[0]*cz-p[1]*sz, p[0]*sz+p[1]*cz
	return p
}

// projector maps box coordinates to canvas dots with a weak perspective so
// that the whole box fits at zoom 1.
type projector struct {
	cam    *Camera
	centre dynamo.Vec3
	scale  float64
	dist   float64
	w, h   int
}

func newProjector(cam *Camera, box dynamo.Box, c *Canvas) projector {
	lengths := box.Lengths()
	diag := lengths.Norm()
	w, h := c.Width*2, c.Height*4
	return projector{
		cam:    cam,
		centre: lengths.Scale(0.5),
		scale:  float64(min(w, h)) / diag * cam.Zoom,
		dist:   2 * diag,
		w:      w,
		h:      h,
	}
}

func (p projector) project(v dynamo.Vec3) (x, y int, depth float64) {
	r := p.cam.rotate(v.Sub(p.centre))
	persp := p.dist / (p.dist - r[2])
	x = int(r[0]*persp*p.scale) + p.w/2
	y = int(-r[1]*persp*p.scale) + p.h/2
	return x, y, r[2]
}

// RenderBox draws the box edges and every bead of cfg. With bonds set,
// consecutive beads of the same chain are joined unless they sit on
// opposite sides of a periodic boundary.
func RenderBox(c *Canvas, cam *Camera, box dynamo.Box, cfg *structure.Configuration, bonds bool) {
	c.Clear()
	p := newProjector(cam, box, c)

	vecs := box.Vectors()
	a, b, cc := vecs[0], vecs[1], vecs[2]
	var o dynamo.Vec3
	corners := []dynamo.Vec3{o, a, a.Add(b), b, cc, a.Add(cc), a.Add(b).Add(cc), b.Add(cc)}
	for _, e := range [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}} {
		x0, y0, _ := p.project(corners[e[0]])
		x1, y1, _ := p.project(corners[e[1]])
		c.DrawLine(x0, y0, x1, y1)
	}
	if cfg == nil {
		return
	}

	type dot struct {
		x, y  int
		depth float64
	}
	dots := make([]dot, len(cfg.Beads))
	for i, bead := range cfg.Beads {
		x, y, d := p.project(bead.Pos)
		dots[i] = dot{x, y, d}
	}
	if bonds {
		half := box.Lengths().Scale(0.5)
		for i := 1; i < len(cfg.Beads); i++ {
			prev, cur := cfg.Beads[i-1], cfg.Beads[i]
			if prev.Chain != cur.Chain {
				continue
			}
			d := cur.Pos.Sub(prev.Pos)
			if math.Abs(d[0]) > half[0] || math.Abs(d[1]) > half[1] || math.Abs(d[2]) > half[2] {
				continue
			}
			c.DrawLine(dots[i-1].x, dots[i-1].y, dots[i].x, dots[i].y)
		}
	}
	sort.Slice(dots, func(i, j int) bool { return dots[i].depth < dots[j].depth })
	for _, d := range dots {
		c.Set(d.x, d.y)
		c.Set(d.x+1, d.y)
	}
}
