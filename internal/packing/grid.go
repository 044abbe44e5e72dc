package packing

import (
	"math"

	"github.com/san-kum/cgsim/internal/dynamo"
)

// Spatial hash primes.
const (
	hashP1 = 73856093
	hashP2 = 19349663
	hashP3 = 83492791
)

// grid is a periodic cell list over the box. Cells are at least cutoff wide,
// so every neighbour within cutoff lies in the 27 cells around a point.
type grid struct {
	box    dynamo.Box
	cutoff float64
	n      [3]int
	width  dynamo.Vec3
	cells  map[int][]dynamo.Vec3
}

func newGrid(box dynamo.Box, cutoff float64) *grid {
	g := &grid{box: box, cutoff: cutoff, cells: make(map[int][]dynamo.Vec3)}
	l := box.Lengths()
	for i := range l {
		g.n[i] = int(math.Max(1, math.Floor(l[i]/cutoff)))
		g.width[i] = l[i] / float64(g.n[i])
	}
	return g
}

func (g *grid) cell(p dynamo.Vec3) [3]int {
	var c [3]int
	for i := range p {
		c[i] = wrap(int(math.Floor(p[i]/g.width[i])), g.n[i])
	}
	return c
}

func (g *grid) key(c [3]int) int {
	return (c[0] * hashP1) ^ (c[1] * hashP2) ^ (c[2] * hashP3)
}

func (g *grid) insert(p dynamo.Vec3) {
	k := g.key(g.cell(p))
	g.cells[k] = append(g.cells[k], p)
}

// clashes reports whether any stored point lies closer than the cutoff to p
// under the minimum image convention.
func (g *grid) clashes(p dynamo.Vec3) bool {
	c := g.cell(p)
	seen := make(map[int]bool, 27)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				k := g.key([3]int{
					wrap(c[0]+dx, g.n[0]),
					wrap(c[1]+dy, g.n[1]),
					wrap(c[2]+dz, g.n[2]),
				})
				if seen[k] {
					continue
				}
				seen[k] = true
				for _, q := range g.cells[k] {
					if g.box.PeriodicDist(p, q) < g.cutoff {
						return true
					}
				}
			}
		}
	}
	return false
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
