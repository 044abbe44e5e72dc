package dynamo

import (
	"fmt"
	"math"
)

// Vec3 is a point or displacement in nm.
type Vec3 [3]float64

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vec3) Scale(f float64) Vec3 {
	return Vec3{v[0] * f, v[1] * f, v[2] * f}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Dist returns the Euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 {
	return v.Sub(o).Norm()
}

// IsValid reports whether every component is finite.
func (v Vec3) IsValid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Box is an orthorhombic periodic box spanning [0,A]x[0,B]x[0,C] in nm.
type Box struct {
	A float64 `yaml:"a" json:"a"`
	B float64 `yaml:"b" json:"b"`
	C float64 `yaml:"c" json:"c"`
}

// Cube returns a cubic box with edge l.
func Cube(l float64) Box {
	return Box{A: l, B: l, C: l}
}

func (b Box) String() string {
	return fmt.Sprintf("%gx%gx%g nm", b.A, b.B, b.C)
}

// Validate rejects boxes with a non-positive edge.
func (b Box) Validate() error {
	for i, l := range b.Lengths() {
		if err := RequirePositive(fmt.Sprintf("box edge %c", "abc"[i]), l); err != nil {
			return err
		}
	}
	return nil
}

func (b Box) Lengths() Vec3 {
	return Vec3{b.A, b.B, b.C}
}

// Volume returns the box volume in nm^3.
func (b Box) Volume() float64 {
	return b.A * b.B * b.C
}

// Contains reports whether p lies inside the closed box.
func (b Box) Contains(p Vec3) bool {
	l := b.Lengths()
	for i := range p {
		if p[i] < 0 || p[i] > l[i] {
			return false
		}
	}
	return true
}

// MinImage maps a displacement onto its nearest periodic image.
func (b Box) MinImage(d Vec3) Vec3 {
	l := b.Lengths()
	for i := range d {
		d[i] -= l[i] * math.Round(d[i]/l[i])
	}
	return d
}

// PeriodicDist returns the minimum-image distance between p and q.
func (b Box) PeriodicDist(p, q Vec3) float64 {
	return b.MinImage(p.Sub(q)).Norm()
}

// Vectors returns the three periodic box vectors.
func (b Box) Vectors() [3]Vec3 {
	return [3]Vec3{{b.A, 0, 0}, {0, b.B, 0}, {0, 0, b.C}}
}
