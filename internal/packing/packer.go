// Package packing places rigid copies of molecules into a periodic box
// without overlap and caches the packed configuration on disk.
package packing

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/cgsim/internal/dynamo"
	"github.com/san-kum/cgsim/internal/logging"
	"github.com/san-kum/cgsim/internal/structure"
)

const (
	DefaultMinSeparation = 0.5 // nm
	DefaultMaxAttempts   = 10000
)

// chainIDs are assigned to copies in order; they repeat after the last one.
const chainIDs = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Species is a molecule to insert Count times.
type Species struct {
	Name      string
	Structure *structure.Configuration
	Count     int
}

type Request struct {
	Species []Species
	Box     dynamo.Box
	// Existing beads are kept in place and copied to the front of the output.
	Existing *structure.Configuration
	// MinSeparation is the smallest allowed distance between a new bead and
	// any bead already in the box, nm.
	MinSeparation float64
	// MaxAttempts bounds the rejected placements per copy.
	MaxAttempts int
	Seed        int64
}

func (r Request) withDefaults() Request {
	if r.MinSeparation == 0 {
		r.MinSeparation = DefaultMinSeparation
	}
	if r.MaxAttempts == 0 {
		r.MaxAttempts = DefaultMaxAttempts
	}
	return r
}

func (r Request) validate() error {
	if err := r.Box.Validate(); err != nil {
		return err
	}
	if err := dynamo.RequirePositive("min separation", r.MinSeparation); err != nil {
		return err
	}
	if r.MaxAttempts < 0 {
		return dynamo.ParameterError{Name: "max attempts", Value: float64(r.MaxAttempts)}
	}
	for _, s := range r.Species {
		if s.Count < 0 {
			return dynamo.ParameterError{Name: s.Name + " count", Value: float64(s.Count), Want: "non-negative"}
		}
		if s.Count > 0 && (s.Structure == nil || s.Structure.Len() == 0) {
			return fmt.Errorf("packing: species %q has no beads", s.Name)
		}
	}
	return nil
}

// Packer produces a packed configuration for a request.
type Packer interface {
	Pack(req Request) (*structure.Configuration, error)
}

// RandomPacker inserts copies by random rigid rotation and translation,
// rejecting placements that clash with beads already in the box.
type RandomPacker struct {
	Logger logging.Logger
}

func NewRandomPacker(log logging.Logger) *RandomPacker {
	return &RandomPacker{Logger: logging.OrNop(log)}
}

func (p *RandomPacker) Pack(req Request) (*structure.Configuration, error) {
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}
	log := logging.OrNop(p.Logger)
	rng := rand.New(rand.NewSource(req.Seed))

	out := &structure.Configuration{}
	g := newGrid(req.Box, req.MinSeparation)
	used := make(map[string]bool)
	if req.Existing != nil {
		out.Append(req.Existing.Clone())
		for _, b := range req.Existing.Beads {
			g.insert(b.Pos)
			used[b.Chain] = true
		}
	}
	chains := newChainAllocator(used)

	for _, s := range req.Species {
		if s.Count == 0 {
			continue
		}
		body := centered(s.Structure)
		for n := 0; n < s.Count; n++ {
			pos, attempts, ok := place(rng, g, req, body)
			if !ok {
				return nil, &dynamo.PackingError{
					Molecule:  s.Name,
					Requested: s.Count,
					Placed:    n,
					Box:       req.Box,
					Attempts:  attempts,
				}
			}
			rename := make(map[string]string)
			for i, b := range s.Structure.Beads {
				id, ok := rename[b.Chain]
				if !ok {
					id = chains.next()
					rename[b.Chain] = id
				}
				b.Chain = id
				b.Pos = pos[i]
				out.Beads = append(out.Beads, b)
				g.insert(pos[i])
			}
			log.Debug("copy placed",
				logging.String("species", s.Name),
				logging.Int("copy", n+1),
				logging.Int("attempts", attempts))
		}
		log.Info("species packed",
			logging.String("species", s.Name),
			logging.Int("copies", s.Count),
			logging.Int("beads", s.Count*s.Structure.Len()))
	}
	return out, nil
}

// place tries random poses until one fits. It returns the bead positions and
// the number of attempts used.
func place(rng *rand.Rand, g *grid, req Request, body *mat.Dense) ([]dynamo.Vec3, int, bool) {
	l := req.Box.Lengths()
	n, _ := body.Dims()
	rotated := mat.NewDense(n, 3, nil)
	for attempt := 1; attempt <= req.MaxAttempts; attempt++ {
		rotated.Mul(body, randomRotation(rng).T())

		var lo, hi dynamo.Vec3
		for k := 0; k < 3; k++ {
			col := mat.Col(nil, k, rotated)
			lo[k], hi[k] = minMax(col)
		}
		var shift dynamo.Vec3
		fits := true
		for k := 0; k < 3; k++ {
			span := l[k] - (hi[k] - lo[k])
			if span < 0 {
				fits = false
				break
			}
			shift[k] = -lo[k] + rng.Float64()*span
		}
		if !fits {
			continue
		}

		pos := make([]dynamo.Vec3, n)
		clash := false
		for i := 0; i < n && !clash; i++ {
			pos[i] = dynamo.Vec3{rotated.At(i, 0), rotated.At(i, 1), rotated.At(i, 2)}.Add(shift)
			clash = g.clashes(pos[i])
		}
		if !clash {
			return pos, attempt, true
		}
	}
	return nil, req.MaxAttempts, false
}

// centered returns the bead coordinates relative to their centroid as an
// n×3 matrix.
func centered(cfg *structure.Configuration) *mat.Dense {
	c := cfg.Centroid()
	m := mat.NewDense(cfg.Len(), 3, nil)
	for i, b := range cfg.Beads {
		d := b.Pos.Sub(c)
		m.SetRow(i, d[:])
	}
	return m
}

// randomRotation draws a rotation matrix uniformly from SO(3) using a random
// unit quaternion.
func randomRotation(rng *rand.Rand) *mat.Dense {
	u1, u2, u3 := rng.Float64(), 2*math.Pi*rng.Float64(), 2*math.Pi*rng.Float64()
	a, b := math.Sqrt(1-u1), math.Sqrt(u1)
	w, x, y, z := b*math.Cos(u3), a*math.Sin(u2), a*math.Cos(u2), b*math.Sin(u3)
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	})
}

func minMax(v []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

type chainAllocator struct {
	used map[string]bool
	i    int
}

func newChainAllocator(used map[string]bool) *chainAllocator {
	return &chainAllocator{used: used}
}

// next returns the first unused chain ID, cycling once all are taken.
func (c *chainAllocator) next() string {
	for tries := 0; tries < len(chainIDs); tries++ {
		id := string(chainIDs[c.i%len(chainIDs)])
		c.i++
		if !c.used[id] {
			c.used[id] = true
			return id
		}
	}
	id := string(chainIDs[c.i%len(chainIDs)])
	c.i++
	return id
}
