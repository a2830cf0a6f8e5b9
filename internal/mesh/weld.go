package mesh

import (
	"github.com/chewxy/math32"

	"wcs-converter/internal/mathutil"
)

// Welded vertices must also agree on normal and UV to these tolerances.
const (
	weldNormalCos = 0.999
	weldUVEpsilon = 1e-4
)

type cell [3]int32

type grid struct {
	size  float32
	cells map[cell][]uint32
}

func newGrid(size float32) *grid {
	if !(size > mathutil.Epsilon) {
		size = mathutil.Epsilon
	}
	return &grid{size: size, cells: map[cell][]uint32{}}
}

func (g *grid) key(p mathutil.Vec3) cell {
	return cell{
		int32(math32.Floor(p[0] / g.size)),
		int32(math32.Floor(p[1] / g.size)),
		int32(math32.Floor(p[2] / g.size)),
	}
}

func (g *grid) add(p mathutil.Vec3, idx uint32) {
	k := g.key(p)
	g.cells[k] = append(g.cells[k], idx)
}

// near calls fn for every stored index in the 27 cells around p until fn returns true.
func (g *grid) near(p mathutil.Vec3, fn func(idx uint32) bool) bool {
	k := g.key(p)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				for _, idx := range g.cells[cell{k[0] + dx, k[1] + dy, k[2] + dz}] {
					if fn(idx) {
						return true
					}
				}
			}
		}
	}
	return false
}

func weldable(a, b Vertex, dist float32) bool {
	if a.Position.Sub(b.Position).Len() > dist {
		return false
	}
	if a.Normal.Dot(b.Normal) < weldNormalCos {
		return false
	}
	if math32.Abs(a.UV[0]-b.UV[0]) > weldUVEpsilon || math32.Abs(a.UV[1]-b.UV[1]) > weldUVEpsilon {
		return false
	}
	return a.Color == b.Color
}

// Weld merges vertices of s closer than dist that share normal, UV and colour, and drops the
// triangles that collapse. It returns the number of vertices removed.
func Weld(s *Surface, dist float32) int {
	if len(s.Vertices) == 0 {
		return 0
	}
	dist = math32.Max(dist, mathutil.Epsilon)
	g := newGrid(dist)
	remap := make([]uint32, len(s.Vertices))
	kept := make([]Vertex, 0, len(s.Vertices))
	for i, v := range s.Vertices {
		target := uint32(len(kept))
		found := g.near(v.Position, func(idx uint32) bool {
			if weldable(kept[idx], v, dist) {
				target = idx
				return true
			}
			return false
		})
		if !found {
			g.add(v.Position, target)
			kept = append(kept, v)
		}
		remap[i] = target
	}
	removed := len(s.Vertices) - len(kept)
	s.Vertices = kept
	s.Indices = remapTriangles(s.Indices, remap)
	return removed
}

// Weld welds every surface of m.
func (m *Mesh) Weld(dist float32) int {
	n := 0
	for i := range m.Surfaces {
		n += Weld(&m.Surfaces[i], dist)
	}
	return n
}

// remapTriangles rewrites indices through remap and drops degenerate triangles.
func remapTriangles(indices []uint32, remap []uint32) []uint32 {
	out := indices[:0]
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := remap[indices[t]], remap[indices[t+1]], remap[indices[t+2]]
		if a == b || b == c || a == c {
			continue
		}
		out = append(out, a, b, c)
	}
	return out
}

// WeldPoints returns pts with points closer than dist to an earlier kept point removed.
func WeldPoints(pts []mathutil.Vec3, dist float32) []mathutil.Vec3 {
	dist = math32.Max(dist, mathutil.Epsilon)
	g := newGrid(dist)
	out := make([]mathutil.Vec3, 0, len(pts))
	for _, p := range pts {
		if g.near(p, func(idx uint32) bool { return out[idx].Sub(p).Len() <= dist }) {
			continue
		}
		g.add(p, uint32(len(out)))
		out = append(out, p)
	}
	return out
}
