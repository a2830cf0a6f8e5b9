package mesh

import (
	"github.com/chewxy/math32"

	"wcs-converter/internal/lod"
	"wcs-converter/internal/mathutil"
)

const maxClusterResolution = 256

// Decimate reduces s toward target triangles by vertex clustering on a shrinking grid. The result
// has at most target triangles unless that would erase a surface a positive target asked to keep,
// in which case the coarsest non-empty clustering is returned. Cluster representatives average
// the positions and normals of their members and keep the first member's UV and colour.
func Decimate(s Surface, target int) Surface {
	if target < 0 {
		target = 0
	}
	if s.TriangleCount() <= target {
		return s.Clone()
	}
	box, ok := mathutil.BoxFromPoints(positions(s.Vertices))
	if !ok {
		return s.Clone()
	}
	extent := math32.Max(box.Diagonal(), mathutil.Epsilon)

	smallest := Surface{Texture: s.Texture}
	for res := maxClusterResolution; res >= 1; res = res * 3 / 4 {
		out := cluster(s, box.Min, extent/float32(res))
		n := out.TriangleCount()
		if n > 0 {
			smallest = out
		}
		if n <= target {
			if n == 0 && target > 0 && smallest.TriangleCount() > 0 {
				return smallest
			}
			return out
		}
	}
	return smallest
}

func positions(vs []Vertex) []mathutil.Vec3 {
	out := make([]mathutil.Vec3, len(vs))
	for i, v := range vs {
		out[i] = v.Position
	}
	return out
}

func cluster(s Surface, origin mathutil.Vec3, size float32) Surface {
	g := newGrid(size)
	type acc struct {
		first  Vertex
		sum    mathutil.Vec3
		normal mathutil.Vec3
		n      float32
	}
	var accs []acc
	slot := map[cell]uint32{}
	remap := make([]uint32, len(s.Vertices))
	for i, v := range s.Vertices {
		k := g.key(v.Position.Sub(origin))
		idx, ok := slot[k]
		if !ok {
			idx = uint32(len(accs))
			slot[k] = idx
			accs = append(accs, acc{first: v})
		}
		a := &accs[idx]
		a.sum = a.sum.Add(v.Position)
		a.normal = a.normal.Add(v.Normal)
		a.n++
		remap[i] = idx
	}

	out := Surface{Texture: s.Texture, Vertices: make([]Vertex, len(accs))}
	for i, a := range accs {
		v := a.first
		v.Position = a.sum.Mul(1 / a.n)
		if n := mathutil.Normalize(a.normal); !mathutil.IsZero(n) {
			v.Normal = n
		}
		out.Vertices[i] = v
	}
	out.Indices = dedupeTriangles(remapTriangles(append([]uint32(nil), s.Indices...), remap))
	return compact(out)
}

// dedupeTriangles drops repeated triangles regardless of rotation.
func dedupeTriangles(indices []uint32) []uint32 {
	seen := map[[3]uint32]bool{}
	out := indices[:0]
	for t := 0; t+2 < len(indices); t += 3 {
		tri := [3]uint32{indices[t], indices[t+1], indices[t+2]}
		for tri[0] > tri[1] || tri[0] > tri[2] {
			tri = [3]uint32{tri[1], tri[2], tri[0]}
		}
		if seen[tri] {
			continue
		}
		seen[tri] = true
		out = append(out, indices[t], indices[t+1], indices[t+2])
	}
	return out
}

// compact drops vertices no triangle references.
func compact(s Surface) Surface {
	used := make([]int32, len(s.Vertices))
	for i := range used {
		used[i] = -1
	}
	var verts []Vertex
	for i, idx := range s.Indices {
		if used[idx] < 0 {
			used[idx] = int32(len(verts))
			verts = append(verts, s.Vertices[idx])
		}
		s.Indices[i] = uint32(used[idx])
	}
	s.Vertices = verts
	return s
}

// Decimate keeps about reduction of each surface's triangles. A surface that would vanish keeps
// its coarsest non-empty clustering.
func (m *Mesh) Decimate(reduction float32) *Mesh {
	out := &Mesh{Name: m.Name, Surfaces: make([]Surface, 0, len(m.Surfaces))}
	for i := range m.Surfaces {
		s := m.Surfaces[i]
		out.Surfaces = append(out.Surfaces, Decimate(s, lod.TargetCount(s.TriangleCount(), reduction, 1)))
	}
	return out
}
