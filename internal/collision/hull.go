package collision

import (
	"cmp"
	"slices"

	"github.com/chewxy/math32"

	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/mesh"
)

// Hull is a closed convex polyhedron with outward-facing triangles.
type Hull struct {
	Vertices []mathutil.Vec3 `json:"vertices"`
	Indices  []uint32        `json:"indices"`
}

func (h *Hull) TriangleCount() int { return len(h.Indices) / 3 }

// Volume of the hull, zero when it is degenerate.
func (h *Hull) Volume() float32 {
	if len(h.Vertices) == 0 {
		return 0
	}
	c := mathutil.Centroid(h.Vertices)
	var v float32
	for t := 0; t+2 < len(h.Indices); t += 3 {
		a := h.Vertices[h.Indices[t]].Sub(c)
		b := h.Vertices[h.Indices[t+1]].Sub(c)
		d := h.Vertices[h.Indices[t+2]].Sub(c)
		v += a.Dot(b.Cross(d)) / 6
	}
	return math32.Abs(v)
}

// Contains reports whether p lies inside or on the hull within tol.
func (h *Hull) Contains(p mathutil.Vec3, tol float32) bool {
	for t := 0; t+2 < len(h.Indices); t += 3 {
		a, b, c := h.Vertices[h.Indices[t]], h.Vertices[h.Indices[t+1]], h.Vertices[h.Indices[t+2]]
		n := b.Sub(a).Cross(c.Sub(a))
		l := n.Len()
		if l <= mathutil.Epsilon {
			continue
		}
		if n.Dot(p.Sub(a))/l > tol {
			return false
		}
	}
	return true
}

type face struct {
	v      [3]int
	normal mathutil.Vec3
	dist   float32
}

func newFace(pts []mathutil.Vec3, a, b, c int) face {
	n := mathutil.Normalize(pts[b].Sub(pts[a]).Cross(pts[c].Sub(pts[a])))
	return face{v: [3]int{a, b, c}, normal: n, dist: n.Dot(pts[a])}
}

func (f *face) height(p mathutil.Vec3) float32 { return f.normal.Dot(p) - f.dist }

// BuildHull computes the convex hull of pts by incremental insertion. Degenerate (flat or
// collinear) input yields the hull of its bounding box inflated by eps so the result always
// encloses a volume.
func BuildHull(pts []mathutil.Vec3, eps float32) Hull {
	if len(pts) == 0 {
		return Hull{}
	}
	eps = math32.Max(eps, mathutil.Epsilon)
	faces, ok := initialSimplex(pts, eps)
	if !ok {
		return boxHull(pts, eps)
	}

	for i, p := range pts {
		var visible []int
		for fi := range faces {
			if faces[fi].height(p) > eps {
				visible = append(visible, fi)
			}
		}
		if len(visible) == 0 {
			continue
		}
		faces = expand(pts, faces, visible, i)
	}
	return compactHull(pts, faces)
}

func initialSimplex(pts []mathutil.Vec3, eps float32) ([]face, bool) {
	i0 := 0
	for i, p := range pts {
		if p[0] < pts[i0][0] {
			i0 = i
		}
	}
	i1 := farthest(pts, func(p mathutil.Vec3) float32 { return p.Sub(pts[i0]).Len() })
	if pts[i1].Sub(pts[i0]).Len() <= eps {
		return nil, false
	}
	dir := mathutil.Normalize(pts[i1].Sub(pts[i0]))
	i2 := farthest(pts, func(p mathutil.Vec3) float32 { return p.Sub(pts[i0]).Cross(dir).Len() })
	if pts[i2].Sub(pts[i0]).Cross(dir).Len() <= eps {
		return nil, false
	}
	base := newFace(pts, i0, i1, i2)
	i3 := farthest(pts, func(p mathutil.Vec3) float32 { return math32.Abs(base.height(p)) })
	if math32.Abs(base.height(pts[i3])) <= eps {
		return nil, false
	}
	if base.height(pts[i3]) > 0 {
		i1, i2 = i2, i1
	}
	return []face{
		newFace(pts, i0, i1, i2),
		newFace(pts, i0, i3, i1),
		newFace(pts, i1, i3, i2),
		newFace(pts, i2, i3, i0),
	}, true
}

func farthest(pts []mathutil.Vec3, dist func(mathutil.Vec3) float32) int {
	best, bestD := 0, float32(-1)
	for i, p := range pts {
		if d := dist(p); d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

// expand replaces the faces visible from pts[pi] with a cone from the horizon to pts[pi].
func expand(pts []mathutil.Vec3, faces []face, visible []int, pi int) []face {
	gone := make(map[int]bool, len(visible))
	edges := map[[2]int]bool{}
	for _, fi := range visible {
		gone[fi] = true
		f := faces[fi].v
		for k := 0; k < 3; k++ {
			edges[[2]int{f[k], f[(k+1)%3]}] = true
		}
	}
	out := make([]face, 0, len(faces))
	for fi, f := range faces {
		if !gone[fi] {
			out = append(out, f)
		}
	}
	for _, fi := range visible {
		f := faces[fi].v
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if !edges[[2]int{b, a}] {
				out = append(out, newFace(pts, a, b, pi))
			}
		}
	}
	return out
}

func compactHull(pts []mathutil.Vec3, faces []face) Hull {
	remap := map[int]uint32{}
	h := Hull{Indices: make([]uint32, 0, 3*len(faces))}
	for _, f := range faces {
		for _, vi := range f.v {
			idx, ok := remap[vi]
			if !ok {
				idx = uint32(len(h.Vertices))
				remap[vi] = idx
				h.Vertices = append(h.Vertices, pts[vi])
			}
			h.Indices = append(h.Indices, idx)
		}
	}
	return h
}

// boxHull is the 12-triangle hull of the bounding box of pts, grown by pad on every side.
func boxHull(pts []mathutil.Vec3, pad float32) Hull {
	box, _ := mathutil.BoxFromPoints(pts)
	lo := box.Min.Sub(mathutil.Vec3{pad, pad, pad})
	hi := box.Max.Add(mathutil.Vec3{pad, pad, pad})
	corners := make([]mathutil.Vec3, 8)
	for i := range corners {
		c := lo
		if i&1 != 0 {
			c[0] = hi[0]
		}
		if i&2 != 0 {
			c[1] = hi[1]
		}
		if i&4 != 0 {
			c[2] = hi[2]
		}
		corners[i] = c
	}
	return Hull{
		Vertices: corners,
		Indices: []uint32{
			0, 2, 1, 1, 2, 3, // -z
			4, 5, 6, 5, 7, 6, // +z
			0, 1, 4, 1, 5, 4, // -y
			2, 6, 3, 3, 6, 7, // +y
			0, 4, 2, 2, 4, 6, // -x
			1, 3, 5, 3, 7, 5, // +x
		},
	}
}

// BudgetHull computes the hull of pts welded at mergeDist, coarsening the weld until the hull
// has at most maxVerts vertices.
func BudgetHull(pts []mathutil.Vec3, mergeDist float32, maxVerts int) Hull {
	maxVerts = max(maxVerts, minHullPoints)
	eps := math32.Max(mergeDist, mathutil.Epsilon)
	h := BuildHull(mesh.WeldPoints(pts, mergeDist), eps)
	if len(h.Vertices) <= maxVerts {
		return h
	}
	box, _ := mathutil.BoxFromPoints(pts)
	step := math32.Max(box.Diagonal()/64, mergeDist)
	for i := 0; i < 16 && len(h.Vertices) > maxVerts; i++ {
		h = BuildHull(mesh.WeldPoints(h.Vertices, step), eps)
		step *= 1.5
	}
	if len(h.Vertices) > maxVerts {
		c := mathutil.Centroid(h.Vertices)
		far := append([]mathutil.Vec3(nil), h.Vertices...)
		slices.SortStableFunc(far, func(a, b mathutil.Vec3) int {
			return cmp.Compare(b.Sub(c).Len(), a.Sub(c).Len())
		})
		h = BuildHull(far[:maxVerts], eps)
	}
	return h
}
