package collision

import (
	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/mesh"
)

// A split is kept only when the two halves' hulls shrink the parent hull volume by this fraction.
const minSplitGain = 0.1

type piece struct {
	tris [][3]mathutil.Vec3
	hull Hull
	vol  float32
}

func (p *piece) points() []mathutil.Vec3 {
	out := make([]mathutil.Vec3, 0, 3*len(p.tris))
	for _, t := range p.tris {
		out = append(out, t[0], t[1], t[2])
	}
	return out
}

func (p *piece) centroid() mathutil.Vec3 { return mathutil.Centroid(p.points()) }

func newPiece(tris [][3]mathutil.Vec3, s Settings) *piece {
	p := &piece{tris: tris}
	p.hull = BudgetHull(p.points(), s.MergeDistance, s.MaxVertices)
	p.vol = p.hull.Volume()
	return p
}

// Decompose approximates m by at most s.MaxHulls convex hulls. Connected components seed the
// pieces; the smallest are merged into their nearest neighbour while there are too many, then
// the piece whose axis split shrinks its hull volume the most is split while budget remains.
func Decompose(m *mesh.Mesh, s Settings) []Hull {
	var pieces []*piece
	for i := range m.Surfaces {
		surf := &m.Surfaces[i]
		for _, comp := range mesh.Components(surf) {
			tris := make([][3]mathutil.Vec3, len(comp))
			for j, t := range comp {
				tris[j] = surf.Triangle(t)
			}
			pieces = append(pieces, &piece{tris: tris})
		}
	}
	if len(pieces) == 0 {
		return nil
	}

	for len(pieces) > s.MaxHulls {
		pieces = mergeSmallest(pieces)
	}
	for i, p := range pieces {
		pieces[i] = newPiece(p.tris, s)
	}

	for len(pieces) < s.MaxHulls {
		best, bestGain := -1, float32(0)
		var bestA, bestB *piece
		for i, p := range pieces {
			a, b, ok := split(p, s)
			if !ok || !(p.vol > 0) {
				continue
			}
			gain := (p.vol - a.vol - b.vol) / p.vol
			if gain >= minSplitGain && gain > bestGain {
				best, bestGain, bestA, bestB = i, gain, a, b
			}
		}
		if best < 0 {
			break
		}
		pieces[best] = bestA
		pieces = append(pieces, bestB)
	}

	hulls := make([]Hull, len(pieces))
	for i, p := range pieces {
		hulls[i] = p.hull
	}
	return hulls
}

// mergeSmallest folds the piece with the fewest triangles into the piece with the nearest centroid.
func mergeSmallest(pieces []*piece) []*piece {
	small := 0
	for i, p := range pieces {
		if len(p.tris) <= len(pieces[small].tris) {
			small = i
		}
	}
	c := pieces[small].centroid()
	near, nearD := -1, float32(0)
	for i, p := range pieces {
		if i == small {
			continue
		}
		if d := p.centroid().Sub(c).Len(); near < 0 || d < nearD {
			near, nearD = i, d
		}
	}
	pieces[near].tris = append(pieces[near].tris, pieces[small].tris...)
	return append(pieces[:small], pieces[small+1:]...)
}

// split halves p at its bounding-box centre along the longest axis. Triangles crossing the plane
// are clipped so both halves keep the cross-section and their hulls meet without a gap.
func split(p *piece, s Settings) (*piece, *piece, bool) {
	if len(p.tris) == 0 {
		return nil, nil, false
	}
	box, ok := mathutil.BoxFromPoints(p.points())
	if !ok {
		return nil, nil, false
	}
	axis := box.LongestAxis()
	mid := box.Center()[axis]
	var lo, hi [][3]mathutil.Vec3
	for _, t := range p.tris {
		below, above := clip(t, axis, mid)
		lo = appendFan(lo, below)
		hi = appendFan(hi, above)
	}
	if len(lo) == 0 || len(hi) == 0 {
		return nil, nil, false
	}
	return newPiece(lo, s), newPiece(hi, s), true
}

// clip splits triangle t by the plane coordinate[axis] == at into the polygons on each side.
func clip(t [3]mathutil.Vec3, axis int, at float32) (below, above []mathutil.Vec3) {
	for i := 0; i < 3; i++ {
		a, b := t[i], t[(i+1)%3]
		da, db := a[axis]-at, b[axis]-at
		if da <= 0 {
			below = append(below, a)
		}
		if da >= 0 {
			above = append(above, a)
		}
		if (da < 0 && db > 0) || (da > 0 && db < 0) {
			x := a.Add(b.Sub(a).Mul(da / (da - db)))
			below = append(below, x)
			above = append(above, x)
		}
	}
	return below, above
}

func appendFan(tris [][3]mathutil.Vec3, poly []mathutil.Vec3) [][3]mathutil.Vec3 {
	for i := 1; i+1 < len(poly); i++ {
		tris = append(tris, [3]mathutil.Vec3{poly[0], poly[i], poly[i+1]})
	}
	return tris
}
