package collision

import (
	"math/rand"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wcs-converter/internal/bsp"
	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/mesh"
)

type vec = mathutil.Vec3

// boxMesh is a closed axis-aligned box made of quads.
func boxMesh(lo, hi vec) []bsp.Polygon {
	c := func(x, y, z int) vec {
		v := lo
		if x == 1 {
			v[0] = hi[0]
		}
		if y == 1 {
			v[1] = hi[1]
		}
		if z == 1 {
			v[2] = hi[2]
		}
		return v
	}
	q := func(n vec, a, b, cc, d vec) bsp.Polygon {
		return bsp.Polygon{Vertices: []vec{a, b, cc, d}, Normal: n}
	}
	return []bsp.Polygon{
		q(vec{0, 0, -1}, c(0, 0, 0), c(0, 1, 0), c(1, 1, 0), c(1, 0, 0)),
		q(vec{0, 0, 1}, c(0, 0, 1), c(1, 0, 1), c(1, 1, 1), c(0, 1, 1)),
		q(vec{0, -1, 0}, c(0, 0, 0), c(1, 0, 0), c(1, 0, 1), c(0, 0, 1)),
		q(vec{0, 1, 0}, c(0, 1, 0), c(0, 1, 1), c(1, 1, 1), c(1, 1, 0)),
		q(vec{-1, 0, 0}, c(0, 0, 0), c(0, 0, 1), c(0, 1, 1), c(0, 1, 0)),
		q(vec{1, 0, 0}, c(1, 0, 0), c(1, 1, 0), c(1, 1, 1), c(1, 0, 1)),
	}
}

func boxes(bs ...[2]vec) *mesh.Mesh {
	var polys []bsp.Polygon
	for _, b := range bs {
		polys = append(polys, boxMesh(b[0], b[1])...)
	}
	m := mesh.FromPolygons("test", polys)
	m.Weld(0.001)
	return m
}

func settings(k Kind) Settings {
	s := DefaultSettings()
	s.Shape = k
	return s
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	bad := map[string]func(*Settings){
		"vertices high":  func(s *Settings) { s.MaxVertices = 256 },
		"vertices low":   func(s *Settings) { s.MaxVertices = 3 },
		"simplification": func(s *Settings) { s.Simplification = 1.5 },
		"merge":          func(s *Settings) { s.MergeDistance = -1 },
		"hulls zero":     func(s *Settings) { s.MaxHulls = 0 },
		"hulls high":     func(s *Settings) { s.MaxHulls = 33 },
		"shape":          func(s *Settings) { s.Shape = Kind(42) },
	}
	for name, mutate := range bad {
		t.Run(name, func(t *testing.T) {
			s := DefaultSettings()
			mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidSettings)

			_, err := Generate("x", boxes([2]vec{{0, 0, 0}, {1, 1, 1}}), s)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestKindText(t *testing.T) {
	var cfg struct {
		Shape Kind `toml:"shape"`
	}
	require.NoError(t, toml.Unmarshal([]byte(`shape = "convex_decomposition"`), &cfg))
	assert.Equal(t, ConvexDecomposition, cfg.Shape)
	require.NoError(t, toml.Unmarshal([]byte(`shape = "AABB"`), &cfg))
	assert.Equal(t, Box, cfg.Shape)
	assert.Error(t, toml.Unmarshal([]byte(`shape = "blob"`), &cfg))
	assert.Equal(t, "triangle_mesh", TriangleMesh.String())
}

func TestPrimitiveShapes(t *testing.T) {
	m := boxes([2]vec{{-2, -1, -0.5}, {2, 1, 0.5}})

	sphere, err := Generate("hull", m, settings(Sphere))
	require.NoError(t, err)
	assert.InDelta(t, 0, sphere.Center.Len(), 1e-5)
	assert.InDelta(t, vec{2, 1, 0.5}.Len(), sphere.Radius, 1e-5)

	box, err := Generate("hull", m, settings(Box))
	require.NoError(t, err)
	assert.Equal(t, vec{-2, -1, -0.5}, box.BBox.Min)
	assert.Equal(t, vec{2, 1, 0.5}, box.BBox.Max)

	capsule, err := Generate("hull", m, settings(Capsule))
	require.NoError(t, err)
	assert.Equal(t, 0, capsule.Axis)
	assert.Equal(t, float32(0.5), capsule.Radius)
	assert.Equal(t, float32(4), capsule.Height)
	assert.False(t, capsule.DataLoss)
}

func TestConvexHullOfBox(t *testing.T) {
	s := settings(ConvexHull)
	shape, err := Generate("hull", boxes([2]vec{{0, 0, 0}, {2, 2, 2}}), s)
	require.NoError(t, err)
	require.Len(t, shape.Hulls, 1)
	h := shape.Hulls[0]
	assert.Len(t, h.Vertices, 8)
	assert.Equal(t, 12, h.TriangleCount())
	assert.InDelta(t, 8, h.Volume(), 1e-3)
	assert.True(t, h.Contains(vec{1, 1, 1}, 1e-4))
	assert.False(t, h.Contains(vec{3, 1, 1}, 1e-4))
}

// Every input point is inside the hull and every hull vertex is an input point.
func TestHullEnclosesRandomPoints(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		pts := make([]vec, 20+rng.Intn(80))
		for j := range pts {
			pts[j] = vec{rng.Float32()*10 - 5, rng.Float32()*10 - 5, rng.Float32()*10 - 5}
		}
		h := BuildHull(pts, 1e-4)
		require.GreaterOrEqual(t, len(h.Vertices), 4)
		for _, p := range pts {
			assert.True(t, h.Contains(p, 1e-3), "point %v outside hull", p)
		}
		for _, v := range h.Vertices {
			assert.Contains(t, pts, v)
		}
		edges := map[[2]uint32]int{}
		for k := 0; k+2 < len(h.Indices); k += 3 {
			for e := 0; e < 3; e++ {
				edges[[2]uint32{h.Indices[k+e], h.Indices[k+(e+1)%3]}]++
			}
		}
		for e, n := range edges {
			assert.Equal(t, 1, n)
			assert.Equal(t, 1, edges[[2]uint32{e[1], e[0]}], "hull is closed")
		}
	}
}

func TestDegenerateHull(t *testing.T) {
	flat := []vec{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}
	h := BuildHull(flat, 0.01)
	assert.Len(t, h.Vertices, 8)
	assert.Greater(t, h.Volume(), float32(0))
	for _, p := range flat {
		assert.True(t, h.Contains(p, 0))
	}
	assert.Empty(t, BuildHull(nil, 0.01).Vertices)
}

func TestBudgetHull(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	pts := make([]vec, 2000)
	for i := range pts {
		pts[i] = mathutil.Normalize(vec{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}).Mul(5)
	}
	for _, budget := range []int{255, 64, 16, 4} {
		h := BudgetHull(pts, 0.01, budget)
		assert.LessOrEqual(t, len(h.Vertices), max(budget, 8), "budget %d", budget)
		assert.Greater(t, h.Volume(), float32(0))
	}
}

func TestDecomposition(t *testing.T) {
	m := boxes(
		[2]vec{{0, 0, 0}, {1, 1, 1}},
		[2]vec{{5, 0, 0}, {6, 1, 1}},
		[2]vec{{10, 0, 0}, {11, 1, 1}},
	)
	s := settings(ConvexDecomposition)
	shape, err := Generate("hull", m, s)
	require.NoError(t, err)
	assert.True(t, shape.DataLoss)
	require.Len(t, shape.Hulls, 3)
	var total float32
	for _, h := range shape.Hulls {
		total += h.Volume()
	}
	assert.InDelta(t, 3, total, 1e-3, "separate boxes are not split further")

	s.MaxHulls = 1
	single, err := Generate("hull", m, s)
	require.NoError(t, err)
	require.Len(t, single.Hulls, 1)
	assert.InDelta(t, 11, single.Hulls[0].Volume(), 1e-3)

	s.MaxHulls = 2
	two, err := Generate("hull", m, s)
	require.NoError(t, err)
	assert.Len(t, two.Hulls, 2)
}

func TestDecompositionSplitsConcaveShape(t *testing.T) {
	// An L made of two touching boxes welded into one component.
	m := boxes([2]vec{{0, 0, 0}, {4, 1, 1}}, [2]vec{{0, 1, 0}, {1, 4, 1}})
	s := settings(ConvexDecomposition)
	s.MaxHulls = 4
	shape, err := Generate("l", m, s)
	require.NoError(t, err)
	assert.Greater(t, len(shape.Hulls), 1)

	single, err := Generate("l", m, settings(ConvexHull))
	require.NoError(t, err)
	var total float32
	for _, h := range shape.Hulls {
		total += h.Volume()
	}
	assert.Less(t, total, single.Hulls[0].Volume())
}

func TestTriangleMesh(t *testing.T) {
	m := boxes([2]vec{{0, 0, 0}, {1, 1, 1}})
	s := settings(TriangleMesh)
	s.Simplification = 0
	shape, err := Generate("hull", m, s)
	require.NoError(t, err)
	require.NotNil(t, shape.Mesh)
	assert.Len(t, shape.Mesh.Indices, 36)
	for _, idx := range shape.Mesh.Indices {
		assert.Less(t, int(idx), len(shape.Mesh.Vertices))
	}
}

func TestNoGeometry(t *testing.T) {
	_, err := Generate("empty", &mesh.Mesh{}, settings(Box))
	assert.ErrorIs(t, err, ErrNoGeometry)
	_, err = FromPoints("empty", nil, settings(Sphere))
	assert.ErrorIs(t, err, ErrNoGeometry)
}

func TestFromPoints(t *testing.T) {
	pts := []vec{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	shape, err := FromPoints("eye", pts, settings(TriangleMesh))
	require.NoError(t, err)
	assert.Equal(t, ConvexHull, shape.Kind)
	assert.True(t, shape.DataLoss)
	assert.Len(t, shape.Hulls[0].Vertices, 4)
}

func TestBudgets(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 16, s.Subsystem().MaxVertices)
	assert.Equal(t, 2, s.Subsystem().MaxHulls)
	assert.Equal(t, 32, s.Shield().MaxVertices)
	s.MaxVertices = 4
	assert.Equal(t, 4, s.Subsystem().MaxVertices)
	require.NoError(t, s.Subsystem().Validate())
}
