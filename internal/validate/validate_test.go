package validate_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wcs-converter/internal/bsp"
	"wcs-converter/internal/bsp/bsptest"
	"wcs-converter/internal/diag"
	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/pof"
	"wcs-converter/internal/pof/poftest"
	"wcs-converter/internal/validate"
)

type vec = mathutil.Vec3

var box1 = mathutil.BoundingBox{Min: vec{-1, -1, -1}, Max: vec{1, 1, 1}}

func decode(t *testing.T, f *poftest.File) (*pof.Model, []diag.Diagnostic) {
	t.Helper()
	sink := diag.NewSink()
	m, err := pof.Decode(context.Background(), f.Bytes(), pof.Options{Sink: sink})
	require.NoError(t, err)
	return m, sink.Entries()
}

func header(n int32) []byte {
	return poftest.HeaderPayload(2117, poftest.Header{
		MaxRadius:     20,
		NumSubObjects: n,
		BBox:          mathutil.BoundingBox{Min: vec{-10, -10, -10}, Max: vec{10, 10, 10}},
		Detail:        []int32{0},
	})
}

func validModel() *poftest.File {
	f := poftest.New(2117)
	f.Chunk("HDR2", header(2))
	f.Chunk("TXTR", poftest.TexturesPayload("hull"))
	f.Chunk("OBJ2", poftest.SubObjectPayload(poftest.NewSubObject(0, "detail0", bsptest.Triangle(0))))
	child := poftest.NewSubObject(1, "turret", bsptest.Triangle(0))
	child.Parent = 0
	f.Chunk("OBJ2", poftest.SubObjectPayload(child))
	f.Chunk("GPNT", poftest.BanksPayload([]poftest.Point{{Position: vec{1, 0, 0}, Normal: vec{0, 0, 1}}}))
	f.Chunk("DOCK", poftest.DocksPayload(poftest.Dock{Properties: "$name=bay", Points: []poftest.Point{{Normal: vec{0, 1, 0}}}}))
	return f
}

func messages(ds []diag.Diagnostic) []string {
	var out []string
	for _, d := range ds {
		out = append(out, d.Message)
	}
	return out
}

func TestMinimalModelIsValid(t *testing.T) {
	m, decoded := decode(t, poftest.New(2117))
	res := validate.Run(m, validate.Options{Decoded: decoded})
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Suggestions)
	assert.False(t, res.DataLossExpected)
}

func TestValidModel(t *testing.T) {
	m, decoded := decode(t, validModel())
	res := validate.Run(m, validate.Options{Decoded: decoded})
	assert.True(t, res.IsValid, messages(res.Errors))
	assert.Empty(t, messages(res.Warnings))
}

func TestVersionTooOld(t *testing.T) {
	m, decoded := decode(t, poftest.New(1500))
	res := validate.Run(m, validate.Options{Decoded: decoded})
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, diag.Compatibility, res.Errors[0].Category)
	assert.NotEmpty(t, res.Suggestions)
}

func TestSubObjectChecks(t *testing.T) {
	f := poftest.New(2117)
	f.Chunk("HDR2", header(4))
	f.Chunk("OBJ2", poftest.SubObjectPayload(poftest.NewSubObject(0, "a", nil)))
	dup := poftest.NewSubObject(0, "b", nil)
	f.Chunk("OBJ2", poftest.SubObjectPayload(dup))
	orphan := poftest.NewSubObject(2, "c", nil)
	orphan.Parent = 9
	orphan.Radius = -3
	f.Chunk("OBJ2", poftest.SubObjectPayload(orphan))
	far := poftest.NewSubObject(3, "d", nil)
	far.Offset = vec{100, 0, 0}
	f.Chunk("OBJ2", poftest.SubObjectPayload(far))

	m, decoded := decode(t, f)
	res := validate.Run(m, validate.Options{Decoded: decoded})
	assert.False(t, res.IsValid)
	assert.ElementsMatch(t, []string{"duplicate subobject number", "parent subobject missing"}, messages(res.Errors))
	assert.ElementsMatch(t, []string{"negative subobject radius", "subobject bounding box outside header bounding box"}, messages(res.Warnings))

	fixed := validate.Repair(m)
	numbers := map[int32]bool{}
	for _, so := range fixed.SubObjects {
		assert.False(t, numbers[so.Number], "duplicate %d", so.Number)
		numbers[so.Number] = true
		assert.GreaterOrEqual(t, so.Radius, float32(0))
	}
	assert.Equal(t, int32(-1), fixed.SubObjects[2].Parent)
	assert.Equal(t, int32(9), m.SubObjects[2].Parent)

	again := validate.Run(fixed, validate.Options{})
	assert.True(t, again.IsValid, messages(again.Errors))
	assert.Empty(t, messages(again.Warnings))
}

func TestParentCycle(t *testing.T) {
	f := poftest.New(2117)
	a := poftest.NewSubObject(0, "a", nil)
	a.Parent = 1
	b := poftest.NewSubObject(1, "b", nil)
	b.Parent = 0
	f.Chunk("OBJ2", poftest.SubObjectPayload(a))
	f.Chunk("OBJ2", poftest.SubObjectPayload(b))

	m, _ := decode(t, f)
	res := validate.Run(m, validate.Options{})
	assert.Contains(t, messages(res.Errors), "subobject parent cycle")

	fixed := validate.Repair(m)
	assert.True(t, validate.Run(fixed, validate.Options{}).IsValid)
}

func TestTextureIndexOutOfRange(t *testing.T) {
	f := poftest.New(2117)
	f.Chunk("TXTR", poftest.TexturesPayload("only"))
	f.Chunk("OBJ2", poftest.SubObjectPayload(poftest.NewSubObject(0, "hull", bsptest.Triangle(4))))
	f.Chunk("INSG", poftest.InsigniaPayload(poftest.Insignia{Texture: 3}))
	f.Chunk("GLOW", poftest.GlowsPayload(poftest.GlowBank{Normal: vec{1, 0, 0}, Texture: bsp.Untextured}))

	m, decoded := decode(t, f)
	res := validate.Run(m, validate.Options{Decoded: decoded})
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"texture index out of range", "insignia texture index out of range"}, messages(res.Errors))
	assert.Equal(t, diag.UseDefaultTexture, res.Errors[0].Recovery)
	assert.True(t, res.DataLossExpected)

	fixed := validate.Repair(m)
	assert.Equal(t, uint32(0), fixed.SubObjects[0].Polygons()[0].TextureIndex)
	assert.Equal(t, bsp.Untextured, fixed.Insignia[0].TextureIndex)
	assert.Equal(t, uint32(4), m.SubObjects[0].Polygons()[0].TextureIndex)
}

func TestNormalsAndNames(t *testing.T) {
	b := bsptest.New()
	b.DefPoints([]vec{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [][]vec{{{0, 0, 1}}})
	split := b.SortNorm(vec{0, 0, 2}, vec{0, 0, 1}, 0, 0, &box1)
	front := b.BoundBox(box1)
	b.TmapPoly(bsptest.Poly{Normal: vec{0, 0, 3}, Verts: []uint32{0, 1, 2}})
	b.EndOfBranch()
	b.Link(split, front, 0)

	f := poftest.New(2117)
	f.Chunk("TXTR", poftest.TexturesPayload("t"))
	f.Chunk("OBJ2", poftest.SubObjectPayload(poftest.NewSubObject(0, "hull", b.Bytes())))
	f.Chunk("GPNT", poftest.BanksPayload([]poftest.Point{{Normal: vec{0, 0, 2}}}))
	f.Chunk("DOCK", poftest.DocksPayload(poftest.Dock{Properties: "$parent_submodel=hull", Points: []poftest.Point{{Normal: vec{0, 1, 0}}}}))

	m, decoded := decode(t, f)
	res := validate.Run(m, validate.Options{Decoded: decoded})
	assert.True(t, res.IsValid)
	assert.ElementsMatch(t, []string{
		"splitting plane normal not unit length",
		"polygon normal not unit length",
		"weapon point normal outside [-1,1]",
		"docking point has no name",
	}, messages(res.Warnings))
	assert.False(t, res.DataLossExpected)

	fixed := validate.Repair(m)
	s := fixed.SubObjects[0].Tree.(*bsp.Split)
	assert.True(t, mathutil.IsUnit(s.Normal))
	assert.InDelta(t, 1.0, s.PlaneDistance, 1e-6)
	p := fixed.SubObjects[0].Polygons()[0]
	assert.True(t, mathutil.IsUnit(p.Normal))
	assert.True(t, mathutil.IsUnit(fixed.GunPoints[0].Normal))
	assert.Equal(t, "dock00_point00", fixed.DockingPoints[0].Name)
	assert.Equal(t, "", m.DockingPoints[0].Name)
	assert.Equal(t, vec{0, 0, 2}, m.SubObjects[0].Tree.(*bsp.Split).Normal)

	assert.Empty(t, validate.Run(fixed, validate.Options{}).Warnings)
}

func TestDecodeDiagnosticsMerged(t *testing.T) {
	b := bsptest.New()
	b.DefPoints([]vec{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [][]vec{{{0, 0, 1}}})
	b.BoundBox(box1)
	b.TmapPoly(bsptest.Poly{Normal: vec{0, 0, 1}, Verts: []uint32{0, 1, 7}})
	b.EndOfBranch()
	f := poftest.New(2117)
	f.Chunk("TXTR", poftest.TexturesPayload("t"))
	f.Chunk("OBJ2", poftest.SubObjectPayload(poftest.NewSubObject(0, "hull", b.Bytes())))

	m, decoded := decode(t, f)
	forwarded := diag.NewSink()
	res := validate.Run(m, validate.Options{Decoded: decoded, Sink: forwarded})
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, diag.SubstituteZero, res.Errors[0].Recovery)
	assert.True(t, res.DataLossExpected)
	assert.Empty(t, forwarded.Entries())
}

func TestHeaderChecks(t *testing.T) {
	f := poftest.New(2117)
	f.Chunk("HDR2", poftest.HeaderPayload(2117, poftest.Header{
		MaxRadius: 0,
		Mass:      -5,
		BBox:      mathutil.BoundingBox{Min: vec{1, 1, 1}, Max: vec{-1, -1, -1}},
		Detail:    []int32{4},
	}))
	m, _ := decode(t, f)
	sink := diag.NewSink()
	res := validate.Run(m, validate.Options{Sink: sink})
	assert.ElementsMatch(t, []string{"max radius must be positive", "header bounding box malformed"}, messages(res.Errors))
	assert.ElementsMatch(t, []string{"negative mass", "detail level references missing subobject"}, messages(res.Warnings))
	assert.Len(t, sink.Entries(), 4)

	fixed := validate.Repair(m)
	assert.True(t, fixed.Header.BBox.Valid())
	assert.Greater(t, fixed.Header.MaxRadius, float32(0))
	assert.Equal(t, float32(5), fixed.Header.Mass)
}

func TestPathTimes(t *testing.T) {
	f := poftest.New(2117)
	f.Chunk("PATH", poftest.PathsPayload(2117, poftest.Path{Name: "p", Nodes: []poftest.PathNode{{Time: 2}, {Time: 1}}}))
	m, _ := decode(t, f)
	res := validate.Run(m, validate.Options{})
	assert.Equal(t, []string{"path node times decrease"}, messages(res.Warnings))
}

// Every normal handed to lowering is unit length after Repair.
func TestRepairNormalisesEverything(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	randVec := func() vec {
		return vec{rng.Float32()*4 - 2, rng.Float32()*4 - 2, rng.Float32()*4 - 2}
	}
	for i := 0; i < 50; i++ {
		b := bsptest.New()
		b.DefPoints([]vec{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, [][]vec{{randVec()}, {randVec()}})
		split := b.SortNorm(randVec(), randVec(), 0, 0, &box1)
		front := b.BoundBox(box1)
		b.TmapPoly(bsptest.Poly{Normal: randVec(), Verts: []uint32{0, 1, 2}, Normals: []uint32{0, 1, 0}})
		b.FlatPoly(bsptest.Poly{Normal: vec{}, Verts: []uint32{0, 2, 3}})
		b.EndOfBranch()
		back := b.SortNorm2(0, 0, box1)
		b.Link(split, front, back)

		f := poftest.New(2117)
		f.Chunk("OBJ2", poftest.SubObjectPayload(poftest.NewSubObject(0, "hull", b.Bytes())))
		f.Chunk("GPNT", poftest.BanksPayload([]poftest.Point{{Normal: randVec()}}))
		m, _ := decode(t, f)

		fixed := validate.Repair(m)
		bsp.Walk(fixed.SubObjects[0].Tree, func(n bsp.Node, _ int) bool {
			switch v := n.(type) {
			case *bsp.Split:
				assert.True(t, mathutil.IsUnit(v.Normal), "split normal %v", v.Normal)
			case *bsp.Leaf:
				for _, p := range v.Polygons {
					assert.True(t, mathutil.IsUnit(p.Normal), "polygon normal %v", p.Normal)
					for _, vn := range p.VertexNormals {
						assert.True(t, mathutil.IsUnit(vn), "vertex normal %v", vn)
					}
				}
			}
			return true
		})
	}
}
