package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wcs-converter/internal/collision"
	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/mesh"
	"wcs-converter/internal/pof"
)

type vec = mathutil.Vec3

func sub(number, parent int32, name string, offset vec) pof.SubObject {
	return pof.SubObject{Number: number, Parent: parent, Name: name, Offset: offset, Radius: 1}
}

func triangle(name string) *mesh.Mesh {
	return &mesh.Mesh{Name: name, Surfaces: []mesh.Surface{{
		Texture: 0,
		Vertices: []mesh.Vertex{
			{Position: vec{0, 0, 0}, Normal: vec{0, 0, 1}},
			{Position: vec{1, 0, 0}, Normal: vec{0, 0, 1}},
			{Position: vec{0, 1, 0}, Normal: vec{0, 0, 1}},
		},
		Indices: []uint32{0, 1, 2},
	}}}
}

func model() *pof.Model {
	m := &pof.Model{Filename: `data\models\Rapier.POF`, HasHeader: true}
	for i := range m.Header.DetailLevels {
		m.Header.DetailLevels[i] = -1
	}
	for i := range m.Header.Debris {
		m.Header.Debris[i] = -1
	}
	m.Header.DetailLevels[0] = 0
	m.Header.Debris[0] = 3
	m.Header.MaxRadius = 12

	turret := sub(1, 0, "turret", vec{1, 2, 3})
	turret.Properties = "$special=subsystem\n$fov=180"
	m.SubObjects = []pof.SubObject{
		sub(0, -1, "detail0", vec{}),
		turret,
		sub(2, 1, "barrel", vec{0, 0, 1}),
		sub(3, -1, "debris01", vec{5, 0, 0}),
		sub(4, 9, "orphan", vec{0, 7, 0}),
		sub(5, 6, "", vec{1, 0, 0}),
		sub(6, 5, "loop", vec{0, 1, 0}),
	}
	m.GunPoints = []pof.SpecialPoint{{Kind: pof.PointGun, Name: "gun_bank00_point00", Position: vec{0, 0, 5}, Normal: vec{0, 0, 1}}}
	m.ThrusterPoints = []pof.SpecialPoint{{Kind: pof.PointThruster, Name: "thruster00_glow00", Position: vec{0, 0, -5}, Normal: vec{0, 0, -1},
		Properties: map[string]string{"radius": "2"}}}
	m.EyePoints = []pof.SpecialPoint{{Kind: pof.PointEye, Name: "eye00", Position: vec{0, 1, 0}, Normal: vec{0, 0, 1},
		Properties: map[string]string{"subobject": "1"}}}
	return m
}

func names(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func translation(n *Node) vec {
	return n.World.Col(3).Vec3()
}

func TestBuildHierarchy(t *testing.T) {
	shape := &collision.Shape{Name: "turret", Kind: collision.Sphere}
	s := Build(model(), Options{
		Meshes: map[int32]*mesh.Mesh{0: triangle("detail0"), 2: triangle("barrel"), 3: {Name: "debris01"}},
		Shapes: map[int32]*collision.Shape{1: shape},
	})

	assert.Equal(t, "rapier", s.Name)
	assert.Equal(t, KindModel, s.Root.Kind)
	assert.Equal(t, float32(12), s.Root.Radius)
	assert.Equal(t,
		[]string{"detail0", "debris01", "orphan", "subobject05", "loop", "gun_points", "thruster_points"},
		names(s.Root.Children))

	turret := s.Root.Find("turret")
	require.NotNil(t, turret)
	assert.True(t, turret.Subsystem)
	assert.Equal(t, "180", turret.Properties["fov"])
	assert.Equal(t, 0, turret.Detail)
	assert.Same(t, shape, turret.Collision)
	assert.Equal(t, []string{"barrel", "eye00"}, names(turret.Children))

	barrel := s.Root.Find("barrel")
	assert.Equal(t, "barrel", barrel.MeshRef)
	assert.Equal(t, 0, barrel.Detail)
	assert.True(t, translation(barrel).ApproxEqual(vec{1, 2, 4}))
	assert.True(t, translation(s.Root.Find("eye00")).ApproxEqual(vec{1, 3, 3}))

	debris := s.Root.Find("debris01")
	assert.True(t, debris.Debris)
	assert.Empty(t, debris.MeshRef, "empty meshes are not referenced")
	assert.Equal(t, -1, s.Root.Find("orphan").Detail)
	assert.Same(t, s.Root.Find("detail0"), s.DetailRoot())
}

func TestHardpoints(t *testing.T) {
	s := Build(model(), Options{})

	gun := s.Root.Find("gun_bank00_point00")
	require.NotNil(t, gun)
	assert.Equal(t, KindHardpoint, gun.Kind)
	assert.Equal(t, "gun", gun.PointKind)
	assert.True(t, gun.Rotation.Rotate(forward).ApproxEqual(vec{0, 0, 1}))

	thruster := s.Root.Find("thruster00_glow00")
	require.NotNil(t, thruster)
	assert.True(t, thruster.Rotation.Rotate(forward).ApproxEqualThreshold(vec{0, 0, -1}, 1e-5))
	assert.Equal(t, "2", thruster.Properties["radius"])
	assert.True(t, translation(thruster).ApproxEqual(vec{0, 0, -5}))

	side := facing(vec{3, 0, 0})
	assert.True(t, side.Rotate(forward).ApproxEqualThreshold(vec{1, 0, 0}, 1e-5))
	assert.Equal(t, identity(), facing(vec{}))
}

func TestWorldOffsets(t *testing.T) {
	off := WorldOffsets(model())
	assert.Equal(t, vec{1, 2, 4}, off[2])
	assert.Equal(t, vec{0, 7, 0}, off[4])
	assert.Equal(t, vec{1, 1, 0}, off[5])
}

func TestFlatten(t *testing.T) {
	s := Build(model(), Options{
		Meshes: map[int32]*mesh.Mesh{0: triangle("detail0"), 2: triangle("barrel"), 3: triangle("debris01")},
	})

	flat := Flatten(s.DetailRoot(), "rapier", nil)
	require.Len(t, flat.Surfaces, 1)
	assert.Equal(t, 2, flat.TriangleCount())
	assert.True(t, flat.Surfaces[0].Vertices[3].Position.ApproxEqual(vec{1, 2, 4}))
	assert.True(t, flat.Surfaces[0].Vertices[4].Position.ApproxEqual(vec{2, 2, 4}))
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, flat.Surfaces[0].Indices)

	hullOnly := Flatten(s.DetailRoot(), "rapier", func(n *Node) bool { return !n.Subsystem })
	assert.Equal(t, 1, hullOnly.TriangleCount())

	assert.Equal(t, 3, Flatten(s.Root, "all", nil).TriangleCount())
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "rapier", ModelName(`data\models\Rapier.POF`))
	assert.Equal(t, "dralthi", ModelName("/tmp/dralthi.pof"))
}

func TestUniqueSiblingNames(t *testing.T) {
	m := model()
	m.SubObjects = append(m.SubObjects, sub(7, -1, "detail0", vec{}), sub(8, 7, "barrel", vec{}), sub(9, 7, "barrel", vec{}))
	m.GunPoints = append(m.GunPoints, m.GunPoints[0])

	s := Build(m, Options{})
	assert.Equal(t,
		[]string{"detail0", "debris01", "orphan", "subobject05", "loop", "detail0_01", "gun_points", "thruster_points"},
		names(s.Root.Children))
	assert.Equal(t, []string{"barrel", "barrel_01"}, names(s.Root.Find("detail0_01").Children))
	assert.Equal(t, []string{"gun_bank00_point00", "gun_bank00_point00_01"}, names(s.Root.Find("gun_points").Children))

	used := map[string]bool{}
	assert.Equal(t, "a", UniqueName(used, "a"))
	assert.Equal(t, "a_01", UniqueName(used, "a"))
	assert.Equal(t, "a_02", UniqueName(used, "a"))
}
