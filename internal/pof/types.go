package pof

import (
	"github.com/go-gl/mathgl/mgl32"

	"wcs-converter/internal/bsp"
	"wcs-converter/internal/mathutil"
)

const (
	MaxNameLen = 32
	MaxPropLen = 4096

	NumDetailLevels = 8
	NumDebrisPieces = 32

	// DefaultMaxChunkLength caps every chunk except subobjects.
	DefaultMaxChunkLength = 1_000_000
)

type CrossSection struct {
	Depth  float32
	Radius float32
}

type Light struct {
	Position mathutil.Vec3
	Type     uint32
}

type Header struct {
	MaxRadius     float32
	ObjectFlags   uint32
	NumSubObjects int32
	BBox          mathutil.BoundingBox
	// DetailLevels and Debris hold subobject numbers; -1 marks an empty slot.
	DetailLevels    [NumDetailLevels]int32
	Debris          [NumDebrisPieces]int32
	Mass            float32
	MassCenter      mathutil.Vec3
	MomentOfInertia [3]mathutil.Vec3
	CrossSections   []CrossSection
	Lights          []Light
}

// Inertia returns the moment of inertia as a matrix of its row vectors.
func (h *Header) Inertia() mgl32.Mat3 {
	r := h.MomentOfInertia
	return mgl32.Mat3FromRows(r[0], r[1], r[2])
}

// DetailLevelCount is the number of leading non-empty detail slots.
func (h *Header) DetailLevelCount() int {
	n := 0
	for _, d := range h.DetailLevels {
		if d < 0 {
			break
		}
		n++
	}
	return n
}

func emptyHeader() Header {
	var h Header
	for i := range h.DetailLevels {
		h.DetailLevels[i] = -1
	}
	for i := range h.Debris {
		h.Debris[i] = -1
	}
	return h
}

type MovementType int

const (
	MovementStatic MovementType = iota
	MovementRotation
	MovementTranslation
	MovementComplex
)

func (m MovementType) String() string {
	switch m {
	case MovementRotation:
		return "rotation"
	case MovementTranslation:
		return "translation"
	case MovementComplex:
		return "complex"
	}
	return "static"
}

type MovementAxis int

const (
	AxisNone MovementAxis = iota
	AxisX
	AxisY
	AxisZ
)

func (a MovementAxis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return "none"
}

// Vector returns the unit vector of the axis, or zero for AxisNone.
func (a MovementAxis) Vector() mathutil.Vec3 {
	switch a {
	case AxisX:
		return mathutil.Vec3{1, 0, 0}
	case AxisY:
		return mathutil.Vec3{0, 1, 0}
	case AxisZ:
		return mathutil.Vec3{0, 0, 1}
	}
	return mathutil.Vec3{}
}

type SubObject struct {
	Number          int32
	Radius          float32
	Parent          int32
	Offset          mathutil.Vec3
	GeometricCenter mathutil.Vec3
	BBox            mathutil.BoundingBox
	Name            string
	Properties      string
	Movement        MovementType
	Axis            MovementAxis

	// BSPOffset is the position of the BSP bytes inside the chunk payload.
	BSPOffset int
	BSPSize   uint32
	BSPData   []byte

	Tree   bsp.Node
	Points *bsp.DefPoints
	Stats  bsp.Stats
}

// IsRoot reports whether the subobject has no parent.
func (s *SubObject) IsRoot() bool { return s.Parent == -1 }

// Polygons returns the subobject's leaf polygons in traversal order.
func (s *SubObject) Polygons() []bsp.Polygon {
	if s.Tree == nil {
		return nil
	}
	return bsp.Polygons(s.Tree)
}

type PointKind int

const (
	PointGun PointKind = iota
	PointMissile
	PointDocking
	PointThruster
	PointEye
	PointSpecial
)

func (k PointKind) String() string {
	switch k {
	case PointGun:
		return "gun"
	case PointMissile:
		return "missile"
	case PointDocking:
		return "docking"
	case PointThruster:
		return "thruster"
	case PointEye:
		return "eye"
	}
	return "special"
}

type SpecialPoint struct {
	Kind     PointKind
	Name     string
	Position mathutil.Vec3
	Normal   mathutil.Vec3
	// Group is the bank, dock or thruster index the point belongs to.
	Group      int
	Index      int
	Properties map[string]string
}

type PathNode struct {
	Position   mathutil.Vec3
	Rotation   mathutil.Vec3
	Time       float32
	Properties string
}

type Path struct {
	Name     string
	Parent   string
	Nodes    []PathNode
	Loop     bool
	Duration float32
}

type ShieldPolygon struct {
	Normal  mathutil.Vec3
	Indices []uint32
}

type ShieldMesh struct {
	Vertices []mathutil.Vec3
	Normals  []mathutil.Vec3
	Polygons []ShieldPolygon
	// Tree is the SLDC collision tree when present.
	Tree bsp.Node
}

type Insignia struct {
	TextureIndex uint32
	Position     mathutil.Vec3
	Size         float32
	Rotation     float32
}

type GlowBank struct {
	Position     mathutil.Vec3
	Normal       mathutil.Vec3
	Radius       float32
	Color        [4]float32
	Intensity    float32
	TextureIndex uint32
}

// Model is the decoded content of one POF file. It is not modified after decoding.
type Model struct {
	Filename string
	// DeclaredVersion is what the file says; Version is the recognised version it was decoded as.
	DeclaredVersion int32
	Version         Version
	Compatibility   Compatibility

	Header     Header
	HasHeader  bool
	Textures   []string
	SubObjects []SubObject

	GunPoints      []SpecialPoint
	MissilePoints  []SpecialPoint
	DockingPoints  []SpecialPoint
	ThrusterPoints []SpecialPoint
	EyePoints      []SpecialPoint
	SpecialPoints  []SpecialPoint

	Paths      []Path
	Shield     *ShieldMesh
	Insignia   []Insignia
	Autocenter *mathutil.Vec3
	Glows      []GlowBank

	Chunks []ChunkInfo
}

// SubObjectByNumber returns the subobject with the given number.
func (m *Model) SubObjectByNumber(n int32) (*SubObject, bool) {
	for i := range m.SubObjects {
		if m.SubObjects[i].Number == n {
			return &m.SubObjects[i], true
		}
	}
	return nil, false
}

// Points returns every special point in kind order.
func (m *Model) Points() []SpecialPoint {
	var out []SpecialPoint
	for _, group := range [][]SpecialPoint{m.GunPoints, m.MissilePoints, m.DockingPoints, m.ThrusterPoints, m.EyePoints, m.SpecialPoints} {
		out = append(out, group...)
	}
	return out
}
