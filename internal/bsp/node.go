// Package bsp reconstructs the BSP geometry tree embedded in a POF subobject.
//
// A slice opens with a DEFPOINTS record declaring the vertex and normal tables, followed by a tree of
// SORTNORM splitters and BOUNDBOX leaves linked by byte offsets. Corrupt records never abort a decode:
// the affected branch collapses to Empty and a diagnostic is reported.
package bsp

import (
	"wcs-converter/internal/mathutil"
)

// Untextured is the texture index carried by flat (colour-only) polygons.
const Untextured uint32 = 0xFFFFFFFF

type Kind int

const (
	KindEmpty Kind = iota
	KindSplit
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindSplit:
		return "split"
	case KindLeaf:
		return "leaf"
	}
	return "empty"
}

// Node is one of Empty, *Split or *Leaf. Children are never nil.
type Node interface {
	Kind() Kind
	// Bounds returns the node's box, and false for Empty.
	Bounds() (mathutil.BoundingBox, bool)
}

type Empty struct{}

func (Empty) Kind() Kind { return KindEmpty }

func (Empty) Bounds() (mathutil.BoundingBox, bool) { return mathutil.BoundingBox{}, false }

// Split is a splitting plane with front and back subtrees.
type Split struct {
	Normal        mathutil.Vec3
	PlaneDistance float32
	BBox          mathutil.BoundingBox
	// BBoxStored is false when the box was computed from the children.
	BBoxStored bool
	Front      Node
	Back       Node

	// Raw words that follow the child offsets. Usually zero, kept for diagnostics.
	Reserved int32
	PreList  int32
	PostList int32
	OnLine   int32

	Opcode Opcode
	Offset int
}

func (*Split) Kind() Kind { return KindSplit }

func (s *Split) Bounds() (mathutil.BoundingBox, bool) { return s.BBox, true }

// Leaf is a group of polygons in stream order.
type Leaf struct {
	BBox     mathutil.BoundingBox
	Polygons []Polygon
	Offset   int
}

func (*Leaf) Kind() Kind { return KindLeaf }

func (l *Leaf) Bounds() (mathutil.BoundingBox, bool) { return l.BBox, true }

type Polygon struct {
	Vertices []mathutil.Vec3
	// VertexNormals holds one normal per vertex, looked up in the DEFPOINTS normal table.
	VertexNormals []mathutil.Vec3
	UVs           [][2]float32
	// Indices are the raw vertex indices as stored, including out-of-range ones.
	Indices       []uint32
	Normal        mathutil.Vec3
	PlaneDistance float32
	Center        mathutil.Vec3
	Radius        float32
	TextureIndex  uint32
	Color         [3]uint8
}

// Textured reports whether the polygon references the texture list.
func (p *Polygon) Textured() bool { return p.TextureIndex != Untextured }

// UnitNormal returns the polygon normal scaled to unit length.
func (p *Polygon) UnitNormal() mathutil.Vec3 { return mathutil.Normalize(p.Normal) }

// Bounds is the box around the polygon's vertices.
func (p *Polygon) Bounds() (mathutil.BoundingBox, bool) {
	return mathutil.BoxFromPoints(p.Vertices)
}

// DefPoints is the vertex and normal table declared at the start of a slice.
type DefPoints struct {
	Vertices []mathutil.Vec3
	Normals  []mathutil.Vec3
	// NormalCounts is the declared per-vertex normal count.
	NormalCounts []uint8
}
