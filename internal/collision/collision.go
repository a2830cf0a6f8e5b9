// Package collision derives collision shapes from model geometry.
package collision

import (
	"github.com/pkg/errors"

	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/mesh"
)

var ErrNoGeometry = errors.New("collision: no geometry")

// TriMesh is an indexed triangle soup for concave collision.
type TriMesh struct {
	Vertices []mathutil.Vec3 `json:"vertices"`
	Indices  []uint32        `json:"indices"`
}

// Shape is a generated collision shape. Only the fields of its Kind are set.
type Shape struct {
	Name   string               `json:"name"`
	Kind   Kind                 `json:"kind"`
	Center mathutil.Vec3        `json:"center"`
	Radius float32              `json:"radius,omitempty"`
	Height float32              `json:"height,omitempty"`
	Axis   int                  `json:"axis,omitempty"`
	BBox   mathutil.BoundingBox `json:"bbox"`
	Hulls  []Hull               `json:"hulls,omitempty"`
	Mesh   *TriMesh             `json:"mesh,omitempty"`
	// DataLoss marks approximations coarser than the requested shape.
	DataLoss bool `json:"data_loss_expected"`
}

// Generate builds the shape s asks for from m. Settings are validated first.
func Generate(name string, m *mesh.Mesh, s Settings) (*Shape, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	pts := m.Positions()
	box, ok := mathutil.BoxFromPoints(pts)
	if !ok || m.Empty() && (s.Shape == TriangleMesh || s.Shape == ConvexDecomposition) {
		return nil, errors.Wrapf(ErrNoGeometry, "%s", name)
	}

	shape := &Shape{Name: name, Kind: s.Shape, BBox: box, Center: box.Center()}
	switch s.Shape {
	case Sphere:
		shape.Center, shape.Radius = boundingSphere(pts)
	case Box:
	case Capsule:
		shape.Axis, shape.Radius, shape.Height = capsule(box)
	case ConvexHull:
		shape.Hulls = []Hull{BudgetHull(pts, s.MergeDistance, s.MaxVertices)}
	case ConvexDecomposition:
		shape.Hulls = Decompose(m, s)
		shape.DataLoss = true
	case TriangleMesh:
		shape.Mesh = triangleMesh(m, s)
	}
	return shape, nil
}

// FromPoints builds a shape from a bare point set. Shapes that need faces fall back to a
// single convex hull and are marked as lossy.
func FromPoints(name string, pts []mathutil.Vec3, s Settings) (*Shape, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	box, ok := mathutil.BoxFromPoints(pts)
	if !ok {
		return nil, errors.Wrapf(ErrNoGeometry, "%s", name)
	}
	shape := &Shape{Name: name, Kind: s.Shape, BBox: box, Center: box.Center()}
	switch s.Shape {
	case Sphere:
		shape.Center, shape.Radius = boundingSphere(pts)
	case Box:
	case Capsule:
		shape.Axis, shape.Radius, shape.Height = capsule(box)
	default:
		shape.DataLoss = s.Shape != ConvexHull
		shape.Kind = ConvexHull
		shape.Hulls = []Hull{BudgetHull(pts, s.MergeDistance, s.MaxVertices)}
	}
	return shape, nil
}

// boundingSphere centres on the centroid and reaches the farthest point.
func boundingSphere(pts []mathutil.Vec3) (mathutil.Vec3, float32) {
	c := mathutil.Centroid(pts)
	var r float32
	for _, p := range pts {
		if d := p.Sub(c).Len(); d > r {
			r = d
		}
	}
	return c, r
}

// capsule runs along the box's longest axis with the radius of half the smaller other extent.
func capsule(box mathutil.BoundingBox) (axis int, radius, height float32) {
	axis = box.LongestAxis()
	size := box.Size()
	a, b := size[(axis+1)%3], size[(axis+2)%3]
	radius = min(a, b) / 2
	height = max(size[axis], 2*radius)
	return axis, radius, height
}

func triangleMesh(m *mesh.Mesh, s Settings) *TriMesh {
	c := m.Clone()
	c.Weld(s.MergeDistance)
	if s.Simplification > 0 {
		c = c.Decimate(1 - s.Simplification)
	}
	out := &TriMesh{}
	for i := range c.Surfaces {
		surf := &c.Surfaces[i]
		base := uint32(len(out.Vertices))
		for _, v := range surf.Vertices {
			out.Vertices = append(out.Vertices, v.Position)
		}
		for _, idx := range surf.Indices {
			out.Indices = append(out.Indices, base+idx)
		}
	}
	return out
}
