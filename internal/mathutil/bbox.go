package mathutil

import "github.com/chewxy/math32"

// BoundingBox is an axis-aligned box. A well-formed box has Min <= Max on every axis.
type BoundingBox struct {
	Min Vec3
	Max Vec3
}

// EmptyBox returns an inverted box that any Extend call will overwrite.
func EmptyBox() BoundingBox {
	inf := math32.Inf(1)
	return BoundingBox{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// UnitBox is the box of side 1 centred at the origin.
func UnitBox() BoundingBox {
	return BoundingBox{Min: Vec3{-0.5, -0.5, -0.5}, Max: Vec3{0.5, 0.5, 0.5}}
}

// BoxFromPoints returns the tightest box around pts, and false when pts is empty.
func BoxFromPoints(pts []Vec3) (BoundingBox, bool) {
	if len(pts) == 0 {
		return BoundingBox{}, false
	}
	b := EmptyBox()
	for _, p := range pts {
		b = b.Extend(p)
	}
	return b, true
}

// Valid reports whether Min <= Max on each axis and every component is finite.
func (b BoundingBox) Valid() bool {
	if !IsFinite(b.Min) || !IsFinite(b.Max) {
		return false
	}
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

func (b BoundingBox) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b BoundingBox) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

func (b BoundingBox) Volume() float32 {
	s := b.Size()
	if s[0] < 0 || s[1] < 0 || s[2] < 0 {
		return 0
	}
	return s[0] * s[1] * s[2]
}

// Contains reports whether p lies inside b (boundary inclusive).
func (b BoundingBox) Contains(p Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// ContainsBox reports whether o lies inside b, allowing tol of slack on every face.
func (b BoundingBox) ContainsBox(o BoundingBox, tol float32) bool {
	for k := 0; k < 3; k++ {
		if o.Min[k] < b.Min[k]-tol || o.Max[k] > b.Max[k]+tol {
			return false
		}
	}
	return true
}

// Intersects reports whether the two boxes overlap (touching counts).
func (b BoundingBox) Intersects(o BoundingBox) bool {
	for k := 0; k < 3; k++ {
		if b.Max[k] < o.Min[k] || o.Max[k] < b.Min[k] {
			return false
		}
	}
	return true
}

// Intersection returns the overlap of two boxes and false when they are disjoint.
func (b BoundingBox) Intersection(o BoundingBox) (BoundingBox, bool) {
	if !b.Intersects(o) {
		return BoundingBox{}, false
	}
	return BoundingBox{Min: MaxVec(b.Min, o.Min), Max: MinVec(b.Max, o.Max)}, true
}

func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{Min: MinVec(b.Min, o.Min), Max: MaxVec(b.Max, o.Max)}
}

func (b BoundingBox) Extend(p Vec3) BoundingBox {
	return BoundingBox{Min: MinVec(b.Min, p), Max: MaxVec(b.Max, p)}
}

// Translate shifts the box by d.
func (b BoundingBox) Translate(d Vec3) BoundingBox {
	return BoundingBox{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

// Normalized swaps inverted components so that Min <= Max holds.
func (b BoundingBox) Normalized() BoundingBox {
	return BoundingBox{Min: MinVec(b.Min, b.Max), Max: MaxVec(b.Min, b.Max)}
}

// LongestAxis returns 0, 1 or 2 for the axis with the largest extent. Ties pick the lower axis.
func (b BoundingBox) LongestAxis() int {
	s := b.Size()
	axis := 0
	if s[1] > s[axis] {
		axis = 1
	}
	if s[2] > s[axis] {
		axis = 2
	}
	return axis
}

// Diagonal is the length of the box diagonal.
func (b BoundingBox) Diagonal() float32 {
	return b.Size().Len()
}
