package mathutil

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Vec3 is the single-precision (x, y, z) vector shared by every decoded and lowered artifact.
type Vec3 = mgl32.Vec3

const (
	// Epsilon is the per-component tolerance for vector equality.
	Epsilon = 1e-6
	// UnitTolerance is how far a normal may drift from unit length before it is flagged.
	UnitTolerance = 1e-3
)

// Equal compares two vectors component-wise within Epsilon.
func Equal(a, b Vec3) bool {
	return a.ApproxEqualThreshold(b, Epsilon)
}

// Normalize returns v scaled to unit length, or the zero vector when v has no length.
// mgl32's own Normalize divides by zero in that case.
func Normalize(v Vec3) Vec3 {
	l := v.Len()
	if l < 1e-12 {
		return Vec3{}
	}
	return v.Mul(1 / l)
}

// IsUnit reports whether v has length 1 within UnitTolerance.
func IsUnit(v Vec3) bool {
	return math32.Abs(v.Len()-1) <= UnitTolerance
}

// IsZero reports whether v has (near) zero length.
func IsZero(v Vec3) bool {
	return v.Dot(v) < 1e-12
}

// IsFinite reports whether no component is NaN or infinite.
func IsFinite(v Vec3) bool {
	for _, c := range v {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// InUnitRange reports whether every component lies in [-1, 1].
func InUnitRange(v Vec3) bool {
	for _, c := range v {
		if c < -1 || c > 1 {
			return false
		}
	}
	return true
}

// MinVec returns the component-wise minimum.
func MinVec(a, b Vec3) Vec3 {
	return Vec3{math32.Min(a[0], b[0]), math32.Min(a[1], b[1]), math32.Min(a[2], b[2])}
}

// MaxVec returns the component-wise maximum.
func MaxVec(a, b Vec3) Vec3 {
	return Vec3{math32.Max(a[0], b[0]), math32.Max(a[1], b[1]), math32.Max(a[2], b[2])}
}

// Centroid averages a point set. Empty input yields the origin.
func Centroid(pts []Vec3) Vec3 {
	if len(pts) == 0 {
		return Vec3{}
	}
	var sx, sy, sz float64
	for _, p := range pts {
		sx += float64(p[0])
		sy += float64(p[1])
		sz += float64(p[2])
	}
	n := float64(len(pts))
	return Vec3{float32(sx / n), float32(sy / n), float32(sz / n)}
}
