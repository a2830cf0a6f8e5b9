// Package lod builds the distance-based level-of-detail hierarchy for a model.
package lod

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"wcs-converter/internal/mathutil"
)

const (
	NumLevels = 8
	// ReferenceRadius is the model radius the default distances are tuned for.
	ReferenceRadius float32 = 50
	MinScale        float32 = 0.1
)

// DefaultDistances are the switch distances for a model of ReferenceRadius.
var DefaultDistances = [NumLevels]float32{10, 25, 50, 100, 200, 400, 800, 1600}

// Fraction of vertices and triangles kept at each level.
var keepSchedule = [NumLevels]float32{1, 0.75, 0.5, 0.35, 0.25, 0.15, 0.1, 0.05}

const (
	specularOffLevel = 2
	normalOffLevel   = 3
)

var ErrInvalidDistances = errors.New("lod: invalid distances")

// Level describes one detail level. Reductions are the fraction of the source kept.
type Level struct {
	Level             int     `json:"level" toml:"level"`
	DistanceThreshold float32 `json:"distance_threshold" toml:"distance_threshold"`
	VertexReduction   float32 `json:"vertex_reduction" toml:"vertex_reduction"`
	TriangleReduction float32 `json:"triangle_reduction" toml:"triangle_reduction"`
	TextureResolution float32 `json:"texture_resolution" toml:"texture_resolution"`
	DisableSpecular   bool    `json:"disable_specular" toml:"disable_specular"`
	DisableNormal     bool    `json:"disable_normal" toml:"disable_normal"`
}

// Hierarchy is an ordered list of levels, highest detail first.
type Hierarchy struct {
	Levels       []Level `json:"levels"`
	ModelRadius  float32 `json:"model_radius"`
	BaseDistance float32 `json:"base_distance"`
}

// Settings overrides the default distance table.
type Settings struct {
	Distances       []float32 `toml:"distances"`
	ReferenceRadius float32   `toml:"reference_radius"`
}

func (s Settings) Validate() error {
	if len(s.Distances) != 0 && len(s.Distances) != NumLevels {
		return errors.Wrapf(ErrInvalidDistances, "want %d distances, got %d", NumLevels, len(s.Distances))
	}
	for i, d := range s.Distances {
		if !(d > 0) || math32.IsInf(d, 0) {
			return errors.Wrapf(ErrInvalidDistances, "distance %d is %v", i, d)
		}
		if i > 0 && d <= s.Distances[i-1] {
			return errors.Wrapf(ErrInvalidDistances, "distance %d not increasing", i)
		}
	}
	if s.ReferenceRadius < 0 {
		return errors.Wrapf(ErrInvalidDistances, "negative reference radius %v", s.ReferenceRadius)
	}
	return nil
}

func (s Settings) distances() [NumLevels]float32 {
	if len(s.Distances) != NumLevels {
		return DefaultDistances
	}
	var out [NumLevels]float32
	copy(out[:], s.Distances)
	return out
}

func (s Settings) reference() float32 {
	if s.ReferenceRadius > 0 {
		return s.ReferenceRadius
	}
	return ReferenceRadius
}

// Scale is the factor applied to the distance table for a model of the given radius.
func Scale(radius, reference float32) float32 {
	if !(radius > 0) || math32.IsInf(radius, 0) {
		return MinScale
	}
	return math32.Max(radius/reference, MinScale)
}

// Generate builds the default hierarchy for a model of the given radius.
func Generate(radius float32) Hierarchy {
	return Settings{}.Generate(radius)
}

// Generate builds the hierarchy using s's distances. Invalid settings fall back to the defaults.
func (s Settings) Generate(radius float32) Hierarchy {
	if s.Validate() != nil {
		s = Settings{}
	}
	scale := Scale(radius, s.reference())
	dist := s.distances()

	h := Hierarchy{
		Levels:       make([]Level, NumLevels),
		ModelRadius:  radius,
		BaseDistance: dist[0] * scale,
	}
	for i := range h.Levels {
		h.Levels[i] = Level{
			Level:             i,
			DistanceThreshold: dist[i] * scale,
			VertexReduction:   keepSchedule[i],
			TriangleReduction: keepSchedule[i],
			TextureResolution: textureFactor(i),
			DisableSpecular:   i >= specularOffLevel,
			DisableNormal:     i >= normalOffLevel,
		}
	}
	return h
}

// textureFactor halves every two levels and bottoms out at 1/8.
func textureFactor(level int) float32 {
	f := float32(1) / float32(int(1)<<(level/2))
	return math32.Max(f, 0.125)
}

// ForDistance returns the deepest level whose threshold the camera distance has reached.
// Distances closer than the first threshold select level 0.
func (h Hierarchy) ForDistance(d float32) Level {
	if len(h.Levels) == 0 {
		return Level{VertexReduction: 1, TriangleReduction: 1, TextureResolution: 1}
	}
	best := 0
	for i, l := range h.Levels {
		if l.DistanceThreshold <= d {
			best = i
		}
	}
	return h.Levels[best]
}

// Ordered reports whether thresholds strictly increase and reductions never increase.
func (h Hierarchy) Ordered() bool {
	for i := 1; i < len(h.Levels); i++ {
		prev, cur := h.Levels[i-1], h.Levels[i]
		if cur.DistanceThreshold <= prev.DistanceThreshold {
			return false
		}
		if cur.VertexReduction > prev.VertexReduction || cur.TriangleReduction > prev.TriangleReduction {
			return false
		}
	}
	return true
}

// TargetCount is the number of elements to keep out of n at the given reduction, never below floor.
func TargetCount(n int, reduction float32, floor int) int {
	t := int(math32.Round(float32(n) * mathutil.Saturate(reduction)))
	if t < floor {
		t = floor
	}
	if t > n {
		t = n
	}
	return t
}
