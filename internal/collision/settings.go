package collision

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidSettings = errors.New("collision: invalid settings")

// Kind selects the shape a collision generator emits.
type Kind int

const (
	Sphere Kind = iota
	Box
	Capsule
	ConvexHull
	ConvexDecomposition
	TriangleMesh
)

var kindNames = [...]string{"sphere", "box", "capsule", "convex_hull", "convex_decomposition", "triangle_mesh"}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	if name == "aabb" {
		name = "box"
	}
	for i, n := range kindNames {
		if n == name {
			*k = Kind(i)
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidSettings, "unknown shape %q", string(b))
}

const (
	MaxVertexLimit = 255
	MaxHullLimit   = 32
	minHullPoints  = 4
)

// Settings mirrors the collision section of the converter configuration.
type Settings struct {
	Shape              Kind    `toml:"shape"`
	MaxVertices        int     `toml:"max_vertices"`
	Simplification     float32 `toml:"simplification"`
	MergeDistance      float32 `toml:"merge_distance"`
	MaxHulls           int     `toml:"max_hulls"`
	PreserveSubsystems bool    `toml:"preserve_subsystems"`
	GenerateShieldMesh bool    `toml:"generate_shield_mesh"`
}

func DefaultSettings() Settings {
	return Settings{
		Shape:              ConvexHull,
		MaxVertices:        64,
		Simplification:     0.5,
		MergeDistance:      0.01,
		MaxHulls:           8,
		PreserveSubsystems: true,
		GenerateShieldMesh: true,
	}
}

// Validate reports every out-of-range field in one error wrapping ErrInvalidSettings.
func (s Settings) Validate() error {
	var issues []string
	if s.Shape < Sphere || s.Shape > TriangleMesh {
		issues = append(issues, fmt.Sprintf("unknown shape %d", int(s.Shape)))
	}
	if s.MaxVertices < minHullPoints || s.MaxVertices > MaxVertexLimit {
		issues = append(issues, fmt.Sprintf("max_vertices %d outside [%d,%d]", s.MaxVertices, minHullPoints, MaxVertexLimit))
	}
	if !(s.Simplification >= 0 && s.Simplification <= 1) {
		issues = append(issues, fmt.Sprintf("simplification %v outside [0,1]", s.Simplification))
	}
	if !(s.MergeDistance >= 0) {
		issues = append(issues, fmt.Sprintf("merge_distance %v is negative", s.MergeDistance))
	}
	if s.MaxHulls < 1 || s.MaxHulls > MaxHullLimit {
		issues = append(issues, fmt.Sprintf("max_hulls %d outside [1,%d]", s.MaxHulls, MaxHullLimit))
	}
	if len(issues) > 0 {
		return errors.Wrap(ErrInvalidSettings, strings.Join(issues, "; "))
	}
	return nil
}

// Subsystem returns the tighter budget used for subsystem shapes.
func (s Settings) Subsystem() Settings {
	s.MaxVertices = max(minHullPoints, s.MaxVertices/4)
	s.MaxHulls = max(1, s.MaxHulls/4)
	return s
}

// Shield returns the budget used for shield shapes.
func (s Settings) Shield() Settings {
	s.MaxVertices = max(minHullPoints, s.MaxVertices/2)
	s.Simplification = max(s.Simplification, 0.5)
	return s
}
