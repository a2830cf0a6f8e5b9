package meshopt

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidProfile = errors.New("meshopt: invalid profile")

// Target names a class of hardware the converted assets are tuned for.
type Target int

const (
	DesktopHigh Target = iota
	DesktopMedium
	MobileHigh
	MobileMedium
	WebGL2
	WebGL1
)

var targetNames = [...]string{"desktop_high", "desktop_medium", "mobile_high", "mobile_medium", "web_gl2", "web_gl1"}

func (t Target) String() string {
	if t >= 0 && int(t) < len(targetNames) {
		return targetNames[t]
	}
	return fmt.Sprintf("target(%d)", int(t))
}

func (t Target) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Target) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range targetNames {
		if n == name {
			*t = Target(i)
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidProfile, "unknown target %q", string(b))
}

// Profile caps what a single optimised mesh may contain.
type Profile struct {
	Target                Target  `toml:"target" json:"target"`
	MaxVerticesPerMesh    int     `toml:"max_vertices_per_mesh" json:"max_vertices_per_mesh"`
	MaxTrianglesPerMesh   int     `toml:"max_triangles_per_mesh" json:"max_triangles_per_mesh"`
	MaxTextureResolution  int     `toml:"max_texture_resolution" json:"max_texture_resolution"`
	MaxMaterialsPerMesh   int     `toml:"max_materials_per_mesh" json:"max_materials_per_mesh"`
	UseVertexCompression  bool    `toml:"use_vertex_compression" json:"use_vertex_compression"`
	UseTextureCompression bool    `toml:"use_texture_compression" json:"use_texture_compression"`
	UseNormalCompression  bool    `toml:"use_normal_compression" json:"use_normal_compression"`
	MergeSmallMeshes      bool    `toml:"merge_small_meshes" json:"merge_small_meshes"`
	Aggressiveness        float32 `toml:"simplification_aggressiveness" json:"simplification_aggressiveness"`
	// MergeDistance is the vertex welding radius in model units.
	MergeDistance float32 `toml:"merge_distance" json:"merge_distance"`
}

const defaultMergeDistance = 0.001

var profiles = map[Target]Profile{
	DesktopHigh: {
		Target: DesktopHigh, MaxVerticesPerMesh: 100000, MaxTrianglesPerMesh: 150000,
		MaxTextureResolution: 4096, MaxMaterialsPerMesh: 16,
	},
	DesktopMedium: {
		Target: DesktopMedium, MaxVerticesPerMesh: 50000, MaxTrianglesPerMesh: 75000,
		MaxTextureResolution: 2048, MaxMaterialsPerMesh: 8,
		UseTextureCompression: true, MergeSmallMeshes: true, Aggressiveness: 0.25,
	},
	MobileHigh: {
		Target: MobileHigh, MaxVerticesPerMesh: 20000, MaxTrianglesPerMesh: 30000,
		MaxTextureResolution: 1024, MaxMaterialsPerMesh: 4,
		UseVertexCompression: true, UseTextureCompression: true, UseNormalCompression: true,
		MergeSmallMeshes: true, Aggressiveness: 0.5,
	},
	MobileMedium: {
		Target: MobileMedium, MaxVerticesPerMesh: 10000, MaxTrianglesPerMesh: 15000,
		MaxTextureResolution: 512, MaxMaterialsPerMesh: 2,
		UseVertexCompression: true, UseTextureCompression: true, UseNormalCompression: true,
		MergeSmallMeshes: true, Aggressiveness: 0.7,
	},
	WebGL2: {
		Target: WebGL2, MaxVerticesPerMesh: 30000, MaxTrianglesPerMesh: 45000,
		MaxTextureResolution: 2048, MaxMaterialsPerMesh: 4,
		UseVertexCompression: true, UseTextureCompression: true,
		MergeSmallMeshes: true, Aggressiveness: 0.4,
	},
	WebGL1: {
		Target: WebGL1, MaxVerticesPerMesh: 16000, MaxTrianglesPerMesh: 20000,
		MaxTextureResolution: 1024, MaxMaterialsPerMesh: 2,
		UseVertexCompression: true, UseTextureCompression: true, UseNormalCompression: true,
		MergeSmallMeshes: true, Aggressiveness: 0.6,
	},
}

// ProfileFor returns the built-in profile of a target.
func ProfileFor(t Target) (Profile, error) {
	p, ok := profiles[t]
	if !ok {
		return Profile{}, errors.Wrapf(ErrInvalidProfile, "unknown target %d", int(t))
	}
	p.MergeDistance = defaultMergeDistance
	return p, nil
}

// DefaultProfile is the desktop_high profile.
func DefaultProfile() Profile {
	p, _ := ProfileFor(DesktopHigh)
	return p
}

func (p Profile) Validate() error {
	var issues []string
	if _, ok := profiles[p.Target]; !ok {
		issues = append(issues, fmt.Sprintf("unknown target %d", int(p.Target)))
	}
	if p.MaxVerticesPerMesh < 3 {
		issues = append(issues, fmt.Sprintf("max_vertices_per_mesh %d below 3", p.MaxVerticesPerMesh))
	}
	if p.MaxTrianglesPerMesh < 1 {
		issues = append(issues, fmt.Sprintf("max_triangles_per_mesh %d below 1", p.MaxTrianglesPerMesh))
	}
	if p.MaxTextureResolution < 1 {
		issues = append(issues, fmt.Sprintf("max_texture_resolution %d below 1", p.MaxTextureResolution))
	}
	if p.MaxMaterialsPerMesh < 1 {
		issues = append(issues, fmt.Sprintf("max_materials_per_mesh %d below 1", p.MaxMaterialsPerMesh))
	}
	if !(p.Aggressiveness >= 0 && p.Aggressiveness <= 1) {
		issues = append(issues, fmt.Sprintf("simplification_aggressiveness %v outside [0,1]", p.Aggressiveness))
	}
	if !(p.MergeDistance >= 0) {
		issues = append(issues, fmt.Sprintf("merge_distance %v is negative", p.MergeDistance))
	}
	if len(issues) > 0 {
		return errors.Wrap(ErrInvalidProfile, strings.Join(issues, "; "))
	}
	return nil
}
