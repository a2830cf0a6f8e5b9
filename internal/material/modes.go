package material

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// RenderMode is the source game's coarse shading intent.
type RenderMode int

const (
	Normal RenderMode = iota
	Glow
	Transparent
	Additive
	Glass
	Specular
	SelfIllum
	Cloak
)

var renderModeNames = [...]string{"normal", "glow", "transparent", "additive", "glass", "specular", "selfillum", "cloak"}

func (m RenderMode) String() string {
	if m >= 0 && int(m) < len(renderModeNames) {
		return renderModeNames[m]
	}
	return fmt.Sprintf("render_mode(%d)", int(m))
}

func (m RenderMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *RenderMode) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	for i, n := range renderModeNames {
		if n == name {
			*m = RenderMode(i)
			return nil
		}
	}
	return errors.Errorf("material: unknown render mode %q", string(b))
}

// blends reports whether the mode needs blending whatever the alpha.
func (m RenderMode) blends() bool {
	switch m {
	case Transparent, Additive, Glass, Cloak:
		return true
	}
	return false
}

type TransparencyMode string

const (
	Opaque       TransparencyMode = "opaque"
	AlphaBlend   TransparencyMode = "alpha_blend"
	AlphaScissor TransparencyMode = "alpha_scissor"
)

type BlendMode string

const (
	BlendMix BlendMode = "mix"
	BlendAdd BlendMode = "add"
	BlendSub BlendMode = "sub"
	BlendMul BlendMode = "mul"
)

type ShadingMode string

const (
	ShadingPerPixel  ShadingMode = "per_pixel"
	ShadingPerVertex ShadingMode = "per_vertex"
	ShadingUnshaded  ShadingMode = "unshaded"
)

type SpecularMode string

const (
	SpecularSchlickGGX SpecularMode = "schlick_ggx"
	SpecularToon       SpecularMode = "toon"
	SpecularDisabled   SpecularMode = "disabled"
)

type TextureFilter string

const (
	FilterNearest           TextureFilter = "nearest"
	FilterLinear            TextureFilter = "linear"
	FilterLinearMipmap      TextureFilter = "linear_mipmap"
	FilterLinearMipmapAniso TextureFilter = "linear_mipmap_anisotropic"
)
