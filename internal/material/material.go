// Package material converts source-game material properties into PBR material descriptors.
package material

import (
	"github.com/chewxy/math32"

	"wcs-converter/internal/mathutil"
)

const (
	MaxShininess = 128
	// opaqueAlpha is the albedo alpha at or above which blending is dropped.
	opaqueAlpha   = 0.99
	glassMetallic = 0.1
)

// Source holds the material properties the source game knows about. Transparency is the albedo
// alpha: 1 is opaque and the zero value is fully transparent, so build sources with DefaultSource
// or FromTexture rather than a bare literal.
type Source struct {
	Name            string     `json:"name"`
	DiffuseColor    [3]float32 `json:"diffuse_color"`
	SpecularColor   [3]float32 `json:"specular_color"`
	Shininess       float32    `json:"shininess"`
	Transparency    float32    `json:"transparency"`
	DiffuseTexture  string     `json:"diffuse_texture,omitempty"`
	GlowTexture     string     `json:"glow_texture,omitempty"`
	SpecularTexture string     `json:"specular_texture,omitempty"`
	NormalTexture   string     `json:"normal_texture,omitempty"`
	GlowIntensity   float32    `json:"glow_intensity"`
	RenderMode      RenderMode `json:"render_mode"`
	Animated        bool       `json:"animated"`
	FrameCount      int        `json:"frame_count"`
}

// DefaultSource is an opaque white material with a dull grey highlight.
func DefaultSource(name string) Source {
	return Source{
		Name:          name,
		DiffuseColor:  [3]float32{1, 1, 1},
		SpecularColor: [3]float32{0.2, 0.2, 0.2},
		Shininess:     16,
		Transparency:  1,
		GlowIntensity: 1,
	}
}

// Descriptor is the engine-side material.
type Descriptor struct {
	Name             string           `json:"name"`
	AlbedoColor      [4]float32       `json:"albedo_color"`
	AlbedoTexture    string           `json:"albedo_texture,omitempty"`
	Metallic         float32          `json:"metallic"`
	MetallicTexture  string           `json:"metallic_texture,omitempty"`
	Roughness        float32          `json:"roughness"`
	NormalEnabled    bool             `json:"normal_enabled"`
	NormalTexture    string           `json:"normal_texture,omitempty"`
	EmissionEnabled  bool             `json:"emission_enabled"`
	Emission         [3]float32       `json:"emission"`
	EmissionTexture  string           `json:"emission_texture,omitempty"`
	EmissionEnergy   float32          `json:"emission_energy"`
	TransparencyMode TransparencyMode `json:"transparency_mode"`
	BlendMode        BlendMode        `json:"blend_mode"`
	ShadingMode      ShadingMode      `json:"shading_mode"`
	SpecularMode     SpecularMode     `json:"specular_mode"`
	TextureFilter    TextureFilter    `json:"texture_filter"`
	RenderMode       RenderMode       `json:"render_mode"`
	Animated         bool             `json:"animated"`
	FrameCount       int              `json:"frame_count"`
}

// Convert maps src to a descriptor and runs the performance pass. It has no hidden state, so
// equal inputs give equal descriptors.
func Convert(src Source) Descriptor {
	return Optimize(convert(src))
}

func convert(src Source) Descriptor {
	alpha := mathutil.Saturate(src.Transparency)
	d := Descriptor{
		Name:             src.Name,
		AlbedoColor:      [4]float32{src.DiffuseColor[0], src.DiffuseColor[1], src.DiffuseColor[2], alpha},
		AlbedoTexture:    src.DiffuseTexture,
		Metallic:         0.5 * mean(src.SpecularColor),
		MetallicTexture:  src.SpecularTexture,
		Roughness:        1 - mathutil.Clamp(src.Shininess, 0, MaxShininess)/MaxShininess,
		NormalEnabled:    src.NormalTexture != "",
		NormalTexture:    src.NormalTexture,
		EmissionTexture:  src.GlowTexture,
		TransparencyMode: Opaque,
		BlendMode:        BlendMix,
		ShadingMode:      ShadingPerPixel,
		SpecularMode:     SpecularSchlickGGX,
		TextureFilter:    FilterLinearMipmapAniso,
		RenderMode:       src.RenderMode,
		Animated:         src.Animated,
		FrameCount:       max(src.FrameCount, 0),
	}
	if src.GlowTexture != "" {
		d.enableEmission(src)
	}

	switch src.RenderMode {
	case Glow:
		d.enableEmission(src)
	case Transparent, Cloak:
		d.TransparencyMode = AlphaBlend
	case Additive:
		d.TransparencyMode = AlphaBlend
		d.BlendMode = BlendAdd
		d.SpecularMode = SpecularDisabled
	case Glass:
		d.TransparencyMode = AlphaBlend
		d.Metallic = glassMetallic
		d.Roughness = 0
	case SelfIllum:
		d.ShadingMode = ShadingUnshaded
		d.enableEmission(src)
	}

	if alpha < 1 && d.TransparencyMode == Opaque {
		d.TransparencyMode = AlphaBlend
	}
	return d
}

func (d *Descriptor) enableEmission(src Source) {
	d.EmissionEnabled = true
	d.Emission = src.DiffuseColor
	d.EmissionEnergy = math32.Max(src.GlowIntensity, 0)
}

// Optimize drops features the descriptor cannot use: normal mapping without a normal texture,
// blending on an opaque albedo unless the render mode itself blends, and per-pixel shading on
// a material with nothing to shade per pixel.
func Optimize(d Descriptor) Descriptor {
	if d.NormalTexture == "" {
		d.NormalEnabled = false
	}
	if d.AlbedoColor[3] >= opaqueAlpha && !d.RenderMode.blends() {
		d.TransparencyMode = Opaque
	}
	if d.trivial() {
		d.ShadingMode = ShadingPerVertex
	}
	return d
}

// trivial materials are untextured, non-emissive, opaque and lit.
func (d *Descriptor) trivial() bool {
	return d.AlbedoTexture == "" && d.MetallicTexture == "" && d.NormalTexture == "" && d.EmissionTexture == "" &&
		!d.EmissionEnabled && d.TransparencyMode == Opaque && d.ShadingMode == ShadingPerPixel && !d.Animated
}

func mean(c [3]float32) float32 { return (c[0] + c[1] + c[2]) / 3 }
