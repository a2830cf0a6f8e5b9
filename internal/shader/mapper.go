// Package shader picks engine shaders for converted materials: a standard material for plain
// surfaces or one of a fixed set of custom templates for the source game's special effects.
package shader

import (
	"github.com/chewxy/math32"

	"wcs-converter/internal/material"
	"wcs-converter/internal/mathutil"
)

// Template is a named custom shader shipped with the converted assets.
type Template struct {
	Name       string
	Complexity int
}

var templates = map[Effect]Template{
	EffectCloak:          {"wcs_cloak", 3},
	EffectSelfIllum:      {"wcs_self_illumination", 1},
	EffectAnimated:       {"wcs_animated_texture", 2},
	EffectThruster:       {"wcs_thruster", 3},
	EffectEngineGlow:     {"wcs_engine_glow", 2},
	EffectShieldImpact:   {"wcs_shield_impact", 2},
	EffectWeaponFlash:    {"wcs_weapon_flash", 1},
	EffectDamageDecal:    {"wcs_damage_decal", 1},
	EffectEnvironmentMap: {"wcs_environment_map", 2},
	EffectGlow:           {"wcs_glow", 1},
}

// TemplateFor returns the custom template for an effect.
func TemplateFor(e Effect) (Template, bool) {
	t, ok := templates[e]
	return t, ok
}

// Mapping is the shader chosen for one material. An empty Template means the standard
// material; Parameters are still filled so a writer can bake them into it.
type Mapping struct {
	Material   string             `json:"material"`
	Effect     Effect             `json:"effect"`
	Template   string             `json:"template,omitempty"`
	Complexity int                `json:"complexity"`
	Simplified bool               `json:"simplified,omitempty"`
	Parameters map[string]float32 `json:"parameters,omitempty"`
	Textures   map[string]string  `json:"textures,omitempty"`
}

// Standard reports whether the mapping uses the engine's standard material.
func (m *Mapping) Standard() bool { return m.Template == "" }

type Mapper struct {
	cfg Configuration
}

// NewMapper validates cfg and returns a mapper using it.
func NewMapper(cfg Configuration) (*Mapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Mapper{cfg: cfg}, nil
}

// Map picks the shader for src at full detail.
func (mp *Mapper) Map(src material.Source) Mapping {
	return mp.ForLevel(src, 0)
}

// ForLevel picks the shader for src at an LOD level. With dynamic LOD enabled the allowed
// template complexity drops by one every two levels; a template above the limit falls back
// to the standard material.
func (mp *Mapper) ForLevel(src material.Source, level int) Mapping {
	effect := Identify(&src)
	m := Mapping{
		Material:   src.Name,
		Effect:     effect,
		Complexity: MinComplexity,
		Parameters: mp.parameters(effect, &src),
		Textures:   textures(&src),
	}
	t, ok := templates[effect]
	if !ok {
		return m
	}
	if t.Complexity > mp.cfg.complexityLimit(level) {
		m.Simplified = true
		return m
	}
	m.Template = t.Name
	m.Complexity = t.Complexity
	return m
}

// MapAll maps every source material in order.
func (mp *Mapper) MapAll(srcs []material.Source) []Mapping {
	out := make([]Mapping, len(srcs))
	for i, src := range srcs {
		out[i] = mp.Map(src)
	}
	return out
}

func (mp *Mapper) parameters(effect Effect, src *material.Source) map[string]float32 {
	c := mp.cfg
	energy := math32.Max(src.GlowIntensity, 0) * c.GlowIntensityMultiplier
	p := map[string]float32{}
	switch effect {
	case EffectNone:
		return nil
	case EffectCloak:
		p["distortion_strength"] = c.CloakDistortionStrength
		p["noise_scale"] = c.CloakNoiseScale
		p["alpha"] = mathutil.Saturate(src.Transparency)
	case EffectSelfIllum:
		p["emission_energy"] = energy
	case EffectAnimated:
		frames := float32(src.FrameCount)
		p["frame_count"] = frames
		p["fps"] = c.TextureAnimationFPS
		p["duration"] = frames / c.TextureAnimationFPS
		p["emission_energy"] = energy
	case EffectThruster:
		p["flame_temperature"] = FlameTemperature(src.DiffuseColor)
		p["flicker_frequency"] = c.ThrusterFlickerFrequency
		p["emission_energy"] = energy
		p["bloom_threshold"] = c.GlowBloomThreshold
	case EffectEngineGlow:
		p["emission_energy"] = energy
		p["pulse_frequency"] = c.ThrusterFlickerFrequency / 2
		p["bloom_threshold"] = c.GlowBloomThreshold
	case EffectShieldImpact:
		p["emission_energy"] = energy
		p["alpha"] = mathutil.Saturate(src.Transparency)
		p["impact_fade"] = 1
	case EffectWeaponFlash:
		p["emission_energy"] = energy
		p["flash_duration"] = 0.1
	case EffectDamageDecal:
		p["roughness"] = roughness(src.Shininess)
		p["alpha"] = mathutil.Saturate(src.Transparency)
	case EffectEnvironmentMap:
		p["reflectivity"] = (src.SpecularColor[0] + src.SpecularColor[1] + src.SpecularColor[2]) / 3
		p["roughness"] = roughness(src.Shininess)
	case EffectGlow:
		p["emission_energy"] = energy
		p["bloom_threshold"] = c.GlowBloomThreshold
	}
	return p
}

func roughness(shininess float32) float32 {
	return 1 - mathutil.Clamp(shininess, 0, material.MaxShininess)/material.MaxShininess
}

// Flame temperature range in kelvin; bluer flames are hotter.
const (
	minFlameTemp = 1500
	maxFlameTemp = 6000
)

// FlameTemperature estimates a thruster's flame temperature from its diffuse colour by the
// share of blue in it.
func FlameTemperature(rgb [3]float32) float32 {
	sum := rgb[0] + rgb[1] + rgb[2]
	if !(sum > 0) {
		return minFlameTemp
	}
	blue := mathutil.Saturate(rgb[2] / sum * 3 / 2)
	return minFlameTemp + blue*(maxFlameTemp-minFlameTemp)
}

func textures(src *material.Source) map[string]string {
	t := map[string]string{}
	for slot, name := range map[string]string{
		"albedo":   src.DiffuseTexture,
		"emission": src.GlowTexture,
		"specular": src.SpecularTexture,
		"normal":   src.NormalTexture,
	} {
		if name != "" {
			t[slot] = name
		}
	}
	if len(t) == 0 {
		return nil
	}
	return t
}
