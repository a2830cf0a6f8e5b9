package shader

import (
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wcs-converter/internal/material"
)

func source(name string, mode material.RenderMode) material.Source {
	src := material.DefaultSource(name)
	src.DiffuseTexture = name
	src.RenderMode = mode
	return src
}

func TestIdentify(t *testing.T) {
	animated := source("explosion", material.Normal)
	animated.Animated = true
	animated.FrameCount = 8

	oneFrame := source("hull01", material.Normal)
	oneFrame.Animated = true
	oneFrame.FrameCount = 1

	glowMap := source("hull01", material.Normal)
	glowMap.GlowTexture = "hull01-glow"

	env := source("plating", material.Specular)
	env.SpecularTexture = "plating-shine"

	cases := []struct {
		name string
		src  material.Source
		want Effect
	}{
		{"cloak mode", source("hull01", material.Cloak), EffectCloak},
		{"cloak name", source("cloakmap", material.Normal), EffectCloak},
		{"self illum", source("cockpit", material.SelfIllum), EffectSelfIllum},
		{"animated", animated, EffectAnimated},
		{"single frame", oneFrame, EffectNone},
		{"thruster", source("thruster01", material.Additive), EffectThruster},
		{"engine glow", source("engine-glow", material.Glow), EffectEngineGlow},
		{"shield", source("shield_hit", material.Transparent), EffectShieldImpact},
		{"muzzle", source("muzzle01", material.Additive), EffectWeaponFlash},
		{"scorch", source("scorchmark", material.Transparent), EffectDamageDecal},
		{"environment", env, EffectEnvironmentMap},
		{"specular without map", source("plating", material.Specular), EffectNone},
		{"glow mode", source("lamp", material.Glow), EffectGlow},
		{"glow texture", glowMap, EffectGlow},
		{"plain", source("hull01", material.Normal), EffectNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Identify(&tc.src))
		})
	}
}

func TestEveryEffectHasTemplate(t *testing.T) {
	for e := EffectCloak; e <= EffectGlow; e++ {
		tmpl, ok := TemplateFor(e)
		require.True(t, ok, e.String())
		assert.NotEmpty(t, tmpl.Name)
		assert.GreaterOrEqual(t, tmpl.Complexity, MinComplexity)
		assert.LessOrEqual(t, tmpl.Complexity, MaxComplexity)
	}
	_, ok := TemplateFor(EffectNone)
	assert.False(t, ok)
}

func TestMapStandard(t *testing.T) {
	mp, err := NewMapper(DefaultConfiguration())
	require.NoError(t, err)

	m := mp.Map(source("hull01", material.Normal))
	assert.True(t, m.Standard())
	assert.Equal(t, EffectNone, m.Effect)
	assert.Nil(t, m.Parameters)
	assert.Equal(t, map[string]string{"albedo": "hull01"}, m.Textures)
}

func TestMapParameters(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.GlowIntensityMultiplier = 2
	mp, err := NewMapper(cfg)
	require.NoError(t, err)

	glow := source("lamp", material.Glow)
	glow.GlowIntensity = 1.5
	m := mp.Map(glow)
	assert.Equal(t, "wcs_glow", m.Template)
	assert.InDelta(t, 3, m.Parameters["emission_energy"], 1e-6)
	assert.InDelta(t, 0.8, m.Parameters["bloom_threshold"], 1e-6)

	anim := source("explosion", material.Normal)
	anim.Animated = true
	anim.FrameCount = 30
	m = mp.Map(anim)
	assert.Equal(t, "wcs_animated_texture", m.Template)
	assert.Equal(t, float32(30), m.Parameters["frame_count"])
	assert.InDelta(t, 2, m.Parameters["duration"], 1e-6)

	thruster := source("thruster01", material.Additive)
	thruster.DiffuseColor = [3]float32{0, 0, 1}
	m = mp.Map(thruster)
	assert.Equal(t, "wcs_thruster", m.Template)
	assert.Equal(t, float32(maxFlameTemp), m.Parameters["flame_temperature"])
	assert.Equal(t, float32(10), m.Parameters["flicker_frequency"])

	cloak := source("hull01", material.Cloak)
	cloak.Transparency = 0.25
	m = mp.Map(cloak)
	assert.Equal(t, "wcs_cloak", m.Template)
	assert.Equal(t, 3, m.Complexity)
	assert.InDelta(t, 0.25, m.Parameters["alpha"], 1e-6)
	assert.InDelta(t, 0.1, m.Parameters["distortion_strength"], 1e-6)
}

func TestFlameTemperature(t *testing.T) {
	assert.Equal(t, float32(minFlameTemp), FlameTemperature([3]float32{1, 0, 0}))
	assert.Equal(t, float32(minFlameTemp), FlameTemperature([3]float32{}))
	assert.InDelta(t, 3750, FlameTemperature([3]float32{1, 1, 1}), 1e-3)
	assert.Equal(t, float32(maxFlameTemp), FlameTemperature([3]float32{0.2, 0.2, 1}))
}

func TestComplexityLimits(t *testing.T) {
	cloak := source("hull01", material.Cloak)

	cfg := DefaultConfiguration()
	cfg.MaxShaderComplexity = 2
	mp, err := NewMapper(cfg)
	require.NoError(t, err)
	m := mp.Map(cloak)
	assert.True(t, m.Standard())
	assert.True(t, m.Simplified)
	assert.Equal(t, EffectCloak, m.Effect)
	assert.NotEmpty(t, m.Parameters)

	cfg = DefaultConfiguration()
	cfg.UseSimplifiedShaders = true
	mp, err = NewMapper(cfg)
	require.NoError(t, err)
	assert.True(t, mp.Map(cloak).Standard())
	assert.Equal(t, "wcs_glow", mp.Map(source("lamp", material.Glow)).Template)
}

func TestDynamicLOD(t *testing.T) {
	cloak := source("hull01", material.Cloak)
	engine := source("engine-glow", material.Glow)

	mp, err := NewMapper(DefaultConfiguration())
	require.NoError(t, err)
	assert.Equal(t, "wcs_cloak", mp.ForLevel(cloak, 1).Template)
	assert.True(t, mp.ForLevel(cloak, 2).Standard())
	assert.Equal(t, "wcs_engine_glow", mp.ForLevel(engine, 2).Template)
	assert.True(t, mp.ForLevel(engine, 4).Standard())
	assert.Equal(t, "wcs_glow", mp.ForLevel(source("lamp", material.Glow), 7).Template)

	cfg := DefaultConfiguration()
	cfg.EnableDynamicLOD = false
	mp, err = NewMapper(cfg)
	require.NoError(t, err)
	assert.Equal(t, "wcs_cloak", mp.ForLevel(cloak, 7).Template)
}

func TestConfigurationValidate(t *testing.T) {
	require.NoError(t, DefaultConfiguration().Validate())

	cfg := DefaultConfiguration()
	cfg.MaxShaderComplexity = 4
	cfg.TextureAnimationFPS = 0
	cfg.CloakDistortionStrength = 2
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "max_shader_complexity 4")
	assert.Contains(t, err.Error(), "texture_animation_fps")
	assert.Contains(t, err.Error(), "cloak_distortion_strength")

	_, err = NewMapper(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestConfigurationTOML(t *testing.T) {
	doc := `
glow_intensity_multiplier = 1.5
max_shader_complexity = 2
use_simplified_shaders = true
`
	cfg := DefaultConfiguration()
	require.NoError(t, toml.Unmarshal([]byte(doc), &cfg))
	assert.Equal(t, float32(1.5), cfg.GlowIntensityMultiplier)
	assert.Equal(t, 2, cfg.MaxShaderComplexity)
	assert.True(t, cfg.UseSimplifiedShaders)
	assert.Equal(t, float32(15), cfg.TextureAnimationFPS)
}
