package shader

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidConfiguration = errors.New("shader: invalid configuration")

const (
	MinComplexity = 1
	MaxComplexity = 3
)

// Configuration tunes the custom shader templates. It is the [shader] section of the
// converter configuration.
type Configuration struct {
	GlowIntensityMultiplier  float32 `toml:"glow_intensity_multiplier" json:"glow_intensity_multiplier"`
	GlowBloomThreshold       float32 `toml:"glow_bloom_threshold" json:"glow_bloom_threshold"`
	TextureAnimationFPS      float32 `toml:"texture_animation_fps" json:"texture_animation_fps"`
	CloakDistortionStrength  float32 `toml:"cloak_distortion_strength" json:"cloak_distortion_strength"`
	CloakNoiseScale          float32 `toml:"cloak_noise_scale" json:"cloak_noise_scale"`
	ThrusterFlickerFrequency float32 `toml:"thruster_flicker_frequency" json:"thruster_flicker_frequency"`
	UseSimplifiedShaders     bool    `toml:"use_simplified_shaders" json:"use_simplified_shaders"`
	MaxShaderComplexity      int     `toml:"max_shader_complexity" json:"max_shader_complexity"`
	EnableDynamicLOD         bool    `toml:"enable_dynamic_lod" json:"enable_dynamic_lod"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		GlowIntensityMultiplier:  1,
		GlowBloomThreshold:       0.8,
		TextureAnimationFPS:      15,
		CloakDistortionStrength:  0.1,
		CloakNoiseScale:          1,
		ThrusterFlickerFrequency: 10,
		MaxShaderComplexity:      MaxComplexity,
		EnableDynamicLOD:         true,
	}
}

func (c Configuration) Validate() error {
	var issues []string
	if !(c.GlowIntensityMultiplier >= 0) {
		issues = append(issues, fmt.Sprintf("glow_intensity_multiplier %v is negative", c.GlowIntensityMultiplier))
	}
	if !(c.GlowBloomThreshold >= 0) {
		issues = append(issues, fmt.Sprintf("glow_bloom_threshold %v is negative", c.GlowBloomThreshold))
	}
	if !(c.TextureAnimationFPS > 0) {
		issues = append(issues, fmt.Sprintf("texture_animation_fps %v must be positive", c.TextureAnimationFPS))
	}
	if !(c.CloakDistortionStrength >= 0 && c.CloakDistortionStrength <= 1) {
		issues = append(issues, fmt.Sprintf("cloak_distortion_strength %v outside [0,1]", c.CloakDistortionStrength))
	}
	if !(c.CloakNoiseScale > 0) {
		issues = append(issues, fmt.Sprintf("cloak_noise_scale %v must be positive", c.CloakNoiseScale))
	}
	if !(c.ThrusterFlickerFrequency >= 0) {
		issues = append(issues, fmt.Sprintf("thruster_flicker_frequency %v is negative", c.ThrusterFlickerFrequency))
	}
	if c.MaxShaderComplexity < MinComplexity || c.MaxShaderComplexity > MaxComplexity {
		issues = append(issues, fmt.Sprintf("max_shader_complexity %d outside [%d,%d]", c.MaxShaderComplexity, MinComplexity, MaxComplexity))
	}
	if len(issues) > 0 {
		return errors.Wrap(ErrInvalidConfiguration, strings.Join(issues, "; "))
	}
	return nil
}

// complexityLimit is the highest template complexity allowed at an LOD level.
func (c Configuration) complexityLimit(level int) int {
	limit := c.MaxShaderComplexity
	if c.UseSimplifiedShaders {
		limit = MinComplexity
	}
	if c.EnableDynamicLOD && level > 0 {
		limit -= level / 2
	}
	return max(limit, MinComplexity)
}
