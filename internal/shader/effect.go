package shader

import (
	"fmt"
	"strings"

	"wcs-converter/internal/material"
)

// Effect is the primary special effect of a material.
type Effect int

const (
	EffectNone Effect = iota
	EffectCloak
	EffectSelfIllum
	EffectAnimated
	EffectThruster
	EffectEngineGlow
	EffectShieldImpact
	EffectWeaponFlash
	EffectDamageDecal
	EffectEnvironmentMap
	EffectGlow
)

var effectNames = [...]string{
	"none", "cloak", "self_illumination", "animated", "thruster", "engine_glow",
	"shield_impact", "weapon_flash", "damage_decal", "environment_map", "glow",
}

func (e Effect) String() string {
	if e >= 0 && int(e) < len(effectNames) {
		return effectNames[e]
	}
	return fmt.Sprintf("effect(%d)", int(e))
}

func (e Effect) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// rule matches a material by render mode, by name keyword or by a predicate. Any match wins.
type rule struct {
	effect   Effect
	modes    []material.RenderMode
	keywords []string
	match    func(src *material.Source) bool
}

// rules are tried in order; the first match is the primary effect.
var rules = []rule{
	{effect: EffectCloak, modes: []material.RenderMode{material.Cloak}, keywords: []string{"cloak"}},
	{effect: EffectSelfIllum, modes: []material.RenderMode{material.SelfIllum}, keywords: []string{"selfillum", "self_illum"}},
	{effect: EffectAnimated, match: func(src *material.Source) bool { return src.Animated && src.FrameCount > 1 }},
	{effect: EffectThruster, keywords: []string{"thruster", "exhaust", "afterburn"}},
	{effect: EffectEngineGlow, keywords: []string{"engine"}},
	{effect: EffectShieldImpact, keywords: []string{"shield"}},
	{effect: EffectWeaponFlash, keywords: []string{"muzzle", "flash", "weapon"}},
	{effect: EffectDamageDecal, keywords: []string{"damage", "scorch", "decal"}},
	{effect: EffectEnvironmentMap, keywords: []string{"envmap", "chrome", "reflect"},
		match: func(src *material.Source) bool { return src.RenderMode == material.Specular && src.SpecularTexture != "" }},
	{effect: EffectGlow, modes: []material.RenderMode{material.Glow}, keywords: []string{"glow"},
		match: func(src *material.Source) bool { return src.GlowTexture != "" }},
}

func (r *rule) matches(src *material.Source, name string) bool {
	for _, m := range r.modes {
		if src.RenderMode == m {
			return true
		}
	}
	for _, k := range r.keywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return r.match != nil && r.match(src)
}

// Identify returns the primary effect of src, or EffectNone for a plain material.
func Identify(src *material.Source) Effect {
	name := strings.ToLower(src.Name + " " + src.DiffuseTexture)
	for i := range rules {
		if rules[i].matches(src, name) {
			return rules[i].effect
		}
	}
	return EffectNone
}
