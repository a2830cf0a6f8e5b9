package material

import (
	"fmt"
	"strings"

	"wcs-converter/internal/texture"
)

// Lookup reports whether a texture stem can be resolved. *texture.Index satisfies it.
type Lookup interface {
	Has(name string) bool
}

// Companion suffixes the source game appends to a diffuse texture stem.
const (
	GlowSuffix   = "-glow"
	ShineSuffix  = "-shine"
	NormalSuffix = "-normal"
)

// maxFrames bounds the animation frame probe.
const maxFrames = 256

// modeKeywords is checked in order; the first keyword found in the stem sets the render mode.
var modeKeywords = []struct {
	mode     RenderMode
	keywords []string
}{
	{Cloak, []string{"cloak"}},
	{Glass, []string{"glass", "canopy", "window"}},
	{Additive, []string{"thruster", "exhaust", "flare", "beam", "shockwave"}},
	{Transparent, []string{"-trans", "alpha", "shield"}},
	{SelfIllum, []string{"selfillum", "lights", "-lit"}},
	{Glow, []string{"glow"}},
}

func inferMode(stem string) RenderMode {
	for _, mk := range modeKeywords {
		for _, k := range mk.keywords {
			if strings.Contains(stem, k) {
				return mk.mode
			}
		}
	}
	return Normal
}

// FromTexture derives a source material from a TXTR texture name. Companion glow, shine and
// normal maps and numbered animation frames are picked up when lookup resolves them; lookup
// may be nil.
func FromTexture(name string, lookup Lookup) Source {
	stem := texture.Stem(name)
	src := DefaultSource(stem)
	src.DiffuseTexture = stem
	src.RenderMode = inferMode(stem)

	has := func(s string) bool { return lookup != nil && lookup.Has(s) }
	if has(stem + GlowSuffix) {
		src.GlowTexture = stem + GlowSuffix
	}
	if has(stem + ShineSuffix) {
		src.SpecularTexture = stem + ShineSuffix
		src.SpecularColor = [3]float32{1, 1, 1}
		src.Shininess = 64
	}
	if has(stem + NormalSuffix) {
		src.NormalTexture = stem + NormalSuffix
	}
	for src.FrameCount < maxFrames && has(frameName(stem, src.FrameCount)) {
		src.FrameCount++
	}
	src.Animated = src.FrameCount > 1
	if src.RenderMode.blends() {
		src.Transparency = 0.5
	}
	return src
}

func frameName(stem string, frame int) string { return fmt.Sprintf("%s_%04d", stem, frame) }
