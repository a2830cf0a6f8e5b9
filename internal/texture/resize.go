package texture

import (
	"image"

	"golang.org/x/image/draw"
)

// Downscale shrinks img so its longer side is at most maxSize, keeping the aspect ratio, with
// premultiplied-alpha Catmull-Rom filtering so transparent edges do not darken. Images already
// small enough are returned as is.
func Downscale(img *image.NRGBA, maxSize int) *image.NRGBA {
	b := img.Bounds()
	if maxSize <= 0 || (b.Dx() <= maxSize && b.Dy() <= maxSize) {
		return img
	}
	w, h := maxSize, maxSize
	if b.Dx() > b.Dy() {
		h = max(1, b.Dy()*maxSize/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, b.Dx()*maxSize/b.Dy())
	}

	premul := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := premul.PixOffset(x, y)
			a := uint32(img.Pix[si+3])
			premul.Pix[di] = uint8((uint32(img.Pix[si])*a + 127) / 255)
			premul.Pix[di+1] = uint8((uint32(img.Pix[si+1])*a + 127) / 255)
			premul.Pix[di+2] = uint8((uint32(img.Pix[si+2])*a + 127) / 255)
			premul.Pix[di+3] = img.Pix[si+3]
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	out := image.NewNRGBA(dst.Bounds())
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		a := uint32(dst.Pix[i+3])
		if a > 0 {
			out.Pix[i] = unpremul(dst.Pix[i], a)
			out.Pix[i+1] = unpremul(dst.Pix[i+1], a)
			out.Pix[i+2] = unpremul(dst.Pix[i+2], a)
		}
		out.Pix[i+3] = dst.Pix[i+3]
	}
	return out
}

func unpremul(c uint8, a uint32) uint8 {
	return uint8(min(255, (uint32(c)*255+a/2)/a))
}

// TargetSize is the longest side allowed for a texture: the profile limit scaled by the LOD
// resolution factor, never below 1. A zero limit means unlimited.
func TargetSize(size, limit int, factor float32) int {
	if limit > 0 && size > limit {
		size = limit
	}
	if factor > 0 && factor < 1 {
		size = int(float32(size) * factor)
	}
	return max(size, 1)
}
