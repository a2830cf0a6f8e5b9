package texture

import (
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"
	"github.com/pkg/errors"
)

// Encode writes img as lossless WebP.
func Encode(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return errors.Wrap(err, "texture: webp encode")
	}
	return nil
}

// Export resolves texName, downscales it to maxSize and writes dir/<stem>.webp. It returns the
// written path.
func Export(r Resolver, texName, dir string, maxSize int) (string, error) {
	return ExportScaled(r, texName, dir, Stem(texName), maxSize, 1)
}

// ExportScaled writes dir/<name>.webp with the longer side limited to maxSize and then scaled by
// factor, as an LOD level asks for.
func ExportScaled(r Resolver, texName, dir, name string, maxSize int, factor float32) (string, error) {
	img := r.Resolve(texName)
	if img == nil {
		return "", errors.Errorf("texture: %s not found", texName)
	}
	b := img.Bounds()
	img = Downscale(img, TargetSize(max(b.Dx(), b.Dy()), maxSize, factor))

	out := filepath.Join(dir, name+".webp")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "texture")
	}
	f, err := os.Create(out)
	if err != nil {
		return "", errors.Wrap(err, "texture")
	}
	defer f.Close()
	if err := Encode(f, img); err != nil {
		return "", err
	}
	return out, f.Close()
}
