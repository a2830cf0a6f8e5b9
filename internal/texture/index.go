package texture

import (
	"os"
	"path/filepath"
	"strings"
)

// extPriority ranks decodable formats; formats with alpha win over those without.
var extPriority = map[string]int{
	".tga":  4,
	".png":  3,
	".bmp":  2,
	".jpg":  1,
	".jpeg": 1,
}

// Stem normalises a texture reference to its lowercase base name without extension.
// POF texture names use either slash and may or may not carry an extension.
func Stem(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" && len(ext) <= 5 {
		base = strings.TrimSuffix(base, ext)
	}
	return strings.ToLower(base)
}

// Index maps lowercase texture stems to filesystem paths.
type Index struct {
	entries map[string]string
}

func NewIndex() *Index {
	return &Index{entries: make(map[string]string)}
}

// BuildIndex walks the given directories for decodable images. Later directories only add
// stems the earlier ones lack; within a directory the higher-priority format wins.
func BuildIndex(dirs ...string) *Index {
	idx := NewIndex()
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		found := map[string]string{}
		filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if extPriority[ext] == 0 {
				return nil
			}
			stem := Stem(path)
			if existing, ok := found[stem]; !ok || extPriority[ext] > extPriority[strings.ToLower(filepath.Ext(existing))] {
				found[stem] = path
			}
			return nil
		})
		for stem, path := range found {
			if _, ok := idx.entries[stem]; !ok {
				idx.entries[stem] = path
			}
		}
	}
	return idx
}

// Add registers path under its stem, replacing any earlier entry.
func (idx *Index) Add(path string) {
	idx.entries[Stem(path)] = path
}

// ResolvePath returns the filesystem path for a texture name, or ("", false).
func (idx *Index) ResolvePath(texName string) (string, bool) {
	path, ok := idx.entries[Stem(texName)]
	return path, ok
}

func (idx *Index) Has(texName string) bool {
	_, ok := idx.ResolvePath(texName)
	return ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	return len(idx.entries)
}
