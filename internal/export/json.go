package export

import (
	"encoding/json"
	"path/filepath"

	"github.com/pkg/errors"

	"wcs-converter/internal/scene"
)

// JSON writes the scene graph as an indented JSON descriptor next to OBJ meshes.
type JSON struct{}

type descriptor struct {
	*scene.Scene
	Format string            `json:"format"`
	Meshes map[string]string `json:"meshes,omitempty"`
}

func (JSON) Write(s *scene.Scene, dir string) ([]string, error) {
	surfaceName := func(texture uint32) string {
		if int64(texture) < int64(len(s.Materials)) {
			return sanitize(s.Materials[texture].Name)
		}
		return untexturedName
	}
	created, meshes, err := writeMeshes(s, dir, surfaceName)
	if err != nil {
		return created, err
	}
	for name, rel := range meshes {
		meshes[name] = filepath.ToSlash(rel)
	}

	data, err := json.MarshalIndent(descriptor{Scene: s, Format: FormatJSON, Meshes: meshes}, "", "  ")
	if err != nil {
		return created, errors.Wrapf(err, "export: marshal %s", s.Name)
	}
	path, err := writeFile(dir, sanitize(s.Name)+".json", data)
	if err != nil {
		return created, err
	}
	return append(created, path), nil
}
