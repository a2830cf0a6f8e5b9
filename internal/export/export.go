// Package export writes lowered scenes to disk. Writers are pluggable: a Godot text-scene
// writer and a JSON descriptor writer share the OBJ mesh output.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"wcs-converter/internal/mathutil"
	"wcs-converter/internal/mesh"
	"wcs-converter/internal/scene"
)

var ErrUnknownFormat = errors.New("export: unknown format")

const (
	FormatGodot = "godot"
	FormatJSON  = "json"
)

// Writer persists a scene under dir and returns the paths it created.
type Writer interface {
	Write(s *scene.Scene, dir string) ([]string, error)
}

// New returns the writer for a format name. resRoot is the engine resource path dir maps to;
// empty means "res://<scene name>".
func New(format, resRoot string) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatGodot, "":
		return &Godot{ResourceRoot: resRoot}, nil
	case FormatJSON:
		return &JSON{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
}

// The source game is left-handed; the engine is right-handed. Mirroring X converts between
// them, and triangle winding is reversed to keep faces pointing outward.
func toEngine(v mathutil.Vec3) mathutil.Vec3 { return mathutil.Vec3{-v[0], v[1], v[2]} }

func quatToEngine(q mgl32.Quat) mgl32.Quat {
	return mgl32.Quat{W: q.W, V: mathutil.Vec3{q.V[0], -q.V[1], -q.V[2]}}
}

// sanitize makes s usable as a node or file name.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', ':', '@', '/', '\\', '"', '%', ' ', '*', '?', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return "unnamed"
	}
	return s
}

func meshFile(sceneName, meshName string) string {
	return filepath.Join("meshes", sanitize(sceneName)+"_"+sanitize(meshName)+".obj")
}

// writeFile creates dir/rel and its parents and writes data.
func writeFile(dir, rel string, data []byte) (string, error) {
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrap(err, "export")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrapf(err, "export: write %s", path)
	}
	return path, nil
}

// writeMeshes writes every node mesh and LOD mesh of s as OBJ. It returns the created paths
// and the relative file of each mesh by name.
func writeMeshes(s *scene.Scene, dir string, surfaceName func(texture uint32) string) ([]string, map[string]string, error) {
	var created []string
	files := map[string]string{}
	var err error
	write := func(m *mesh.Mesh) {
		if err != nil || m == nil || m.Empty() {
			return
		}
		if _, dup := files[m.Name]; dup {
			return
		}
		rel := meshFile(s.Name, m.Name)
		var path string
		if path, err = writeFile(dir, rel, OBJ(m, surfaceName)); err == nil {
			created = append(created, path)
			files[m.Name] = rel
		}
	}
	s.Root.Walk(func(n *scene.Node) { write(n.Mesh) })
	for _, m := range s.LODMeshes {
		write(m)
	}
	return created, files, err
}
