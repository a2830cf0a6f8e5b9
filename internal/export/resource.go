package export

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"wcs-converter/internal/mathutil"
)

func itoa(n int) string { return strconv.Itoa(n) }

func quote(s string) string { return strconv.Quote(s) }

func vector3(v mathutil.Vec3) string {
	return fmt.Sprintf("Vector3(%s, %s, %s)", num(v[0]), num(v[1]), num(v[2]))
}

func color(c [4]float32) string {
	return fmt.Sprintf("Color(%s, %s, %s, %s)", num(c[0]), num(c[1]), num(c[2]), num(c[3]))
}

func floats(vs []float32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = num(v)
	}
	return "PackedFloat32Array(" + strings.Join(parts, ", ") + ")"
}

// vectors renders points as a PackedVector3Array in engine space.
func vectors(pts []mathutil.Vec3) string {
	parts := make([]string, 0, len(pts)*3)
	for _, p := range pts {
		e := toEngine(p)
		parts = append(parts, num(e[0]), num(e[1]), num(e[2]))
	}
	return "PackedVector3Array(" + strings.Join(parts, ", ") + ")"
}

// transform renders a source-space offset and rotation as an engine Transform3D. Basis
// values are written row by row.
func transform(offset mathutil.Vec3, rot mgl32.Quat) string {
	m := quatToEngine(rot).Mat4()
	o := toEngine(offset)
	parts := make([]string, 0, 12)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			parts = append(parts, num(m.At(i, j)))
		}
	}
	parts = append(parts, num(o[0]), num(o[1]), num(o[2]))
	return "Transform3D(" + strings.Join(parts, ", ") + ")"
}

type extResource struct {
	kind, path, id string
}

type subResource struct {
	kind, id string
	props    []string
}

// document accumulates one engine text resource or scene file.
type document struct {
	header string
	uid    string
	ext    []extResource
	extIDs map[string]string
	sub    []subResource
	body   bytes.Buffer
}

func newDocument(header, resPath string) *document {
	return &document{header: header, uid: UID(resPath), extIDs: map[string]string{}}
}

// external registers an ext_resource once per path and returns the reference to it.
func (d *document) external(kind, path string) string {
	id, ok := d.extIDs[path]
	if !ok {
		id = resourceID(len(d.ext)+1, path)
		d.extIDs[path] = id
		d.ext = append(d.ext, extResource{kind: kind, path: path, id: id})
	}
	return fmt.Sprintf("ExtResource(%q)", id)
}

func (d *document) subresource(kind string, props ...string) string {
	id := fmt.Sprintf("%s_%d", kind, len(d.sub)+1)
	d.sub = append(d.sub, subResource{kind: kind, id: id, props: props})
	return fmt.Sprintf("SubResource(%q)", id)
}

func (d *document) section(header string, props ...string) {
	fmt.Fprintf(&d.body, "\n[%s]\n", header)
	for _, p := range props {
		d.body.WriteString(p)
		d.body.WriteByte('\n')
	}
}

func sortedKeys[V any](m map[string]V) []string { return slices.Sorted(maps.Keys(m)) }

func prop(key, value string) string { return key + " = " + value }

// metadata renders a string map as sorted metadata properties.
func metadata(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, prop("metadata/"+sanitize(k), quote(m[k])))
	}
	return out
}

func (d *document) bytes() []byte {
	var b bytes.Buffer
	steps := len(d.ext) + len(d.sub) + 1
	fmt.Fprintf(&b, "[%s load_steps=%d format=3 uid=%q]\n", d.header, steps, d.uid)
	for _, e := range d.ext {
		fmt.Fprintf(&b, "\n[ext_resource type=%q path=%q id=%q]\n", e.kind, e.path, e.id)
	}
	for _, s := range d.sub {
		fmt.Fprintf(&b, "\n[sub_resource type=%q id=%q]\n", s.kind, s.id)
		for _, p := range s.props {
			b.WriteString(p)
			b.WriteByte('\n')
		}
	}
	b.Write(d.body.Bytes())
	return b.Bytes()
}
