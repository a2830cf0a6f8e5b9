package export

import (
	"bytes"
	"fmt"
	"strconv"

	"wcs-converter/internal/mesh"
)

func num(f float32) string {
	if f == 0 {
		f = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// OBJ renders m as Wavefront OBJ in engine space. Each surface is one usemtl group named by
// surfaceName. UV v is flipped to the OBJ convention.
func OBJ(m *mesh.Mesh, surfaceName func(texture uint32) string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\no %s\n", m.Name, sanitize(m.Name))
	base := 1
	for i := range m.Surfaces {
		s := &m.Surfaces[i]
		for _, v := range s.Vertices {
			p, n := toEngine(v.Position), toEngine(v.Normal)
			fmt.Fprintf(&b, "v %s %s %s\n", num(p[0]), num(p[1]), num(p[2]))
			fmt.Fprintf(&b, "vt %s %s\n", num(v.UV[0]), num(1-v.UV[1]))
			fmt.Fprintf(&b, "vn %s %s %s\n", num(n[0]), num(n[1]), num(n[2]))
		}
		fmt.Fprintf(&b, "usemtl %s\n", surfaceName(s.Texture))
		for t := 0; t+2 < len(s.Indices); t += 3 {
			a, c2, c1 := int(s.Indices[t])+base, int(s.Indices[t+2])+base, int(s.Indices[t+1])+base
			fmt.Fprintf(&b, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, c2, c2, c2, c1, c1, c1)
		}
		base += len(s.Vertices)
	}
	return b.Bytes()
}
