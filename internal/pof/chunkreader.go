package pof

import (
	"context"
	"strings"

	"wcs-converter/internal/binreader"
	"wcs-converter/internal/diag"
	"wcs-converter/internal/mathutil"
)

// chunk is the decoding state of one payload. Reads are sticky: after the first failure every read
// returns the zero value and err holds the cause, so decoders can check once per record.
type chunk struct {
	ctx     context.Context
	id      ChunkID
	offset  int64
	r       *binreader.Reader
	scope   diag.Scope
	version int32
	opts    *Options
	framer  *framer
	err     error
}

func (c *chunk) pos() int64 { return c.offset + int64(c.r.Position()) }

func (c *chunk) report(sev diag.Severity, cat diag.Category, rec diag.Recovery, ctx diag.Fields, format string, args ...any) {
	c.scope.Report(sev, cat, c.pos(), rec, ctx, format, args...)
}

func (c *chunk) fail(err error) bool {
	if err != nil && c.err == nil {
		c.err = err
	}
	return c.err != nil
}

func (c *chunk) u32() uint32 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.U32()
	c.fail(err)
	return v
}

func (c *chunk) i32() int32 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.I32()
	c.fail(err)
	return v
}

func (c *chunk) f32() float32 {
	if c.err != nil {
		return 0
	}
	v, err := c.r.F32()
	c.fail(err)
	return v
}

func (c *chunk) vec() mathutil.Vec3 {
	if c.err != nil {
		return mathutil.Vec3{}
	}
	v, err := c.r.Vec3()
	c.fail(err)
	return v
}

func (c *chunk) box() mathutil.BoundingBox {
	if c.err != nil {
		return mathutil.BoundingBox{}
	}
	v, err := c.r.BBox()
	c.fail(err)
	return v
}

// str reads a length-prefixed string, truncating it to max bytes with a warning.
func (c *chunk) str(max int, field string) string {
	if c.err != nil {
		return ""
	}
	s, truncated, err := c.r.LengthString(max)
	if c.fail(err) {
		return ""
	}
	if truncated {
		c.report(diag.Warning, diag.DataIntegrity, diag.Truncate, diag.Fields{"field": field, "max": max}, "string too long")
	}
	return s
}

// count validates a record count against the bytes left, assuming each record takes at least
// stride bytes. Implausible counts are clamped so a corrupt count cannot drive a huge allocation.
func (c *chunk) count(n int64, stride int, what string) int {
	if c.err != nil {
		return 0
	}
	if n < 0 {
		c.report(diag.Warning, diag.DataIntegrity, diag.UseAbsoluteValue, diag.Fields{"field": what, "value": n}, "negative count")
		return 0
	}
	if stride > 0 && n*int64(stride) > int64(c.r.Remaining()) {
		limit := c.r.Remaining() / stride
		c.report(diag.Error, diag.Parsing, diag.Truncate,
			diag.Fields{"field": what, "value": n, "limit": limit}, "count exceeds chunk length")
		return limit
	}
	return int(n)
}

// flagNormal reports zero-length normals on kinds that carry one. The point is kept as is.
func (c *chunk) flagNormal(p *SpecialPoint) {
	if mathutil.IsZero(p.Normal) {
		c.report(diag.Warning, diag.DataIntegrity, diag.NoRecovery,
			diag.Fields{"point": p.Name, "kind": p.Kind.String()}, "zero-length normal")
	}
}

// ParseProperties splits a "$key=value" property block into a map. Keys lose the leading '$'
// and are lower-cased; bare lines map to "".
func ParseProperties(s string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, "=")
		key = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "$"))
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}
