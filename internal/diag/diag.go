// Package diag carries non-fatal decode, validation and lowering diagnostics.
//
// Diagnostics have four orthogonal dimensions: severity, category, context (file offset, chunk id,
// version and a free-form field map) and a recovery hint from a fixed vocabulary. They never travel as
// Go errors; only Critical diagnostics are turned into an error by the component that raised them.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

type Severity int

const (
	Debug Severity = iota
	Info
	Warning
	Error
	Critical
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Critical:
		return "critical"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

type Category int

const (
	Validation Category = iota
	Parsing
	Compatibility
	DataIntegrity
	Memory
	IO
	Unknown
)

func (c Category) String() string {
	switch c {
	case Validation:
		return "validation"
	case Parsing:
		return "parsing"
	case Compatibility:
		return "compatibility"
	case DataIntegrity:
		return "data_integrity"
	case Memory:
		return "memory"
	case IO:
		return "io"
	}
	return "unknown"
}

// Recovery is the short hint describing what the component did about a problem.
type Recovery string

const (
	NoRecovery        Recovery = ""
	SkipChunk         Recovery = "skip chunk"
	UseDefaultTexture Recovery = "use default texture"
	AttachToRoot      Recovery = "attach to root"
	NormaliseVector   Recovery = "normalise vector"
	UseAbsoluteValue  Recovery = "use absolute value"
	MapToSentinel     Recovery = "map to sentinel"
	TreatAsEmpty      Recovery = "treat as EMPTY"
	DropRecord        Recovery = "drop record"
	SubstituteZero    Recovery = "substitute zero vertex"
	Renumber          Recovery = "renumber"
	SynthesiseName    Recovery = "synthesise name"
	RecomputeBounds   Recovery = "recompute bounds"
	ClosestVersion    Recovery = "use closest version"
	Truncate          Recovery = "truncate"
)

// LosesData reports whether applying the recovery drops or substitutes source data.
func (r Recovery) LosesData() bool {
	switch r {
	case SkipChunk, UseDefaultTexture, MapToSentinel, TreatAsEmpty, DropRecord, SubstituteZero, Truncate:
		return true
	}
	return false
}

// Fields is the free-form context map, e.g. {"field": "mass", "value": -1.0}.
type Fields map[string]any

// NoOffset marks a diagnostic that is not tied to a byte position.
const NoOffset int64 = -1

type Diagnostic struct {
	Severity Severity
	Category Category
	Message  string
	Offset   int64
	ChunkID  uint32
	Version  int32
	Context  Fields
	Recovery Recovery
	// Count is how many identical diagnostics were reported; set by the Sink.
	Count int
}

// Chunk renders ChunkID as its four-character mnemonic, or "" when unset.
func (d Diagnostic) Chunk() string {
	return Mnemonic(d.ChunkID)
}

// Mnemonic renders a little-endian four-character code. Non-printable codes are shown in hex.
func Mnemonic(id uint32) string {
	if id == 0 {
		return ""
	}
	b := []byte{byte(id), byte(id >> 8), byte(id >> 16), byte(id >> 24)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08X", id)
		}
	}
	return string(b)
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s]", d.Severity, d.Category)
	if c := d.Chunk(); c != "" {
		fmt.Fprintf(&sb, " %s", c)
	}
	if d.Offset >= 0 {
		fmt.Fprintf(&sb, " @%d", d.Offset)
	}
	fmt.Fprintf(&sb, ": %s", d.Message)
	if len(d.Context) > 0 {
		keys := make([]string, 0, len(d.Context))
		for k := range d.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, d.Context[k])
		}
	}
	if d.Recovery != NoRecovery {
		fmt.Fprintf(&sb, " (%s)", d.Recovery)
	}
	if d.Count > 1 {
		fmt.Fprintf(&sb, " x%d", d.Count)
	}
	return sb.String()
}

// key is the duplicate-suppression identity.
type key struct {
	message  string
	severity Severity
	category Category
	offset   int64
	chunk    uint32
	version  int32
}

func (d Diagnostic) key() key {
	return key{d.Message, d.Severity, d.Category, d.Offset, d.ChunkID, d.Version}
}
