package diag

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// DefaultLogThreshold is how many identical diagnostics are logged before the rest are only counted.
const DefaultLogThreshold = 5

// Sink collects diagnostics in first-occurrence order and suppresses duplicates.
// A Sink is safe for concurrent use, but each decode normally owns its own.
type Sink struct {
	mu         sync.Mutex
	logger     *log.Logger
	verbose    bool
	threshold  int
	entries    []Diagnostic
	index      map[key]int
	suppressed int
}

type Option func(*Sink)

// WithLogger sends every newly recorded diagnostic to l.
func WithLogger(l *log.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// WithVerbose makes the sink record Debug and Info diagnostics.
func WithVerbose(v bool) Option {
	return func(s *Sink) { s.verbose = v }
}

// WithThreshold sets how many occurrences of one diagnostic are logged.
func WithThreshold(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.threshold = n
		}
	}
}

func NewSink(opts ...Option) *Sink {
	s := &Sink{
		threshold: DefaultLogThreshold,
		index:     make(map[key]int),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Report records d. A nil Sink forwards to Default().
func (s *Sink) Report(d Diagnostic) {
	if s == nil {
		Default().Report(d)
		return
	}
	if d.Severity < Warning && !s.verbose {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := d.key()
	if i, ok := s.index[k]; ok {
		s.entries[i].Count++
		if s.entries[i].Count > s.threshold {
			s.suppressed++
			return
		}
		s.log(d)
		return
	}
	d.Count = 1
	s.index[k] = len(s.entries)
	s.entries = append(s.entries, d)
	s.log(d)
}

// Reportf is a shorthand for the common case.
func (s *Sink) Reportf(sev Severity, cat Category, rec Recovery, ctx Fields, format string, args ...any) {
	s.Report(Diagnostic{
		Severity: sev,
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
		Offset:   NoOffset,
		Context:  ctx,
		Recovery: rec,
	})
}

func (s *Sink) log(d Diagnostic) {
	if s.logger == nil {
		return
	}
	kv := []any{"category", d.Category.String()}
	if c := d.Chunk(); c != "" {
		kv = append(kv, "chunk", c)
	}
	if d.Offset >= 0 {
		kv = append(kv, "offset", d.Offset)
	}
	if d.Version != 0 {
		kv = append(kv, "version", d.Version)
	}
	if d.Recovery != NoRecovery {
		kv = append(kv, "recovery", string(d.Recovery))
	}
	for k, v := range d.Context {
		kv = append(kv, k, v)
	}
	switch d.Severity {
	case Debug:
		s.logger.Debug(d.Message, kv...)
	case Info:
		s.logger.Info(d.Message, kv...)
	case Warning:
		s.logger.Warn(d.Message, kv...)
	default:
		s.logger.Error(d.Message, kv...)
	}
}

// Entries returns a copy of the recorded diagnostics in first-occurrence order.
func (s *Sink) Entries() []Diagnostic {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Diagnostic, len(s.entries))
	copy(out, s.entries)
	return out
}

// Filter returns the entries with exactly the given severity.
func (s *Sink) Filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.Entries() {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Count sums occurrences (duplicates included) of the given severity.
func (s *Sink) Count(sev Severity) int {
	n := 0
	for _, d := range s.Entries() {
		if d.Severity == sev {
			n += d.Count
		}
	}
	return n
}

// HasErrors reports whether any Error or Critical diagnostic was recorded.
func (s *Sink) HasErrors() bool {
	for _, d := range s.Entries() {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// Suppressed returns how many duplicate reports were counted but not logged.
func (s *Sink) Suppressed() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suppressed
}

// Reset drops everything recorded so far.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.index = make(map[key]int)
	s.suppressed = 0
}

// Scope binds a chunk id and version so decoders do not repeat them on every report.
type Scope struct {
	Sink    *Sink
	ChunkID uint32
	Version int32
}

func (s *Sink) Scope(chunkID uint32, version int32) Scope {
	return Scope{Sink: s, ChunkID: chunkID, Version: version}
}

// Report records a diagnostic at a byte offset (NoOffset when unknown).
func (sc Scope) Report(sev Severity, cat Category, offset int64, rec Recovery, ctx Fields, format string, args ...any) {
	sc.Sink.Report(Diagnostic{
		Severity: sev,
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
		Offset:   offset,
		ChunkID:  sc.ChunkID,
		Version:  sc.Version,
		Context:  ctx,
		Recovery: rec,
	})
}
