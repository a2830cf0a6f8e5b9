// Package validate checks a decoded POF model and derives a repaired copy for lowering.
package validate

import (
	"fmt"
	"sort"

	"wcs-converter/internal/diag"
	"wcs-converter/internal/pof"
)

type Result struct {
	IsValid          bool              `json:"is_valid"`
	Errors           []diag.Diagnostic `json:"errors"`
	Warnings         []diag.Diagnostic `json:"warnings"`
	Suggestions      []string          `json:"suggestions"`
	DataLossExpected bool              `json:"data_loss_expected"`
}

type Options struct {
	// Decoded are the diagnostics raised while decoding the model. They are folded into the result;
	// compatibility findings are re-derived from the model instead.
	Decoded []diag.Diagnostic
	// Sink, when set, also receives the validator's own findings.
	Sink *diag.Sink
}

type validator struct {
	m    *pof.Model
	sink *diag.Sink
	fwd  *diag.Sink
}

func (v *validator) report(sev diag.Severity, cat diag.Category, rec diag.Recovery, ctx diag.Fields, format string, args ...any) {
	d := diag.Diagnostic{
		Severity: sev,
		Category: cat,
		Message:  fmt.Sprintf(format, args...),
		Offset:   diag.NoOffset,
		Version:  v.m.DeclaredVersion,
		Context:  ctx,
		Recovery: rec,
	}
	v.sink.Report(d)
	if v.fwd != nil {
		v.fwd.Report(d)
	}
}

// Run validates m. It never aborts: every problem becomes a diagnostic.
func Run(m *pof.Model, opts Options) Result {
	v := &validator{m: m, sink: diag.NewSink(), fwd: opts.Sink}
	for _, d := range opts.Decoded {
		if d.Category == diag.Compatibility {
			continue
		}
		count := d.Count
		d.Count = 0
		for i := 0; i < max(count, 1); i++ {
			v.sink.Report(d)
		}
	}

	v.checkVersion()
	v.checkHeader()
	v.checkSubObjects()
	v.checkGeometry()
	v.checkTextureRefs()
	v.checkPoints()
	v.checkPaths()
	v.checkShield()

	return v.result()
}

func (v *validator) result() Result {
	res := Result{}
	recoveries := map[diag.Recovery]int{}
	for _, d := range v.sink.Entries() {
		switch {
		case d.Severity >= diag.Error:
			res.Errors = append(res.Errors, d)
		case d.Severity == diag.Warning:
			res.Warnings = append(res.Warnings, d)
		}
		if d.Recovery.LosesData() {
			res.DataLossExpected = true
		}
		if d.Recovery != diag.NoRecovery {
			recoveries[d.Recovery] += d.Count
		}
	}
	res.IsValid = len(res.Errors) == 0
	res.Suggestions = suggestions(recoveries)
	return res
}

var suggestionText = map[diag.Recovery]string{
	diag.SkipChunk:         "%d chunk(s) were skipped; re-export the model to recover their content",
	diag.UseDefaultTexture: "%d polygon(s) reference missing textures and will use the default texture",
	diag.AttachToRoot:      "%d node(s) have invalid parents and will be attached to the root",
	diag.NormaliseVector:   "%d vector(s) are not unit length and will be normalised",
	diag.UseAbsoluteValue:  "%d negative value(s) will be replaced by their absolute value",
	diag.MapToSentinel:     "%d reference(s) will be mapped to the sentinel value",
	diag.TreatAsEmpty:      "%d corrupt BSP branch(es) were treated as empty",
	diag.DropRecord:        "%d record(s) were dropped",
	diag.SubstituteZero:    "%d vertex reference(s) were replaced by the zero vertex",
	diag.Renumber:          "%d duplicate subobject number(s) will be renumbered",
	diag.SynthesiseName:    "%d unnamed point(s) will get synthesised names",
	diag.RecomputeBounds:   "%d bounding volume(s) will be recomputed",
	diag.ClosestVersion:    "version is not recognised; decoded as the closest supported version",
	diag.Truncate:          "%d value(s) were truncated",
}

func suggestions(counts map[diag.Recovery]int) []string {
	keys := make([]string, 0, len(counts))
	for r := range counts {
		keys = append(keys, string(r))
	}
	sort.Strings(keys)
	var out []string
	for _, k := range keys {
		r := diag.Recovery(k)
		text, ok := suggestionText[r]
		if !ok {
			continue
		}
		if r == diag.ClosestVersion {
			out = append(out, text)
			continue
		}
		out = append(out, fmt.Sprintf(text, counts[r]))
	}
	return out
}
