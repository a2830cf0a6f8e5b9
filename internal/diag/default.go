package diag

import (
	"sync"

	"wcs-converter/internal/logging"
)

var (
	defaultOnce sync.Once
	defaultSink *Sink
)

// Default returns the optional process-wide sink. Library code takes an explicit *Sink;
// this exists for callers that do not care about isolation.
func Default() *Sink {
	defaultOnce.Do(func() {
		defaultSink = NewSink(WithLogger(logging.Default()))
	})
	return defaultSink
}

// Report forwards to Default().
func Report(d Diagnostic) {
	Default().Report(d)
}
