// Package pof decodes POF model files into a Model.
//
// Decoding is single-threaded and deterministic: chunks are handled in file order and every
// non-fatal problem goes to the diag.Sink passed in Options. Only an empty input, a bad signature,
// a truncated file header or cancellation stop a decode.
package pof

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"wcs-converter/internal/binreader"
	"wcs-converter/internal/bsp"
	"wcs-converter/internal/diag"
)

var (
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrIncompatibleVersion = errors.New("incompatible version")
	ErrCancelled           = bsp.ErrCancelled
	// ErrCritical wraps every other decode-stopping condition.
	ErrCritical = errors.New("critical decode error")
)

type Options struct {
	// Filename is recorded on the model and in diagnostics.
	Filename string
	Sink     *diag.Sink
	// MaxChunkLength caps non-subobject chunks. Zero means DefaultMaxChunkLength.
	MaxChunkLength int
	// SkipBSP leaves subobject trees nil. Used by tools that only need metadata.
	SkipBSP bool
	// StrictVersion makes versions below MinCompatible fatal.
	StrictVersion bool
}

// Decode parses a complete POF file held in data.
func Decode(ctx context.Context, data []byte, opts Options) (*Model, error) {
	if opts.MaxChunkLength <= 0 {
		opts.MaxChunkLength = DefaultMaxChunkLength
	}
	f := &framer{
		ctx:  ctx,
		data: data,
		opts: opts,
		sink: opts.Sink,
		seen: make(map[ChunkID]bool),
		model: &Model{
			Filename: opts.Filename,
			Header:   emptyHeader(),
		},
	}
	if err := f.run(); err != nil {
		return nil, err
	}
	return f.model, nil
}

// DecodeFile reads path and decodes it. A missing or unreadable file is a Critical IO diagnostic.
func DecodeFile(ctx context.Context, path string, opts Options) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		opts.Sink.Report(diag.Diagnostic{
			Severity: diag.Critical,
			Category: diag.IO,
			Message:  "cannot read file",
			Offset:   diag.NoOffset,
			Context:  diag.Fields{"path": path, "error": err.Error()},
		})
		return nil, errors.Wrapf(ErrCritical, "pof: read %s: %v", path, err)
	}
	if opts.Filename == "" {
		opts.Filename = path
	}
	return Decode(ctx, data, opts)
}

// IsFatal reports whether err stopped a decode, as opposed to a caller bug.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrIncompatibleVersion) ||
		errors.Is(err, ErrCritical) || errors.Is(err, binreader.ErrTruncated)
}
