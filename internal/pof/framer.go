package pof

import (
	"context"

	"github.com/pkg/errors"

	"wcs-converter/internal/binreader"
	"wcs-converter/internal/diag"
)

const chunkHeaderSize = 8

type framer struct {
	ctx     context.Context
	data    []byte
	opts    Options
	sink    *diag.Sink
	seen    map[ChunkID]bool
	model   *Model
	version int32

	// SLDC references shield polygons, so it is resolved once every chunk has been read.
	sldc       []byte
	sldcOffset int64
}

func (f *framer) report(sev diag.Severity, cat diag.Category, off int, id ChunkID, rec diag.Recovery, ctx diag.Fields, msg string) {
	f.sink.Report(diag.Diagnostic{
		Severity: sev,
		Category: cat,
		Message:  msg,
		Offset:   int64(off),
		ChunkID:  uint32(id),
		Version:  f.model.DeclaredVersion,
		Context:  ctx,
		Recovery: rec,
	})
}

func (f *framer) run() error {
	if len(f.data) == 0 {
		f.report(diag.Critical, diag.IO, 0, 0, diag.NoRecovery, nil, "empty input")
		return errors.Wrap(binreader.ErrTruncated, "pof: empty input")
	}
	r := binreader.New(f.data)
	magic, err := r.U32()
	if err != nil {
		f.report(diag.Critical, diag.IO, 0, 0, diag.NoRecovery, diag.Fields{"size": len(f.data)}, "file header truncated")
		return errors.Wrap(err, "pof: file header")
	}
	if magic != Magic {
		f.report(diag.Critical, diag.Parsing, 0, 0, diag.NoRecovery, diag.Fields{"magic": diag.Mnemonic(magic)}, "invalid signature")
		return errors.Wrapf(ErrInvalidSignature, "pof: magic 0x%08X", magic)
	}
	declared, err := r.I32()
	if err != nil {
		f.report(diag.Critical, diag.IO, 4, 0, diag.NoRecovery, diag.Fields{"size": len(f.data)}, "file header truncated")
		return errors.Wrap(err, "pof: file header")
	}
	if err := f.setVersion(declared); err != nil {
		return err
	}

	for r.Remaining() > 0 {
		if err := f.ctx.Err(); err != nil {
			return errors.Wrapf(ErrCancelled, "pof: %v", err)
		}
		start := r.Position()
		if r.Remaining() < chunkHeaderSize {
			f.report(diag.Warning, diag.Parsing, start, 0, diag.Truncate, diag.Fields{"residual": r.Remaining()},
				"trailing bytes after last chunk")
			break
		}
		rawID, _ := r.U32()
		length, _ := r.I32()
		id := ChunkID(rawID)

		if !f.lengthOK(id, start, length) {
			f.report(diag.Warning, diag.Parsing, start, id, diag.SkipChunk,
				diag.Fields{"length": length, "remaining": len(f.data) - start - chunkHeaderSize}, "chunk length out of bounds")
			f.model.Chunks = append(f.model.Chunks, ChunkInfo{ID: id, Name: id.String(), Offset: int64(start), Length: length, Status: ChunkCorrupt})
			next := f.resync(start, length)
			if next < 0 {
				break
			}
			_ = r.Seek(next)
			continue
		}

		if err := f.dispatch(id, start, length); err != nil {
			return err
		}
		_ = r.Seek(start + chunkHeaderSize + int(length))
	}

	f.finish()
	return nil
}

func (f *framer) setVersion(declared int32) error {
	m := f.model
	m.DeclaredVersion = declared
	m.Version, m.Compatibility = ResolveVersion(declared)
	f.version = gateVersion(declared)

	fields := diag.Fields{"declared": declared, "using": int32(m.Version)}
	switch m.Compatibility {
	case VersionTooOld:
		if f.opts.StrictVersion {
			f.report(diag.Critical, diag.Compatibility, 4, 0, diag.NoRecovery, fields, "version below minimum compatible")
			return errors.Wrapf(ErrIncompatibleVersion, "pof: version %d below %d", declared, MinCompatible)
		}
		f.report(diag.Error, diag.Compatibility, 4, 0, diag.ClosestVersion, fields, "version below minimum compatible")
	case VersionTooNew:
		f.report(diag.Warning, diag.Compatibility, 4, 0, diag.ClosestVersion, fields, "version newer than maximum supported")
	case VersionClosest:
		f.report(diag.Warning, diag.Compatibility, 4, 0, diag.ClosestVersion, fields, "unrecognised version")
	}
	return nil
}

func (f *framer) lengthOK(id ChunkID, start int, length int32) bool {
	if length < 0 || int64(start)+chunkHeaderSize+int64(length) > int64(len(f.data)) {
		return false
	}
	return id.isSubObject() || int(length) <= f.opts.MaxChunkLength
}

// headerAt reports whether a plausible chunk header for a known chunk sits at off.
func (f *framer) headerAt(off int) bool {
	if off < 0 || off+chunkHeaderSize > len(f.data) {
		return false
	}
	r := binreader.New(f.data[off : off+chunkHeaderSize])
	rawID, _ := r.U32()
	length, _ := r.I32()
	id := ChunkID(rawID)
	return id.Known() && f.lengthOK(id, off, length)
}

// resync finds where to continue after a chunk with a bad length: the declared end when a chunk
// header (or the end of file) is there, otherwise the next plausible chunk header. -1 means give up.
func (f *framer) resync(start int, length int32) int {
	if length >= 0 {
		end := int64(start) + chunkHeaderSize + int64(length)
		if end == int64(len(f.data)) {
			return len(f.data)
		}
		if end < int64(len(f.data)) && f.headerAt(int(end)) {
			return int(end)
		}
	}
	for p := start + chunkHeaderSize; p+chunkHeaderSize <= len(f.data); p++ {
		if f.headerAt(p) {
			return p
		}
	}
	return -1
}

func (f *framer) dispatch(id ChunkID, start int, length int32) error {
	info := ChunkInfo{ID: id, Name: id.String(), Offset: int64(start), Length: length, Status: ChunkDecoded}
	defer func() { f.model.Chunks = append(f.model.Chunks, info) }()

	dec, ok := decoders[id]
	if !ok {
		info.Status = ChunkUnknown
		f.report(diag.Warning, diag.Parsing, start, id, diag.SkipChunk, diag.Fields{"length": length}, "unknown chunk skipped")
		return nil
	}
	if slot, single := id.slot(); single {
		if f.seen[slot] {
			info.Status = ChunkDuplicate
			f.report(diag.Warning, diag.Parsing, start, id, diag.SkipChunk, nil, "duplicate chunk ignored")
			return nil
		}
		f.seen[slot] = true
	}

	payloadStart := start + chunkHeaderSize
	c := &chunk{
		ctx:     f.ctx,
		id:      id,
		offset:  int64(payloadStart),
		r:       binreader.New(f.data[payloadStart : payloadStart+int(length)]),
		scope:   f.sink.Scope(uint32(id), f.model.DeclaredVersion),
		version: f.version,
		opts:    &f.opts,
		framer:  f,
	}
	err := dec(c, f.model)
	if err == nil {
		err = c.err
	}
	switch {
	case errors.Is(err, ErrCancelled):
		return err
	case err != nil:
		info.Status = ChunkPartial
		f.report(diag.Error, diag.Parsing, start, id, diag.Truncate, diag.Fields{"error": err.Error()}, "chunk truncated")
	case c.r.Remaining() > 0:
		f.report(diag.Warning, diag.Parsing, start, id, diag.NoRecovery,
			diag.Fields{"length": length, "residual": c.r.Remaining()}, "chunk length mismatch")
	}
	return nil
}

func (f *framer) finish() {
	if f.sldc != nil {
		f.buildShieldTree()
	}
}
