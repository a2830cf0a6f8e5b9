package pof

import (
	"strconv"

	"wcs-converter/internal/mathutil"
)

type Version int32

const (
	Version1800 Version = 1800
	Version2100 Version = 2100
	Version2112 Version = 2112
	Version2117 Version = 2117

	MinCompatible = Version1800
	MaxCompatible = Version2117
)

func (v Version) String() string { return strconv.Itoa(int(v)) }

// Known reports whether v is one of the recognised versions.
func (v Version) Known() bool {
	for _, k := range KnownVersions {
		if k == v {
			return true
		}
	}
	return false
}

// KnownVersions is sorted ascending.
var KnownVersions = []Version{Version1800, Version2100, Version2112, Version2117}

// Field gates, compared against the declared version clamped into the compatible range.
const (
	gateMass          = 1903
	gatePathParent    = 2002
	gateLights        = 2007
	gateCrossSections = 2014
	gateThrusterProps = 2117
)

type Compatibility int

const (
	VersionExact Compatibility = iota
	VersionClosest
	VersionTooNew
	VersionTooOld
)

func (c Compatibility) String() string {
	switch c {
	case VersionClosest:
		return "closest"
	case VersionTooNew:
		return "too new"
	case VersionTooOld:
		return "too old"
	}
	return "exact"
}

// ResolveVersion maps a declared version onto a recognised one.
// Unknown in-range values pick the numerically closest; ties go to the lower version.
func ResolveVersion(declared int32) (Version, Compatibility) {
	v := Version(declared)
	switch {
	case v < MinCompatible:
		return MinCompatible, VersionTooOld
	case v > MaxCompatible:
		return MaxCompatible, VersionTooNew
	}
	best := KnownVersions[0]
	for _, k := range KnownVersions {
		if k == v {
			return k, VersionExact
		}
		if abs32(int32(k-v)) < abs32(int32(best-v)) {
			best = k
		}
	}
	return best, VersionClosest
}

// gateVersion is the version used for field gating: the declared version clamped into the
// compatible range. A file declaring 1950 carries the mass fields (gate 1903) although it
// resolves to 1800.
func gateVersion(declared int32) int32 {
	return mathutil.Clamp(declared, int32(MinCompatible), int32(MaxCompatible))
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
