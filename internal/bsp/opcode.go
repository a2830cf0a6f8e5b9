package bsp

import "fmt"

type Opcode uint32

const (
	OpEndOfBranch Opcode = 0
	OpDefPoints   Opcode = 1
	OpFlatPoly    Opcode = 2
	OpTmapPoly    Opcode = 3
	OpSortNorm    Opcode = 4
	OpBoundBox    Opcode = 5
	OpSortNorm2   Opcode = 7
	OpTmapPoly2   Opcode = 8
)

var opcodeNames = map[Opcode]string{
	OpEndOfBranch: "ENDOFBRANCH",
	OpDefPoints:   "DEFPOINTS",
	OpFlatPoly:    "FLATPOLY",
	OpTmapPoly:    "TMAPPOLY",
	OpSortNorm:    "SORTNORM",
	OpBoundBox:    "BOUNDBOX",
	OpSortNorm2:   "SORTNORM2",
	OpTmapPoly2:   "TMAPPOLY2",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("opcode(%d)", uint32(o))
}

// Known reports whether o is a recognised opcode.
func (o Opcode) Known() bool {
	_, ok := opcodeNames[o]
	return ok
}

func (o Opcode) isPolygon() bool {
	return o == OpFlatPoly || o == OpTmapPoly || o == OpTmapPoly2
}

const (
	// HeaderSize is the opcode + size prefix. Record sizes include it.
	HeaderSize = 8

	// DefaultMaxChunkSize is the sanity cap on a single record.
	DefaultMaxChunkSize = 1_000_000

	// BBoxVersion is the first POF version whose SORTNORM records carry a bounding box.
	BBoxVersion = 2000

	maxDepth = 512
)
