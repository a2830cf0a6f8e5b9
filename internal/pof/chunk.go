package pof

import "wcs-converter/internal/diag"

// ChunkID is the little-endian u32 of a four-character mnemonic.
type ChunkID uint32

func fourCC(s string) ChunkID {
	return ChunkID(uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24)
}

// Magic is "PSPO" read as a little-endian u32.
const Magic uint32 = 0x4F505350

var (
	ChunkOHDR = fourCC("OHDR")
	ChunkHDR2 = fourCC("HDR2")
	ChunkTXTR = fourCC("TXTR")
	ChunkSOBJ = fourCC("SOBJ")
	ChunkOBJ2 = fourCC("OBJ2")
	ChunkSPCL = fourCC("SPCL")
	ChunkPATH = fourCC("PATH")
	ChunkGPNT = fourCC("GPNT")
	ChunkMPNT = fourCC("MPNT")
	ChunkDOCK = fourCC("DOCK")
	ChunkFUEL = fourCC("FUEL")
	ChunkSHLD = fourCC("SHLD")
	ChunkEYE  = fourCC("EYE ")
	ChunkINSG = fourCC("INSG")
	ChunkACEN = fourCC("ACEN")
	ChunkGLOW = fourCC("GLOW")
	ChunkSLDC = fourCC("SLDC")
)

func (id ChunkID) String() string {
	return diag.Mnemonic(uint32(id))
}

// Known reports whether the framer has a decoder for id.
func (id ChunkID) Known() bool {
	_, ok := decoders[id]
	return ok
}

// slot groups chunk ids that may appear only once per file. OHDR and HDR2 share a slot.
func (id ChunkID) slot() (ChunkID, bool) {
	switch id {
	case ChunkSOBJ, ChunkOBJ2:
		return 0, false
	case ChunkHDR2:
		return ChunkOHDR, true
	}
	return id, true
}

func (id ChunkID) isSubObject() bool {
	return id == ChunkSOBJ || id == ChunkOBJ2
}

// ChunkStatus records what the framer did with a chunk.
type ChunkStatus string

const (
	ChunkDecoded   ChunkStatus = "decoded"
	ChunkPartial   ChunkStatus = "partial"
	ChunkUnknown   ChunkStatus = "unknown"
	ChunkDuplicate ChunkStatus = "duplicate"
	ChunkCorrupt   ChunkStatus = "corrupt"
)

// ChunkInfo is one entry of the chunk table kept on the model.
type ChunkInfo struct {
	ID     ChunkID     `json:"-"`
	Name   string      `json:"id"`
	Offset int64       `json:"offset"`
	Length int32       `json:"length"`
	Status ChunkStatus `json:"status"`
}
