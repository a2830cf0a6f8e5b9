package pof

type decodeFunc func(c *chunk, m *Model) error

var decoders = map[ChunkID]decodeFunc{
	ChunkOHDR: decodeHeader,
	ChunkHDR2: decodeHeader,
	ChunkTXTR: decodeTextures,
	ChunkSOBJ: decodeSubObject,
	ChunkOBJ2: decodeSubObject,
	ChunkSPCL: decodeSpecials,
	ChunkPATH: decodePaths,
	ChunkGPNT: decodeGuns,
	ChunkMPNT: decodeMissiles,
	ChunkDOCK: decodeDocks,
	ChunkFUEL: decodeThrusters,
	ChunkSHLD: decodeShield,
	ChunkEYE:  decodeEyes,
	ChunkINSG: decodeInsignia,
	ChunkACEN: decodeAutocenter,
	ChunkGLOW: decodeGlows,
	ChunkSLDC: decodeShieldTree,
}
