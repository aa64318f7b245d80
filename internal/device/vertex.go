package device

import "github.com/go-gl/mathgl/mgl32"

// Vertex holds a position and normal, each stored in its own float4
// slot (the fourth lane of each is unused padding).
type Vertex struct {
	Pos  mgl32.Vec3
	Norm mgl32.Vec3
}

const vertexSize = 32

func (v Vertex) ToBytes() []byte {
	buf := make([]byte, vertexSize)
	putVec3(buf, 0, v.Pos)
	putVec3(buf, 16, v.Norm)
	return buf
}

func VertexFromBytes(buf []byte) Vertex {
	return Vertex{Pos: getVec3(buf, 0), Norm: getVec3(buf, 16)}
}

// Triangle packs three 10-bit indices into the local vertex buffer of
// its owning mesh block. The 10-bit cap keeps vtx_count below 1024 per
// block, which is what forces BVH subdivision.
type Triangle uint32

const LocalVertexBits = 10
const LocalVertexMax = 1 << LocalVertexBits

func PackTriangle(i0, i1, i2 uint32) Triangle {
	return Triangle(i0 | i1<<LocalVertexBits | i2<<(2*LocalVertexBits))
}

func (t Triangle) Indices() (i0, i1, i2 uint32) {
	const mask = LocalVertexMax - 1
	v := uint32(t)
	return v & mask, (v >> LocalVertexBits) & mask, (v >> (2 * LocalVertexBits)) & mask
}

func (t Triangle) ToBytes() []byte {
	buf := make([]byte, 4)
	putUint32(buf, 0, uint32(t))
	return buf
}
