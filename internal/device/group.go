package device

// Packed 32-bit group identifier: bits [0..23] are the group index,
// bits [24..27] the transform kind, bits [28..31] the shader kind.
const (
	GroupIDMask  = 0xFFFFFF
	GroupTrShift = 24
	GroupTrMask  = 0xF
	GroupShShift = 28
	GroupShMask  = 0xF
)

type TransformKind uint32

const (
	TrNone TransformKind = iota
	TrIdentity
	TrOrtho
	TrAffine
)

type ShaderKind uint32

const (
	ShSpawn ShaderKind = iota
	ShSky
	ShLight
	ShMaterial
	ShAABB
	ShMesh
)

// Predefined groups occupy index slots 0, 1 and 2 of the group table.
const (
	SpawnGroupID = uint32(0)
)

var (
	SkyGroupID   = PackGroupID(1, TrNone, ShSky)
	LightGroupID = PackGroupID(2, TrNone, ShLight)
)

// PackGroupID combines a group index with its transform and shader kind
// into the 32-bit sort key used throughout the pipeline.
func PackGroupID(index uint32, tr TransformKind, sh ShaderKind) uint32 {
	return (index & GroupIDMask) |
		((uint32(tr) & GroupTrMask) << GroupTrShift) |
		((uint32(sh) & GroupShMask) << GroupShShift)
}

// UnpackGroupID recovers the components packed by PackGroupID.
func UnpackGroupID(id uint32) (index uint32, tr TransformKind, sh ShaderKind) {
	index = id & GroupIDMask
	tr = TransformKind((id >> GroupTrShift) & GroupTrMask)
	sh = ShaderKind((id >> GroupShShift) & GroupShMask)
	return
}

// MatShader is a flat-colored material: RGBA, alpha doubling as specular
// intensity.
type MatShader struct {
	Color [4]float32
}

// AABBShader points at a contiguous run of child AABB records. Flags
// bit 0/1 select whether the child's local_id indexes a per-instance
// payload (f_local0 / f_local1).
type AABBShader struct {
	AABBOffs  uint32
	AABBCount uint32
	Flags     uint32
}

const (
	FLocal0 = 1
	FLocal1 = 2
)

// MeshShader points at the vertex/triangle ranges of one BVH leaf block.
type MeshShader struct {
	VtxOffs    uint32
	TriOffs    uint32
	TriCount   uint32
	MaterialID uint32
}

// groupSize is the byte size of the overlaid Group union: the largest of
// MatShader's float4 and MeshShader's four uint32 words.
const groupSize = 16

// Group is the device-side union record. Its active arm is not tagged
// inside the record itself — the shader-kind bits of the owning packed
// group id are the canonical discriminant, per the AABB-record "lanes
// for free" design: this type only knows how to store and reinterpret
// 16 raw bytes the same way the accelerator does.
type Group struct {
	raw [groupSize]byte
}

func NewMatShaderGroup(color [4]float32) Group {
	var g Group
	for i, c := range color {
		putFloat32(g.raw[:], i*4, c)
	}
	return g
}

func NewAABBShaderGroup(s AABBShader) Group {
	var g Group
	putUint32(g.raw[:], 0, s.AABBOffs)
	putUint32(g.raw[:], 4, s.AABBCount)
	putUint32(g.raw[:], 8, s.Flags)
	return g
}

func NewMeshShaderGroup(s MeshShader) Group {
	var g Group
	putUint32(g.raw[:], 0, s.VtxOffs)
	putUint32(g.raw[:], 4, s.TriOffs)
	putUint32(g.raw[:], 8, s.TriCount)
	putUint32(g.raw[:], 12, s.MaterialID)
	return g
}

func (g Group) AsMatShader() MatShader {
	var m MatShader
	for i := range m.Color {
		m.Color[i] = getFloat32(g.raw[:], i*4)
	}
	return m
}

func (g Group) AsAABBShader() AABBShader {
	return AABBShader{
		AABBOffs:  getUint32(g.raw[:], 0),
		AABBCount: getUint32(g.raw[:], 4),
		Flags:     getUint32(g.raw[:], 8),
	}
}

func (g Group) AsMeshShader() MeshShader {
	return MeshShader{
		VtxOffs:    getUint32(g.raw[:], 0),
		TriOffs:    getUint32(g.raw[:], 4),
		TriCount:   getUint32(g.raw[:], 8),
		MaterialID: getUint32(g.raw[:], 12),
	}
}

func (g Group) ToBytes() []byte {
	out := make([]byte, groupSize)
	copy(out, g.raw[:])
	return out
}
