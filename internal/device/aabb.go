package device

import "github.com/go-gl/mathgl/mgl32"

// AABB is a 2xfloat4 record: the first three lanes of each half are
// min/max, and the fourth lane of each half carries a child group id
// and a local id respectively. A ray test only reads the first six
// lanes; on hit, the last two feed recursion "for free" off the same
// 4-wide load.
type AABB struct {
	Min     mgl32.Vec3
	GroupID uint32
	Max     mgl32.Vec3
	LocalID uint32
}

const aabbSize = 32

func (a AABB) ToBytes() []byte {
	buf := make([]byte, aabbSize)
	putVec3(buf, 0, a.Min)
	putUint32(buf, 12, a.GroupID)
	putVec3(buf, 16, a.Max)
	putUint32(buf, 28, a.LocalID)
	return buf
}

func AABBFromBytes(buf []byte) AABB {
	return AABB{
		Min:     getVec3(buf, 0),
		GroupID: getUint32(buf, 12),
		Max:     getVec3(buf, 16),
		LocalID: getUint32(buf, 28),
	}
}

// UnionBounds merges two world-space bounds, expanding to cover both.
func UnionBounds(aMin, aMax, bMin, bMax mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	return mgl32.Vec3{
			minf(aMin.X(), bMin.X()),
			minf(aMin.Y(), bMin.Y()),
			minf(aMin.Z(), bMin.Z()),
		}, mgl32.Vec3{
			maxf(aMax.X(), bMax.X()),
			maxf(aMax.Y(), bMax.Y()),
			maxf(aMax.Z(), bMax.Z()),
		}
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
