// Package device defines the wavefront path tracer's device-memory
// layout: packed group identifiers, the Group/AABB/Vertex/Triangle
// tables, the camera and global-state blocks, and the ray/ray-queue
// records. Every exported type knows how to serialize itself to the
// exact little-endian byte layout the accelerator expects.
package device

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func putFloat32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
}

func putUint32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:off+4], v)
}

func getFloat32(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
}

func getUint32(buf []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(buf[off : off+4])
}

func putVec3(buf []byte, off int, v mgl32.Vec3) {
	putFloat32(buf, off, v.X())
	putFloat32(buf, off+4, v.Y())
	putFloat32(buf, off+8, v.Z())
}

func getVec3(buf []byte, off int) mgl32.Vec3 {
	return mgl32.Vec3{getFloat32(buf, off), getFloat32(buf, off+4), getFloat32(buf, off+8)}
}
