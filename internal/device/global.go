package device

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera describes the image plane primary rays are spawned from: an
// eye point, the top-left corner of the image plane, and per-pixel
// basis vectors dx/dy, plus the root group/local id primary rays enter.
type Camera struct {
	Eye, TopLeft, Dx, Dy mgl32.Vec3
	Width, Height        uint32
	RootGroup, RootLocal uint32
}

const cameraSize = 4*16 + 16 // four padded vec3s + the four uint32 tail

func (c Camera) ToBytes() []byte {
	buf := make([]byte, cameraSize)
	putVec3(buf, 0, c.Eye)
	putVec3(buf, 16, c.TopLeft)
	putVec3(buf, 32, c.Dx)
	putVec3(buf, 48, c.Dy)
	putUint32(buf, 64, c.Width)
	putUint32(buf, 68, c.Height)
	putUint32(buf, 72, c.RootGroup)
	putUint32(buf, 76, c.RootLocal)
	return buf
}

// SetCamera derives eye/top_left/dx/dy from a position, look direction,
// up vector and field-of-view tangent, mirroring the original model
// preprocessor's camera setup formula. tanFOV is the length of the
// image plane's diagonal at unit distance from the eye.
func SetCamera(width, height uint32, tanFOV float32, pos, look, up mgl32.Vec3) Camera {
	scale := tanFOV / float32(math.Sqrt(float64(width)*float64(width)+float64(height)*float64(height)))
	dir := look.Normalize()
	dx := dir.Cross(up).Normalize().Mul(scale)
	dy := dx.Cross(dir)
	topLeft := dir.Sub(dx.Mul(float32(width)).Add(dy.Mul(float32(height))).Mul(0.5))
	return Camera{
		Eye:     pos,
		TopLeft: topLeft,
		Dx:      dx,
		Dy:      dy,
		Width:   width,
		Height:  height,
	}
}

// GlobalData is the per-frame scalar state block shared by every kernel.
type GlobalData struct {
	PixelOffset uint32
	PixelCount  uint32
	GroupCount  uint32
	OldCount    uint32
	RayCount    uint32
	Cam         Camera
}

// The camera block is 16-byte aligned, so the five leading counters pad
// out to 32 bytes before it.
const globalCamOffset = 32
const globalDataSize = globalCamOffset + cameraSize

func (g GlobalData) ToBytes() []byte {
	buf := make([]byte, globalDataSize)
	putUint32(buf, 0, g.PixelOffset)
	putUint32(buf, 4, g.PixelCount)
	putUint32(buf, 8, g.GroupCount)
	putUint32(buf, 12, g.OldCount)
	putUint32(buf, 16, g.RayCount)
	copy(buf[globalCamOffset:], g.Cam.ToBytes())
	return buf
}

// GlobalDataSize is the byte size of the device-side global state block.
const GlobalDataSize = globalDataSize

// Byte offsets of the readback fields the host inspects directly.
const (
	GlobalPixelOffsetOffs = 0
	GlobalRayCountOffs    = 16
)

// GroupData is one dynamic row of the scheduler's per-group table:
// base (where this group's rays start after sort), count (rays that
// arrived this step) and offset (a mutable scan cursor), each a
// two-lane tuple tracking primary and shadow sub-streams independently.
type GroupData struct {
	Base, Count, Offset [2]uint32
}

const groupDataSize = 24

func (g GroupData) ToBytes() []byte {
	buf := make([]byte, groupDataSize)
	putUint32(buf, 0, g.Base[0])
	putUint32(buf, 4, g.Base[1])
	putUint32(buf, 8, g.Count[0])
	putUint32(buf, 12, g.Count[1])
	putUint32(buf, 16, g.Offset[0])
	putUint32(buf, 20, g.Offset[1])
	return buf
}

func GroupDataFromBytes(buf []byte) GroupData {
	return GroupData{
		Base:   [2]uint32{getUint32(buf, 0), getUint32(buf, 4)},
		Count:  [2]uint32{getUint32(buf, 8), getUint32(buf, 12)},
		Offset: [2]uint32{getUint32(buf, 16), getUint32(buf, 20)},
	}
}
