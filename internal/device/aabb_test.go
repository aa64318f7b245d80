package device

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestAABBToBytesLayout(t *testing.T) {
	a := AABB{
		Min:     mgl32.Vec3{-1, -2, -3},
		GroupID: PackGroupID(5, TrOrtho, ShMesh),
		Max:     mgl32.Vec3{1, 2, 3},
		LocalID: 42,
	}
	buf := a.ToBytes()
	if len(buf) != aabbSize {
		t.Fatalf("expected %d bytes, got %d", aabbSize, len(buf))
	}

	minX := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4]))
	if minX != -1 {
		t.Errorf("min.x = %f, want -1", minX)
	}
	groupID := binary.LittleEndian.Uint32(buf[12:16])
	if groupID != a.GroupID {
		t.Errorf("group_id lane = %#x, want %#x", groupID, a.GroupID)
	}
	maxZ := math.Float32frombits(binary.LittleEndian.Uint32(buf[24:28]))
	if maxZ != 3 {
		t.Errorf("max.z = %f, want 3", maxZ)
	}
	localID := binary.LittleEndian.Uint32(buf[28:32])
	if localID != 42 {
		t.Errorf("local_id lane = %d, want 42", localID)
	}

	if got := AABBFromBytes(buf); got != a {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, a)
	}
}

func TestTriangleIndexPacking(t *testing.T) {
	tri := PackTriangle(3, 513, 1023)
	i0, i1, i2 := tri.Indices()
	if i0 != 3 || i1 != 513 || i2 != 1023 {
		t.Errorf("unpacked (%d,%d,%d), want (3,513,1023)", i0, i1, i2)
	}
}
