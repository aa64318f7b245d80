package device

import (
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestGroupDataRoundTrip(t *testing.T) {
	gd := GroupData{Base: [2]uint32{10, 0}, Count: [2]uint32{3, 1}, Offset: [2]uint32{10, 0}}
	buf := gd.ToBytes()
	if len(buf) != groupDataSize {
		t.Fatalf("expected %d bytes, got %d", groupDataSize, len(buf))
	}
	if got := GroupDataFromBytes(buf); got != gd {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, gd)
	}
}

func TestGlobalDataLayout(t *testing.T) {
	cam := Camera{
		Eye:       mgl32.Vec3{0, 0, 5},
		Width:     1920,
		Height:    1080,
		RootGroup: SkyGroupID,
	}
	g := GlobalData{PixelOffset: 0, PixelCount: 1920 * 1080, GroupCount: 512, RayCount: 65536, Cam: cam}
	buf := g.ToBytes()
	if len(buf) != globalDataSize {
		t.Fatalf("expected %d bytes, got %d", globalDataSize, len(buf))
	}
	if rayCount := binary.LittleEndian.Uint32(buf[16:20]); rayCount != 65536 {
		t.Errorf("ray_count = %d, want 65536", rayCount)
	}
	width := binary.LittleEndian.Uint32(buf[globalCamOffset+64 : globalCamOffset+68])
	if width != 1920 {
		t.Errorf("cam.width = %d, want 1920", width)
	}
}

func TestSetCameraScalesByResolution(t *testing.T) {
	cam := SetCamera(800, 600, 0.7, mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	if cam.Width != 800 || cam.Height != 600 {
		t.Errorf("camera resolution = (%d,%d), want (800,600)", cam.Width, cam.Height)
	}
	if cam.Dx == (mgl32.Vec3{}) {
		t.Errorf("dx should not be zero for a non-degenerate camera")
	}
}
