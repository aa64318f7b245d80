package scene

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrSmile/RayTracer/internal/device"
	"github.com/go-gl/mathgl/mgl32"
)

const tetraPLY = `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
element face 4
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
0 1 0
0 0 1
3 0 2 1
3 0 1 3
3 0 3 2
3 1 2 3
`

func writeTetra(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tetra.ply")
	if err := os.WriteFile(path, []byte(tetraPLY), 0o644); err != nil {
		t.Fatalf("writing temp ply: %v", err)
	}
	return path
}

func randomAffine(rng *rand.Rand) device.Matrix {
	alpha := 2 * math.Pi * rng.Float64()
	c, s := float32(math.Cos(alpha)), float32(math.Sin(alpha))
	return device.Matrix{
		X: [4]float32{c, 0, -s, 4*rng.Float32() - 2},
		Y: [4]float32{s, 0, c, 4 * rng.Float32()},
		Z: [4]float32{0, 1, 0, 2*rng.Float32() - 1},
	}
}

// 256 instances of one mesh under random affine matrices produce
// exactly one materialized mesh block-tree and 256 AABB entries in the
// instance group, all pointing at the same root group id.
func TestInstancesShareOneMeshTree(t *testing.T) {
	b := NewBuilder(nil)
	if err := b.Load(writeTetra(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	rng := rand.New(rand.NewSource(5))
	instances := make([]Instance, 256)
	for i := range instances {
		instances[i] = Instance{Model: 0, Material: 0, Mat: randomAffine(rng)}
	}

	scn, err := b.Build([]Material{{Color: [4]float32{0.2, 0.9, 0.2, 0.1}}}, instances)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	mngr := scn.Manager
	// 3 predefined + 1 material + 1 instancing AABB group + 1 mesh leaf
	// (the tetra is far below the subdivision threshold).
	if got := mngr.GroupCount(); got != 6 {
		t.Fatalf("group count = %d, want 6", got)
	}
	if got := mngr.AABBCount(); got != 256 {
		t.Fatalf("aabb count = %d, want 256", got)
	}

	_, _, sh := device.UnpackGroupID(scn.RootGroup)
	if sh != device.ShAABB {
		t.Fatalf("scene root shader kind = %d, want aabb", sh)
	}
	rootIdx := scn.RootGroup & device.GroupIDMask
	grp := mngr.Group(rootIdx).AsAABBShader()
	if grp.AABBCount != 256 || grp.Flags != device.FLocal0 {
		t.Fatalf("instance group = %+v", grp)
	}

	meshRoot := mngr.AABB(grp.AABBOffs).GroupID
	for i := uint32(0); i < grp.AABBCount; i++ {
		entry := *mngr.AABB(grp.AABBOffs + i)
		if entry.GroupID != meshRoot {
			t.Fatalf("instance %d points at group %#x, want shared root %#x", i, entry.GroupID, meshRoot)
		}
		if entry.LocalID != i {
			t.Fatalf("instance %d local id = %d", i, entry.LocalID)
		}
	}
	if _, _, sh := device.UnpackGroupID(meshRoot); sh != device.ShMesh {
		t.Fatalf("shared root shader kind = %d, want mesh", sh)
	}
	if len(scn.Matrices) != 256 {
		t.Fatalf("matrix table has %d rows, want 256", len(scn.Matrices))
	}
}

func TestBuildFillsPredefinedGroups(t *testing.T) {
	b := NewBuilder(nil)
	b.SkyColor = [4]float32{0.1, 0.2, 0.3, 0}
	if err := b.Load(writeTetra(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	scn, err := b.Build(
		[]Material{{Color: [4]float32{0.9, 0.2, 0.2, 0.1}}},
		[]Instance{{Mat: device.IdentityMatrix()}},
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sky := scn.Manager.Group(device.SkyGroupID & device.GroupIDMask).AsMatShader()
	if sky.Color != b.SkyColor {
		t.Fatalf("sky group color = %v, want %v", sky.Color, b.SkyColor)
	}
}

func TestConcurrentLoadKeepsEveryModel(t *testing.T) {
	b := NewBuilder(nil)
	paths := []string{writeTetra(t), writeTetra(t), writeTetra(t)}
	if err := b.Load(paths...); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.ModelCount() != 3 {
		t.Fatalf("model count = %d, want 3", b.ModelCount())
	}
}

func TestBuildRejectsDanglingInstance(t *testing.T) {
	b := NewBuilder(nil)
	if err := b.Load(writeTetra(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err := b.Build([]Material{{}}, []Instance{{Model: 3}})
	if err == nil {
		t.Fatal("expected error for out-of-range model index")
	}
}

func TestDefaultCameraTargetsRoot(t *testing.T) {
	b := NewBuilder(nil)
	if err := b.Load(writeTetra(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	scn, err := b.Build([]Material{{}}, []Instance{{Mat: device.IdentityMatrix()}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	cam := scn.DefaultCamera(640, 480, 0.5, mgl32.Vec3{0, -3, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1})
	if cam.RootGroup != scn.RootGroup {
		t.Fatalf("camera root group = %#x, want %#x", cam.RootGroup, scn.RootGroup)
	}
	if cam.Width != 640 || cam.Height != 480 {
		t.Fatalf("camera size = %dx%d", cam.Width, cam.Height)
	}
}
