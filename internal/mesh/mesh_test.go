package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MrSmile/RayTracer/internal/device"
	"github.com/MrSmile/RayTracer/internal/resource"
	"github.com/go-gl/mathgl/mgl32"
)

const quadPLY = `ply
format ascii 1.0
comment a unit quad split into two triangles
element vertex 4
property float x
property float y
property float z
element face 2
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
3 0 1 2
3 0 2 3
`

func writeTempPLY(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "model.ply")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp ply: %v", err)
	}
	return path
}

// A PLY with 4 vertices and 2 triangles sharing an edge preprocesses
// into one mesh block with vtx_count==4, tri_count==2, and the shared
// vertex (index 0) packed to the same local index in both triangles.
func TestSharedEdgeProducesOneBlockWithCompactedVertices(t *testing.T) {
	path := writeTempPLY(t, quadPLY)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.Subdivide(8, 8)

	mngr := resource.NewManager()
	m.Reserve(mngr)
	mngr.Alloc()
	groupID := m.Fill(mngr, 0)

	if !mngr.Full() {
		t.Fatalf("reservation not fully consumed: groups %d/%d vtx %d/%d tri %d/%d",
			mngr.GroupCount(), len(mngr.GroupTable()),
			mngr.VertexCount(), len(mngr.VertexTable()),
			mngr.TriangleCount(), len(mngr.TriangleTable()))
	}
	if mngr.VertexCount() != 4 {
		t.Errorf("vtx_count = %d, want 4", mngr.VertexCount())
	}
	if mngr.TriangleCount() != 2 {
		t.Errorf("tri_count = %d, want 2", mngr.TriangleCount())
	}

	_, _, sh := device.UnpackGroupID(groupID)
	if sh != device.ShMesh {
		t.Fatalf("root group shader kind = %d, want ShMesh", sh)
	}
	mesh := mngr.Group(0).AsMeshShader()

	tri0 := mngr.TriangleTable()[mesh.TriOffs]
	tri1 := mngr.TriangleTable()[mesh.TriOffs+1]
	i0a, _, _ := tri0.Indices()
	i0b, _, _ := tri1.Indices()
	if i0a != i0b {
		t.Errorf("shared vertex packed to local indices %d and %d, want equal", i0a, i0b)
	}
}

// Every packed triangle index is < the block's vtx_count.
func TestMeshIndexValidity(t *testing.T) {
	path := writeTempPLY(t, quadPLY)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.Subdivide(8, 8)

	mngr := resource.NewManager()
	m.Reserve(mngr)
	mngr.Alloc()
	m.Fill(mngr, 0)

	mesh := mngr.Group(0).AsMeshShader()
	vtxCount := mngr.VertexCount()
	for i := uint32(0); i < mesh.TriCount; i++ {
		tri := mngr.TriangleTable()[mesh.TriOffs+i]
		i0, i1, i2 := tri.Indices()
		for _, idx := range []uint32{i0, i1, i2} {
			if idx >= vtxCount {
				t.Errorf("triangle %d references local index %d, want < %d", i, idx, vtxCount)
			}
		}
	}
}

// A leaf's vertex range spans the quad's corners, and every leaf AABB
// entry encloses every vertex its triangles reference.
func TestBoundsContainment(t *testing.T) {
	path := writeTempPLY(t, quadPLY)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.Subdivide(8, 8)

	mngr := resource.NewManager()
	m.Reserve(mngr)
	mngr.Alloc()
	m.Fill(mngr, 0)

	mesh := mngr.Group(0).AsMeshShader()
	var minB, maxB mgl32.Vec3
	first := true
	for i := uint32(0); i < 4; i++ {
		v := mngr.VertexTable()[mesh.VtxOffs+i]
		if first {
			minB, maxB = v.Pos, v.Pos
			first = false
			continue
		}
		minB, maxB = device.UnionBounds(minB, maxB, v.Pos, v.Pos)
	}
	if minB.X() != 0 || minB.Y() != 0 || maxB.X() != 1 || maxB.Y() != 1 {
		t.Errorf("bounds = [%v, %v], want unit quad", minB, maxB)
	}

	strip := buildStrip(t, 100)
	for _, box := range strip.AABBTable() {
		index, _, sh := device.UnpackGroupID(box.GroupID)
		if sh != device.ShMesh {
			continue
		}
		leaf := strip.Group(index).AsMeshShader()
		for i := uint32(0); i < leaf.TriCount; i++ {
			i0, i1, i2 := strip.TriangleTable()[leaf.TriOffs+i].Indices()
			for _, idx := range []uint32{i0, i1, i2} {
				p := strip.VertexTable()[leaf.VtxOffs+idx].Pos
				for k := 0; k < 3; k++ {
					if p[k] < box.Min[k] || p[k] > box.Max[k] {
						t.Errorf("leaf %#x: vertex %v outside [%v, %v]", box.GroupID, p, box.Min, box.Max)
					}
				}
			}
		}
	}
}

func TestLoadRejectsOutOfRangeIndex(t *testing.T) {
	bad := `ply
format ascii 1.0
element vertex 1
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
3 0 1 2
`
	path := writeTempPLY(t, bad)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an out-of-range vertex index")
	}
}

func TestLoadSkipsExtraVertexProperties(t *testing.T) {
	withExtras := `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
property float nx
property float ny
property float nz
element face 1
property list uchar uint vertex_indices
end_header
0 0 0 0 0 1
1 0 0 0 0 1
0 1 0 0 0 1
3 0 1 2
`
	path := writeTempPLY(t, withExtras)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.VertexCount() != 3 || m.TriangleCount() != 1 {
		t.Errorf("got %d vertices / %d triangles, want 3/1", m.VertexCount(), m.TriangleCount())
	}
}

// Four triangles along one axis subdivided at tri_threshold=2 make a
// two-level tree: root over two internal splits over four leaves.
const stripPLY = `ply
format ascii 1.0
element vertex 6
property float x
property float y
property float z
element face 4
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
2 0 0
3 0 0
4 0 0
2 1 0
3 0 1 5
3 1 2 5
3 2 3 5
3 3 4 5
`

func buildStrip(t *testing.T, aabbThreshold uint32) *resource.Manager {
	t.Helper()
	path := writeTempPLY(t, stripPLY)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.Subdivide(2, aabbThreshold)

	mngr := resource.NewManager()
	m.Reserve(mngr)
	mngr.Alloc()
	m.Fill(mngr, 0)
	if !mngr.Full() {
		t.Fatalf("reservation not fully consumed")
	}
	return mngr
}

func TestSubdivideInlinesSmallSubtrees(t *testing.T) {
	// With a high aabb_threshold the two-leaf internal nodes stay
	// inlined: only the root materializes an AABB group, and its array
	// holds all four leaves directly.
	mngr := buildStrip(t, 100)
	if mngr.GroupCount() != 5 {
		t.Errorf("group_count = %d, want 5 (four leaves + root, internal splits inlined)", mngr.GroupCount())
	}
	if mngr.AABBCount() != 4 {
		t.Errorf("aabb_count = %d, want 4 (all leaves in the root's array)", mngr.AABBCount())
	}

	// Dropping the threshold to 2 materializes both internal splits:
	// two more groups, and the root's array now holds the two internal
	// nodes instead of the leaves.
	mngr = buildStrip(t, 2)
	if mngr.GroupCount() != 7 {
		t.Errorf("group_count = %d, want 7 (four leaves + two internals + root)", mngr.GroupCount())
	}
	if mngr.AABBCount() != 6 {
		t.Errorf("aabb_count = %d, want 6 (2 in the root, 2 per internal)", mngr.AABBCount())
	}
}
