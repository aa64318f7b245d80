package device

import "testing"

func TestPackUnpackGroupIDRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		index uint32
		tr    TransformKind
		sh    ShaderKind
	}{
		{0, TrNone, ShSpawn},
		{1, TrNone, ShSky},
		{2, TrNone, ShLight},
		{0xFFFFFF, TrAffine, ShMesh},
		{12345, TrOrtho, ShAABB},
	} {
		id := PackGroupID(tc.index, tc.tr, tc.sh)
		index, tr, sh := UnpackGroupID(id)
		if index != tc.index || tr != tc.tr || sh != tc.sh {
			t.Errorf("pack/unpack(%d,%d,%d) round-tripped to (%d,%d,%d)",
				tc.index, tc.tr, tc.sh, index, tr, sh)
		}
	}
}

func TestPredefinedGroupIDs(t *testing.T) {
	if SpawnGroupID != 0 {
		t.Errorf("spawn_group should be id 0, got %#x", SpawnGroupID)
	}
	index, tr, sh := UnpackGroupID(SkyGroupID)
	if index != 1 || tr != TrNone || sh != ShSky {
		t.Errorf("sky_group unpacked to (%d,%d,%d)", index, tr, sh)
	}
	index, tr, sh = UnpackGroupID(LightGroupID)
	if index != 2 || tr != TrNone || sh != ShLight {
		t.Errorf("light_group unpacked to (%d,%d,%d)", index, tr, sh)
	}
}

func TestGroupUnionRoundTrip(t *testing.T) {
	mesh := MeshShader{VtxOffs: 10, TriOffs: 20, TriCount: 5, MaterialID: 3}
	g := NewMeshShaderGroup(mesh)
	data := g.ToBytes()
	if len(data) != groupSize {
		t.Fatalf("expected %d bytes, got %d", groupSize, len(data))
	}
	if got := g.AsMeshShader(); got != mesh {
		t.Errorf("mesh shader round-trip: got %+v, want %+v", got, mesh)
	}

	aabb := AABBShader{AABBOffs: 7, AABBCount: 2, Flags: FLocal0}
	g = NewAABBShaderGroup(aabb)
	if got := g.AsAABBShader(); got != aabb {
		t.Errorf("aabb shader round-trip: got %+v, want %+v", got, aabb)
	}

	mat := MatShader{Color: [4]float32{0.2, 0.4, 0.6, 1}}
	g = NewMatShaderGroup(mat.Color)
	if got := g.AsMatShader(); got != mat {
		t.Errorf("mat shader round-trip: got %+v, want %+v", got, mat)
	}
}
