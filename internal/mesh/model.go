package mesh

import (
	"fmt"
	"math"

	"github.com/MrSmile/RayTracer/internal/device"
	"github.com/MrSmile/RayTracer/internal/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// ModelVertex is a host-side vertex: its position/normal plus the
// scratch leaf-local index the BVH builder assigns during fill and
// resets afterward so the same vertex can be compacted independently
// by every leaf that references it.
type ModelVertex struct {
	Pos, Norm  mgl32.Vec3
	localIndex int32
}

// Model owns one loaded mesh's vertices/triangles and the BVH built
// over them. Once Fill has run, the model no longer aliases its
// parsed arrays for anything but Put (world-space instance bounds).
type Model struct {
	vertices  []ModelVertex
	triangles []modelTriangle
	root      *triangleBlock

	groupID uint32
	filled  bool
}

// prepare zeroes normals, accumulates each triangle's un-normalized
// face normal into its vertices, normalizes the result, and seeds the
// BVH's root bounds from triangle centroids.
func (m *Model) prepare() {
	for i := range m.vertices {
		m.vertices[i].Norm = mgl32.Vec3{}
		m.vertices[i].localIndex = -1
	}

	minB := mgl32.Vec3{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}
	maxB := mgl32.Vec3{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))}

	triPtrs := make([]*modelTriangle, len(m.triangles))
	for i := range m.triangles {
		tri := &m.triangles[i]
		p0, p1, p2 := tri.pt[0].Pos, tri.pt[1].Pos, tri.pt[2].Pos
		tri.center = p0.Add(p1).Add(p2).Mul(1.0 / 3.0)
		norm := p1.Sub(p0).Cross(p2.Sub(p0))
		tri.pt[0].Norm = tri.pt[0].Norm.Add(norm)
		tri.pt[1].Norm = tri.pt[1].Norm.Add(norm)
		tri.pt[2].Norm = tri.pt[2].Norm.Add(norm)
		minB, maxB = device.UnionBounds(minB, maxB, tri.center, tri.center)
		triPtrs[i] = tri
	}
	for i := range m.vertices {
		if l := m.vertices[i].Norm.Len(); l > 0 {
			m.vertices[i].Norm = m.vertices[i].Norm.Mul(1 / l)
		}
	}

	m.root = newTriangleBlock(minB, maxB, triPtrs)
}

// Subdivide builds the median-axis triangle BVH over the loaded mesh.
// Must be called once, before Reserve.
func (m *Model) Subdivide(triThreshold, aabbThreshold uint32) {
	m.root.subdivide(triThreshold, aabbThreshold)
}

// Reserve requests the group/AABB/vertex/triangle ranges this model's
// tree will need from mngr. Must precede mngr.Alloc.
func (m *Model) Reserve(mngr *resource.Manager) {
	m.root.reserve(mngr)
}

// Fill materializes this model's Group/AABB/Vertex/Triangle records
// into mngr after Alloc, and returns the packed group id of its root
// (the id later instances' AABB entries point at).
func (m *Model) Fill(mngr *resource.Manager, materialID uint32) uint32 {
	m.groupID = m.root.fill(mngr, materialID, nil)
	m.filled = true
	return m.groupID
}

// Put evaluates this model's bounds under mat and returns the
// instance AABB entry pointing back at the shared mesh root group.
// Every vertex is re-transformed (no cached local-space AABB is
// reused) so the result is a tight world-space bound, not the looser
// bound of transforming the untransformed AABB's eight corners.
func (m *Model) Put(mat device.Matrix, localID uint32) device.AABB {
	if !m.filled {
		panic("mesh: Put called before Fill")
	}
	minB := mgl32.Vec3{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}
	maxB := mgl32.Vec3{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))}
	for _, v := range m.vertices {
		p := mat.Apply(v.Pos)
		minB, maxB = device.UnionBounds(minB, maxB, p, p)
	}
	return device.AABB{Min: minB, Max: maxB, GroupID: m.groupID, LocalID: localID}
}

// GroupID returns the root group id assigned by Fill. Panics if Fill
// has not run yet.
func (m *Model) GroupID() uint32 {
	if !m.filled {
		panic("mesh: GroupID called before Fill")
	}
	return m.groupID
}

// VertexCount reports the number of vertices this model's PLY data
// declared, for diagnostics.
func (m *Model) VertexCount() int { return len(m.vertices) }

// TriangleCount reports the number of triangles this model's PLY data
// declared, for diagnostics.
func (m *Model) TriangleCount() int { return len(m.triangles) }

func (m *Model) String() string {
	return fmt.Sprintf("mesh.Model{vertices:%d triangles:%d}", len(m.vertices), len(m.triangles))
}
