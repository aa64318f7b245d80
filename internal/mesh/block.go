package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/MrSmile/RayTracer/internal/device"
	"github.com/MrSmile/RayTracer/internal/resource"
	"github.com/go-gl/mathgl/mgl32"
)

type modelTriangle struct {
	center mgl32.Vec3
	pt     [3]*ModelVertex
}

// triangleBlock is one node of the median-axis BVH built over a
// model's triangles. Leaves (left == nil) own a contiguous run of
// triangles; internal nodes always have both children, regardless of
// whether the node ends up materialized as its own AABB group.
type triangleBlock struct {
	min, max mgl32.Vec3
	tris     []*modelTriangle

	left, right *triangleBlock

	// aabbCount is nonzero only when this node is materialized as its
	// own AABB group; zero means its subtree was small enough to be
	// inlined directly into the enclosing AABB array.
	aabbCount uint32
	vtxCount  uint32
}

func newTriangleBlock(min, max mgl32.Vec3, tris []*modelTriangle) *triangleBlock {
	return &triangleBlock{min: min, max: max, tris: tris}
}

// subdivide recursively splits this block by the axis of largest
// extent, at the midpoint of the triangle count (not of space), until
// tri_count falls below triThreshold. It returns the number of entries
// the node adds to its enclosing AABB array: 1 for a leaf or a
// materialized node, the children's summed entries for an inlined one.
// A non-root internal node whose children add fewer than aabbThreshold
// entries is left un-materialized (inlined), keeping AABB fan-out high.
func (b *triangleBlock) subdivide(triThreshold, aabbThreshold uint32) uint32 {
	return b.subdivideNode(triThreshold, aabbThreshold, true)
}

func (b *triangleBlock) subdivideNode(triThreshold, aabbThreshold uint32, root bool) uint32 {
	if uint32(len(b.tris)) < triThreshold {
		return 1
	}

	delta := b.max.Sub(b.min)
	axis := 0
	if delta.Y() > delta.X() && delta.Y() > delta.Z() {
		axis = 1
	} else if delta.Z() > delta.X() && delta.Z() > delta.Y() {
		axis = 2
	}

	sort.Slice(b.tris, func(i, j int) bool {
		return b.tris[i].center[axis] < b.tris[j].center[axis]
	})

	center := len(b.tris) / 2
	leftMax, rightMin := b.max, b.min
	leftMax[axis] = b.tris[center-1].center[axis]
	rightMin[axis] = b.tris[center].center[axis]

	b.left = newTriangleBlock(b.min, leftMax, b.tris[:center])
	b.right = newTriangleBlock(rightMin, b.max, b.tris[center:])

	blockCount := b.left.subdivideNode(triThreshold, aabbThreshold, false) +
		b.right.subdivideNode(triThreshold, aabbThreshold, false)
	if !root && blockCount < aabbThreshold {
		return blockCount
	}
	b.aabbCount = blockCount
	return 1
}

// reserve walks the tree once, computing the group/AABB/vertex/
// triangle counts it will contribute, and resets each vertex's
// leaf-local index back to -1 so it can be compacted again during
// fill (and, independently, by any other leaf that shares it).
func (b *triangleBlock) reserve(mngr *resource.Manager) {
	if b.left != nil {
		b.left.reserve(mngr)
		b.right.reserve(mngr)
		if b.aabbCount == 0 {
			return
		}
		mngr.ReserveGroups(1)
		mngr.ReserveAABBs(b.aabbCount)
		return
	}

	mngr.ReserveGroups(1)
	mngr.ReserveTriangles(uint32(len(b.tris)))

	pos := 0
	for _, tri := range b.tris {
		for _, v := range tri.pt {
			if v.localIndex < 0 {
				v.localIndex = int32(pos)
				pos++
			}
		}
	}
	for _, tri := range b.tris {
		tri.pt[0].localIndex, tri.pt[1].localIndex, tri.pt[2].localIndex = -1, -1, -1
	}
	if pos >= device.LocalVertexMax {
		panic(fmt.Sprintf("mesh: leaf block has %d distinct vertices, exceeds the %d-index local budget", pos, device.LocalVertexMax))
	}
	b.vtxCount = uint32(pos)
	mngr.ReserveVertices(b.vtxCount)
}

// putVertex assigns vtx a leaf-local index the first time it is seen,
// writes it into the leaf's vertex range, and folds its position into
// the running bounds. Idempotent within one fill pass: subsequent
// calls for the same vertex in the same leaf return the index already
// assigned.
func putVertex(vtx *ModelVertex, min, max *mgl32.Vec3, vtxTable []device.Vertex, base uint32, pos *int) uint32 {
	if vtx.localIndex >= 0 {
		return base + uint32(vtx.localIndex)
	}
	index := *pos
	vtx.localIndex = int32(index)
	*pos++
	vtxTable[base+uint32(index)] = device.Vertex{Pos: vtx.Pos, Norm: vtx.Norm}
	*min, *max = device.UnionBounds(*min, *max, vtx.Pos, vtx.Pos)
	return base + uint32(index)
}

// fill writes this node's Group (and, if aabbIndex is non-nil, its
// enclosing AABB slot) after reserve has sized the arena. It returns
// the packed group id this node was written under (0 for an inlined
// internal node, which contributes no group of its own).
func (b *triangleBlock) fill(mngr *resource.Manager, materialID uint32, aabbIndex *uint32) uint32 {
	if b.left != nil {
		if b.aabbCount == 0 {
			b.left.fill(mngr, materialID, aabbIndex)
			b.right.fill(mngr, materialID, aabbIndex)
			b.min, b.max = device.UnionBounds(b.left.min, b.left.max, b.right.min, b.right.max)
			return 0
		}

		grpPos := mngr.Groups(1)
		aabbFirst := mngr.AABBs(b.aabbCount)
		aabbCursor := aabbFirst

		b.left.fill(mngr, materialID, &aabbCursor)
		b.right.fill(mngr, materialID, &aabbCursor)
		if aabbCursor != aabbFirst+b.aabbCount {
			panic(fmt.Sprintf("mesh: aabb fill wrote %d entries, reserved %d", aabbCursor-aabbFirst, b.aabbCount))
		}
		b.min, b.max = device.UnionBounds(b.left.min, b.left.max, b.right.min, b.right.max)

		groupID := device.PackGroupID(grpPos, device.TrOrtho, device.ShAABB)
		*mngr.Group(grpPos) = device.NewAABBShaderGroup(device.AABBShader{
			AABBOffs: aabbFirst, AABBCount: b.aabbCount,
		})
		if aabbIndex != nil {
			*mngr.AABB(*aabbIndex) = device.AABB{Min: b.min, Max: b.max, GroupID: groupID}
			*aabbIndex++
		}
		return groupID
	}

	grpPos := mngr.Groups(1)
	vtxFirst := mngr.Vertices(b.vtxCount)
	triFirst := mngr.Triangles(uint32(len(b.tris)))

	vtxTable := mngr.VertexTable()
	triTable := mngr.TriangleTable()

	pos := 0
	b.min = mgl32.Vec3{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}
	b.max = mgl32.Vec3{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))}
	for i, tri := range b.tris {
		i0 := putVertex(tri.pt[0], &b.min, &b.max, vtxTable, vtxFirst, &pos)
		i1 := putVertex(tri.pt[1], &b.min, &b.max, vtxTable, vtxFirst, &pos)
		i2 := putVertex(tri.pt[2], &b.min, &b.max, vtxTable, vtxFirst, &pos)
		triTable[triFirst+uint32(i)] = device.PackTriangle(i0-vtxFirst, i1-vtxFirst, i2-vtxFirst)
	}
	for _, tri := range b.tris {
		tri.pt[0].localIndex, tri.pt[1].localIndex, tri.pt[2].localIndex = -1, -1, -1
	}
	if uint32(pos) != b.vtxCount {
		panic(fmt.Sprintf("mesh: leaf wrote %d vertices, reserved %d", pos, b.vtxCount))
	}

	groupID := device.PackGroupID(grpPos, device.TrOrtho, device.ShMesh)
	*mngr.Group(grpPos) = device.NewMeshShaderGroup(device.MeshShader{
		VtxOffs: vtxFirst, TriOffs: triFirst, TriCount: uint32(len(b.tris)), MaterialID: materialID,
	})
	if aabbIndex != nil {
		*mngr.AABB(*aabbIndex) = device.AABB{Min: b.min, Max: b.max, GroupID: groupID}
		*aabbIndex++
	}
	return groupID
}
