// Package resource implements the two-phase bump arena the mesh
// preprocessor packs the device Group/AABB/Vertex/Triangle tables
// into: every caller must reserve the counts it needs up front, call
// Alloc once, then pull index ranges out with Groups/AABBs/Vertices/
// Triangles and write through Group/AABB/Vertex/Triangle.
//
// Misuse here is a programming error, not a runtime condition, so
// every violation panics rather than returning an error — mirroring
// the assert()-based contract of the preprocessor this is grounded on.
package resource

import (
	"fmt"

	"github.com/MrSmile/RayTracer/internal/device"
)

type Manager struct {
	groups    []device.Group
	aabbs     []device.AABB
	vertices  []device.Vertex
	triangles []device.Triangle

	reservedGroups, reservedAABBs, reservedVertices, reservedTriangles uint32
	allocated                                                          bool

	groupCursor, aabbCursor, vertexCursor, triangleCursor uint32
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) mustNotBeAllocated(call string) {
	if m.allocated {
		panic(fmt.Sprintf("resource: %s called after Alloc", call))
	}
}

func (m *Manager) ReserveGroups(n uint32) {
	m.mustNotBeAllocated("ReserveGroups")
	m.reservedGroups += n
}

func (m *Manager) ReserveAABBs(n uint32) {
	m.mustNotBeAllocated("ReserveAABBs")
	m.reservedAABBs += n
}

func (m *Manager) ReserveVertices(n uint32) {
	m.mustNotBeAllocated("ReserveVertices")
	m.reservedVertices += n
}

func (m *Manager) ReserveTriangles(n uint32) {
	m.mustNotBeAllocated("ReserveTriangles")
	m.reservedTriangles += n
}

// Alloc freezes the reservation totals and backs them with storage.
// Reserve* calls after this point panic.
func (m *Manager) Alloc() {
	if m.allocated {
		panic("resource: Alloc called twice")
	}
	m.allocated = true
	m.groups = make([]device.Group, m.reservedGroups)
	m.aabbs = make([]device.AABB, m.reservedAABBs)
	m.vertices = make([]device.Vertex, m.reservedVertices)
	m.triangles = make([]device.Triangle, m.reservedTriangles)
}

func (m *Manager) mustBeAllocated(call string) {
	if !m.allocated {
		panic(fmt.Sprintf("resource: %s called before Alloc", call))
	}
}

// Groups bump-allocates n group slots and returns the first index.
func (m *Manager) Groups(n uint32) uint32 {
	m.mustBeAllocated("Groups")
	first := m.groupCursor
	if first+n > uint32(len(m.groups)) {
		panic(fmt.Sprintf("resource: Groups(%d) overruns reservation (cursor %d, cap %d)", n, first, len(m.groups)))
	}
	m.groupCursor += n
	return first
}

func (m *Manager) AABBs(n uint32) uint32 {
	m.mustBeAllocated("AABBs")
	first := m.aabbCursor
	if first+n > uint32(len(m.aabbs)) {
		panic(fmt.Sprintf("resource: AABBs(%d) overruns reservation (cursor %d, cap %d)", n, first, len(m.aabbs)))
	}
	m.aabbCursor += n
	return first
}

func (m *Manager) Vertices(n uint32) uint32 {
	m.mustBeAllocated("Vertices")
	first := m.vertexCursor
	if first+n > uint32(len(m.vertices)) {
		panic(fmt.Sprintf("resource: Vertices(%d) overruns reservation (cursor %d, cap %d)", n, first, len(m.vertices)))
	}
	m.vertexCursor += n
	return first
}

func (m *Manager) Triangles(n uint32) uint32 {
	m.mustBeAllocated("Triangles")
	first := m.triangleCursor
	if first+n > uint32(len(m.triangles)) {
		panic(fmt.Sprintf("resource: Triangles(%d) overruns reservation (cursor %d, cap %d)", n, first, len(m.triangles)))
	}
	m.triangleCursor += n
	return first
}

func (m *Manager) Group(i uint32) *device.Group {
	if i >= m.groupCursor {
		panic(fmt.Sprintf("resource: Group(%d) out of bounds (cursor %d)", i, m.groupCursor))
	}
	return &m.groups[i]
}

func (m *Manager) AABB(i uint32) *device.AABB {
	if i >= m.aabbCursor {
		panic(fmt.Sprintf("resource: AABB(%d) out of bounds (cursor %d)", i, m.aabbCursor))
	}
	return &m.aabbs[i]
}

func (m *Manager) Vertex(i uint32) *device.Vertex {
	if i >= m.vertexCursor {
		panic(fmt.Sprintf("resource: Vertex(%d) out of bounds (cursor %d)", i, m.vertexCursor))
	}
	return &m.vertices[i]
}

func (m *Manager) Triangle(i uint32) *device.Triangle {
	if i >= m.triangleCursor {
		panic(fmt.Sprintf("resource: Triangle(%d) out of bounds (cursor %d)", i, m.triangleCursor))
	}
	return &m.triangles[i]
}

// Full reports whether every reservation was eventually consumed by a
// matching Groups/AABBs/Vertices/Triangles call. A false result here
// means reserve and fill walked the scene differently — a programming
// error the caller should assert on, not recover from.
func (m *Manager) Full() bool {
	return m.allocated &&
		m.groupCursor == uint32(len(m.groups)) &&
		m.aabbCursor == uint32(len(m.aabbs)) &&
		m.vertexCursor == uint32(len(m.vertices)) &&
		m.triangleCursor == uint32(len(m.triangles))
}

func (m *Manager) GroupCount() uint32    { return m.groupCursor }
func (m *Manager) AABBCount() uint32     { return m.aabbCursor }
func (m *Manager) VertexCount() uint32   { return m.vertexCursor }
func (m *Manager) TriangleCount() uint32 { return m.triangleCursor }

func (m *Manager) GroupTable() []device.Group       { return m.groups }
func (m *Manager) AABBTable() []device.AABB         { return m.aabbs }
func (m *Manager) VertexTable() []device.Vertex     { return m.vertices }
func (m *Manager) TriangleTable() []device.Triangle { return m.triangles }
