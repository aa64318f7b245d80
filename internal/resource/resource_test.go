package resource

import (
	"testing"

	"github.com/MrSmile/RayTracer/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveThenAllocThenFill(t *testing.T) {
	m := NewManager()
	m.ReserveGroups(3)
	m.ReserveAABBs(5)
	m.ReserveVertices(12)
	m.ReserveTriangles(4)
	m.Alloc()

	first := m.Groups(3)
	assert.EqualValues(t, 0, first)

	aabbFirst := m.AABBs(5)
	assert.EqualValues(t, 0, aabbFirst)

	vtxFirst := m.Vertices(12)
	assert.EqualValues(t, 0, vtxFirst)

	triFirst := m.Triangles(4)
	assert.EqualValues(t, 0, triFirst)

	assert.True(t, m.Full(), "every reservation should have been consumed")

	*m.Group(0) = device.NewMatShaderGroup([4]float32{1, 0, 0, 1})
	require.NotPanics(t, func() { m.Group(2) })
}

func TestGroupsOverrunsReservationPanics(t *testing.T) {
	m := NewManager()
	m.ReserveGroups(2)
	m.Alloc()

	assert.Panics(t, func() { m.Groups(3) })
}

func TestReadBeforeWriteWithinCursorIsAllowed(t *testing.T) {
	m := NewManager()
	m.ReserveAABBs(2)
	m.Alloc()
	m.AABBs(2)

	assert.Panics(t, func() { m.AABB(2) }, "index at the cursor boundary is out of bounds")
	require.NotPanics(t, func() { m.AABB(1) })
}

func TestFullIsFalseWhenReservationUnconsumed(t *testing.T) {
	m := NewManager()
	m.ReserveGroups(3)
	m.Alloc()
	m.Groups(2)

	assert.False(t, m.Full())
}

func TestReserveAfterAllocPanics(t *testing.T) {
	m := NewManager()
	m.Alloc()
	assert.Panics(t, func() { m.ReserveGroups(1) })
}

func TestGetBeforeAllocPanics(t *testing.T) {
	m := NewManager()
	m.ReserveGroups(1)
	assert.Panics(t, func() { m.Groups(1) })
}
