package device

import "github.com/go-gl/mathgl/mgl32"

// MaxQueueLen is the per-ray hit-queue budget. The source corpus shows
// variants ranging 8-16-64; the largest observed (64) is the budget
// this module implements, with overflow handled by shading early
// rather than by spilling.
const MaxQueueLen = 64

// MaxHits bounds how many root/secondary hit records a ray tracks.
const MaxHits = 64

type RayType uint32

const (
	RayPrimary RayType = iota
	RayShadow
)

// Ray packs origin+tMin and direction+tMax into two float4 lanes so a
// single 4-wide load yields both halves together.
type Ray struct {
	Origin mgl32.Vec3
	TMin   float32
	Dir    mgl32.Vec3
	TMax   float32
}

const raySize = 32

func (r Ray) ToBytes() []byte {
	buf := make([]byte, raySize)
	putVec3(buf, 0, r.Origin)
	putFloat32(buf, 12, r.TMin)
	putVec3(buf, 16, r.Dir)
	putFloat32(buf, 28, r.TMax)
	return buf
}

// RayHit records one recorded intersection: distance plus the group
// and local id of the node it struck.
type RayHit struct {
	T       float32
	GroupID uint32
	LocalID uint32
}

const rayHitSize = 16

func (h RayHit) ToBytes() []byte {
	buf := make([]byte, rayHitSize)
	putFloat32(buf, 0, h.T)
	putUint32(buf, 4, h.GroupID)
	putUint32(buf, 8, h.LocalID)
	return buf
}

// RayQueue is the full per-ray record carried through the pipeline: an
// accumulated weight, bookkeeping (owning pixel, ray type, material id,
// queue length), the ray itself, a surface normal slot, the active
// root/origin hits, and the bounded queue of hits still to visit.
type RayQueue struct {
	Weight     [4]float32
	Pixel      uint32
	Type       RayType
	MaterialID uint32
	QueueLen   uint32
	Ray        Ray
	Norm       mgl32.Vec3
	Root, Orig RayHit
	Queue      [MaxQueueLen]RayHit
}

const rayQueueSize = 16 + 16 + raySize + 16 + 2*rayHitSize + MaxQueueLen*rayHitSize

func (q RayQueue) ToBytes() []byte {
	buf := make([]byte, rayQueueSize)
	off := 0
	for i, v := range q.Weight {
		putFloat32(buf, i*4, v)
	}
	off += 16
	putUint32(buf, off, q.Pixel)
	putUint32(buf, off+4, uint32(q.Type))
	putUint32(buf, off+8, q.MaterialID)
	putUint32(buf, off+12, q.QueueLen)
	off += 16
	copy(buf[off:], q.Ray.ToBytes())
	off += raySize
	putVec3(buf, off, q.Norm)
	off += 16
	copy(buf[off:], q.Root.ToBytes())
	off += rayHitSize
	copy(buf[off:], q.Orig.ToBytes())
	off += rayHitSize
	for _, h := range q.Queue {
		copy(buf[off:], h.ToBytes())
		off += rayHitSize
	}
	return buf
}

// PushHit inserts a hit into the queue in sorted min-t order, dropping
// the farthest entry on overflow rather than growing the queue.
func (q *RayQueue) PushHit(h RayHit) {
	n := int(q.QueueLen)
	if n < MaxQueueLen {
		q.Queue[n] = h
		n++
	} else if h.T >= q.Queue[n-1].T {
		return
	}
	i := n - 1
	for i > 0 && q.Queue[i-1].T > h.T {
		q.Queue[i] = q.Queue[i-1]
		i--
	}
	q.Queue[i] = h
	q.QueueLen = uint32(n)
}

// PopHit removes and returns the nearest queued hit.
func (q *RayQueue) PopHit() (RayHit, bool) {
	if q.QueueLen == 0 {
		return RayHit{}, false
	}
	h := q.Queue[0]
	q.QueueLen--
	copy(q.Queue[:q.QueueLen], q.Queue[1:q.QueueLen+1])
	return h, true
}
