package device

import "testing"

func TestRayQueuePushHitKeepsSortedOrder(t *testing.T) {
	var q RayQueue
	q.PushHit(RayHit{T: 5})
	q.PushHit(RayHit{T: 1})
	q.PushHit(RayHit{T: 3})

	if q.QueueLen != 3 {
		t.Fatalf("queue len = %d, want 3", q.QueueLen)
	}
	var last float32 = -1
	for i := 0; i < int(q.QueueLen); i++ {
		if q.Queue[i].T < last {
			t.Fatalf("queue not sorted: %v", q.Queue[:q.QueueLen])
		}
		last = q.Queue[i].T
	}
}

func TestRayQueueOverflowDropsFarthest(t *testing.T) {
	var q RayQueue
	for i := 0; i < MaxQueueLen; i++ {
		q.PushHit(RayHit{T: float32(i)})
	}
	if q.QueueLen != MaxQueueLen {
		t.Fatalf("queue len = %d, want %d", q.QueueLen, MaxQueueLen)
	}
	q.PushHit(RayHit{T: -1})
	if q.QueueLen != MaxQueueLen {
		t.Fatalf("queue should stay capped at %d, got %d", MaxQueueLen, q.QueueLen)
	}
	if q.Queue[0].T != -1 {
		t.Errorf("nearest hit should have displaced the farthest, got %v", q.Queue[0])
	}
	if q.Queue[MaxQueueLen-1].T == float32(MaxQueueLen-1) {
		t.Errorf("farthest original hit should have been dropped")
	}
}

func TestRayQueuePopHitReturnsNearestFirst(t *testing.T) {
	var q RayQueue
	q.PushHit(RayHit{T: 2})
	q.PushHit(RayHit{T: 1})
	h, ok := q.PopHit()
	if !ok || h.T != 1 {
		t.Fatalf("pop = (%v, %v), want (T:1, true)", h, ok)
	}
}

func TestRayQueueToBytesLength(t *testing.T) {
	var q RayQueue
	if got := len(q.ToBytes()); got != rayQueueSize {
		t.Errorf("ToBytes length = %d, want %d", got, rayQueueSize)
	}
}
