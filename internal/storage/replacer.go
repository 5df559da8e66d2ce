package storage

import "container/list"

// LRUReplacer tracks frame recency and evictability for the buffer pool.
// The access order lives in a container/list.List (front = least recent,
// back = most recent). This type carries no mutex: the engine's
// single-threaded cooperative model means callers serialize access
// themselves.
type LRUReplacer struct {
	order     *list.List
	elems     map[FrameID]*list.Element
	evictable map[FrameID]bool
}

func NewLRUReplacer() *LRUReplacer {
	return &LRUReplacer{
		order:     list.New(),
		elems:     make(map[FrameID]*list.Element),
		evictable: make(map[FrameID]bool),
	}
}

// RecordAccess moves frame to the back of the recency order, inserting it
// if not already tracked.
func (r *LRUReplacer) RecordAccess(frame FrameID) {
	if e, ok := r.elems[frame]; ok {
		r.order.MoveToBack(e)
		return
	}
	r.elems[frame] = r.order.PushBack(frame)
}

// SetEvictable marks frame as a candidate (or not) for Evict, without
// touching its position in the recency order.
func (r *LRUReplacer) SetEvictable(frame FrameID, flag bool) {
	if flag {
		r.evictable[frame] = true
	} else {
		delete(r.evictable, frame)
	}
}

// Evict returns the least-recently-used evictable frame, removing it from
// both the recency order and the evictable set. A non-evictable frame is
// skipped but keeps its place for frames behind it.
func (r *LRUReplacer) Evict() (FrameID, bool) {
	for e := r.order.Front(); e != nil; e = e.Next() {
		frame := e.Value.(FrameID)
		if r.evictable[frame] {
			r.order.Remove(e)
			delete(r.elems, frame)
			delete(r.evictable, frame)
			return frame, true
		}
	}
	return 0, false
}

// Remove drops frame from both the recency order and the evictable set,
// regardless of its evictability.
func (r *LRUReplacer) Remove(frame FrameID) {
	if e, ok := r.elems[frame]; ok {
		r.order.Remove(e)
		delete(r.elems, frame)
	}
	delete(r.evictable, frame)
}

// Size is the number of currently evictable frames.
func (r *LRUReplacer) Size() int {
	return len(r.evictable)
}

// LRUOrder is a read-only snapshot of the recency order, front to back,
// for introspection/snapshotting.
func (r *LRUReplacer) LRUOrder() []FrameID {
	out := make([]FrameID, 0, r.order.Len())
	for e := r.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(FrameID))
	}
	return out
}
