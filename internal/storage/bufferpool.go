package storage

import (
	"errors"
	"log/slog"
)

// Sentinel errors surfaced when the pool cannot service a request. Neither
// is recoverable locally — every caller must tolerate them and propagate.
var (
	ErrPoolExhausted = errors.New("storage: buffer pool has no evictable frame")
	ErrDiskFull      = errors.New("storage: disk has no free page")
)

// Frame is one buffer pool cache slot: a page-sized buffer plus the
// metadata the BPM needs to decide when it may be reused.
type Frame struct {
	Data     []byte
	PageID   PageID
	Occupied bool
	PinCount int32
	Dirty    bool
}

// BufferPoolManager is a fixed-size cache of disk pages. It is the only
// path through which callers read or mutate page bytes; the disk manager
// is never touched directly once a BPM owns it.
type BufferPoolManager struct {
	frames    []Frame
	pageTable map[PageID]FrameID
	freeList  []FrameID
	replacer  *LRUReplacer
	disk      *DiskManager

	HitCount  uint64
	MissCount uint64
}

// NewBufferPoolManager builds a pool of poolSize frames backed by disk.
func NewBufferPoolManager(poolSize uint32, disk *DiskManager) *BufferPoolManager {
	frames := make([]Frame, poolSize)
	free := make([]FrameID, poolSize)
	for i := range frames {
		frames[i].Data = make([]byte, disk.PageSize())
		// Reversed so acquireFrame's tail-pop hands out frame 0 first.
		free[poolSize-1-uint32(i)] = FrameID(i)
	}
	return &BufferPoolManager{
		frames:    frames,
		pageTable: make(map[PageID]FrameID),
		freeList:  free,
		replacer:  NewLRUReplacer(),
		disk:      disk,
	}
}

func (bp *BufferPoolManager) PageSize() uint32    { return bp.disk.PageSize() }
func (bp *BufferPoolManager) PoolSize() int       { return len(bp.frames) }
func (bp *BufferPoolManager) Disk() *DiskManager  { return bp.disk }
func (bp *BufferPoolManager) Replacer() *LRUReplacer { return bp.replacer }

// PageTable is a read-only view for snapshotting.
func (bp *BufferPoolManager) PageTable() map[PageID]FrameID { return bp.pageTable }

// FrameData exposes a frame's raw bytes for components (overflow, heap)
// that need to read/write page contents directly.
func (bp *BufferPoolManager) FrameData(frame FrameID) []byte {
	return bp.frames[frame].Data
}

// FrameSnapshot reports a frame's metadata for introspection, without
// touching pin state or recency.
func (bp *BufferPoolManager) FrameSnapshot(frame FrameID) (pageID PageID, pinCount int32, dirty bool, occupied bool) {
	f := &bp.frames[frame]
	return f.PageID, f.PinCount, f.Dirty, f.Occupied
}

// FetchPage pins and returns the frame holding pageID, loading it from
// disk on a miss.
func (bp *BufferPoolManager) FetchPage(id PageID) (FrameID, error) {
	if fid, ok := bp.pageTable[id]; ok {
		f := &bp.frames[fid]
		f.PinCount++
		bp.replacer.SetEvictable(fid, false)
		bp.replacer.RecordAccess(fid)
		bp.HitCount++
		slog.Debug("bufferpool: fetch_page hit", "page_id", id, "frame_id", fid)
		return fid, nil
	}

	bp.MissCount++
	fid, err := bp.acquireFrame()
	if err != nil {
		return 0, err
	}

	f := &bp.frames[fid]
	bp.disk.ReadPage(id, f.Data)
	f.PageID = id
	f.Occupied = true
	f.PinCount = 1
	f.Dirty = false
	bp.pageTable[id] = fid
	bp.replacer.RecordAccess(fid)
	bp.replacer.SetEvictable(fid, false)
	slog.Debug("bufferpool: fetch_page miss", "page_id", id, "frame_id", fid)
	return fid, nil
}

// NewPage allocates a fresh disk page, loads it pinned+dirty into a frame,
// and returns both ids.
func (bp *BufferPoolManager) NewPage() (PageID, FrameID, error) {
	id, ok := bp.disk.AllocatePage()
	if !ok {
		return 0, 0, ErrDiskFull
	}

	fid, err := bp.acquireFrame()
	if err != nil {
		bp.disk.DeallocatePage(id)
		return 0, 0, err
	}

	f := &bp.frames[fid]
	Init(f.Data, id, PageTypeData)
	f.PageID = id
	f.Occupied = true
	f.PinCount = 1
	f.Dirty = true
	bp.pageTable[id] = fid
	bp.replacer.RecordAccess(fid)
	bp.replacer.SetEvictable(fid, false)
	slog.Debug("bufferpool: new_page", "page_id", id, "frame_id", fid)
	return id, fid, nil
}

// UnpinPage decrements pageID's pin count, ORing wasDirty into the
// frame's dirty flag, and marks it evictable once the count reaches zero.
func (bp *BufferPoolManager) UnpinPage(id PageID, wasDirty bool) bool {
	fid, ok := bp.pageTable[id]
	if !ok {
		return false
	}
	f := &bp.frames[fid]
	if f.PinCount == 0 {
		return false
	}
	f.PinCount--
	f.Dirty = f.Dirty || wasDirty
	if f.PinCount == 0 {
		bp.replacer.SetEvictable(fid, true)
	}
	return true
}

// FlushPage writes pageID's frame to disk and clears dirty, without
// touching pin state.
func (bp *BufferPoolManager) FlushPage(id PageID) bool {
	fid, ok := bp.pageTable[id]
	if !ok {
		return false
	}
	f := &bp.frames[fid]
	bp.disk.WritePage(id, f.Data)
	f.Dirty = false
	return true
}

// FlushAll flushes every dirty pooled page.
func (bp *BufferPoolManager) FlushAll() {
	for id, fid := range bp.pageTable {
		if bp.frames[fid].Dirty {
			bp.disk.WritePage(id, bp.frames[fid].Data)
			bp.frames[fid].Dirty = false
		}
	}
}

// DeletePage evicts pageID from the pool (failing if pinned) and
// deallocates it on disk.
func (bp *BufferPoolManager) DeletePage(id PageID) bool {
	if fid, ok := bp.pageTable[id]; ok {
		f := &bp.frames[fid]
		if f.PinCount > 0 {
			return false
		}
		delete(bp.pageTable, id)
		bp.replacer.Remove(fid)
		f.PageID = 0
		f.Occupied = false
		f.Dirty = false
		clear(f.Data)
		bp.freeList = append(bp.freeList, fid)
	}
	bp.disk.DeallocatePage(id)
	return true
}

// PageToFrame looks up a currently pooled page's frame without touching
// pin state or recency.
func (bp *BufferPoolManager) PageToFrame(id PageID) (FrameID, bool) {
	fid, ok := bp.pageTable[id]
	return fid, ok
}

func (bp *BufferPoolManager) acquireFrame() (FrameID, error) {
	if n := len(bp.freeList); n > 0 {
		fid := bp.freeList[n-1]
		bp.freeList = bp.freeList[:n-1]
		return fid, nil
	}

	victim, ok := bp.replacer.Evict()
	if !ok {
		return 0, ErrPoolExhausted
	}

	f := &bp.frames[victim]
	if f.Dirty {
		bp.disk.WritePage(f.PageID, f.Data)
		f.Dirty = false
		slog.Debug("bufferpool: evicted dirty frame", "page_id", f.PageID, "frame_id", victim)
	}
	delete(bp.pageTable, f.PageID)
	f.PageID = 0
	f.Occupied = false
	return victim, nil
}
