package storage

import "log/slog"

// DiskManager owns a contiguous in-memory byte array standing in for a
// process-owned "disk". Pages are fixed-size slices of that array; a
// free list tracks deallocated ids for reuse, and cumulative read/write
// counters support introspection.
type DiskManager struct {
	storage    []byte
	allocated  []bool
	freeList   []PageID
	numAlloc   uint32
	pageSize   uint32
	maxPages   uint32
	ReadCount  uint64
	WriteCount uint64
}

// NewDiskManager allocates a disk of maxPages pages, each pageSize bytes.
func NewDiskManager(pageSize, maxPages uint32) *DiskManager {
	return &DiskManager{
		storage:   make([]byte, uint64(pageSize)*uint64(maxPages)),
		allocated: make([]bool, maxPages),
		pageSize:  pageSize,
		maxPages:  maxPages,
	}
}

// AllocatePage returns a fresh page id, preferring free-list reuse over a
// bitmap scan so I/O concentrates on low-numbered pages and tests stay
// deterministic. Returns (0, false) when the disk is full.
func (d *DiskManager) AllocatePage() (PageID, bool) {
	if n := len(d.freeList); n > 0 {
		pid := d.freeList[n-1]
		d.freeList = d.freeList[:n-1]
		d.allocated[pid] = true
		d.numAlloc++
		d.zeroPage(pid)
		slog.Debug("storage: disk allocate_page reused", "page_id", pid)
		return pid, true
	}
	for i := uint32(0); i < d.maxPages; i++ {
		if !d.allocated[i] {
			d.allocated[i] = true
			d.numAlloc++
			d.zeroPage(PageID(i))
			slog.Debug("storage: disk allocate_page fresh", "page_id", i)
			return PageID(i), true
		}
	}
	slog.Debug("storage: disk allocate_page failed, disk full", "max_pages", d.maxPages)
	return 0, false
}

// DeallocatePage idempotently returns a page to the free list.
func (d *DiskManager) DeallocatePage(id PageID) {
	if int(id) < len(d.allocated) && d.allocated[id] {
		d.allocated[id] = false
		d.numAlloc--
		d.freeList = append(d.freeList, id)
		slog.Debug("storage: disk deallocate_page", "page_id", id)
	}
}

// ReadPage copies pageSize bytes from storage into buf.
func (d *DiskManager) ReadPage(id PageID, buf []byte) {
	off := d.pageOffset(id)
	copy(buf[:d.pageSize], d.storage[off:off+uint64(d.pageSize)])
	d.ReadCount++
}

// WritePage copies pageSize bytes from buf into storage.
func (d *DiskManager) WritePage(id PageID, buf []byte) {
	off := d.pageOffset(id)
	copy(d.storage[off:off+uint64(d.pageSize)], buf[:d.pageSize])
	d.WriteCount++
}

// IsAllocated reports whether id currently refers to a live page.
func (d *DiskManager) IsAllocated(id PageID) bool {
	return int(id) < len(d.allocated) && d.allocated[id]
}

func (d *DiskManager) PageSize() uint32    { return d.pageSize }
func (d *DiskManager) MaxPages() uint32    { return d.maxPages }
func (d *DiskManager) NumAllocated() uint32 { return d.numAlloc }

// PageData is a read-only view of a page's raw bytes, for snapshotting.
func (d *DiskManager) PageData(id PageID) []byte {
	off := d.pageOffset(id)
	return d.storage[off : off+uint64(d.pageSize)]
}

// AllocationBitmap is a read-only view of which pages are live.
func (d *DiskManager) AllocationBitmap() []bool {
	return d.allocated
}

func (d *DiskManager) pageOffset(id PageID) uint64 {
	return uint64(id) * uint64(d.pageSize)
}

func (d *DiskManager) zeroPage(id PageID) {
	off := d.pageOffset(id)
	clear(d.storage[off : off+uint64(d.pageSize)])
}
