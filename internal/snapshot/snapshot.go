// Package snapshot encodes buffer pool, disk, page, and table state into
// flat little-endian byte buffers for external introspection — the CLI's
// "snapshot" commands and any future visualizer read these instead of
// reaching into engine internals directly.
package snapshot

import (
	"encoding/binary"

	"github.com/tuannm99/novastore/internal/record"
	"github.com/tuannm99/novastore/internal/storage"
)

func appendU8(buf []byte, v uint8) []byte   { return append(buf, v) }
func appendU16(buf []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(buf, v) }
func appendU32(buf []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(buf, v) }
func appendU64(buf []byte, v uint64) []byte { return binary.LittleEndian.AppendUint64(buf, v) }

// BufferPool encodes the pool's full frame table, page table, LRU
// recency order, and cumulative counters.
//
//	pool_size           u32
//	page_size           u32
//	frames[pool_size]:  page_id u32, pin_count u32, is_dirty u8, is_occupied u8
//	page_table_len      u32
//	page_table entries: page_id u32, frame_id u32
//	lru_order_len       u32
//	lru_order entries:  frame_id u32
//	hit_count           u64
//	miss_count          u64
//	disk_read_count     u64
//	disk_write_count    u64
//	disk_num_allocated  u32
//	disk_max_pages      u32
//	disk_base_ptr       u32  (always 0 — there is no real backing address)
func BufferPool(bp *storage.BufferPoolManager) []byte {
	buf := make([]byte, 0, 512)

	buf = appendU32(buf, uint32(bp.PoolSize()))
	buf = appendU32(buf, bp.PageSize())

	for fid := 0; fid < bp.PoolSize(); fid++ {
		pageID, pinCount, dirty, occupied := bp.FrameSnapshot(storage.FrameID(fid))
		if !occupied {
			pageID = storage.InvalidPage
		}
		buf = appendU32(buf, uint32(pageID))
		buf = appendU32(buf, uint32(pinCount))
		buf = appendU8(buf, boolByte(dirty))
		buf = appendU8(buf, boolByte(occupied))
	}

	pt := bp.PageTable()
	buf = appendU32(buf, uint32(len(pt)))
	for pageID, frameID := range pt {
		buf = appendU32(buf, uint32(pageID))
		buf = appendU32(buf, uint32(frameID))
	}

	order := bp.Replacer().LRUOrder()
	buf = appendU32(buf, uint32(len(order)))
	for _, fid := range order {
		buf = appendU32(buf, uint32(fid))
	}

	buf = appendU64(buf, bp.HitCount)
	buf = appendU64(buf, bp.MissCount)
	buf = appendU64(buf, bp.Disk().ReadCount)
	buf = appendU64(buf, bp.Disk().WriteCount)
	buf = appendU32(buf, bp.Disk().NumAllocated())
	buf = appendU32(buf, bp.Disk().MaxPages())
	buf = appendU32(buf, 0) // disk_base_ptr: no real backing address to report

	return buf
}

// Disk encodes the allocation bitmap plus, for each allocated page, the
// page_type byte read straight out of its header.
//
//	max_pages     u32
//	page_size     u32
//	num_allocated u32
//	disk_base_ptr u32
//	per page:     is_allocated u8, page_type u8
func Disk(bp *storage.BufferPoolManager) []byte {
	disk := bp.Disk()
	max := disk.MaxPages()
	buf := make([]byte, 0, 16+int(max)*2)

	buf = appendU32(buf, max)
	buf = appendU32(buf, bp.PageSize())
	buf = appendU32(buf, disk.NumAllocated())
	buf = appendU32(buf, 0)

	bitmap := disk.AllocationBitmap()
	for i := uint32(0); i < max; i++ {
		allocated := bitmap[i]
		buf = appendU8(buf, boolByte(allocated))
		if allocated {
			buf = appendU8(buf, disk.PageData(storage.PageID(i))[4])
		} else {
			buf = appendU8(buf, uint8(storage.PageTypeFree))
		}
	}
	return buf
}

// Page encodes one page's header, slot directory, and complete raw
// bytes, for the page inspector. Returns an error if the page cannot be
// fetched.
//
//	page_size    u32
//	page_id      u32
//	page_type    u8
//	slot_count   u16
//	free_start   u16
//	free_end     u16
//	next_page_id u32
//	free_space   u16
//	num_slots    u16
//	per slot:    offset u16, length u16
//	raw_bytes    [page_size]byte
func Page(bp *storage.BufferPoolManager, pageID storage.PageID) ([]byte, error) {
	frame, err := bp.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	data := bp.FrameData(frame)
	ps := bp.PageSize()

	buf := make([]byte, 0, int(ps)+64)
	buf = appendU32(buf, ps)
	buf = appendU32(buf, uint32(storage.ID(data)))
	buf = appendU8(buf, uint8(storage.Type(data)))
	sc := storage.SlotCount(data)
	buf = appendU16(buf, sc)
	buf = appendU16(buf, storage.FreeStart(data))
	buf = appendU16(buf, storage.FreeEnd(data))
	buf = appendU32(buf, uint32(storage.NextPage(data)))
	buf = appendU16(buf, uint16(storage.FreeSpace(data)))

	buf = appendU16(buf, sc)
	for i := storage.SlotID(0); i < storage.SlotID(sc); i++ {
		offset, length := storage.ReadSlot(data, i)
		buf = appendU16(buf, offset)
		buf = appendU16(buf, length)
	}

	buf = append(buf, data...)

	bp.UnpinPage(pageID, false)
	return buf, nil
}

// Table encodes a table's metadata: name, row count, schema, and the
// full list of pages it owns.
//
//	name_len      u16
//	name          UTF-8 bytes
//	row_count     u32
//	first_page_id u32
//	num_columns   u16
//	per column:   name_len u16, name bytes, type_tag u8, nullable u8, max_len u16
//	page_count    u32
//	page_ids      u32 × page_count
func Table(name string, schema record.Schema, firstPageID storage.PageID, rowCount uint32, pageIDs []storage.PageID) []byte {
	buf := make([]byte, 0, 256)

	nameBytes := []byte(name)
	buf = appendU16(buf, uint16(len(nameBytes)))
	buf = append(buf, nameBytes...)

	buf = appendU32(buf, rowCount)
	buf = appendU32(buf, uint32(firstPageID))

	buf = appendU16(buf, uint16(len(schema.Columns)))
	for _, col := range schema.Columns {
		colName := []byte(col.Name)
		buf = appendU16(buf, uint16(len(colName)))
		buf = append(buf, colName...)
		buf = appendU8(buf, col.Type.TypeTag())
		buf = appendU8(buf, boolByte(col.Nullable))
		maxLen := uint16(0)
		if col.Type.IsVariable() {
			maxLen = col.MaxLen
		}
		buf = appendU16(buf, maxLen)
	}

	buf = appendU32(buf, uint32(len(pageIDs)))
	for _, pid := range pageIDs {
		buf = appendU32(buf, uint32(pid))
	}

	return buf
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
