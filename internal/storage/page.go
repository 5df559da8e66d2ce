package storage

import (
	"fmt"

	"github.com/tuannm99/novastore/internal/bx"
)

// Page operations are free functions over a borrowed buffer rather than
// methods on a struct that owns it: the same backing array is reused by
// whichever page the buffer pool happens to have loaded into that frame,
// so nothing here may cache state across calls.

// Init zeroes buf and writes an empty header for the given page id/type.
func Init(buf []byte, id PageID, typ PageType) {
	clear(buf)
	bx.PutU32At(buf, offPageID, uint32(id))
	buf[offPageType] = uint8(typ)
	bx.PutU16At(buf, offSlotCount, 0)
	bx.PutU16At(buf, offFreeStart, HeaderSize)
	bx.PutU16At(buf, offFreeEnd, uint16(len(buf)))
	bx.PutU32At(buf, offNextPage, uint32(InvalidPage))
}

func ID(buf []byte) PageID        { return PageID(bx.U32At(buf, offPageID)) }
func Type(buf []byte) PageType    { return pageTypeFromByte(buf[offPageType]) }
func SlotCount(buf []byte) uint16 { return bx.U16At(buf, offSlotCount) }
func FreeStart(buf []byte) uint16 { return bx.U16At(buf, offFreeStart) }
func FreeEnd(buf []byte) uint16   { return bx.U16At(buf, offFreeEnd) }
func NextPage(buf []byte) PageID  { return PageID(bx.U32At(buf, offNextPage)) }

func SetNextPage(buf []byte, id PageID) {
	bx.PutU32At(buf, offNextPage, uint32(id))
}

// FreeSpace is the contiguous gap between the slot directory and the
// tuple heap.
func FreeSpace(buf []byte) int {
	return int(FreeEnd(buf)) - int(FreeStart(buf))
}

func slotOffset(slot SlotID) int {
	return HeaderSize + int(slot)*SlotSize
}

// ReadSlot returns a slot's (offset, length). length 0 is a tombstone.
func ReadSlot(buf []byte, slot SlotID) (offset, length uint16) {
	o := slotOffset(slot)
	return bx.U16At(buf, o), bx.U16At(buf, o+2)
}

func writeSlot(buf []byte, slot SlotID, offset, length uint16) {
	o := slotOffset(slot)
	bx.PutU16At(buf, o, offset)
	bx.PutU16At(buf, o+2, length)
}

func setSlotCount(buf []byte, n uint16) { bx.PutU16At(buf, offSlotCount, n) }
func setFreeStart(buf []byte, v uint16) { bx.PutU16At(buf, offFreeStart, v) }
func setFreeEnd(buf []byte, v uint16)   { bx.PutU16At(buf, offFreeEnd, v) }

// findTombstone returns the id of the first tombstoned slot, if any.
func findTombstone(buf []byte) (SlotID, bool) {
	n := SlotCount(buf)
	for i := SlotID(0); i < SlotID(n); i++ {
		if _, length := ReadSlot(buf, i); length == 0 {
			return i, true
		}
	}
	return 0, false
}

// InsertTuple places tuple into buf, reusing a tombstoned slot if one
// exists, otherwise appending a fresh slot. Returns false (no mutation)
// if there isn't enough contiguous free space.
func InsertTuple(buf []byte, tuple []byte) (SlotID, bool) {
	reuse, hasTombstone := findTombstone(buf)

	needed := len(tuple)
	if !hasTombstone {
		needed += SlotSize
	}
	if FreeSpace(buf) < needed {
		return 0, false
	}

	newEnd := int(FreeEnd(buf)) - len(tuple)
	copy(buf[newEnd:], tuple)
	setFreeEnd(buf, uint16(newEnd))

	if hasTombstone {
		writeSlot(buf, reuse, uint16(newEnd), uint16(len(tuple)))
		return reuse, true
	}

	slot := SlotID(SlotCount(buf))
	writeSlot(buf, slot, uint16(newEnd), uint16(len(tuple)))
	setSlotCount(buf, uint16(slot)+1)
	setFreeStart(buf, FreeStart(buf)+SlotSize)
	return slot, true
}

// DeleteTuple tombstones slot. Out-of-range or already-deleted slots
// return false; tuple bytes are never reclaimed here.
func DeleteTuple(buf []byte, slot SlotID) bool {
	if uint16(slot) >= SlotCount(buf) {
		return false
	}
	_, length := ReadSlot(buf, slot)
	if length == 0 {
		return false
	}
	writeSlot(buf, slot, 0, 0)
	return true
}

// GetTuple returns the live tuple bytes addressed by slot, or false for
// an out-of-range or tombstoned slot.
func GetTuple(buf []byte, slot SlotID) ([]byte, bool) {
	if uint16(slot) >= SlotCount(buf) {
		return nil, false
	}
	offset, length := ReadSlot(buf, slot)
	if length == 0 {
		return nil, false
	}
	return buf[offset : offset+length], true
}

// Compact packs all live tuples against the bottom of the page in
// directory order, zeroing the reclaimed gap and rewriting each live
// slot's offset. Slot count and free_start are untouched — tombstones
// keep their slot ids stable.
func Compact(buf []byte) {
	n := SlotCount(buf)
	type liveTuple struct {
		slot SlotID
		data []byte
	}
	var live []liveTuple
	for i := SlotID(0); i < SlotID(n); i++ {
		offset, length := ReadSlot(buf, i)
		if length == 0 {
			continue
		}
		live = append(live, liveTuple{slot: i, data: append([]byte(nil), buf[offset:offset+length]...)})
	}

	end := uint16(len(buf))
	for _, t := range live {
		end -= uint16(len(t.data))
		copy(buf[end:], t.data)
		writeSlot(buf, t.slot, end, uint16(len(t.data)))
	}

	if int(end) > int(FreeStart(buf)) {
		clear(buf[FreeStart(buf):end])
	}
	setFreeEnd(buf, end)
}

// DebugString renders a page's header and slot directory for tests and
// CLI introspection.
func DebugString(buf []byte) string {
	s := fmt.Sprintf(
		"page id=%d type=%d slots=%d free_start=%d free_end=%d free_space=%d next=%d\n",
		ID(buf), Type(buf), SlotCount(buf), FreeStart(buf), FreeEnd(buf), FreeSpace(buf), NextPage(buf),
	)
	n := SlotCount(buf)
	for i := SlotID(0); i < SlotID(n); i++ {
		offset, length := ReadSlot(buf, i)
		if length == 0 {
			s += fmt.Sprintf("  slot %d: tombstone\n", i)
		} else {
			s += fmt.Sprintf("  slot %d: offset=%d length=%d\n", i, offset, length)
		}
	}
	return s
}
