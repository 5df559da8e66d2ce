package storage

import "github.com/tuannm99/novastore/internal/bx"

// OverflowDataOffset is where an overflow page's payload begins: the
// standard page header followed by a 2-byte chunk-length field.
const OverflowDataOffset = HeaderSize + 2

// OverflowPointer is what a tuple embeds in place of a variable-length
// column that did not fit inline: the first page of the chain plus the
// total length needed to size the read buffer up front.
type OverflowPointer struct {
	PageID   PageID
	TotalLen uint32
}

// Encode writes the pointer's 8-byte wire form: page_id (u32 LE) then
// total_len (u32 LE).
func (p OverflowPointer) Encode(dst []byte) {
	bx.PutU32At(dst, 0, uint32(p.PageID))
	bx.PutU32At(dst, 4, p.TotalLen)
}

// DecodeOverflowPointer reads the 8-byte wire form written by Encode.
func DecodeOverflowPointer(src []byte) OverflowPointer {
	return OverflowPointer{
		PageID:   PageID(bx.U32At(src, 0)),
		TotalLen: bx.U32At(src, 4),
	}
}

func overflowPayloadCapacity(pageSize uint32) int {
	return int(pageSize) - OverflowDataOffset
}

// WriteOverflow spreads data across as many freshly allocated overflow
// pages as needed and returns a pointer to the chain's head. Each page is
// unpinned dirty and reaches disk only when flushed or evicted. A failure
// partway through an allocation propagates the pool's error unchanged;
// pages already written for data stay allocated.
func WriteOverflow(bp *BufferPoolManager, data []byte) (OverflowPointer, error) {
	totalLen := uint32(len(data))
	cap := overflowPayloadCapacity(bp.PageSize())
	remaining := data

	var firstPage PageID
	hasFirst := false
	var prevPage PageID
	hasPrev := false

	for len(remaining) > 0 {
		pageID, frame, err := bp.NewPage()
		if err != nil {
			return OverflowPointer{}, err
		}
		Init(bp.FrameData(frame), pageID, PageTypeOverflow)

		chunkLen := len(remaining)
		if chunkLen > cap {
			chunkLen = cap
		}
		chunk := remaining[:chunkLen]

		fd := bp.FrameData(frame)
		bx.PutU16At(fd, HeaderSize, uint16(chunkLen))
		copy(fd[OverflowDataOffset:OverflowDataOffset+chunkLen], chunk)

		bp.UnpinPage(pageID, true)

		if !hasFirst {
			firstPage, hasFirst = pageID, true
		}
		if hasPrev {
			prevFrame, err := bp.FetchPage(prevPage)
			if err != nil {
				return OverflowPointer{}, err
			}
			SetNextPage(bp.FrameData(prevFrame), pageID)
			bp.UnpinPage(prevPage, true)
		}

		prevPage, hasPrev = pageID, true
		remaining = remaining[chunkLen:]
	}

	return OverflowPointer{PageID: firstPage, TotalLen: totalLen}, nil
}

// ReadOverflow follows ptr's chain and reassembles the full value.
func ReadOverflow(bp *BufferPoolManager, ptr OverflowPointer) ([]byte, error) {
	result := make([]byte, 0, ptr.TotalLen)
	current := ptr.PageID

	for current != InvalidPage {
		frame, err := bp.FetchPage(current)
		if err != nil {
			return nil, err
		}
		fd := bp.FrameData(frame)
		dataLen := bx.U16At(fd, HeaderSize)
		result = append(result, fd[OverflowDataOffset:OverflowDataOffset+int(dataLen)]...)

		next := NextPage(fd)
		bp.UnpinPage(current, false)
		current = next
	}

	return result, nil
}

// DeleteOverflow walks ptr's chain, freeing every page it visits.
func DeleteOverflow(bp *BufferPoolManager, ptr OverflowPointer) error {
	current := ptr.PageID
	for current != InvalidPage {
		frame, err := bp.FetchPage(current)
		if err != nil {
			return err
		}
		next := NextPage(bp.FrameData(frame))
		bp.UnpinPage(current, false)
		bp.DeletePage(current)
		current = next
	}
	return nil
}
