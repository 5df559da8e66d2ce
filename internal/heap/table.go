// Package heap implements the table heap: a table stored as an unordered,
// linked-list chain of data pages threaded through the page header's
// next-page field.
package heap

import (
	"errors"
	"fmt"

	"github.com/tuannm99/novastore/internal/record"
	"github.com/tuannm99/novastore/internal/storage"
)

var ErrRowNotFound = errors.New("heap: row not found")

// Table is a table stored as a heap: inserts land on the first page in the
// chain with enough free space, or a freshly allocated one appended to it.
// There is deliberately no update operation — callers that need to
// change a row delete it and insert the replacement, which keeps row
// identity simple at the cost of reuse.
type Table struct {
	Name              string
	Schema            record.Schema
	FirstPageID       storage.PageID
	RowCount          uint32
	OverflowThreshold uint32
}

// CreateTable allocates the table's first (empty) page.
func CreateTable(name string, schema record.Schema, overflowThreshold uint32, bp *storage.BufferPoolManager) (*Table, error) {
	pageID, _, err := bp.NewPage()
	if err != nil {
		return nil, fmt.Errorf("heap: create table %q: %w", name, err)
	}
	bp.UnpinPage(pageID, true)

	return &Table{
		Name:              name,
		Schema:            schema,
		FirstPageID:       pageID,
		OverflowThreshold: overflowThreshold,
	}, nil
}

// Insert encodes values and appends the resulting tuple, spilling any
// large variable-length column to an overflow chain first.
func (t *Table) Insert(bp *storage.BufferPoolManager, values []record.Value) (storage.RowID, error) {
	encoded, overflows, err := record.EncodeTupleWithOverflow(t.Schema, values, t.OverflowThreshold)
	if err != nil {
		return storage.RowID{}, err
	}

	for _, ov := range overflows {
		ptr, err := storage.WriteOverflow(bp, ov.Data)
		if err != nil {
			return storage.RowID{}, err
		}
		if err := record.PatchOverflowPointer(t.Schema, encoded, ov.ColIndex, ptr); err != nil {
			return storage.RowID{}, err
		}
	}

	current := t.FirstPageID
	prev := storage.InvalidPage

	for {
		frame, err := bp.FetchPage(current)
		if err != nil {
			return storage.RowID{}, err
		}
		fd := bp.FrameData(frame)
		needed := len(encoded) + storage.SlotSize

		if storage.FreeSpace(fd) >= needed {
			slot, ok := storage.InsertTuple(fd, encoded)
			if !ok {
				bp.UnpinPage(current, false)
				return storage.RowID{}, fmt.Errorf("heap: free_space check passed but insert failed")
			}
			bp.UnpinPage(current, true)
			t.RowCount++
			return storage.RowID{PageID: current, SlotID: slot}, nil
		}

		next := storage.NextPage(fd)
		bp.UnpinPage(current, false)

		if next == storage.InvalidPage {
			prev = current
			break
		}
		current = next
	}

	newPageID, newFrame, err := bp.NewPage()
	if err != nil {
		return storage.RowID{}, err
	}

	if prev != storage.InvalidPage {
		prevFrame, err := bp.FetchPage(prev)
		if err != nil {
			return storage.RowID{}, err
		}
		storage.SetNextPage(bp.FrameData(prevFrame), newPageID)
		bp.UnpinPage(prev, true)
	}

	slot, ok := storage.InsertTuple(bp.FrameData(newFrame), encoded)
	if !ok {
		bp.UnpinPage(newPageID, true)
		return storage.RowID{}, fmt.Errorf("heap: tuple does not fit even on a fresh page")
	}
	bp.UnpinPage(newPageID, true)
	t.RowCount++

	return storage.RowID{PageID: newPageID, SlotID: slot}, nil
}

// Get reads a single row by id, resolving any overflow columns.
func (t *Table) Get(bp *storage.BufferPoolManager, id storage.RowID) ([]record.Value, error) {
	frame, err := bp.FetchPage(id.PageID)
	if err != nil {
		return nil, err
	}
	tuple, ok := storage.GetTuple(bp.FrameData(frame), id.SlotID)
	if !ok {
		bp.UnpinPage(id.PageID, false)
		return nil, ErrRowNotFound
	}
	values, err := record.DecodeTuple(t.Schema, tuple)
	bp.UnpinPage(id.PageID, false)
	if err != nil {
		return nil, err
	}

	if err := t.resolveOverflows(bp, values); err != nil {
		return nil, err
	}
	return values, nil
}

// Delete removes a row, freeing any overflow chain it referenced.
func (t *Table) Delete(bp *storage.BufferPoolManager, id storage.RowID) (bool, error) {
	frame, err := bp.FetchPage(id.PageID)
	if err != nil {
		return false, err
	}

	tuple, ok := storage.GetTuple(bp.FrameData(frame), id.SlotID)
	if ok {
		values, err := record.DecodeTuple(t.Schema, tuple)
		if err == nil {
			for i, v := range values {
				if !record.IsOverflowPlaceholder(v, t.Schema.Columns[i]) {
					continue
				}
				ptr := storage.DecodeOverflowPointer(v.Blob)
				bp.UnpinPage(id.PageID, false)
				if err := storage.DeleteOverflow(bp, ptr); err != nil {
					return false, err
				}
				frame, err = bp.FetchPage(id.PageID)
				if err != nil {
					return false, err
				}
			}
		}
	}

	deleted := storage.DeleteTuple(bp.FrameData(frame), id.SlotID)
	bp.UnpinPage(id.PageID, deleted)
	if deleted {
		t.RowCount--
	}
	return deleted, nil
}

// Scan visits every live row in page-chain order, calling fn with its id
// and resolved values. Scanning stops at the first error fn returns.
func (t *Table) Scan(bp *storage.BufferPoolManager, fn func(storage.RowID, []record.Value) error) error {
	current := t.FirstPageID

	for current != storage.InvalidPage {
		frame, err := bp.FetchPage(current)
		if err != nil {
			return err
		}
		fd := bp.FrameData(frame)
		count := storage.SlotCount(fd)

		type row struct {
			id     storage.RowID
			values []record.Value
		}
		rows := make([]row, 0, count)
		for slot := storage.SlotID(0); slot < storage.SlotID(count); slot++ {
			tuple, ok := storage.GetTuple(fd, slot)
			if !ok {
				continue
			}
			values, err := record.DecodeTuple(t.Schema, tuple)
			if err != nil {
				bp.UnpinPage(current, false)
				return err
			}
			rows = append(rows, row{id: storage.RowID{PageID: current, SlotID: slot}, values: values})
		}

		next := storage.NextPage(fd)
		bp.UnpinPage(current, false)

		for _, r := range rows {
			if err := t.resolveOverflows(bp, r.values); err != nil {
				return err
			}
			if err := fn(r.id, r.values); err != nil {
				return err
			}
		}
		current = next
	}
	return nil
}

// PageIDs lists every page in the table's chain, in chain order.
func (t *Table) PageIDs(bp *storage.BufferPoolManager) ([]storage.PageID, error) {
	var ids []storage.PageID
	current := t.FirstPageID
	for current != storage.InvalidPage {
		ids = append(ids, current)
		frame, err := bp.FetchPage(current)
		if err != nil {
			return ids, err
		}
		next := storage.NextPage(bp.FrameData(frame))
		bp.UnpinPage(current, false)
		current = next
	}
	return ids, nil
}

// resolveOverflows replaces every overflow placeholder in values with its
// real data, in place.
func (t *Table) resolveOverflows(bp *storage.BufferPoolManager, values []record.Value) error {
	for i := range values {
		col := t.Schema.Columns[i]
		if !record.IsOverflowPlaceholder(values[i], col) {
			continue
		}
		ptr := storage.DecodeOverflowPointer(values[i].Blob)
		data, err := storage.ReadOverflow(bp, ptr)
		if err != nil {
			return err
		}
		switch col.Type {
		case record.ColVarChar:
			values[i] = record.VarCharValue(string(data))
		case record.ColBlob:
			values[i] = record.BlobValue(data)
		}
	}
	return nil
}
