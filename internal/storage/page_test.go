package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPage(size int, id PageID) []byte {
	buf := make([]byte, size)
	Init(buf, id, PageTypeData)
	return buf
}

func TestPage_InitHeader(t *testing.T) {
	buf := newTestPage(128, 7)

	assert.Equal(t, PageID(7), ID(buf))
	assert.Equal(t, PageTypeData, Type(buf))
	assert.EqualValues(t, 0, SlotCount(buf))
	assert.EqualValues(t, HeaderSize, FreeStart(buf))
	assert.EqualValues(t, 128, FreeEnd(buf))
	assert.Equal(t, InvalidPage, NextPage(buf))
}

func TestPage_InsertAndGet(t *testing.T) {
	buf := newTestPage(128, 0)

	slot, ok := InsertTuple(buf, []byte("hello"))
	require.True(t, ok)
	assert.EqualValues(t, 0, slot)

	got, ok := GetTuple(buf, slot)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), got)
}

func TestPage_InsertMultiple(t *testing.T) {
	buf := newTestPage(128, 0)

	s0, ok := InsertTuple(buf, []byte("aa"))
	require.True(t, ok)
	s1, ok := InsertTuple(buf, []byte("bbb"))
	require.True(t, ok)
	assert.NotEqual(t, s0, s1)

	v0, _ := GetTuple(buf, s0)
	v1, _ := GetTuple(buf, s1)
	assert.Equal(t, []byte("aa"), v0)
	assert.Equal(t, []byte("bbb"), v1)
	assert.EqualValues(t, 2, SlotCount(buf))
}

func TestPage_DeleteAndReuseSlot(t *testing.T) {
	buf := newTestPage(128, 0)

	s0, _ := InsertTuple(buf, []byte("x"))
	s1, _ := InsertTuple(buf, []byte("y"))
	_ = s1

	assert.True(t, DeleteTuple(buf, s0))
	_, ok := GetTuple(buf, s0)
	assert.False(t, ok)

	// A second delete of the same (now-tombstoned) slot fails.
	assert.False(t, DeleteTuple(buf, s0))

	// Next insert reuses the tombstoned slot id.
	s2, ok := InsertTuple(buf, []byte("z"))
	require.True(t, ok)
	assert.Equal(t, s0, s2)
}

func TestPage_FullRejectsWithoutMutation(t *testing.T) {
	buf := newTestPage(32, 0)
	before := append([]byte(nil), buf...)

	_, ok := InsertTuple(buf, make([]byte, 1000))
	assert.False(t, ok)
	assert.Equal(t, before, buf, "a failed insert must not mutate the page")
}

func TestPage_ExactFreeSpaceFits(t *testing.T) {
	buf := newTestPage(32, 0)
	free := FreeSpace(buf)
	tuple := make([]byte, free-SlotSize)

	_, ok := InsertTuple(buf, tuple)
	assert.True(t, ok)
	assert.Equal(t, 0, FreeSpace(buf))
}

func TestPage_OneByteOverCapacityFails(t *testing.T) {
	buf := newTestPage(32, 0)
	free := FreeSpace(buf)
	tuple := make([]byte, free-SlotSize+1)

	_, ok := InsertTuple(buf, tuple)
	assert.False(t, ok)
}

func TestPage_Compact(t *testing.T) {
	buf := newTestPage(128, 0)

	s0, _ := InsertTuple(buf, []byte("aaaa"))
	s1, _ := InsertTuple(buf, []byte("bbbb"))
	s2, _ := InsertTuple(buf, []byte("cccc"))

	require.True(t, DeleteTuple(buf, s1))

	freeBefore := FreeSpace(buf)
	Compact(buf)
	assert.Greater(t, FreeSpace(buf), freeBefore, "compact should reclaim the tombstone's bytes")

	v0, ok := GetTuple(buf, s0)
	require.True(t, ok)
	assert.Equal(t, []byte("aaaa"), v0)

	v2, ok := GetTuple(buf, s2)
	require.True(t, ok)
	assert.Equal(t, []byte("cccc"), v2)

	_, ok = GetTuple(buf, s1)
	assert.False(t, ok, "tombstone survives compaction")
}

func TestPage_NextPageRoundTrip(t *testing.T) {
	buf := newTestPage(64, 0)
	assert.Equal(t, InvalidPage, NextPage(buf))

	SetNextPage(buf, 42)
	assert.Equal(t, PageID(42), NextPage(buf))
}

func TestPage_DebugStringMentionsSlots(t *testing.T) {
	buf := newTestPage(64, 3)
	InsertTuple(buf, []byte("a"))
	s1, _ := InsertTuple(buf, []byte("bb"))
	DeleteTuple(buf, s1)

	out := DebugString(buf)
	assert.Contains(t, out, "page id=3")
	assert.Contains(t, out, "tombstone")
}
