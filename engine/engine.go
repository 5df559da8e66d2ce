// Package engine assembles the disk manager, buffer pool, and table
// catalog into the single facade external callers (the CLI, tests, any
// future host) talk to.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/novastore/internal/config"
	"github.com/tuannm99/novastore/internal/heap"
	"github.com/tuannm99/novastore/internal/record"
	"github.com/tuannm99/novastore/internal/snapshot"
	"github.com/tuannm99/novastore/internal/storage"
)

var (
	ErrTableExists   = errors.New("engine: table already exists")
	ErrTableNotFound = errors.New("engine: table not found")
)

// StorageEngine owns everything needed to serve reads and writes: a
// buffer pool over a fixed-size in-memory disk, and an in-memory table
// catalog. There is no persistence across process restarts — the disk
// manager's backing array lives only as long as this process.
type StorageEngine struct {
	config *config.EngineConfig
	bp     *storage.BufferPoolManager
	tables map[string]*heap.Table
}

// New builds a storage engine from cfg, which is validated (clamped) in
// place before the disk and buffer pool are sized from it.
func New(cfg *config.EngineConfig) *StorageEngine {
	cfg.Validate()
	disk := storage.NewDiskManager(cfg.Storage.PageSize, cfg.Storage.DiskCapacity)
	bp := storage.NewBufferPoolManager(cfg.Storage.PoolSize, disk)

	return &StorageEngine{
		config: cfg,
		bp:     bp,
		tables: make(map[string]*heap.Table),
	}
}

// NewFromJSON builds an engine from a config document of the shape
// {"page_size":128,"pool_size":8,"disk_capacity":64,"overflow_threshold":64}.
func NewFromJSON(data []byte) (*StorageEngine, error) {
	cfg := config.Default()
	if len(data) > 0 {
		if err := jsonUnmarshalInto(data, cfg); err != nil {
			return nil, fmt.Errorf("engine: parse config: %w", err)
		}
	}
	return New(cfg), nil
}

// Config returns the engine's current configuration document.
func (e *StorageEngine) Config() ([]byte, error) {
	return jsonMarshalConfig(e.config)
}

// CreateTable registers a new, empty table under name.
func (e *StorageEngine) CreateTable(name string, schema record.Schema) error {
	if _, exists := e.tables[name]; exists {
		return fmt.Errorf("%w: %q", ErrTableExists, name)
	}

	table, err := heap.CreateTable(name, schema, e.config.Storage.OverflowThreshold, e.bp)
	if err != nil {
		return fmt.Errorf("engine: create table %q: %w", name, err)
	}
	e.tables[name] = table
	slog.Debug("engine: table created", "table", name)
	return nil
}

// DropTable removes a table and frees every page in its data-page chain.
// Overflow pages referenced by the table's rows are not freed; they stay
// allocated on disk.
func (e *StorageEngine) DropTable(name string) (bool, error) {
	table, ok := e.tables[name]
	if !ok {
		return false, nil
	}
	delete(e.tables, name)

	pageIDs, err := table.PageIDs(e.bp)
	if err != nil {
		return true, err
	}
	for _, pid := range pageIDs {
		e.bp.DeletePage(pid)
	}
	slog.Debug("engine: table dropped", "table", name, "pages_freed", len(pageIDs))
	return true, nil
}

// ListTables returns every registered table name, unordered.
func (e *StorageEngine) ListTables() []string {
	names := make([]string, 0, len(e.tables))
	for name := range e.tables {
		names = append(names, name)
	}
	return names
}

func (e *StorageEngine) table(name string) (*heap.Table, error) {
	t, ok := e.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return t, nil
}

// Insert appends values to tableName and returns the new row's id.
func (e *StorageEngine) Insert(tableName string, values []record.Value) (storage.RowID, error) {
	table, err := e.table(tableName)
	if err != nil {
		return storage.RowID{}, err
	}
	return table.Insert(e.bp, values)
}

// Get reads a single row by id.
func (e *StorageEngine) Get(tableName string, id storage.RowID) ([]record.Value, error) {
	table, err := e.table(tableName)
	if err != nil {
		return nil, err
	}
	return table.Get(e.bp, id)
}

// Delete removes a single row by id.
func (e *StorageEngine) Delete(tableName string, id storage.RowID) (bool, error) {
	table, err := e.table(tableName)
	if err != nil {
		return false, err
	}
	return table.Delete(e.bp, id)
}

// Scan visits every live row of tableName in page-chain order.
func (e *StorageEngine) Scan(tableName string, fn func(storage.RowID, []record.Value) error) error {
	table, err := e.table(tableName)
	if err != nil {
		return err
	}
	return table.Scan(e.bp, fn)
}

// TableSchema returns tableName's schema.
func (e *StorageEngine) TableSchema(tableName string) (record.Schema, error) {
	table, err := e.table(tableName)
	if err != nil {
		return record.Schema{}, err
	}
	return table.Schema, nil
}

// FlushAll writes every dirty pooled page to disk.
func (e *StorageEngine) FlushAll() { e.bp.FlushAll() }

// FlushPage writes a single page to disk, reporting whether it was pooled.
func (e *StorageEngine) FlushPage(id storage.PageID) bool { return e.bp.FlushPage(id) }

// SnapshotBufferPool encodes the pool's current state for introspection.
func (e *StorageEngine) SnapshotBufferPool() []byte { return snapshot.BufferPool(e.bp) }

// SnapshotDisk encodes the disk's allocation overview.
func (e *StorageEngine) SnapshotDisk() []byte { return snapshot.Disk(e.bp) }

// SnapshotPage encodes a single page's header, slots, and raw bytes.
func (e *StorageEngine) SnapshotPage(id storage.PageID) ([]byte, error) {
	return snapshot.Page(e.bp, id)
}

// SnapshotTable encodes a table's metadata and page list.
func (e *StorageEngine) SnapshotTable(name string) ([]byte, error) {
	table, err := e.table(name)
	if err != nil {
		return nil, err
	}
	pageIDs, err := table.PageIDs(e.bp)
	if err != nil {
		return nil, err
	}
	return snapshot.Table(table.Name, table.Schema, table.FirstPageID, table.RowCount, pageIDs), nil
}
