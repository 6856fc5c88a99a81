//go:build rocksdb
// +build rocksdb

package db

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/linxGnu/grocksdb"
)

// RocksDBProvider implements IterableProvider for RocksDB.
// Like LevelDBProvider, the handle can be released and reopened on the same directory.
type RocksDBProvider struct {
	mu        sync.RWMutex
	directory string
	opts      *grocksdb.Options
	db        *grocksdb.DB
	ro        *grocksdb.ReadOptions
	wo        *grocksdb.WriteOptions
}

// NewRocksDBProvider opens (creating if needed) a RocksDB database at directory
func NewRocksDBProvider(directory string) (DatabaseProvider, error) {
	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)

	p := &RocksDBProvider{
		directory: directory,
		opts:      opts,
		ro:        grocksdb.NewDefaultReadOptions(),
		wo:        grocksdb.NewDefaultWriteOptions(),
	}
	if err := p.open(); err != nil {
		p.ro.Destroy()
		p.wo.Destroy()
		opts.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *RocksDBProvider) open() error {
	db, err := grocksdb.OpenDb(p.opts, p.directory)
	if err != nil {
		return fmt.Errorf("failed to open RocksDB at %s: %w", p.directory, err)
	}
	p.db = db
	return nil
}

// Dir returns the directory backing this provider
func (p *RocksDBProvider) Dir() string {
	return p.directory
}

// Release closes the database but keeps options alive for Reopen
func (p *RocksDBProvider) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		p.db.Close()
		p.db = nil
	}
	return nil
}

// Reopen closes the current handle (if any) and opens the directory again
func (p *RocksDBProvider) Reopen() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		p.db.Close()
		p.db = nil
	}
	return p.open()
}

func (p *RocksDBProvider) handle() (*grocksdb.DB, error) {
	if p.db == nil {
		return nil, ErrProviderReleased
	}
	return p.db, nil
}

// Get retrieves a value by key, nil when missing
func (p *RocksDBProvider) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle()
	if err != nil {
		return nil, err
	}
	value, err := db.Get(p.ro, key)
	if err != nil {
		return nil, err
	}
	defer value.Free()

	if !value.Exists() {
		return nil, nil
	}
	// the slice is freed on return
	return append([]byte(nil), value.Data()...), nil
}

// GetBatch retrieves the present values of keys with one MultiGet
func (p *RocksDBProvider) GetBatch(keys [][]byte) (map[string][]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	db, err := p.handle()
	if err != nil {
		return nil, err
	}

	values, err := db.MultiGet(p.ro, keys...)
	if err != nil {
		return nil, err
	}
	defer values.Destroy()

	for i, v := range values {
		if !v.Exists() {
			continue
		}
		result[string(keys[i])] = append([]byte(nil), v.Data()...)
	}
	return result, nil
}

func (p *RocksDBProvider) Put(key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle()
	if err != nil {
		return err
	}
	return db.Put(p.wo, key, value)
}

func (p *RocksDBProvider) Delete(key []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle()
	if err != nil {
		return err
	}
	return db.Delete(p.wo, key)
}

func (p *RocksDBProvider) Has(key []byte) (bool, error) {
	value, err := p.Get(key)
	if err != nil {
		return false, err
	}
	return value != nil, nil
}

// Close releases the database and every option object; the provider is unusable afterwards
func (p *RocksDBProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.opts == nil {
		return nil
	}
	if p.db != nil {
		p.db.Close()
		p.db = nil
	}
	p.ro.Destroy()
	p.wo.Destroy()
	p.opts.Destroy()
	p.opts = nil
	return nil
}

// Batch creates a write batch committed with the provider write options
func (p *RocksDBProvider) Batch() DatabaseBatch {
	return &RocksDBBatch{
		batch:    grocksdb.NewWriteBatch(),
		provider: p,
	}
}

// IteratePrefix walks keys starting with prefix in order until fn returns false
func (p *RocksDBProvider) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle()
	if err != nil {
		return err
	}
	it := db.NewIterator(p.ro)
	defer it.Close()

	for it.Seek(prefix); it.Valid(); it.Next() {
		k := it.Key()
		v := it.Value()
		kdata := append([]byte(nil), k.Data()...)
		vdata := append([]byte(nil), v.Data()...)
		k.Free()
		v.Free()
		if !bytes.HasPrefix(kdata, prefix) || !fn(kdata, vdata) {
			break
		}
	}
	return it.Err()
}

// RocksDBBatch implements DatabaseBatch for RocksDB
type RocksDBBatch struct {
	batch    *grocksdb.WriteBatch
	provider *RocksDBProvider
}

func (b *RocksDBBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

func (b *RocksDBBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

// Write commits all operations in the batch
func (b *RocksDBBatch) Write() error {
	b.provider.mu.RLock()
	defer b.provider.mu.RUnlock()

	db, err := b.provider.handle()
	if err != nil {
		return err
	}
	return db.Write(b.provider.wo, b.batch)
}

func (b *RocksDBBatch) Reset() {
	b.batch.Clear()
}

func (b *RocksDBBatch) Close() error {
	b.batch.Destroy()
	return nil
}
