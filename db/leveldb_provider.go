package db

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBProvider implements DatabaseProvider for LevelDB.
// The handle can be released and reopened on the same directory, which lets
// callers replace the files underneath it (e.g. restoring from an archive).
type LevelDBProvider struct {
	mu        sync.RWMutex
	directory string
	db        *leveldb.DB
}

// NewLevelDBProvider creates a new LevelDB provider
func NewLevelDBProvider(directory string) (*LevelDBProvider, error) {
	p := &LevelDBProvider{directory: directory}
	if err := p.open(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LevelDBProvider) open() error {
	db, err := leveldb.OpenFile(p.directory, nil)
	if err != nil {
		return fmt.Errorf("failed to open LevelDB at %s: %w", p.directory, err)
	}
	p.db = db
	return nil
}

// Dir returns the directory backing this provider
func (p *LevelDBProvider) Dir() string {
	return p.directory
}

// Release closes the underlying handle but keeps the provider usable through Reopen
func (p *LevelDBProvider) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// Reopen closes the current handle (if any) and opens the directory again
func (p *LevelDBProvider) Reopen() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close LevelDB at %s: %w", p.directory, err)
		}
		p.db = nil
	}
	return p.open()
}

func (p *LevelDBProvider) handle() (*leveldb.DB, error) {
	if p.db == nil {
		return nil, ErrProviderReleased
	}
	return p.db, nil
}

// Get retrieves a value by key
func (p *LevelDBProvider) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle()
	if err != nil {
		return nil, err
	}
	value, err := db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil // Return nil for not found, consistent with interface
		}
		return nil, err
	}
	return value, nil
}

// GetBatch retrieves multiple values by keys in a single operation
func (p *LevelDBProvider) GetBatch(keys [][]byte) (map[string][]byte, error) {
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

	// LevelDB doesn't have native MultiGet, so we use individual gets
	// but at least we batch them in a single function call
	for _, key := range keys {
		value, err := db.Get(key, nil)
		if err != nil {
			if err != leveldb.ErrNotFound {
				return nil, err
			}
			continue
		}
		result[string(key)] = value
	}

	return result, nil
}

// Put stores a key-value pair
func (p *LevelDBProvider) Put(key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle()
	if err != nil {
		return err
	}
	return db.Put(key, value, nil)
}

// Delete removes a key-value pair
func (p *LevelDBProvider) Delete(key []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle()
	if err != nil {
		return err
	}
	return db.Delete(key, nil)
}

// Has checks if a key exists
func (p *LevelDBProvider) Has(key []byte) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle()
	if err != nil {
		return false, err
	}
	return db.Has(key, nil)
}

// Close closes the database connection. Closing twice is a no-op.
func (p *LevelDBProvider) Close() error {
	return p.Release()
}

// Batch returns a new batch for atomic operations
func (p *LevelDBProvider) Batch() DatabaseBatch {
	return &LevelDBBatch{
		batch:    new(leveldb.Batch),
		provider: p,
	}
}

// IteratePrefix iterates over all key-value pairs with the given prefix
func (p *LevelDBProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle()
	if err != nil {
		return err
	}
	iter := db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		if !callback(key, iter.Value()) {
			break
		}
	}

	return iter.Error()
}

// LevelDBBatch implements DatabaseBatch for LevelDB
type LevelDBBatch struct {
	batch    *leveldb.Batch
	provider *LevelDBProvider
}

// Put adds a key-value pair to the batch
func (b *LevelDBBatch) Put(key, value []byte) {
	b.batch.Put(key, value)
}

// Delete adds a deletion to the batch
func (b *LevelDBBatch) Delete(key []byte) {
	b.batch.Delete(key)
}

// Write commits all operations in the batch
func (b *LevelDBBatch) Write() error {
	b.provider.mu.RLock()
	defer b.provider.mu.RUnlock()

	db, err := b.provider.handle()
	if err != nil {
		return err
	}
	return db.Write(b.batch, nil)
}

// Reset clears the batch
func (b *LevelDBBatch) Reset() {
	b.batch.Reset()
}

// Close releases batch resources
func (b *LevelDBBatch) Close() error {
	// LevelDB batch doesn't need explicit closing
	return nil
}
