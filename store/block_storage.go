package store

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/mezonai/mmn-recovery/db"
	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/types"
)

// BlockStorage is the persistent side of a node: blocks, block links, state
// deltas, metadata and transaction bodies, grouped in resettable collections.
type BlockStorage interface {
	PutTxBlock(b *types.TxBlock) error
	GetTxBlock(num uint64) (*types.TxBlock, error)
	GetAllTxBlocks() ([]*types.TxBlock, error)
	DeleteTxBlock(num uint64) error

	PutDSBlock(b *types.DSBlock) error
	GetDSBlock(num uint64) (*types.DSBlock, error)
	DeleteDSBlock(num uint64) error

	PutVCBlock(b *types.VCBlock) error
	GetVCBlock(hash types.Hash) (*types.VCBlock, error)
	DeleteVCBlock(hash types.Hash) error

	PutFallbackBlock(b *types.FallbackBlockWShardingStructure) error
	GetFallbackBlock(hash types.Hash) (*types.FallbackBlockWShardingStructure, error)
	DeleteFallbackBlock(hash types.Hash) error

	PutBlockLink(link types.BlockLink) error
	GetAllBlockLinks() ([]types.BlockLink, error)

	PutStateDelta(num uint64, delta []byte) error
	GetStateDelta(num uint64) ([]byte, error)
	GetStateDeltaRange(from, to uint64) (map[uint64][]byte, error)
	StateDeltaDir() string

	PutMetadata(key MetaType, value []byte) error
	GetMetadata(key MetaType) ([]byte, error)

	PutTxBody(hash types.Hash, body []byte) error
	GetTxBody(hash types.Hash) ([]byte, error)
	DeleteTxBody(hash types.Hash) error
	PutTxBodyTmp(hash types.Hash, body []byte) error
	GetAllTxBodiesTmp() ([]types.Hash, error)

	ResetDB(t DBType) error
	RefreshDB(t DBType) error
	ReleaseDB(t DBType) error
	ResetAll() error
	Close() error
}

// GenericBlockStorage is a database-agnostic implementation of BlockStorage.
// Every collection except state deltas shares one provider under its own key
// prefix; state deltas live in a dedicated LevelDB directory.
type GenericBlockStorage struct {
	mu       sync.RWMutex
	provider db.IterableProvider
	deltas   *StateDeltaStore
}

// NewGenericBlockStorage creates a block storage on top of provider and deltas
func NewGenericBlockStorage(provider db.DatabaseProvider, deltas *StateDeltaStore) (*GenericBlockStorage, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if deltas == nil {
		return nil, fmt.Errorf("state delta store cannot be nil")
	}
	iterable, ok := provider.(db.IterableProvider)
	if !ok {
		return nil, fmt.Errorf("provider does not support iteration")
	}
	return &GenericBlockStorage{provider: iterable, deltas: deltas}, nil
}

func numKey(prefix string, num uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], num)
	return key
}

func hashKey(prefix string, hash types.Hash) []byte {
	key := make([]byte, len(prefix)+types.HashSize)
	copy(key, prefix)
	copy(key[len(prefix):], hash[:])
	return key
}

func (s *GenericBlockStorage) put(key []byte, v interface{}) error {
	data, err := types.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider.Put(key, data)
}

func (s *GenericBlockStorage) get(key []byte, v interface{}) error {
	s.mu.RLock()
	value, err := s.provider.Get(key)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if value == nil {
		return ErrNotFound
	}
	return types.Unmarshal(value, v)
}

func (s *GenericBlockStorage) delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider.Delete(key)
}

// PutTxBlock stores a tx block under its block number
func (s *GenericBlockStorage) PutTxBlock(b *types.TxBlock) error {
	if b == nil {
		return fmt.Errorf("block cannot be nil")
	}
	if err := s.put(numKey(PrefixTxBlock, b.Header.BlockNum), b); err != nil {
		return fmt.Errorf("failed to store tx block %d: %w", b.Header.BlockNum, err)
	}
	return nil
}

// GetTxBlock returns the tx block with the given number or ErrNotFound
func (s *GenericBlockStorage) GetTxBlock(num uint64) (*types.TxBlock, error) {
	var b types.TxBlock
	if err := s.get(numKey(PrefixTxBlock, num), &b); err != nil {
		return nil, fmt.Errorf("tx block %d: %w", num, err)
	}
	return &b, nil
}

// GetAllTxBlocks returns every stored tx block in key order. An undecodable
// entry fails the whole read since the caller cannot tell what is missing.
func (s *GenericBlockStorage) GetAllTxBlocks() ([]*types.TxBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var blocks []*types.TxBlock
	var decodeErr error
	err := s.provider.IteratePrefix([]byte(PrefixTxBlock), func(key, value []byte) bool {
		var b types.TxBlock
		if err := types.Unmarshal(value, &b); err != nil {
			decodeErr = fmt.Errorf("failed to unmarshal tx block at key %x: %w", key, err)
			return false
		}
		blocks = append(blocks, &b)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate tx blocks: %w", err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return blocks, nil
}

// DeleteTxBlock removes the tx block with the given number
func (s *GenericBlockStorage) DeleteTxBlock(num uint64) error {
	if err := s.delete(numKey(PrefixTxBlock, num)); err != nil {
		return fmt.Errorf("failed to delete tx block %d: %w", num, err)
	}
	return nil
}

// PutDSBlock stores a DS block under its block number
func (s *GenericBlockStorage) PutDSBlock(b *types.DSBlock) error {
	if b == nil {
		return fmt.Errorf("block cannot be nil")
	}
	if err := s.put(numKey(PrefixDSBlock, b.Header.BlockNum), b); err != nil {
		return fmt.Errorf("failed to store ds block %d: %w", b.Header.BlockNum, err)
	}
	return nil
}

// GetDSBlock returns the DS block with the given number or ErrNotFound
func (s *GenericBlockStorage) GetDSBlock(num uint64) (*types.DSBlock, error) {
	var b types.DSBlock
	if err := s.get(numKey(PrefixDSBlock, num), &b); err != nil {
		return nil, fmt.Errorf("ds block %d: %w", num, err)
	}
	return &b, nil
}

// DeleteDSBlock removes the DS block with the given number
func (s *GenericBlockStorage) DeleteDSBlock(num uint64) error {
	if err := s.delete(numKey(PrefixDSBlock, num)); err != nil {
		return fmt.Errorf("failed to delete ds block %d: %w", num, err)
	}
	return nil
}

// PutVCBlock stores a view change block under its hash
func (s *GenericBlockStorage) PutVCBlock(b *types.VCBlock) error {
	if b == nil {
		return fmt.Errorf("block cannot be nil")
	}
	if err := s.put(hashKey(PrefixVCBlock, b.Hash), b); err != nil {
		return fmt.Errorf("failed to store vc block %s: %w", b.Hash, err)
	}
	return nil
}

// GetVCBlock returns the view change block with the given hash or ErrNotFound
func (s *GenericBlockStorage) GetVCBlock(hash types.Hash) (*types.VCBlock, error) {
	var b types.VCBlock
	if err := s.get(hashKey(PrefixVCBlock, hash), &b); err != nil {
		return nil, fmt.Errorf("vc block %s: %w", hash, err)
	}
	return &b, nil
}

// DeleteVCBlock removes the view change block with the given hash
func (s *GenericBlockStorage) DeleteVCBlock(hash types.Hash) error {
	if err := s.delete(hashKey(PrefixVCBlock, hash)); err != nil {
		return fmt.Errorf("failed to delete vc block %s: %w", hash, err)
	}
	return nil
}

// PutFallbackBlock stores a fallback block together with its sharding structure
func (s *GenericBlockStorage) PutFallbackBlock(b *types.FallbackBlockWShardingStructure) error {
	if b == nil {
		return fmt.Errorf("block cannot be nil")
	}
	if err := s.put(hashKey(PrefixFallbackBlock, b.Block.Hash), b); err != nil {
		return fmt.Errorf("failed to store fallback block %s: %w", b.Block.Hash, err)
	}
	return nil
}

// GetFallbackBlock returns the fallback block with the given hash or ErrNotFound
func (s *GenericBlockStorage) GetFallbackBlock(hash types.Hash) (*types.FallbackBlockWShardingStructure, error) {
	var b types.FallbackBlockWShardingStructure
	if err := s.get(hashKey(PrefixFallbackBlock, hash), &b); err != nil {
		return nil, fmt.Errorf("fallback block %s: %w", hash, err)
	}
	return &b, nil
}

// DeleteFallbackBlock removes the fallback block with the given hash
func (s *GenericBlockStorage) DeleteFallbackBlock(hash types.Hash) error {
	if err := s.delete(hashKey(PrefixFallbackBlock, hash)); err != nil {
		return fmt.Errorf("failed to delete fallback block %s: %w", hash, err)
	}
	return nil
}

// PutBlockLink stores a block link under its index
func (s *GenericBlockStorage) PutBlockLink(link types.BlockLink) error {
	if err := s.put(numKey(PrefixBlockLink, link.Index), link); err != nil {
		return fmt.Errorf("failed to store block link %d: %w", link.Index, err)
	}
	return nil
}

// GetAllBlockLinks returns every stored block link in key order
func (s *GenericBlockStorage) GetAllBlockLinks() ([]types.BlockLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var links []types.BlockLink
	var decodeErr error
	err := s.provider.IteratePrefix([]byte(PrefixBlockLink), func(key, value []byte) bool {
		var link types.BlockLink
		if err := types.Unmarshal(value, &link); err != nil {
			decodeErr = fmt.Errorf("failed to unmarshal block link at key %x: %w", key, err)
			return false
		}
		links = append(links, link)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate block links: %w", err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return links, nil
}

// PutStateDelta stores the serialized delta of tx block num
func (s *GenericBlockStorage) PutStateDelta(num uint64, delta []byte) error {
	return s.deltas.Put(num, delta)
}

// GetStateDelta returns the serialized delta of tx block num or ErrNotFound
func (s *GenericBlockStorage) GetStateDelta(num uint64) ([]byte, error) {
	return s.deltas.Get(num)
}

// GetStateDeltaRange returns the present deltas of tx blocks [from, to]
func (s *GenericBlockStorage) GetStateDeltaRange(from, to uint64) (map[uint64][]byte, error) {
	return s.deltas.GetRange(from, to)
}

// StateDeltaDir is the working directory of the state delta database
func (s *GenericBlockStorage) StateDeltaDir() string {
	return s.deltas.Dir()
}

// PutMetadata stores a metadata scalar
func (s *GenericBlockStorage) PutMetadata(key MetaType, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.provider.Put([]byte(PrefixMetadata+string(key)), value); err != nil {
		return fmt.Errorf("failed to store metadata %s: %w", key, err)
	}
	return nil
}

// GetMetadata returns a metadata scalar or ErrNotFound
func (s *GenericBlockStorage) GetMetadata(key MetaType) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, err := s.provider.Get([]byte(PrefixMetadata + string(key)))
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata %s: %w", key, err)
	}
	if value == nil {
		return nil, fmt.Errorf("metadata %s: %w", key, ErrNotFound)
	}
	return value, nil
}

// PutTxBody stores a transaction body
func (s *GenericBlockStorage) PutTxBody(hash types.Hash, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider.Put(hashKey(PrefixTxBody, hash), body)
}

// GetTxBody returns a transaction body or ErrNotFound
func (s *GenericBlockStorage) GetTxBody(hash types.Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, err := s.provider.Get(hashKey(PrefixTxBody, hash))
	if err != nil {
		return nil, fmt.Errorf("failed to get tx body %s: %w", hash, err)
	}
	if value == nil {
		return nil, fmt.Errorf("tx body %s: %w", hash, ErrNotFound)
	}
	return value, nil
}

// DeleteTxBody removes a transaction body
func (s *GenericBlockStorage) DeleteTxBody(hash types.Hash) error {
	if err := s.delete(hashKey(PrefixTxBody, hash)); err != nil {
		return fmt.Errorf("failed to delete tx body %s: %w", hash, err)
	}
	return nil
}

// PutTxBodyTmp records a transaction body received for a block that is not final yet
func (s *GenericBlockStorage) PutTxBodyTmp(hash types.Hash, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider.Put(hashKey(PrefixTxBodyTmp, hash), body)
}

// GetAllTxBodiesTmp lists the hashes kept in the temporary tx body collection
func (s *GenericBlockStorage) GetAllTxBodiesTmp() ([]types.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hashes []types.Hash
	err := s.provider.IteratePrefix([]byte(PrefixTxBodyTmp), func(key, _ []byte) bool {
		if len(key) != len(PrefixTxBodyTmp)+types.HashSize {
			logx.Warn("STORAGE", "Skipping malformed tmp tx body key ", fmt.Sprintf("%x", key))
			return true
		}
		var h types.Hash
		copy(h[:], key[len(PrefixTxBodyTmp):])
		hashes = append(hashes, h)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate tmp tx bodies: %w", err)
	}
	return hashes, nil
}

// ResetDB empties one collection
func (s *GenericBlockStorage) ResetDB(t DBType) error {
	if t == StateDelta {
		if err := s.deltas.Reset(); err != nil {
			return fmt.Errorf("failed to reset %s: %w", t, err)
		}
		logx.Info("STORAGE", "Reset ", t)
		return nil
	}

	prefix, ok := t.prefix()
	if !ok {
		return fmt.Errorf("unknown collection %s", t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed, err := db.DeletePrefix(s.provider, []byte(prefix))
	if err != nil {
		return fmt.Errorf("failed to reset %s: %w", t, err)
	}
	logx.Info("STORAGE", "Reset ", t, ", removed ", removed, " entries")
	return nil
}

// RefreshDB reopens the handle of a collection. Only the state delta database
// has its own handle; the other collections share the main provider.
func (s *GenericBlockStorage) RefreshDB(t DBType) error {
	if t != StateDelta {
		return nil
	}
	if err := s.deltas.Refresh(); err != nil {
		return fmt.Errorf("failed to refresh %s: %w", t, err)
	}
	return nil
}

// ReleaseDB closes the handle of a collection until the next RefreshDB
func (s *GenericBlockStorage) ReleaseDB(t DBType) error {
	if t != StateDelta {
		return nil
	}
	if err := s.deltas.Release(); err != nil {
		return fmt.Errorf("failed to release %s: %w", t, err)
	}
	return nil
}

// ResetAll empties every collection, stopping at the first failure
func (s *GenericBlockStorage) ResetAll() error {
	for _, t := range AllDBTypes {
		if err := s.ResetDB(t); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the main provider and the delta database
func (s *GenericBlockStorage) Close() error {
	var firstErr error
	if err := s.deltas.Close(); err != nil {
		firstErr = err
	}
	if err := s.provider.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
