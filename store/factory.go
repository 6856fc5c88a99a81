package store

import (
	"fmt"
	"path/filepath"

	"github.com/mezonai/mmn-recovery/db"
)

// StoreType represents the type of store implementation
type StoreType string

const (
	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// RocksDBStoreType uses the RocksDB implementation
	RocksDBStoreType StoreType = "rocksdb"

	// RedisStoreType uses the Redis implementation
	RedisStoreType StoreType = "redis"
)

// StateDeltaDirName is the delta working directory under the persistence root
const StateDeltaDirName = "stateDelta"

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which store implementation to use
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the database directory path (for file-based databases)
	// or the address of the server (redis)
	Directory string `json:"directory" yaml:"directory"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	if sc.Type == "" {
		return fmt.Errorf("store type cannot be empty")
	}

	if sc.Directory == "" {
		return fmt.Errorf("directory cannot be empty")
	}

	switch sc.Type {
	case LevelDBStoreType, RocksDBStoreType, RedisStoreType:
		return nil
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}

// StoreFactory take responsibility to create store instances
type StoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() *StoreFactory {
	return &StoreFactory{}
}

// CreateStoreWithProvider opens the main provider from config and the state
// delta database under persistenceDir, and builds the block and account stores on them
func (sf *StoreFactory) CreateStoreWithProvider(config *StoreConfig, persistenceDir string) (*GenericBlockStorage, *GenericAccountStore, error) {
	if config == nil {
		return nil, nil, fmt.Errorf("config cannot be nil")
	}
	if persistenceDir == "" {
		return nil, nil, fmt.Errorf("persistence directory cannot be empty")
	}

	provider, err := sf.CreateProvider(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider: %w", err)
	}

	deltas, err := NewStateDeltaStore(filepath.Join(persistenceDir, StateDeltaDirName))
	if err != nil {
		_ = provider.Close()
		return nil, nil, fmt.Errorf("failed to open state delta store: %w", err)
	}

	blockStorage, err := NewGenericBlockStorage(provider, deltas)
	if err != nil {
		_ = deltas.Close()
		_ = provider.Close()
		return nil, nil, fmt.Errorf("failed to create block storage: %w", err)
	}

	accStore, err := NewGenericAccountStore(provider)
	if err != nil {
		_ = blockStorage.Close()
		return nil, nil, fmt.Errorf("failed to create account store: %w", err)
	}

	return blockStorage, accStore, nil
}

// CreateProvider creates a database provider based on the configuration
func (sf *StoreFactory) CreateProvider(config *StoreConfig) (db.DatabaseProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case LevelDBStoreType:
		provider, err := db.NewLevelDBProvider(config.Directory)
		if err != nil {
			return nil, err
		}
		return provider, nil

	case RocksDBStoreType:
		return db.NewRocksDBProvider(config.Directory)

	case RedisStoreType:
		// just for debug
		return db.NewRedisProvider(config.Directory, 3, numericPrefixes...)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// Global factory instance
var globalFactory = NewStoreFactory()

// CreateStore creates new store instances using the global factory
func CreateStore(config *StoreConfig, persistenceDir string) (*GenericBlockStorage, *GenericAccountStore, error) {
	return globalFactory.CreateStoreWithProvider(config, persistenceDir)
}
