package store

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/mezonai/mmn-recovery/db"
	"github.com/mezonai/mmn-recovery/types"
	"google.golang.org/protobuf/encoding/protowire"
)

type AccountStore interface {
	Store(account *types.Account) error
	// StoreBatch writes accounts and removes the removed addresses in one batch
	StoreBatch(accounts []*types.Account, removed []string) error
	GetByAddr(addr string) (*types.Account, error)
	ExistsByAddr(addr string) (bool, error)
	All() ([]*types.Account, error)
}

type GenericAccountStore struct {
	mu         sync.RWMutex
	dbProvider db.IterableProvider
}

func NewGenericAccountStore(dbProvider db.DatabaseProvider) (*GenericAccountStore, error) {
	if dbProvider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	iterable, ok := dbProvider.(db.IterableProvider)
	if !ok {
		return nil, fmt.Errorf("provider does not support iteration")
	}

	return &GenericAccountStore{
		dbProvider: iterable,
	}, nil
}

// Account record fields, protobuf wire format:
//
//	1: address (bytes)
//	2: balance (bytes, 32-byte big endian)
//	3: nonce   (varint)
const (
	fieldAddress protowire.Number = 1
	fieldBalance protowire.Number = 2
	fieldNonce   protowire.Number = 3
)

func encodeAccount(acc *types.Account) []byte {
	balance := uint256.NewInt(0)
	if acc.Balance != nil {
		balance = acc.Balance
	}
	be := balance.Bytes32()

	b := make([]byte, 0, len(acc.Address)+48)
	b = protowire.AppendTag(b, fieldAddress, protowire.BytesType)
	b = protowire.AppendString(b, acc.Address)
	b = protowire.AppendTag(b, fieldBalance, protowire.BytesType)
	b = protowire.AppendBytes(b, be[:])
	b = protowire.AppendTag(b, fieldNonce, protowire.VarintType)
	b = protowire.AppendVarint(b, acc.Nonce)
	return b
}

func decodeAccount(b []byte) (*types.Account, error) {
	acc := &types.Account{Balance: uint256.NewInt(0)}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldAddress && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			acc.Address = string(v)
			b = b[n:]
		case num == fieldBalance && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			if len(v) > 32 {
				return nil, fmt.Errorf("balance too long: %d bytes", len(v))
			}
			acc.Balance = new(uint256.Int).SetBytes(v)
			b = b[n:]
		case num == fieldNonce && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			acc.Nonce = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	if acc.Address == "" {
		return nil, fmt.Errorf("account record without address")
	}
	return acc, nil
}

func (as *GenericAccountStore) Store(account *types.Account) error {
	return as.StoreBatch([]*types.Account{account}, nil)
}

func (as *GenericAccountStore) StoreBatch(accounts []*types.Account, removed []string) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	batch := as.dbProvider.Batch()
	defer batch.Close()

	for _, account := range accounts {
		batch.Put(as.getDbKey(account.Address), encodeAccount(account))
	}
	for _, addr := range removed {
		batch.Delete(as.getDbKey(addr))
	}

	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to write batch of accounts to database: %w", err)
	}
	return nil
}

// GetByAddr returns account instance from db, return both nil if not exist
func (as *GenericAccountStore) GetByAddr(addr string) (*types.Account, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	data, err := as.dbProvider.Get(as.getDbKey(addr))
	if err != nil {
		return nil, fmt.Errorf("could not get account %s from db: %w", addr, err)
	}
	if data == nil {
		return nil, nil
	}

	acc, err := decodeAccount(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode account %s: %w", addr, err)
	}
	return acc, nil
}

func (as *GenericAccountStore) ExistsByAddr(addr string) (bool, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	return as.dbProvider.Has(as.getDbKey(addr))
}

// All loads every stored account
func (as *GenericAccountStore) All() ([]*types.Account, error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	var accounts []*types.Account
	var decodeErr error
	err := as.dbProvider.IteratePrefix([]byte(PrefixAccount), func(key, value []byte) bool {
		acc, err := decodeAccount(value)
		if err != nil {
			decodeErr = fmt.Errorf("failed to decode account at key %q: %w", key, err)
			return false
		}
		accounts = append(accounts, acc)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return accounts, nil
}

func (as *GenericAccountStore) getDbKey(addr string) []byte {
	return []byte(PrefixAccount + addr)
}
