package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/snapshot"
	"github.com/mezonai/mmn-recovery/store"
	"github.com/mezonai/mmn-recovery/types"
)

var (
	ErrNotLoaded = errors.New("ledger state not loaded from disk")
)

// Ledger is the in-memory account state of the node. Deltas are applied in
// memory and only reach the account store on CommitToDisk.
type Ledger struct {
	mu           sync.RWMutex
	accountStore store.AccountStore
	accounts     map[string]*types.Account
	dirty        map[string]struct{}
	removed      map[string]struct{}
	loaded       bool
}

func NewLedger(accountStore store.AccountStore) *Ledger {
	return &Ledger{
		accountStore: accountStore,
		accounts:     make(map[string]*types.Account),
		dirty:        make(map[string]struct{}),
		removed:      make(map[string]struct{}),
	}
}

// LoadFromDisk replaces the in-memory state with the accounts persisted in the account store
func (l *Ledger) LoadFromDisk() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts, err := l.accountStore.All()
	if err != nil {
		return fmt.Errorf("could not load accounts: %w", err)
	}

	l.accounts = make(map[string]*types.Account, len(accounts))
	for _, acc := range accounts {
		l.accounts[acc.Address] = acc
	}
	l.dirty = make(map[string]struct{})
	l.removed = make(map[string]struct{})
	l.loaded = true

	logx.Info("LEDGER", fmt.Sprintf("Loaded %d accounts from disk", len(accounts)))
	return nil
}

// ApplyDelta deserializes a state delta and applies it to the in-memory state.
// A delta that fails to decode leaves the state untouched.
func (l *Ledger) ApplyDelta(data []byte) error {
	delta, err := types.DecodeStateDelta(data)
	if err != nil {
		return err
	}

	// convert everything first so a bad entry does not half-apply the delta
	updates := make([]*types.Account, 0, len(delta.Accounts))
	var removals []string
	for _, entry := range delta.Accounts {
		if entry.Removed {
			if entry.Address == "" {
				return fmt.Errorf("delta of block %d removes an account without address", delta.BlockNum)
			}
			removals = append(removals, entry.Address)
			continue
		}
		acc, err := entry.ToAccount()
		if err != nil {
			return fmt.Errorf("delta of block %d: %w", delta.BlockNum, err)
		}
		updates = append(updates, acc)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, acc := range updates {
		l.accounts[acc.Address] = acc
		l.dirty[acc.Address] = struct{}{}
		delete(l.removed, acc.Address)
	}
	for _, addr := range removals {
		delete(l.accounts, addr)
		delete(l.dirty, addr)
		l.removed[addr] = struct{}{}
	}

	logx.Debug("LEDGER", fmt.Sprintf("Applied delta of block %d: %d updated, %d removed", delta.BlockNum, len(updates), len(removals)))
	return nil
}

// CommitToDisk writes every account touched since the last commit in a single batch
func (l *Ledger) CommitToDisk() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.dirty) == 0 && len(l.removed) == 0 {
		return nil
	}

	updates := make([]*types.Account, 0, len(l.dirty))
	for addr := range l.dirty {
		updates = append(updates, l.accounts[addr])
	}
	removed := make([]string, 0, len(l.removed))
	for addr := range l.removed {
		removed = append(removed, addr)
	}

	if err := l.accountStore.StoreBatch(updates, removed); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}

	l.dirty = make(map[string]struct{})
	l.removed = make(map[string]struct{})
	logx.Info("LEDGER", fmt.Sprintf("Committed %d accounts, removed %d", len(updates), len(removed)))
	return nil
}

// StateRoot computes the root over the current in-memory state
func (l *Ledger) StateRoot() types.Hash {
	return snapshot.ComputeStateRoot(l.Accounts())
}

// Accounts returns copies of all accounts sorted by address
func (l *Ledger) Accounts() []*types.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*types.Account, 0, len(l.accounts))
	for _, acc := range l.accounts {
		out = append(out, acc.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// GetAccount returns account with addr (nil if not exist)
func (l *Ledger) GetAccount(addr string) *types.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.accounts[addr]
	if !ok {
		return nil
	}
	return acc.Clone()
}

// Seed replaces the state with accounts (e.g. from a snapshot) and marks all of them dirty
func (l *Ledger) Seed(accounts []*types.Account) error {
	if !l.isLoaded() {
		return ErrNotLoaded
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for addr := range l.accounts {
		l.removed[addr] = struct{}{}
	}
	l.accounts = make(map[string]*types.Account, len(accounts))
	l.dirty = make(map[string]struct{}, len(accounts))
	for _, acc := range accounts {
		l.accounts[acc.Address] = acc.Clone()
		l.dirty[acc.Address] = struct{}{}
		delete(l.removed, acc.Address)
	}
	return nil
}

func (l *Ledger) isLoaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}
