package retriever

import (
	"fmt"

	"github.com/mezonai/mmn-recovery/chain"
	"github.com/mezonai/mmn-recovery/committee"
	"github.com/mezonai/mmn-recovery/store"
	"github.com/mezonai/mmn-recovery/types"
)

// AccountState is the account-state collaborator the recovery replays deltas into
type AccountState interface {
	// ApplyDelta deserializes a state delta and applies it in memory
	ApplyDelta(delta []byte) error
	// CommitToDisk persists the in-memory state in one batch
	CommitToDisk() error
	// LoadFromDisk replaces the in-memory state with the persisted one
	LoadFromDisk() error
	StateRoot() types.Hash
}

type Config struct {
	// EpochLength is the number of tx blocks per DS epoch
	EpochLength uint64
	// RetainedEpochs is the number of trailing epochs whose deltas are replayed
	RetainedEpochs uint64
	// LookupNode enables the tmp tx body cleanup
	LookupNode bool
}

func (c Config) Validate() error {
	if c.EpochLength == 0 {
		return fmt.Errorf("epoch length must be positive")
	}
	if c.RetainedEpochs == 0 {
		return fmt.Errorf("retained epochs must be positive")
	}
	return nil
}

// Retriever rebuilds the node's in-memory chains and account state from
// persistent storage after a restart. It is single-use per recovery pass and
// not safe for concurrent use.
type Retriever struct {
	cfg     Config
	storage store.BlockStorage
	state   AccountState
	archive DeltaArchive

	txChain   *chain.TxBlockChain
	dsChain   *chain.DSBlockChain
	linkChain *chain.BlockLinkChain
	dsComm    *committee.Committee
}

type Option func(*Retriever)

// WithArchive sets the external archive probed for state deltas
func WithArchive(a DeltaArchive) Option {
	return func(r *Retriever) { r.archive = a }
}

// WithCommittee sets the committee block-link replay starts from
func WithCommittee(c *committee.Committee) Option {
	return func(r *Retriever) { r.dsComm = c }
}

func WithTxBlockChain(c *chain.TxBlockChain) Option {
	return func(r *Retriever) { r.txChain = c }
}

func WithDSBlockChain(c *chain.DSBlockChain) Option {
	return func(r *Retriever) { r.dsChain = c }
}

func WithBlockLinkChain(c *chain.BlockLinkChain) Option {
	return func(r *Retriever) { r.linkChain = c }
}

func New(cfg Config, storage store.BlockStorage, state AccountState, opts ...Option) (*Retriever, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if storage == nil {
		return nil, fmt.Errorf("block storage cannot be nil")
	}
	if state == nil {
		return nil, fmt.Errorf("account state cannot be nil")
	}

	r := &Retriever{cfg: cfg, storage: storage, state: state}
	for _, opt := range opts {
		opt(r)
	}
	if r.txChain == nil {
		r.txChain = chain.NewTxBlockChain()
	}
	if r.dsChain == nil {
		r.dsChain = chain.NewDSBlockChain()
	}
	if r.linkChain == nil {
		r.linkChain = chain.NewBlockLinkChain(storage)
	}
	if r.dsComm == nil {
		r.dsComm = committee.New(r.linkChain.BuiltDSComm())
	}
	return r, nil
}

func (r *Retriever) TxBlockChain() *chain.TxBlockChain {
	return r.txChain
}

func (r *Retriever) DSBlockChain() *chain.DSBlockChain {
	return r.dsChain
}

func (r *Retriever) BlockLinkChain() *chain.BlockLinkChain {
	return r.linkChain
}

// Committee returns a copy of the committee built so far
func (r *Retriever) Committee() *committee.Committee {
	return r.dsComm.Clone()
}
