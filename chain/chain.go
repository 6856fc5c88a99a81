package chain

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/types"
)

// numbered keeps blocks addressed by block number; adding a block with a
// number already present replaces it.
type numbered[T any] struct {
	mu     sync.RWMutex
	blocks map[uint64]T
	nums   []uint64 // sorted
}

func newNumbered[T any]() numbered[T] {
	return numbered[T]{blocks: make(map[uint64]T)}
}

func (c *numbered[T]) add(num uint64, b T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.blocks[num]; !exists {
		i := sort.Search(len(c.nums), func(i int) bool { return c.nums[i] >= num })
		c.nums = append(c.nums, 0)
		copy(c.nums[i+1:], c.nums[i:])
		c.nums[i] = num
	}
	c.blocks[num] = b
}

func (c *numbered[T]) get(num uint64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blocks[num]
	return b, ok
}

func (c *numbered[T]) last() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var zero T
	if len(c.nums) == 0 {
		return zero, false
	}
	return c.blocks[c.nums[len(c.nums)-1]], true
}

func (c *numbered[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nums)
}

func (c *numbered[T]) all() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.nums))
	for _, n := range c.nums {
		out = append(out, c.blocks[n])
	}
	return out
}

// TxBlockChain is the in-memory chain of tx blocks rebuilt on recovery
type TxBlockChain struct {
	numbered[*types.TxBlock]
}

func NewTxBlockChain() *TxBlockChain {
	return &TxBlockChain{numbered: newNumbered[*types.TxBlock]()}
}

func (c *TxBlockChain) AddBlock(b *types.TxBlock) {
	c.add(b.Header.BlockNum, b)
}

// LastBlock returns the highest block, nil if the chain is empty
func (c *TxBlockChain) LastBlock() *types.TxBlock {
	b, _ := c.last()
	return b
}

func (c *TxBlockChain) Block(num uint64) (*types.TxBlock, bool) {
	return c.get(num)
}

func (c *TxBlockChain) Blocks() []*types.TxBlock {
	return c.all()
}

func (c *TxBlockChain) Len() int {
	return c.len()
}

// DSBlockChain is the in-memory chain of DS blocks rebuilt from DS links
type DSBlockChain struct {
	numbered[*types.DSBlock]
}

func NewDSBlockChain() *DSBlockChain {
	return &DSBlockChain{numbered: newNumbered[*types.DSBlock]()}
}

func (c *DSBlockChain) AddBlock(b *types.DSBlock) {
	c.add(b.Header.BlockNum, b)
}

func (c *DSBlockChain) LastBlock() *types.DSBlock {
	b, _ := c.last()
	return b
}

func (c *DSBlockChain) Block(num uint64) (*types.DSBlock, bool) {
	return c.get(num)
}

func (c *DSBlockChain) Blocks() []*types.DSBlock {
	return c.all()
}

func (c *DSBlockChain) Len() int {
	return c.len()
}

// LinkWriter persists block links
type LinkWriter interface {
	PutBlockLink(link types.BlockLink) error
}

// BlockLinkChain holds the replayed DS/VC/FB interleaving and the committee
// composition it produced.
type BlockLinkChain struct {
	mu          sync.RWMutex
	writer      LinkWriter
	links       []types.BlockLink
	builtDSComm []types.Member
}

func NewBlockLinkChain(writer LinkWriter) *BlockLinkChain {
	return &BlockLinkChain{writer: writer}
}

// AddBlockLink persists the link and appends it. Links must arrive in
// strictly increasing index order.
func (c *BlockLinkChain) AddBlockLink(index, dsIndex uint64, typ types.BlockType, hash types.Hash) error {
	link := types.BlockLink{Index: index, DSIndex: dsIndex, Type: typ, Hash: hash}

	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.links); n > 0 && c.links[n-1].Index >= index {
		return fmt.Errorf("block link index %d not after %d", index, c.links[n-1].Index)
	}
	if c.writer != nil {
		if err := c.writer.PutBlockLink(link); err != nil {
			return fmt.Errorf("failed to persist %s: %w", link, err)
		}
	}
	c.links = append(c.links, link)
	logx.Debug("BLOCKLINK", "Added ", link.String())
	return nil
}

// Links returns a copy of the chain
func (c *BlockLinkChain) Links() []types.BlockLink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.BlockLink(nil), c.links...)
}

// LatestBlockLink returns the last link, false when the chain is empty
func (c *BlockLinkChain) LatestBlockLink() (types.BlockLink, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.links) == 0 {
		return types.BlockLink{}, false
	}
	return c.links[len(c.links)-1], true
}

func (c *BlockLinkChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.links)
}

// BuiltDSComm returns a copy of the committee built by the last replay
func (c *BlockLinkChain) BuiltDSComm() []types.Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.Member(nil), c.builtDSComm...)
}

func (c *BlockLinkChain) SetBuiltDSComm(members []types.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builtDSComm = append([]types.Member(nil), members...)
}
