package types

import "fmt"

// BlockType tags the block a BlockLink points at
type BlockType uint8

const (
	BlockTypeDS BlockType = iota
	BlockTypeVC
	BlockTypeFB
)

func (t BlockType) String() string {
	switch t {
	case BlockTypeDS:
		return "DS"
	case BlockTypeVC:
		return "VC"
	case BlockTypeFB:
		return "FB"
	default:
		return fmt.Sprintf("BlockType(%d)", uint8(t))
	}
}

// BlockLink is one entry of the global DS/VC/FB interleaving.
// Index is global and strictly increasing; DSIndex is the number of the most
// recent DS block at or before this link.
type BlockLink struct {
	Index   uint64    `json:"index"`
	DSIndex uint64    `json:"ds_index"`
	Type    BlockType `json:"type"`
	Hash    Hash      `json:"hash"`
}

// LinkRef is the typed reference a link carries to its underlying block
type LinkRef interface {
	isLinkRef()
}

// DSRef addresses a DS block by number
type DSRef struct {
	DSIndex uint64
}

// VCRef addresses a view change block by hash
type VCRef struct {
	Hash Hash
}

// FBRef addresses a fallback block by hash
type FBRef struct {
	Hash Hash
}

func (DSRef) isLinkRef() {}
func (VCRef) isLinkRef() {}
func (FBRef) isLinkRef() {}

// Ref returns the typed reference for the link, or an error for an unknown type
func (l BlockLink) Ref() (LinkRef, error) {
	switch l.Type {
	case BlockTypeDS:
		return DSRef{DSIndex: l.DSIndex}, nil
	case BlockTypeVC:
		return VCRef{Hash: l.Hash}, nil
	case BlockTypeFB:
		return FBRef{Hash: l.Hash}, nil
	default:
		return nil, fmt.Errorf("unknown block type %d at link %d", l.Type, l.Index)
	}
}

func (l BlockLink) String() string {
	return fmt.Sprintf("link(%d, ds=%d, %s, %s)", l.Index, l.DSIndex, l.Type, l.Hash)
}
