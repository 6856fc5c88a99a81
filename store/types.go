package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by getters when the requested entry is not stored
var ErrNotFound = errors.New("not found")

// DBType names one logical collection of the block storage
type DBType int

const (
	Metadata DBType = iota
	DSBlock
	TxBlock
	TxBody
	TxBodyTmp
	VCBlock
	FallbackBlock
	BlockLink
	StateDelta
	State
)

// AllDBTypes lists every collection, in reset order
var AllDBTypes = []DBType{
	Metadata, DSBlock, TxBlock, TxBody, TxBodyTmp, VCBlock, FallbackBlock, BlockLink, StateDelta, State,
}

func (t DBType) String() string {
	switch t {
	case Metadata:
		return "METADATA"
	case DSBlock:
		return "DS_BLOCK"
	case TxBlock:
		return "TX_BLOCK"
	case TxBody:
		return "TX_BODY"
	case TxBodyTmp:
		return "TX_BODY_TMP"
	case VCBlock:
		return "VC_BLOCK"
	case FallbackBlock:
		return "FB_BLOCK"
	case BlockLink:
		return "BLOCKLINK"
	case StateDelta:
		return "STATE_DELTA"
	case State:
		return "STATE"
	default:
		return fmt.Sprintf("DBType(%d)", int(t))
	}
}

// prefix returns the key prefix of a collection stored in the main provider
func (t DBType) prefix() (string, bool) {
	switch t {
	case Metadata:
		return PrefixMetadata, true
	case DSBlock:
		return PrefixDSBlock, true
	case TxBlock:
		return PrefixTxBlock, true
	case TxBody:
		return PrefixTxBody, true
	case TxBodyTmp:
		return PrefixTxBodyTmp, true
	case VCBlock:
		return PrefixVCBlock, true
	case FallbackBlock:
		return PrefixFallbackBlock, true
	case BlockLink:
		return PrefixBlockLink, true
	case State:
		return PrefixAccount, true
	default:
		return "", false
	}
}

// MetaType names a metadata scalar
type MetaType string

const (
	// MetaDSIncompleted is '1' when the previous run stopped inside a DS epoch, '0' otherwise
	MetaDSIncompleted MetaType = "DSINCOMPLETED"
	// MetaLatestActiveDSBlockNum is a decimal string
	MetaLatestActiveDSBlockNum MetaType = "LATESTACTIVEDSBLOCKNUM"
)
