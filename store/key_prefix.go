package store

// Declare database key prefixes for objects. Numeric keys are the prefix
// followed by an 8-byte big-endian number, hash keys by the raw 32 bytes.
const (
	PrefixAccount = "account:"

	PrefixMetadata      = "meta:"
	PrefixTxBlock       = "txblk:"
	PrefixDSBlock       = "dsblk:"
	PrefixVCBlock       = "vcblk:"
	PrefixFallbackBlock = "fbblk:"
	PrefixBlockLink     = "blklink:"

	PrefixTxBody    = "txbody:"
	PrefixTxBodyTmp = "txbodytmp:"
)

// numericPrefixes lists prefixes whose keys end in an 8-byte block number
var numericPrefixes = []string{PrefixTxBlock, PrefixDSBlock, PrefixBlockLink}
