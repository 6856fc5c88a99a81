package store

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/mezonai/mmn-recovery/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestAccountStore_StoreAndGet(t *testing.T) {
	_, as := newTestStorage(t)

	big, err := uint256.FromDecimal("340282366920938463463374607431768211456") // 2^128
	require.NoError(t, err)
	require.NoError(t, as.Store(&types.Account{Address: "alice", Balance: big, Nonce: 9}))

	acc, err := as.GetByAddr("alice")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, "alice", acc.Address)
	assert.Equal(t, 0, acc.Balance.Cmp(big))
	assert.Equal(t, uint64(9), acc.Nonce)

	missing, err := as.GetByAddr("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAccountStore_StoreBatchWithRemovals(t *testing.T) {
	_, as := newTestStorage(t)

	require.NoError(t, as.StoreBatch([]*types.Account{
		{Address: "a", Balance: uint256.NewInt(1)},
		{Address: "b", Balance: uint256.NewInt(2)},
	}, nil))
	require.NoError(t, as.StoreBatch([]*types.Account{{Address: "c", Balance: uint256.NewInt(3)}}, []string{"a"}))

	exists, err := as.ExistsByAddr("a")
	require.NoError(t, err)
	assert.False(t, exists)

	all, err := as.All()
	require.NoError(t, err)
	addrs := make([]string, 0, len(all))
	for _, acc := range all {
		addrs = append(addrs, acc.Address)
	}
	assert.ElementsMatch(t, []string{"b", "c"}, addrs)
}

func TestDecodeAccountSkipsUnknownFields(t *testing.T) {
	record := encodeAccount(&types.Account{Address: "x", Balance: uint256.NewInt(5), Nonce: 1})
	record = protowire.AppendTag(record, 15, protowire.VarintType)
	record = protowire.AppendVarint(record, 77)

	acc, err := decodeAccount(record)
	require.NoError(t, err)
	assert.Equal(t, "x", acc.Address)
	assert.Equal(t, uint64(5), acc.Balance.Uint64())

	_, err = decodeAccount([]byte{0xff})
	assert.Error(t, err)

	_, err = decodeAccount(protowire.AppendVarint(protowire.AppendTag(nil, fieldNonce, protowire.VarintType), 3))
	assert.Error(t, err, "record without address")
}
