package types

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockLinkRefDispatch(t *testing.T) {
	h := HashOf([]byte("vc"))

	ref, err := BlockLink{Index: 0, DSIndex: 3, Type: BlockTypeDS}.Ref()
	require.NoError(t, err)
	assert.Equal(t, DSRef{DSIndex: 3}, ref)

	ref, err = BlockLink{Index: 1, DSIndex: 3, Type: BlockTypeVC, Hash: h}.Ref()
	require.NoError(t, err)
	assert.Equal(t, VCRef{Hash: h}, ref)

	ref, err = BlockLink{Index: 2, DSIndex: 3, Type: BlockTypeFB, Hash: h}.Ref()
	require.NoError(t, err)
	assert.Equal(t, FBRef{Hash: h}, ref)

	_, err = BlockLink{Index: 4, Type: BlockType(9)}.Ref()
	assert.Error(t, err)
}

func TestBlockLinkEncodesHashAsHex(t *testing.T) {
	link := BlockLink{Index: 7, DSIndex: 2, Type: BlockTypeFB, Hash: HashOf([]byte("fb"))}
	data, err := Marshal(link)
	require.NoError(t, err)
	assert.Contains(t, string(data), link.Hash.String())

	var decoded BlockLink
	require.NoError(t, Unmarshal(data, &decoded))
	assert.Equal(t, link, decoded)
}

func TestPubKeyBase58(t *testing.T) {
	key := PubKey{0x01, 0x02, 0x03, 0xff}
	parsed, err := PubKeyFromBase58(key.String())
	require.NoError(t, err)
	assert.True(t, key.Equal(parsed))

	_, err = PubKeyFromBase58("0OIl")
	assert.Error(t, err)
	_, err = PubKeyFromBase58("")
	assert.Error(t, err)
}

func TestHashFromHexRejectsWrongLength(t *testing.T) {
	_, err := HashFromHex("abcd")
	assert.Error(t, err)
	_, err = HashFromHex("zz")
	assert.Error(t, err)
}

func TestAccountDeltaConversion(t *testing.T) {
	acc := &Account{Address: "alice", Balance: uint256.NewInt(1500), Nonce: 4}
	d := NewAccountDelta(acc)
	assert.Equal(t, "1500", d.Balance)

	back, err := d.ToAccount()
	require.NoError(t, err)
	assert.Equal(t, acc.Address, back.Address)
	assert.Equal(t, uint64(1500), back.Balance.Uint64())
	assert.Equal(t, uint64(4), back.Nonce)

	_, err = AccountDelta{Address: "bob", Balance: "-1"}.ToAccount()
	assert.Error(t, err)
	_, err = AccountDelta{Balance: "1"}.ToAccount()
	assert.Error(t, err)
}

func TestDecodeStateDelta(t *testing.T) {
	_, err := DecodeStateDelta(nil)
	assert.Error(t, err)
	_, err = DecodeStateDelta([]byte("{not json"))
	assert.Error(t, err)

	data, err := EncodeStateDelta(&StateDelta{BlockNum: 3, Accounts: []AccountDelta{{Address: "a", Balance: "1"}}})
	require.NoError(t, err)
	d, err := DecodeStateDelta(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), d.BlockNum)
	assert.Len(t, d.Accounts, 1)
}

func TestZeroPubKeyRoundTrip(t *testing.T) {
	data, err := Marshal(Member{})
	require.NoError(t, err)

	var member Member
	require.NoError(t, Unmarshal(data, &member))
	assert.Nil(t, member.PubKey)
	assert.Equal(t, Member{}, member)

	ds := DSBlock{Header: DSBlockHeader{
		BlockNum:   0,
		PoWWinners: []Member{{PubKey: PubKey{5}}},
	}}
	data, err = Marshal(ds)
	require.NoError(t, err)

	var decoded DSBlock
	require.NoError(t, Unmarshal(data, &decoded))
	assert.Nil(t, decoded.Header.LeaderPubKey)
	require.Len(t, decoded.Header.PoWWinners, 1)
	assert.True(t, PubKey{5}.Equal(decoded.Header.PoWWinners[0].PubKey))
}
