package committee

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/mezonai/mmn-recovery/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(id byte) types.Member {
	return types.Member{PubKey: types.PubKey{id}, Peer: types.Peer{IP: "10.0.0.1", Port: uint32(id)}}
}

func keys(c *Committee) []byte {
	out := make([]byte, 0, len(c.Members))
	for _, m := range c.Members {
		out = append(out, m.PubKey[0])
	}
	return out
}

func TestApplyDSBlock(t *testing.T) {
	c := New([]types.Member{member(1), member(2), member(3), member(4)})

	c.ApplyDSBlock(&types.DSBlock{Header: types.DSBlockHeader{
		BlockNum:   1,
		PoWWinners: []types.Member{member(7), member(8)},
	}})
	// winners pushed to the front, oldest expelled from the back
	assert.Equal(t, []byte{8, 7, 1, 2}, keys(c))

	c.ApplyDSBlock(&types.DSBlock{Header: types.DSBlockHeader{
		BlockNum:       2,
		PoWWinners:     []types.Member{member(9)},
		RemovedMembers: []types.PubKey{{7}, {1}},
	}})
	// two removed, one winner: committee shrinks by one
	assert.Equal(t, []byte{9, 8, 2}, keys(c))
}

func TestApplyDSBlockIgnoresUnknownRemovedMember(t *testing.T) {
	c := New([]types.Member{member(1), member(2)})
	c.ApplyDSBlock(&types.DSBlock{Header: types.DSBlockHeader{
		PoWWinners:     []types.Member{member(3)},
		RemovedMembers: []types.PubKey{{42}},
	}})
	assert.Equal(t, []byte{3, 1}, keys(c))
}

func TestApplyViewChange(t *testing.T) {
	c := New([]types.Member{member(1), member(2), member(3)})
	c.ApplyViewChange(&types.VCBlock{Header: types.VCBlockHeader{
		FaultyLeaders: []types.Member{member(1), member(5)},
	}})
	assert.Equal(t, []byte{2, 3, 1}, keys(c))
	leader, ok := c.Leader()
	require.True(t, ok)
	assert.Equal(t, byte(2), leader.PubKey[0])
}

func TestApplyFallback(t *testing.T) {
	c := New([]types.Member{member(1), member(2)})
	shards := [][]types.Member{
		{member(10), member(11)},
		{member(20), member(21), member(22)},
	}
	peer := types.Peer{IP: "192.168.1.5", Port: 33133}

	require.NoError(t, c.ApplyFallback(1, types.PubKey{22}, peer, shards))
	assert.Equal(t, []byte{22, 20, 21}, keys(c))
	assert.Equal(t, peer, c.Members[0].Peer)

	assert.Error(t, c.ApplyFallback(2, types.PubKey{22}, peer, shards))
	assert.Error(t, c.ApplyFallback(0, types.PubKey{22}, peer, shards))
	// failed fallback leaves the committee unchanged
	assert.Equal(t, []byte{22, 20, 21}, keys(c))
}

func TestCloneIsDeep(t *testing.T) {
	c := New([]types.Member{member(1), member(2)})
	c.LatestActiveDSBlockNum = 4

	cp := c.Clone()
	cp.Members[0].PubKey[0] = 99
	cp.ApplyViewChange(&types.VCBlock{Header: types.VCBlockHeader{FaultyLeaders: []types.Member{member(2)}}})

	assert.Equal(t, []byte{1, 2}, keys(c))
	assert.Equal(t, uint64(4), cp.LatestActiveDSBlockNum)

	var nilComm *Committee
	assert.Nil(t, nilComm.Clone())

	_, ok := New(nil).Leader()
	assert.False(t, ok)
}

func TestViewChangesKeepMembership(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(1, 8)

	for round := 0; round < 50; round++ {
		var ids []byte
		f.Fuzz(&ids)

		members := make([]types.Member, 0, len(ids))
		seen := make(map[byte]bool)
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				members = append(members, member(id))
			}
		}
		c := New(members)

		var faulty []byte
		f.Fuzz(&faulty)
		vc := &types.VCBlock{}
		for _, id := range faulty {
			vc.Header.FaultyLeaders = append(vc.Header.FaultyLeaders, member(id))
		}
		c.ApplyViewChange(vc)

		assert.Len(t, c.Members, len(members))
		assert.ElementsMatch(t, keys(New(members)), keys(c))
	}
}
