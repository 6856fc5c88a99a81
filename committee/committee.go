package committee

import (
	"fmt"

	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/types"
)

// Committee is the ordered DS committee rebuilt while replaying block links.
// Members[0] is the current leader.
type Committee struct {
	Members                []types.Member `json:"members"`
	LatestActiveDSBlockNum uint64         `json:"latest_active_ds_block_num"`
}

func New(members []types.Member) *Committee {
	c := &Committee{}
	c.Members = append(c.Members, members...)
	return c
}

// Clone returns a deep copy
func (c *Committee) Clone() *Committee {
	if c == nil {
		return nil
	}
	out := &Committee{
		Members:                make([]types.Member, len(c.Members)),
		LatestActiveDSBlockNum: c.LatestActiveDSBlockNum,
	}
	for i, m := range c.Members {
		out.Members[i] = types.Member{PubKey: append(types.PubKey(nil), m.PubKey...), Peer: m.Peer}
	}
	return out
}

func (c *Committee) Len() int {
	return len(c.Members)
}

// Leader returns the first member, false when the committee is empty
func (c *Committee) Leader() (types.Member, bool) {
	if len(c.Members) == 0 {
		return types.Member{}, false
	}
	return c.Members[0], true
}

func (c *Committee) indexOf(key types.PubKey) int {
	for i, m := range c.Members {
		if m.PubKey.Equal(key) {
			return i
		}
	}
	return -1
}

func (c *Committee) removeAt(i int) types.Member {
	m := c.Members[i]
	c.Members = append(c.Members[:i], c.Members[i+1:]...)
	return m
}

// ApplyDSBlock updates the composition after a DS block: removed members leave,
// each PoW winner is pushed to the front in turn (so the last winner leads) and
// the oldest members are expelled from the back so the size only grows by
// len(winners)-len(removed).
func (c *Committee) ApplyDSBlock(block *types.DSBlock) {
	removed := 0
	for _, key := range block.Header.RemovedMembers {
		if i := c.indexOf(key); i >= 0 {
			c.removeAt(i)
			removed++
		} else {
			logx.Warn("COMMITTEE", fmt.Sprintf("Removed member %s of DS block %d not in committee", key, block.Header.BlockNum))
		}
	}

	winners := block.Header.PoWWinners
	front := make([]types.Member, 0, len(winners)+len(c.Members))
	for i := len(winners) - 1; i >= 0; i-- {
		front = append(front, winners[i])
	}
	c.Members = append(front, c.Members...)

	for expel := len(winners) - removed; expel > 0 && len(c.Members) > 0; expel-- {
		c.Members = c.Members[:len(c.Members)-1]
	}
}

// ApplyViewChange moves every faulty leader of the view change to the back
func (c *Committee) ApplyViewChange(block *types.VCBlock) {
	for _, faulty := range block.Header.FaultyLeaders {
		i := c.indexOf(faulty.PubKey)
		if i < 0 {
			logx.Warn("COMMITTEE", fmt.Sprintf("Faulty leader %s not in committee", faulty.PubKey))
			continue
		}
		m := c.removeAt(i)
		c.Members = append(c.Members, m)
	}
}

// ApplyFallback replaces the committee with the members of the shard that ran
// the fallback, the fallback leader first.
func (c *Committee) ApplyFallback(shardID uint32, leader types.PubKey, leaderPeer types.Peer, shards [][]types.Member) error {
	if int(shardID) >= len(shards) {
		return fmt.Errorf("fallback shard %d out of range (%d shards)", shardID, len(shards))
	}
	shard := shards[shardID]

	members := make([]types.Member, 0, len(shard))
	found := false
	for _, m := range shard {
		if m.PubKey.Equal(leader) {
			found = true
			continue
		}
		members = append(members, m)
	}
	if !found {
		return fmt.Errorf("fallback leader %s not in shard %d", leader, shardID)
	}

	c.Members = append([]types.Member{{PubKey: leader, Peer: leaderPeer}}, members...)
	return nil
}
