package types

// TxBlockHeader carries the fields recovery relies on
type TxBlockHeader struct {
	BlockNum      uint64 `json:"block_num"`
	DSBlockNum    uint64 `json:"ds_block_num"`
	StateRootHash Hash   `json:"state_root_hash"`
	Timestamp     uint64 `json:"timestamp"`
}

// TxBlock is a final (transaction) block
type TxBlock struct {
	Header TxBlockHeader `json:"header"`
	Hash   Hash          `json:"hash"`
}

// DSBlockHeader describes a committee change
type DSBlockHeader struct {
	BlockNum     uint64 `json:"block_num"`
	LeaderPubKey PubKey `json:"leader_pub_key"`
	// PoWWinners are pushed to the front of the committee in turn
	PoWWinners []Member `json:"pow_winners"`
	// RemovedMembers are dropped from the committee before the winners join
	RemovedMembers []PubKey `json:"removed_members"`
	Timestamp      uint64   `json:"timestamp"`
}

// DSBlock is a directory-service block
type DSBlock struct {
	Header DSBlockHeader `json:"header"`
	Hash   Hash          `json:"hash"`
}

// VCBlockHeader records the outcome of a view change
type VCBlockHeader struct {
	VCDSEpochNo     uint64   `json:"vc_ds_epoch_no"`
	VCEpochNo       uint64   `json:"vc_epoch_no"`
	CandidateLeader Member   `json:"candidate_leader"`
	FaultyLeaders   []Member `json:"faulty_leaders"`
}

// VCBlock is a view change block
type VCBlock struct {
	Header VCBlockHeader `json:"header"`
	Hash   Hash          `json:"hash"`
}

// FallbackBlockHeader identifies the shard that took over as DS committee
type FallbackBlockHeader struct {
	FallbackDSEpochNo uint64 `json:"fallback_ds_epoch_no"`
	FallbackEpochNo   uint64 `json:"fallback_epoch_no"`
	ShardID           uint32 `json:"shard_id"`
	LeaderPubKey      PubKey `json:"leader_pub_key"`
	LeaderNetworkInfo Peer   `json:"leader_network_info"`
}

// FallbackBlock is produced when the DS committee stalls and a shard takes over
type FallbackBlock struct {
	Header FallbackBlockHeader `json:"header"`
	Hash   Hash                `json:"hash"`
}

// FallbackBlockWShardingStructure is a fallback block stored with the shard
// assignment that was in force when it was produced
type FallbackBlockWShardingStructure struct {
	Block  FallbackBlock `json:"block"`
	Shards [][]Member    `json:"shards"`
}
