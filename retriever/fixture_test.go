package retriever

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mezonai/mmn-recovery/committee"
	"github.com/mezonai/mmn-recovery/ledger"
	"github.com/mezonai/mmn-recovery/snapshot"
	"github.com/mezonai/mmn-recovery/store"
	"github.com/mezonai/mmn-recovery/types"
	"github.com/stretchr/testify/require"
)

const testEpochLength = 10

// dirArchive restores a delta by writing it into the released delta database
// directory, the way copying an archived database directory over it would.
type dirArchive struct {
	deltas   map[uint64][]byte
	fail     map[uint64]bool
	restored []uint64
}

func newDirArchive() *dirArchive {
	return &dirArchive{deltas: make(map[uint64][]byte), fail: make(map[uint64]bool)}
}

func (a *dirArchive) Has(blockNum uint64) bool {
	_, ok := a.deltas[blockNum]
	return ok || a.fail[blockNum]
}

func (a *dirArchive) Restore(blockNum uint64, dir string) error {
	if a.fail[blockNum] {
		return errors.New("no space left on device")
	}
	ds, err := store.NewStateDeltaStore(dir)
	if err != nil {
		return err
	}
	defer ds.Close()
	if err := ds.Put(blockNum, a.deltas[blockNum]); err != nil {
		return err
	}
	a.restored = append(a.restored, blockNum)
	return nil
}

type fixture struct {
	t       *testing.T
	bs      *store.GenericBlockStorage
	as      *store.GenericAccountStore
	archive *dirArchive
	deltas  map[uint64][]byte
	roots   map[uint64]types.Hash
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	bs, as, err := store.CreateStore(&store.StoreConfig{Type: store.LevelDBStoreType, Directory: filepath.Join(dir, "db")}, dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })

	return &fixture{
		t:       t,
		bs:      bs,
		as:      as,
		archive: newDirArchive(),
		deltas:  make(map[uint64][]byte),
		roots:   make(map[uint64]types.Hash),
	}
}

// deltaOf touches one of three accounts with absolute values derived from the block number
func deltaOf(num uint64) *types.StateDelta {
	return &types.StateDelta{
		BlockNum: num,
		Accounts: []types.AccountDelta{{
			Address: fmt.Sprintf("acc%d", num%3),
			Balance: strconv.FormatUint(100+num, 10),
			Nonce:   num,
		}},
	}
}

// buildTxChain persists tx blocks 0..last whose state roots follow the deltas
// of deltaOf, and commits the account state reached after block committed.
func (f *fixture) buildTxChain(last, committed uint64) {
	f.t.Helper()
	state := make(map[string]*types.Account)
	for i := uint64(0); i <= last; i++ {
		delta := deltaOf(i)
		for _, e := range delta.Accounts {
			acc, err := e.ToAccount()
			require.NoError(f.t, err)
			state[acc.Address] = acc
		}
		data, err := types.EncodeStateDelta(delta)
		require.NoError(f.t, err)
		f.deltas[i] = data

		accounts := make([]*types.Account, 0, len(state))
		for _, acc := range state {
			accounts = append(accounts, acc.Clone())
		}
		f.roots[i] = snapshot.ComputeStateRoot(accounts)
		require.NoError(f.t, f.bs.PutTxBlock(&types.TxBlock{
			Header: types.TxBlockHeader{BlockNum: i, StateRootHash: f.roots[i]},
			Hash:   types.HashOf([]byte(fmt.Sprintf("tx-%d", i))),
		}))

		if i == committed {
			require.NoError(f.t, f.as.StoreBatch(accounts, nil))
		}
	}
}

// archiveDeltas places the deltas of [from, to] in the archive
func (f *fixture) archiveDeltas(from, to uint64) {
	for i := from; i <= to; i++ {
		f.archive.deltas[i] = f.deltas[i]
	}
}

// liveDeltas places the deltas of [from, to] in the live delta store
func (f *fixture) liveDeltas(from, to uint64) {
	f.t.Helper()
	for i := from; i <= to; i++ {
		require.NoError(f.t, f.bs.PutStateDelta(i, f.deltas[i]))
	}
}

// standardTxChain is blocks 0..23 with the state committed at block 9, the
// deltas of the closed epoch 10..19 archived and the trailing 20..23 live.
func (f *fixture) standardTxChain() {
	f.buildTxChain(23, 9)
	f.archiveDeltas(10, 19)
	f.liveDeltas(20, 23)
}

// newRetriever simulates a node start: fresh in-memory state over the same storage
func (f *fixture) newRetriever(opts ...Option) (*Retriever, *ledger.Ledger) {
	f.t.Helper()
	l := ledger.NewLedger(f.as)
	opts = append([]Option{WithArchive(f.archive)}, opts...)
	r, err := New(Config{EpochLength: testEpochLength, RetainedEpochs: 1}, f.bs, l, opts...)
	require.NoError(f.t, err)
	return r, l
}

func member(id byte) types.Member {
	return types.Member{PubKey: types.PubKey{id}, Peer: types.Peer{IP: "10.0.0.1", Port: 30000 + uint32(id)}}
}

func genesisCommittee() *committee.Committee {
	return committee.New([]types.Member{member(1), member(2), member(3), member(4)})
}

func memberKeys(members []types.Member) []byte {
	out := make([]byte, 0, len(members))
	for _, m := range members {
		out = append(out, m.PubKey[0])
	}
	return out
}

var (
	hashVC1 = types.HashOf([]byte("vc-1"))
	hashFB3 = types.HashOf([]byte("fb-3"))
	hashVC4 = types.HashOf([]byte("vc-4"))
)

// buildLinks persists DS blocks 0 and 1, a view change, a fallback and a
// second view change, with the matching links:
// (0,0,DS) (1,0,VC) (2,1,DS) (3,1,FB) (4,1,VC)
func (f *fixture) buildLinks(dsIncompleted byte) []types.BlockLink {
	f.t.Helper()
	require.NoError(f.t, f.bs.PutDSBlock(&types.DSBlock{Header: types.DSBlockHeader{
		BlockNum:   0,
		PoWWinners: []types.Member{member(5)},
	}}))
	require.NoError(f.t, f.bs.PutVCBlock(&types.VCBlock{Hash: hashVC1, Header: types.VCBlockHeader{
		FaultyLeaders: []types.Member{member(5)},
	}}))
	require.NoError(f.t, f.bs.PutDSBlock(&types.DSBlock{Header: types.DSBlockHeader{
		BlockNum:       1,
		PoWWinners:     []types.Member{member(6)},
		RemovedMembers: []types.PubKey{{2}},
	}}))
	require.NoError(f.t, f.bs.PutFallbackBlock(&types.FallbackBlockWShardingStructure{
		Block: types.FallbackBlock{Hash: hashFB3, Header: types.FallbackBlockHeader{
			ShardID:           0,
			LeaderPubKey:      types.PubKey{8},
			LeaderNetworkInfo: member(8).Peer,
		}},
		Shards: [][]types.Member{{member(7), member(8), member(9)}},
	}))
	require.NoError(f.t, f.bs.PutVCBlock(&types.VCBlock{Hash: hashVC4, Header: types.VCBlockHeader{
		FaultyLeaders: []types.Member{member(8)},
	}}))

	links := []types.BlockLink{
		{Index: 0, DSIndex: 0, Type: types.BlockTypeDS},
		{Index: 1, DSIndex: 0, Type: types.BlockTypeVC, Hash: hashVC1},
		{Index: 2, DSIndex: 1, Type: types.BlockTypeDS},
		{Index: 3, DSIndex: 1, Type: types.BlockTypeFB, Hash: hashFB3},
		{Index: 4, DSIndex: 1, Type: types.BlockTypeVC, Hash: hashVC4},
	}
	for _, l := range links {
		require.NoError(f.t, f.bs.PutBlockLink(l))
	}
	require.NoError(f.t, f.bs.PutMetadata(store.MetaDSIncompleted, []byte{dsIncompleted}))
	require.NoError(f.t, f.bs.PutMetadata(store.MetaLatestActiveDSBlockNum, []byte("1")))
	return links
}

// faultyStorage overrides selected storage operations
type faultyStorage struct {
	store.BlockStorage
	getAllTxErr   error
	deleteVCErr   error
	reverseLinks  bool
	deleteBodyErr error
	getVCErr      error
	// failLinkWrite fails the first write of the link with this index
	failLinkWrite *uint64
}

func (s *faultyStorage) GetVCBlock(hash types.Hash) (*types.VCBlock, error) {
	if s.getVCErr != nil {
		return nil, s.getVCErr
	}
	return s.BlockStorage.GetVCBlock(hash)
}

func (s *faultyStorage) PutBlockLink(link types.BlockLink) error {
	if s.failLinkWrite != nil && *s.failLinkWrite == link.Index {
		s.failLinkWrite = nil
		return errors.New("disk full")
	}
	return s.BlockStorage.PutBlockLink(link)
}

func (s *faultyStorage) GetAllTxBlocks() ([]*types.TxBlock, error) {
	if s.getAllTxErr != nil {
		return nil, s.getAllTxErr
	}
	return s.BlockStorage.GetAllTxBlocks()
}

func (s *faultyStorage) DeleteVCBlock(hash types.Hash) error {
	if s.deleteVCErr != nil {
		return s.deleteVCErr
	}
	return s.BlockStorage.DeleteVCBlock(hash)
}

func (s *faultyStorage) GetAllBlockLinks() ([]types.BlockLink, error) {
	links, err := s.BlockStorage.GetAllBlockLinks()
	if err != nil || !s.reverseLinks {
		return links, err
	}
	for i, j := 0, len(links)-1; i < j; i, j = i+1, j-1 {
		links[i], links[j] = links[j], links[i]
	}
	return links, nil
}

func (s *faultyStorage) DeleteTxBody(hash types.Hash) error {
	if s.deleteBodyErr != nil {
		return s.deleteBodyErr
	}
	return s.BlockStorage.DeleteTxBody(hash)
}
