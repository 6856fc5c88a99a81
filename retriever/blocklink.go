package retriever

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mezonai/mmn-recovery/committee"
	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/monitoring"
	"github.com/mezonai/mmn-recovery/store"
	"github.com/mezonai/mmn-recovery/types"
)

// RetrieveBlockLink replays the persisted DS/VC/FB links in index order,
// rebuilding the committee, the DS block chain and the block link chain.
// When the previous run stopped inside a DS epoch and trim is set, replay
// stops at the DS link that opened that epoch and the blocks of the remaining
// links are deleted.
func (r *Retriever) RetrieveBlockLink(trim bool) error {
	logx.Info("RETRIEVER", "RetrieveBlockLink trim=", trim)

	links, err := r.storage.GetAllBlockLinks()
	if err != nil {
		return storageUnavailable(err, "load block links")
	}
	if len(links) == 0 {
		return storageUnavailable(nil, "no block link persisted")
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].Index < links[j].Index })

	if r.dsComm.LatestActiveDSBlockNum == 0 {
		num, err := r.latestActiveDSBlockNum()
		if err != nil {
			return err
		}
		r.dsComm.LatestActiveDSBlockNum = num
	}

	dsIncompleted, err := r.dsIncompleted()
	if err != nil {
		return err
	}

	last := links[len(links)-1]
	lastDsIndex := last.DSIndex
	if last.Type != types.BlockTypeDS {
		if lastDsIndex == 0 {
			return corruptChainState("last link %s is not DS but refers to DS index 0", last)
		}
		// the trailing VC/FB links belong to the epoch of the previous DS block
		lastDsIndex--
	}

	toDelete := dsIncompleted && trim
	if toDelete {
		logx.Info("BLOCKLINK", "Has incompleted DS block, removing it")
	}

	stop := len(links)
	for i, link := range links {
		if toDelete && link.Type == types.BlockTypeDS && link.DSIndex == lastDsIndex {
			logx.Info("BLOCKLINK", fmt.Sprintf("Broke at DS index %d", lastDsIndex))
			stop = i
			break
		}
	}

	// every block is loaded and replayed on a copy before the persisted links are touched
	replay, err := r.replayLinks(links[:stop])
	if err != nil {
		return err
	}

	if err := r.storage.ResetDB(store.BlockLink); err != nil {
		r.restoreBlockLinks(links)
		return storageUnavailable(err, "reset block links")
	}
	for _, link := range links[:stop] {
		if err := r.linkChain.AddBlockLink(link.Index, link.DSIndex, link.Type, link.Hash); err != nil {
			r.restoreBlockLinks(links)
			return storageUnavailable(err, "re-add %s", link)
		}
		monitoring.IncLinksReplayed(link.Type.String())
	}

	for _, block := range replay.dsBlocks {
		r.dsChain.AddBlock(block)
	}
	if replay.builtDSComm != nil {
		r.linkChain.SetBuiltDSComm(replay.builtDSComm)
	}
	r.dsComm = replay.comm
	logx.Info("BLOCKLINK", fmt.Sprintf("Replayed %d of %d block links, committee size %d", stop, len(links), r.dsComm.Len()))

	if !toDelete {
		return nil
	}
	r.deleteLinkedBlocks(links[stop:])
	return nil
}

type linkReplay struct {
	comm        *committee.Committee
	dsBlocks    []*types.DSBlock
	builtDSComm []types.Member
}

// replayLinks applies links to a copy of the committee
func (r *Retriever) replayLinks(links []types.BlockLink) (*linkReplay, error) {
	replay := &linkReplay{comm: r.dsComm.Clone()}
	for _, link := range links {
		if err := replay.apply(r.storage, link); err != nil {
			return nil, err
		}
	}
	return replay, nil
}

// apply loads the block a link points at and applies it to the committee
func (lr *linkReplay) apply(storage store.BlockStorage, link types.BlockLink) error {
	ref, err := link.Ref()
	if err != nil {
		return corruptChainState("%v", err)
	}

	switch ref := ref.(type) {
	case types.DSRef:
		block, err := storage.GetDSBlock(ref.DSIndex)
		if err != nil {
			return storageUnavailable(err, "load DS block %d", ref.DSIndex)
		}
		lr.comm.ApplyDSBlock(block)
		lr.builtDSComm = append([]types.Member(nil), lr.comm.Members...)
		lr.dsBlocks = append(lr.dsBlocks, block)

	case types.VCRef:
		block, err := storage.GetVCBlock(ref.Hash)
		if err != nil {
			return storageUnavailable(err, "load VC block %s", ref.Hash)
		}
		lr.comm.ApplyViewChange(block)

	case types.FBRef:
		fb, err := storage.GetFallbackBlock(ref.Hash)
		if err != nil {
			return storageUnavailable(err, "load fallback block %s", ref.Hash)
		}
		header := fb.Block.Header
		if err := lr.comm.ApplyFallback(header.ShardID, header.LeaderPubKey, header.LeaderNetworkInfo, fb.Shards); err != nil {
			return corruptChainState("replay fallback block %s: %v", ref.Hash, err)
		}
	}
	return nil
}

// restoreBlockLinks writes the original links back after a failed rebuild
func (r *Retriever) restoreBlockLinks(links []types.BlockLink) {
	for _, link := range links {
		if err := r.storage.PutBlockLink(link); err != nil {
			logx.Error("BLOCKLINK", fmt.Sprintf("Could not restore %s: %v", link, err))
		}
	}
}

// deleteLinkedBlocks removes the blocks of an incomplete trailing DS epoch.
// Failures are only logged.
func (r *Retriever) deleteLinkedBlocks(links []types.BlockLink) {
	for _, link := range links {
		ref, err := link.Ref()
		if err != nil {
			logx.Warn("BLOCKLINK", "Skipping ", err)
			continue
		}

		switch ref := ref.(type) {
		case types.DSRef:
			if err := r.storage.DeleteDSBlock(ref.DSIndex); err != nil {
				logx.Warn("BLOCKLINK", fmt.Sprintf("Could not delete DS block %d: %v", ref.DSIndex, err))
				continue
			}
			if err := r.storage.PutMetadata(store.MetaDSIncompleted, []byte{'0'}); err != nil {
				logx.Warn("BLOCKLINK", "Could not reset DSINCOMPLETED: ", err)
			}
		case types.VCRef:
			if err := r.storage.DeleteVCBlock(ref.Hash); err != nil {
				logx.Warn("BLOCKLINK", fmt.Sprintf("Could not delete VC block %s: %v", ref.Hash, err))
				continue
			}
		case types.FBRef:
			if err := r.storage.DeleteFallbackBlock(ref.Hash); err != nil {
				logx.Warn("BLOCKLINK", fmt.Sprintf("Could not delete FB block %s: %v", ref.Hash, err))
				continue
			}
		}
		monitoring.AddTrimmedBlocks(link.Type.String(), 1)
	}
	logx.Info("BLOCKLINK", fmt.Sprintf("Removed blocks of %d trailing links", len(links)))
}

func (r *Retriever) latestActiveDSBlockNum() (uint64, error) {
	raw, err := r.storage.GetMetadata(store.MetaLatestActiveDSBlockNum)
	if stderrors.Is(err, store.ErrNotFound) {
		return 0, storageUnavailable(nil, "metadata %s missing", store.MetaLatestActiveDSBlockNum)
	}
	if err != nil {
		return 0, storageUnavailable(err, "read metadata %s", store.MetaLatestActiveDSBlockNum)
	}
	num, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, deserialization(err, "parse metadata %s", store.MetaLatestActiveDSBlockNum)
	}
	return num, nil
}

func (r *Retriever) dsIncompleted() (bool, error) {
	raw, err := r.storage.GetMetadata(store.MetaDSIncompleted)
	if stderrors.Is(err, store.ErrNotFound) {
		return false, storageUnavailable(nil, "metadata %s missing", store.MetaDSIncompleted)
	}
	if err != nil {
		return false, storageUnavailable(err, "read metadata %s", store.MetaDSIncompleted)
	}
	if len(raw) == 0 {
		return false, deserialization(fmt.Errorf("empty value"), "parse metadata %s", store.MetaDSIncompleted)
	}
	return raw[0] == '1', nil
}
