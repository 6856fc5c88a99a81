package retriever

import (
	"fmt"
	"sort"

	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/monitoring"
	"github.com/mezonai/mmn-recovery/store"
	"github.com/mezonai/mmn-recovery/types"
)

// RetrieveTxBlocks rebuilds the tx block chain and the account state. Deltas
// of the closed epochs inside the retention window are replayed and committed.
// The blocks of the incomplete trailing epoch are deleted when trim is set,
// otherwise their deltas are applied on top of the committed state.
func (r *Retriever) RetrieveTxBlocks(trim bool) error {
	logx.Info("RETRIEVER", "RetrieveTxBlocks trim=", trim)

	blocks, err := r.storage.GetAllTxBlocks()
	if err != nil {
		return storageUnavailable(err, "load tx blocks")
	}
	if len(blocks) == 0 {
		return storageUnavailable(nil, "no tx block persisted")
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Header.BlockNum < blocks[j].Header.BlockNum
	})

	lastBlockNum := blocks[len(blocks)-1].Header.BlockNum
	boundary := ComputeEpochBoundary(lastBlockNum, r.cfg.EpochLength, r.cfg.RetainedEpochs)
	trailingFrom := lastBlockNum + 1 - boundary.Extra
	logx.Info("RETRIEVER", fmt.Sprintf("Last tx block %d: extra=%d upper=%d lower=%d",
		lastBlockNum, boundary.Extra, boundary.Upper, boundary.Lower))

	var buffered []bufferedDelta
	if boundary.Extra > 0 {
		buffered, err = r.bufferTrailingDeltas(trailingFrom, lastBlockNum)
		if err != nil {
			return err
		}
	}

	if err := r.storage.ResetDB(store.StateDelta); err != nil {
		return storageUnavailable(err, "reset state delta store")
	}

	if boundary.HasClosedEpoch(lastBlockNum) {
		if err := r.replayStateDeltas(boundary.Lower, boundary.Upper); err != nil {
			r.keepBufferedOnFailure(buffered)
			return err
		}
	} else {
		logx.Warn("RETRIEVER", fmt.Sprintf("No closed epoch up to tx block %d, nothing to replay", lastBlockNum))
	}

	if trim {
		// most recent first
		for i := uint64(0); i < boundary.Extra; i++ {
			num := lastBlockNum - i
			if err := r.storage.DeleteTxBlock(num); err != nil {
				logx.Warn("RETRIEVER", fmt.Sprintf("Failed to delete tx block %d: %v", num, err))
			}
		}
		kept := dropFrom(blocks, trailingFrom)
		trimmed := len(blocks) - len(kept)
		blocks = kept
		monitoring.AddTrimmedBlocks("TX", trimmed)
		logx.Info("RETRIEVER", fmt.Sprintf("Trimmed %d tx blocks of the incomplete epoch", trimmed))
	} else {
		if err := r.applyBuffered(buffered); err != nil {
			r.keepBufferedOnFailure(buffered)
			return err
		}
		// keep the trailing deltas available to the next pass
		if err := r.storeBackBuffered(buffered); err != nil {
			return err
		}
	}

	for _, b := range blocks {
		r.txChain.AddBlock(b)
	}
	if last := r.txChain.LastBlock(); last != nil {
		monitoring.SetTxBlockHeight(last.Header.BlockNum)
	}
	logx.Info("RETRIEVER", fmt.Sprintf("Retrieved %d tx blocks", len(blocks)))
	return nil
}

// dropFrom returns the prefix of the sorted blocks numbered below from
func dropFrom(blocks []*types.TxBlock, from uint64) []*types.TxBlock {
	n := sort.Search(len(blocks), func(i int) bool { return blocks[i].Header.BlockNum >= from })
	return blocks[:n]
}
