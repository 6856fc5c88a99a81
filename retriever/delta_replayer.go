package retriever

import (
	stderrors "errors"
	"fmt"

	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/monitoring"
	"github.com/mezonai/mmn-recovery/store"
)

type bufferedDelta struct {
	blockNum uint64
	data     []byte
}

// bufferTrailingDeltas reads the deltas of blocks [from, to] so they survive
// the delta store reset. Blocks without a delta are skipped.
func (r *Retriever) bufferTrailingDeltas(from, to uint64) ([]bufferedDelta, error) {
	present, err := r.storage.GetStateDeltaRange(from, to)
	if err != nil {
		return nil, storageUnavailable(err, "buffer state deltas of blocks [%d, %d]", from, to)
	}

	var buffered []bufferedDelta
	for i := from; i <= to; i++ {
		data, ok := present[i]
		if !ok {
			logx.Warn("DELTA", fmt.Sprintf("No state delta for trailing tx block %d", i))
			continue
		}
		buffered = append(buffered, bufferedDelta{blockNum: i, data: data})
	}
	monitoring.SetBufferedDeltas(len(buffered))
	return buffered, nil
}

// restoreFromArchive replaces the delta store content with the archived delta
// of blockNum. The delta store handle is released for the duration of the copy.
func (r *Retriever) restoreFromArchive(blockNum uint64) error {
	if err := r.storage.ReleaseDB(store.StateDelta); err != nil {
		return storageUnavailable(err, "release state delta store")
	}
	if err := r.archive.Restore(blockNum, r.storage.StateDeltaDir()); err != nil {
		// try to get the handle back so the caller can still close cleanly
		if refreshErr := r.storage.RefreshDB(store.StateDelta); refreshErr != nil {
			logx.Error("DELTA", "Reopening state delta store after failed copy: ", refreshErr)
		}
		return fatalCopy(err, blockNum)
	}
	if err := r.storage.RefreshDB(store.StateDelta); err != nil {
		return storageUnavailable(err, "refresh state delta store after restoring block %d", blockNum)
	}
	monitoring.IncDeltasCopied()
	return nil
}

// replayStateDeltas applies the deltas of blocks [lower, upper] to the account
// state and commits once if anything was applied. A block without a delta is
// tolerated: a later delta carries the cumulative values.
func (r *Retriever) replayStateDeltas(lower, upper uint64) error {
	applied := 0
	for i := lower; i <= upper; i++ {
		if r.archive != nil && r.archive.Has(i) {
			if err := r.restoreFromArchive(i); err != nil {
				return err
			}
		}

		if (i+1)%r.cfg.EpochLength == 0 {
			if err := r.storage.RefreshDB(store.StateDelta); err != nil {
				return storageUnavailable(err, "refresh state delta store at block %d", i)
			}
		}

		data, err := r.storage.GetStateDelta(i)
		if stderrors.Is(err, store.ErrNotFound) {
			logx.Warn("DELTA", fmt.Sprintf("Didn't find state delta for tx block %d, relying on a later one", i))
			monitoring.IncDeltaGaps()
			continue
		}
		if err != nil {
			return storageUnavailable(err, "read state delta of block %d", i)
		}

		if err := r.state.ApplyDelta(data); err != nil {
			return deserialization(err, "apply state delta of block %d", i)
		}
		applied++
		monitoring.IncDeltasApplied()
	}

	if applied == 0 {
		logx.Info("DELTA", fmt.Sprintf("No state delta applied in [%d, %d]", lower, upper))
		return nil
	}
	if err := r.state.CommitToDisk(); err != nil {
		return storageUnavailable(err, "commit state after replaying [%d, %d]", lower, upper)
	}
	logx.Info("DELTA", fmt.Sprintf("Applied %d state deltas in [%d, %d]", applied, lower, upper))
	return nil
}

// applyBuffered applies deltas buffered before the reset, without committing
func (r *Retriever) applyBuffered(buffered []bufferedDelta) error {
	for _, d := range buffered {
		if err := r.state.ApplyDelta(d.data); err != nil {
			return deserialization(err, "apply buffered state delta of block %d", d.blockNum)
		}
		monitoring.IncDeltasApplied()
	}
	return nil
}

// storeBackBuffered writes buffered deltas into the reset delta store. It runs
// after the archive restores, which replace the delta database content.
func (r *Retriever) storeBackBuffered(buffered []bufferedDelta) error {
	for _, d := range buffered {
		if err := r.storage.PutStateDelta(d.blockNum, d.data); err != nil {
			return storageUnavailable(err, "store back state delta of block %d", d.blockNum)
		}
	}
	return nil
}

// keepBufferedOnFailure puts the trailing deltas back after a failed pass, so
// the blocks that are still stored keep their deltas
func (r *Retriever) keepBufferedOnFailure(buffered []bufferedDelta) {
	if err := r.storeBackBuffered(buffered); err != nil {
		logx.Error("DELTA", "Could not keep trailing state deltas: ", err)
	}
}
