package retriever

// EpochBoundary splits the persisted tx blocks into closed epochs and the
// incomplete trailing epoch.
type EpochBoundary struct {
	// Extra is the number of trailing blocks of the epoch that has not closed yet
	Extra uint64
	// Upper is the last block of the last closed epoch
	Upper uint64
	// Lower is the first block whose delta is replayed
	Lower uint64
}

// ComputeEpochBoundary derives the replay window from the highest persisted
// block. epochLength must be positive.
//
// When no epoch has closed yet (lastBlockNum < epochLength-1) Upper is
// meaningless; callers check HasClosedEpoch.
func ComputeEpochBoundary(lastBlockNum, epochLength, retainedEpochs uint64) EpochBoundary {
	extra := (lastBlockNum + 1) % epochLength
	b := EpochBoundary{Extra: extra}
	if extra > lastBlockNum {
		return b
	}
	b.Upper = lastBlockNum - extra

	window := retainedEpochs * epochLength
	if b.Upper+1 > window {
		b.Lower = b.Upper + 1 - window
	}
	return b
}

// HasClosedEpoch reports whether at least one epoch ends at or before lastBlockNum
func (b EpochBoundary) HasClosedEpoch(lastBlockNum uint64) bool {
	return b.Extra <= lastBlockNum
}
