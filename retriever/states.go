package retriever

import (
	"fmt"

	"github.com/mezonai/mmn-recovery/logx"
)

// RetrieveStates loads the committed account state from disk
func (r *Retriever) RetrieveStates() error {
	if err := r.state.LoadFromDisk(); err != nil {
		return storageUnavailable(err, "load account state")
	}
	return nil
}

// ValidateStates compares the state root of the last tx block with the root of
// the recovered account state.
func (r *Retriever) ValidateStates() error {
	last := r.txChain.LastBlock()
	if last == nil {
		return storageUnavailable(nil, "tx block chain is empty")
	}

	expected := last.Header.StateRootHash
	actual := r.state.StateRoot()
	if expected != actual {
		err := &StateRootMismatchError{BlockNum: last.Header.BlockNum, Expected: expected, Actual: actual}
		logx.Warn("RETRIEVER", "ValidateStates failed: ", err)
		return err
	}

	logx.Info("RETRIEVER", fmt.Sprintf("ValidateStates passed at tx block %d", last.Header.BlockNum))
	return nil
}
