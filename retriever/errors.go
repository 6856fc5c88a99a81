package retriever

import (
	stderrors "errors"
	"fmt"

	"github.com/mezonai/mmn-recovery/monitoring"
	"github.com/mezonai/mmn-recovery/types"
	"github.com/pkg/errors"
)

var (
	// ErrStorageUnavailable: a required collection is empty or unreadable
	ErrStorageUnavailable = stderrors.New("storage unavailable")
	// ErrDeserialization: a delta or metadata value could not be decoded or applied
	ErrDeserialization = stderrors.New("deserialization failure")
	// ErrCorruptChainState: persisted links are structurally inconsistent
	ErrCorruptChainState = stderrors.New("corrupt chain state")
	// ErrFatalCopy: an archived delta could not be restored. Recovery cannot continue.
	ErrFatalCopy = stderrors.New("fatal state delta copy failure")
	// ErrStateRootMismatch: recovered state does not match the last tx block
	ErrStateRootMismatch = stderrors.New("state root mismatch")
)

// IsFatal reports whether err must terminate the process instead of falling
// back to a resync.
func IsFatal(err error) bool {
	return stderrors.Is(err, ErrFatalCopy)
}

// StateRootMismatchError carries both roots compared by ValidateStates
type StateRootMismatchError struct {
	BlockNum uint64
	Expected types.Hash
	Actual   types.Hash
}

func (e *StateRootMismatchError) Error() string {
	return fmt.Sprintf("state root mismatch at tx block %d: block has %s, state has %s", e.BlockNum, e.Expected, e.Actual)
}

func (e *StateRootMismatchError) Unwrap() error {
	return ErrStateRootMismatch
}

func storageUnavailable(err error, format string, args ...interface{}) error {
	if err == nil {
		return errors.Wrapf(ErrStorageUnavailable, format, args...)
	}
	return errors.Wrapf(fmt.Errorf("%w: %v", ErrStorageUnavailable, err), format, args...)
}

func deserialization(err error, format string, args ...interface{}) error {
	return errors.Wrapf(fmt.Errorf("%w: %v", ErrDeserialization, err), format, args...)
}

func corruptChainState(format string, args ...interface{}) error {
	return errors.Wrapf(ErrCorruptChainState, format, args...)
}

func fatalCopy(err error, blockNum uint64) error {
	return errors.Wrapf(fmt.Errorf("%w: %v", ErrFatalCopy, err), "restore state delta of block %d", blockNum)
}

// failureReason maps an error to its metric label
func failureReason(err error) monitoring.RecoveryFailureReason {
	switch {
	case stderrors.Is(err, ErrFatalCopy):
		return monitoring.FailureFatalCopy
	case stderrors.Is(err, ErrStorageUnavailable):
		return monitoring.FailureStorageUnavailable
	case stderrors.Is(err, ErrDeserialization):
		return monitoring.FailureDeserialization
	case stderrors.Is(err, ErrCorruptChainState):
		return monitoring.FailureCorruptChainState
	case stderrors.Is(err, ErrStateRootMismatch):
		return monitoring.FailureStateRootMismatch
	default:
		return monitoring.FailureUnknown
	}
}
