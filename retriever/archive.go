package retriever

import (
	"fmt"
	"os"
	"path/filepath"

	cp "github.com/otiai10/copy"
)

// DeltaArchive is an external backing store of state deltas
type DeltaArchive interface {
	// Has reports whether an archived delta exists for blockNum
	Has(blockNum uint64) bool
	// Restore copies the archived delta of blockNum into dir, overwriting
	// what is already there
	Restore(blockNum uint64, dir string) error
}

// ArchiveEntryPrefix names archived delta directories: <root>/stateDelta_<blockNum>
const ArchiveEntryPrefix = "stateDelta_"

// FSArchive is a DeltaArchive laid out on the local filesystem
type FSArchive struct {
	Root string
}

func NewFSArchive(root string) *FSArchive {
	return &FSArchive{Root: root}
}

func (a *FSArchive) Path(blockNum uint64) string {
	return filepath.Join(a.Root, fmt.Sprintf("%s%d", ArchiveEntryPrefix, blockNum))
}

func (a *FSArchive) Has(blockNum uint64) bool {
	if a == nil || a.Root == "" {
		return false
	}
	_, err := os.Stat(a.Path(blockNum))
	return err == nil
}

// Restore copies the archived directory tree recursively into dir
func (a *FSArchive) Restore(blockNum uint64, dir string) error {
	src := a.Path(blockNum)
	opts := cp.Options{
		OnDirExists: func(src, dest string) cp.DirExistsAction {
			return cp.Merge
		},
		Sync: true,
	}
	if err := cp.Copy(src, dir, opts); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dir, err)
	}
	return nil
}
