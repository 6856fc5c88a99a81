package snapshot

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/types"
)

const FileName = "snapshot-latest.json"

type SnapshotMeta struct {
	TxBlockNum uint64     `json:"tx_block_num"`
	StateRoot  types.Hash `json:"state_root"`
}

type SnapshotFile struct {
	Meta     SnapshotMeta         `json:"meta"`
	Accounts []types.AccountDelta `json:"accounts"`
}

// ComputeStateRoot hashes the accounts sorted by address. Each account
// contributes its address, its balance as 32 big-endian bytes and its nonce
// as 8 big-endian bytes. The input slice is not reordered.
func ComputeStateRoot(accounts []*types.Account) types.Hash {
	sorted := make([]*types.Account, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Address < sorted[j].Address })

	h := sha256.New()
	buf := make([]byte, 8)
	for _, acc := range sorted {
		h.Write([]byte(acc.Address))
		var balance [32]byte
		if acc.Balance != nil {
			balance = acc.Balance.Bytes32()
		}
		h.Write(balance[:])
		binary.BigEndian.PutUint64(buf, acc.Nonce)
		h.Write(buf)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// WriteSnapshot writes the accounts as the single snapshot file of dir and
// removes any other snapshot JSON left there
func WriteSnapshot(dir string, accounts []*types.Account, txBlockNum uint64) (string, error) {
	entries := make([]types.AccountDelta, len(accounts))
	for i, acc := range accounts {
		entries[i] = types.NewAccountDelta(acc)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Address < entries[j].Address })

	file := SnapshotFile{
		Meta: SnapshotMeta{
			TxBlockNum: txBlockNum,
			StateRoot:  ComputeStateRoot(accounts),
		},
		Accounts: entries,
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	latestPath := filepath.Join(dir, FileName)
	data, err := types.Marshal(file)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(latestPath, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot file: %w", err)
	}

	if err := cleanupOldSnapshots(dir, latestPath); err != nil {
		logx.Error("SNAPSHOT", "Failed to cleanup old snapshots:", err)
	}

	logx.Info("SNAPSHOT", "Wrote snapshot of ", len(accounts), " accounts at tx block ", txBlockNum, " root ", file.Meta.StateRoot)
	return latestPath, nil
}

// ReadSnapshot loads a snapshot file and checks its accounts against the recorded root
func ReadSnapshot(path string) (*SnapshotMeta, []*types.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var s SnapshotFile
	if err := types.Unmarshal(data, &s); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}

	accounts := make([]*types.Account, 0, len(s.Accounts))
	for _, entry := range s.Accounts {
		acc, err := entry.ToAccount()
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot %s: %w", path, err)
		}
		accounts = append(accounts, acc)
	}

	if root := ComputeStateRoot(accounts); root != s.Meta.StateRoot {
		return nil, nil, fmt.Errorf("snapshot %s root mismatch: recorded %s, computed %s", path, s.Meta.StateRoot, root)
	}
	return &s.Meta, accounts, nil
}

func cleanupOldSnapshots(dir, latestPath string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read snapshot dir: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		filePath := filepath.Join(dir, file.Name())
		if filePath != latestPath {
			if err := os.Remove(filePath); err != nil {
				logx.Error("SNAPSHOT", "Failed to remove old snapshot:", filePath, err)
			}
		}
	}

	return nil
}
