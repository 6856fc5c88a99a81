package db

import "fmt"

// deletePrefixChunk bounds the number of deletions per batch write
const deletePrefixChunk = 1000

// DeletePrefix removes every key starting with prefix and returns how many keys were removed.
// Keys are collected first and deleted in chunked batches, so the iterator is never
// used while the underlying store is mutated.
func DeletePrefix(provider IterableProvider, prefix []byte) (int, error) {
	var keys [][]byte
	err := provider.IteratePrefix(prefix, func(key, _ []byte) bool {
		keys = append(keys, append([]byte(nil), key...))
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("failed to iterate prefix %q: %w", prefix, err)
	}

	for start := 0; start < len(keys); start += deletePrefixChunk {
		end := start + deletePrefixChunk
		if end > len(keys) {
			end = len(keys)
		}
		batch := provider.Batch()
		for _, key := range keys[start:end] {
			batch.Delete(key)
		}
		err := batch.Write()
		_ = batch.Close()
		if err != nil {
			return start, fmt.Errorf("failed to delete prefix %q: %w", prefix, err)
		}
	}
	return len(keys), nil
}
