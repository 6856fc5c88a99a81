package retriever

import (
	"fmt"

	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/store"
)

// CleanExtraTxBodies drops the tx bodies a lookup node kept for blocks that
// never became final. It is a no-op on other nodes.
func (r *Retriever) CleanExtraTxBodies() error {
	if !r.cfg.LookupNode {
		logx.Warn("RETRIEVER", "CleanExtraTxBodies not expected to be called from other than lookup node")
		return nil
	}

	hashes, err := r.storage.GetAllTxBodiesTmp()
	if err != nil {
		logx.Warn("RETRIEVER", "Listing tmp tx bodies failed: ", err)
	}
	deleted := 0
	for _, h := range hashes {
		if err := r.storage.DeleteTxBody(h); err != nil {
			logx.Warn("RETRIEVER", fmt.Sprintf("Failed to delete tx body %s: %v", h, err))
			continue
		}
		deleted++
	}
	logx.Info("RETRIEVER", fmt.Sprintf("Deleted %d of %d extra tx bodies", deleted, len(hashes)))

	if err := r.storage.ResetDB(store.TxBodyTmp); err != nil {
		return storageUnavailable(err, "reset tmp tx bodies")
	}
	return nil
}

// CleanAll resets every persistent collection so the node can resync from peers
func (r *Retriever) CleanAll() {
	if err := r.storage.ResetAll(); err != nil {
		logx.Warn("RETRIEVER", "FAIL: Reset DB failed: ", err)
		return
	}
	logx.Info("RETRIEVER", "Reset DB succeeded")
}
