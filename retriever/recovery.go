package retriever

import (
	"time"

	"github.com/mezonai/mmn-recovery/logx"
	"github.com/mezonai/mmn-recovery/monitoring"
)

// Recover runs a full recovery pass in node start-up order. The first failing
// step aborts the pass.
func (r *Retriever) Recover(trim bool) (err error) {
	start := time.Now()
	monitoring.MarkRecoveryStart()
	defer func() {
		monitoring.RecordRecoveryDuration(time.Since(start))
		if err != nil {
			monitoring.RecordRecoveryFailure(failureReason(err))
			logx.Error("RETRIEVER", "Recovery failed: ", err)
			return
		}
		logx.Info("RETRIEVER", "Recovery finished in ", time.Since(start))
	}()

	steps := []struct {
		name string
		run  func() error
	}{
		{"RetrieveStates", r.RetrieveStates},
		{"RetrieveTxBlocks", func() error { return r.RetrieveTxBlocks(trim) }},
		{"RetrieveBlockLink", func() error { return r.RetrieveBlockLink(trim) }},
		{"CleanExtraTxBodies", r.CleanExtraTxBodies},
		{"ValidateStates", r.ValidateStates},
	}
	for _, step := range steps {
		logx.Info("RETRIEVER", "Running ", step.name)
		if err := step.run(); err != nil {
			return err
		}
	}
	return nil
}
