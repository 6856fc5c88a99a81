package config

const (
	DefaultNumFinalBlockPerPow         = 100
	DefaultIncrDBDSNumsWithStateDeltas = 10
	DefaultSnapshotDir                 = "snapshots"
)
