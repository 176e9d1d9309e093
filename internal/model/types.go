package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Trajectory is an ordered node walk over the controlled graph. The node at
// index 0 is the start state; transitions are resolved against the graph's
// per-node policy action when the trajectory is scored.
type Trajectory struct {
	Nodes []string `json:"nodes"`
}

// TrajectoryBatch groups one generated trajectory per demonstration
// start-state. Reward inference consumes a set of batches per call.
type TrajectoryBatch struct {
	Trajectories []Trajectory `json:"trajectories"`
}

// InferenceRun is the persisted metadata of one reward-inference invocation.
type InferenceRun struct {
	VersionedRecord
	ID           string  `json:"id"`
	Strategy     string  `json:"strategy"`
	RewardDim    int     `json:"reward_dim"`
	Beta         float64 `json:"beta"`
	RewardMax    float64 `json:"reward_max"`
	StepSize     float64 `json:"step_size"`
	Burn         float64 `json:"burn"`
	MCMCIter     int     `json:"mcmc_iter"`
	Cooling      bool    `json:"cooling"`
	OuterIter    int     `json:"outer_iter"`
	Seed         int64   `json:"seed"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// ChainDiagnostics is the persisted form of a sampler's diagnostics record.
type ChainDiagnostics struct {
	VersionedRecord
	LossHistory      []float64   `json:"loss_history"`
	Trace            [][]float64 `json:"trace"`
	Walk             [][]float64 `json:"walk"`
	AcceptEvents     []int       `json:"accept_events"`
	IterationRewards [][]float64 `json:"iteration_rewards"`
}
