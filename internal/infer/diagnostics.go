package infer

import "graphbirl/internal/model"

// Diagnostics is the structured, append-only record a strategy instance
// accumulates across repeated FindNextReward calls. All reads return
// defensive copies; writes happen only under the single-threaded execution
// model of one strategy instance.
type Diagnostics struct {
	lossHistory      []float64
	trace            [][]float64
	walk             [][]float64
	acceptEvents     []int
	iterationRewards [][]float64
}

// NewDiagnostics returns an empty record.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		lossHistory:      []float64{},
		trace:            [][]float64{},
		walk:             [][]float64{},
		acceptEvents:     []int{},
		iterationRewards: [][]float64{},
	}
}

func (d *Diagnostics) recordLoss(loss float64) {
	d.lossHistory = append(d.lossHistory, loss)
}

func (d *Diagnostics) recordTrace(mean []float64) {
	d.trace = append(d.trace, append([]float64(nil), mean...))
}

func (d *Diagnostics) recordWalk(sample []float64) {
	d.walk = append(d.walk, append([]float64(nil), sample...))
}

func (d *Diagnostics) recordAccept(step int) {
	d.acceptEvents = append(d.acceptEvents, step)
}

func (d *Diagnostics) recordIterationReward(reward []float64) {
	d.iterationRewards = append(d.iterationRewards, append([]float64(nil), reward...))
}

// LossHistory returns the per-call loss record.
func (d *Diagnostics) LossHistory() []float64 {
	return append([]float64(nil), d.lossHistory...)
}

// Trace returns the post-burn-in running means.
func (d *Diagnostics) Trace() [][]float64 {
	return copyMatrix(d.trace)
}

// Walk returns the post-burn-in raw proposals.
func (d *Diagnostics) Walk() [][]float64 {
	return copyMatrix(d.walk)
}

// AcceptEvents returns the step indices at which proposals were accepted.
func (d *Diagnostics) AcceptEvents() []int {
	return append([]int(nil), d.acceptEvents...)
}

// IterationRewards returns the final reward of every completed call.
func (d *Diagnostics) IterationRewards() [][]float64 {
	return copyMatrix(d.iterationRewards)
}

// Snapshot converts the record into its persisted form.
func (d *Diagnostics) Snapshot(schemaVersion, codecVersion int) model.ChainDiagnostics {
	return model.ChainDiagnostics{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: schemaVersion,
			CodecVersion:  codecVersion,
		},
		LossHistory:      d.LossHistory(),
		Trace:            d.Trace(),
		Walk:             d.Walk(),
		AcceptEvents:     d.AcceptEvents(),
		IterationRewards: d.IterationRewards(),
	}
}

func copyMatrix(rows [][]float64) [][]float64 {
	out := make([][]float64, 0, len(rows))
	for _, row := range rows {
		out = append(out, append([]float64(nil), row...))
	}
	return out
}
