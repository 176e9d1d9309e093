package graphbirl

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"graphbirl/internal/infer"
	"graphbirl/internal/mdp"
	"graphbirl/internal/model"
	"graphbirl/internal/quality"
	"graphbirl/internal/stats"
	"graphbirl/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "graphbirl.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
}

// Client is the embedding surface: it owns the store and the artifacts
// directory and drives inference end to end.
type Client struct {
	store storage.Store

	artifactsDir string
	exportsDir   string
	initialized  bool
}

type InferRequest struct {
	// ProblemPath names the JSON problem file. Problem takes precedence when
	// both are set.
	ProblemPath string
	Problem     *mdp.Problem

	Strategy  string
	Beta      float64
	RewardMax float64
	StepSize  float64
	Burn      float64
	MCMCIter  int
	Cooling   bool
	Prior     string

	OuterIter int
	Tolerance float64
	Batches   int
	MaxDepth  int
	Seed      int64

	// Bounds optionally overrides the lbfgs box constraints, one (min, max)
	// pair per reward dimension. Empty defaults to ±RewardMax per dimension.
	Bounds [][2]float64

	AnalyticGradient bool
	RenderCharts     bool
	RunID            string

	Progress infer.ProgressFn
}

type InferSummary struct {
	RunID        string
	ArtifactsDir string
	Reward       []float64
	Iterations   int
	Converged    bool
	FinalLoss    float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Strategy     string
	RewardDim    int
	MCMCIter     int
	OuterIter    int
	Seed         int64
	FinalLoss    float64
}

type RewardsRequest struct {
	RunID  string
	Latest bool
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type PlotRequest struct {
	RunID  string
	Latest bool
	Thin   int
}

type PlotSummary struct {
	RunID     string
	TracePath string
	LossPath  string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func (c *Client) Reset(ctx context.Context) error {
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	resetter, ok := c.store.(storage.Resetter)
	if !ok {
		return errors.New("store does not support reset")
	}
	return resetter.Reset(ctx)
}

// Infer runs reward inference on one problem: it builds the strategy, rolls
// out initial trajectories, runs the outer loop, then persists the run record,
// reward history, and chain diagnostics to both the store and the artifacts
// directory.
func (c *Client) Infer(ctx context.Context, req InferRequest) (InferSummary, error) {
	if req.Strategy == "" {
		req.Strategy = "policywalk"
	}
	if req.Beta <= 0 {
		req.Beta = 0.95
	}
	if req.RewardMax <= 0 {
		req.RewardMax = 1
	}
	if req.StepSize <= 0 {
		req.StepSize = 0.1
	}
	if req.Burn < 0 {
		req.Burn = 0
	}
	if req.MCMCIter <= 0 {
		req.MCMCIter = 500
	}
	if req.OuterIter <= 0 {
		req.OuterIter = 1
	}
	if req.Batches <= 0 {
		req.Batches = 5
	}
	if req.MaxDepth <= 0 {
		req.MaxDepth = 100
	}

	problem, err := c.resolveProblem(req)
	if err != nil {
		return InferSummary{}, err
	}
	evaluator, err := quality.NewEvaluator(problem.Graph, problem.Demos)
	if err != nil {
		return InferSummary{}, err
	}

	if err := c.ensureStore(ctx); err != nil {
		return InferSummary{}, err
	}

	strategy, diagnostics, err := buildStrategy(req, evaluator)
	if err != nil {
		return InferSummary{}, err
	}

	generator := &mdp.BoltzmannRollout{
		Graph:       problem.Graph,
		StartStates: problem.StartStates,
		Beta:        req.Beta,
		Batches:     req.Batches,
		MaxDepth:    req.MaxDepth,
		Rand:        rand.New(rand.NewSource(req.Seed + 1000)),
	}
	// Initial rollouts under the zero reward walk the graph uniformly.
	generated, err := generator.Generate(ctx, make([]float64, problem.Graph.RewardDim))
	if err != nil {
		return InferSummary{}, err
	}

	loop := &infer.IterativeBIRL{
		Strategy:  strategy,
		Generator: generator,
		MaxIter:   req.OuterIter,
		Tolerance: req.Tolerance,
	}
	result, err := loop.Run(ctx, generated)
	if err != nil {
		return InferSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	now := time.Now().UTC()

	record := diagnostics.Snapshot(storage.CurrentSchemaVersion, storage.CurrentCodecVersion)
	run := model.InferenceRun{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:           runID,
		Strategy:     strategy.Name(),
		RewardDim:    problem.Graph.RewardDim,
		Beta:         req.Beta,
		RewardMax:    req.RewardMax,
		StepSize:     req.StepSize,
		Burn:         req.Burn,
		MCMCIter:     req.MCMCIter,
		Cooling:      req.Cooling,
		OuterIter:    req.OuterIter,
		Seed:         req.Seed,
		CreatedAtUTC: now.Format(time.RFC3339Nano),
	}
	if err := c.store.SaveInferenceRun(ctx, run); err != nil {
		return InferSummary{}, err
	}
	if err := c.store.SaveRewardHistory(ctx, runID, result.IterationRewards); err != nil {
		return InferSummary{}, err
	}
	if err := c.store.SaveChainDiagnostics(ctx, runID, record); err != nil {
		return InferSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:       runID,
			Strategy:    strategy.Name(),
			ProblemPath: req.ProblemPath,
			RewardDim:   problem.Graph.RewardDim,
			Beta:        req.Beta,
			RewardMax:   req.RewardMax,
			StepSize:    req.StepSize,
			Burn:        req.Burn,
			MCMCIter:    req.MCMCIter,
			Cooling:     req.Cooling,
			Prior:       req.Prior,
			OuterIter:   req.OuterIter,
			Tolerance:   req.Tolerance,
			Batches:     req.Batches,
			MaxDepth:    req.MaxDepth,
			Seed:        req.Seed,
		},
		FinalReward:      result.Reward,
		IterationRewards: result.IterationRewards,
		Diagnostics:      record,
		Demos:            problem.Demos,
	})
	if err != nil {
		return InferSummary{}, err
	}

	finalLoss := 0.0
	if n := len(record.LossHistory); n > 0 {
		finalLoss = record.LossHistory[n-1]
	}
	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:        runID,
		Strategy:     strategy.Name(),
		RewardDim:    problem.Graph.RewardDim,
		MCMCIter:     req.MCMCIter,
		OuterIter:    req.OuterIter,
		Seed:         req.Seed,
		FinalLoss:    finalLoss,
		CreatedAtUTC: now.Format(time.RFC3339Nano),
	}); err != nil {
		return InferSummary{}, err
	}

	if req.RenderCharts {
		if err := stats.RenderRunCharts(runDir, record, 1); err != nil {
			return InferSummary{}, err
		}
	}

	return InferSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		Reward:       append([]float64(nil), result.Reward...),
		Iterations:   result.Iterations,
		Converged:    result.Converged,
		FinalLoss:    finalLoss,
	}, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Strategy:     e.Strategy,
			RewardDim:    e.RewardDim,
			MCMCIter:     e.MCMCIter,
			OuterIter:    e.OuterIter,
			Seed:         e.Seed,
			FinalLoss:    e.FinalLoss,
		})
	}
	return out, nil
}

// Rewards returns the per-iteration reward estimates of one run.
func (c *Client) Rewards(ctx context.Context, req RewardsRequest) ([][]float64, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	rewards, ok, err := c.store.GetRewardHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("reward history not found for run id: %s", runID)
	}
	return rewards, nil
}

// Trace returns the post-burn-in running means of one run's chain.
func (c *Client) Trace(ctx context.Context, req DiagnosticsRequest) ([][]float64, error) {
	diagnostics, err := c.diagnosticsFor(ctx, req)
	if err != nil {
		return nil, err
	}
	trace := diagnostics.Trace
	if req.Limit > 0 && len(trace) > req.Limit {
		trace = trace[:req.Limit]
	}
	return trace, nil
}

// Loss returns the loss history of one run.
func (c *Client) Loss(ctx context.Context, req DiagnosticsRequest) ([]float64, error) {
	diagnostics, err := c.diagnosticsFor(ctx, req)
	if err != nil {
		return nil, err
	}
	loss := diagnostics.LossHistory
	if req.Limit > 0 && len(loss) > req.Limit {
		loss = loss[:req.Limit]
	}
	return append([]float64(nil), loss...), nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Plot renders trace.html and loss.html for a run from its stored
// diagnostics.
func (c *Client) Plot(ctx context.Context, req PlotRequest) (PlotSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return PlotSummary{}, err
	}
	diagnostics, err := c.diagnosticsFor(ctx, DiagnosticsRequest{RunID: runID})
	if err != nil {
		return PlotSummary{}, err
	}

	runDir := filepath.Join(c.artifactsDir, runID)
	thin := req.Thin
	if thin <= 0 {
		thin = 1
	}
	if err := stats.RenderRunCharts(runDir, diagnostics, thin); err != nil {
		return PlotSummary{}, err
	}

	summary := PlotSummary{RunID: runID}
	if len(diagnostics.Trace) > 0 {
		summary.TracePath = filepath.Join(runDir, "trace.html")
	}
	if len(diagnostics.LossHistory) > 0 {
		summary.LossPath = filepath.Join(runDir, "loss.html")
	}
	return summary, nil
}

func (c *Client) diagnosticsFor(ctx context.Context, req DiagnosticsRequest) (model.ChainDiagnostics, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return model.ChainDiagnostics{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return model.ChainDiagnostics{}, err
	}

	diagnostics, ok, err := c.store.GetChainDiagnostics(ctx, runID)
	if err != nil {
		return model.ChainDiagnostics{}, err
	}
	if !ok {
		return model.ChainDiagnostics{}, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	return diagnostics, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) resolveProblem(req InferRequest) (mdp.Problem, error) {
	if req.Problem != nil {
		return *req.Problem, nil
	}
	if req.ProblemPath == "" {
		return mdp.Problem{}, errors.New("problem path or problem is required")
	}
	return mdp.LoadProblemFile(req.ProblemPath)
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// strategyDiagnostics is satisfied by both built-in strategies.
type strategyDiagnostics interface {
	infer.RewardInferenceStrategy
	Diagnostics() *infer.Diagnostics
}

func buildStrategy(req InferRequest, evaluator *quality.Evaluator) (infer.RewardInferenceStrategy, *infer.Diagnostics, error) {
	var strategy strategyDiagnostics
	switch req.Strategy {
	case "policywalk":
		prior, err := infer.PriorFromName(req.Prior, req.RewardMax)
		if err != nil {
			return nil, nil, err
		}
		walker, err := infer.NewPolicyWalk(infer.PolicyWalk{
			Evaluator: evaluator,
			Prior:     prior,
			Rand:      rand.New(rand.NewSource(req.Seed)),
			Beta:      req.Beta,
			RewardMax: req.RewardMax,
			StepSize:  req.StepSize,
			Burn:      req.Burn,
			MCMCIter:  req.MCMCIter,
			Cooling:   req.Cooling,
			Progress:  req.Progress,
		})
		if err != nil {
			return nil, nil, err
		}
		strategy = walker
	case "lbfgs":
		var bounds []infer.Bound
		for _, b := range req.Bounds {
			bounds = append(bounds, infer.Bound{Min: b[0], Max: b[1]})
		}
		optimizer, err := infer.NewQuasiNewton(infer.QuasiNewton{
			Evaluator:        evaluator,
			Rand:             rand.New(rand.NewSource(req.Seed)),
			Beta:             req.Beta,
			RewardMax:        req.RewardMax,
			Bounds:           bounds,
			AnalyticGradient: req.AnalyticGradient,
		})
		if err != nil {
			return nil, nil, err
		}
		strategy = optimizer
	default:
		return nil, nil, fmt.Errorf("unsupported inference strategy: %s", req.Strategy)
	}
	return strategy, strategy.Diagnostics(), nil
}
