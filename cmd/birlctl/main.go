package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"graphbirl/internal/stats"
	"graphbirl/internal/storage"
	birlapi "graphbirl/pkg/graphbirl"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "infer":
		return runInfer(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "rewards":
		return runRewards(ctx, args[1:])
	case "trace":
		return runTrace(ctx, args[1:])
	case "loss":
		return runLoss(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "plot":
		return runPlot(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "graphbirl.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := birlapi.New(birlapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: runsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "graphbirl.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := birlapi.New(birlapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: runsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Reset(ctx); err != nil {
		return err
	}

	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runInfer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("infer", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional inference config JSON path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	problemPath := fs.String("problem", "", "problem JSON path")
	strategyName := fs.String("strategy", "policywalk", "inference strategy: policywalk|lbfgs")
	beta := fs.Float64("beta", 0.95, "softmax inverse temperature")
	rewardMax := fs.Float64("reward-max", 1.0, "reward bound per dimension")
	stepSize := fs.Float64("step-size", 0.1, "proposal grid step size")
	burn := fs.Float64("burn", 50, "burn-in percentage of the chain")
	mcmcIter := fs.Int("mcmc-iter", 500, "chain length per inference call")
	cooling := fs.Bool("cooling", false, "enable acceptance cooling and tempered initialization")
	priorName := fs.String("prior", "uniform", "reward prior: uniform|gaussian")
	outerIter := fs.Int("outer-iter", 1, "outer inference/regeneration iterations")
	tolerance := fs.Float64("tolerance", 0, "outer-loop convergence tolerance (0 disables)")
	batches := fs.Int("batches", 5, "generated trajectory batches per iteration")
	maxDepth := fs.Int("max-depth", 100, "rollout depth cap")
	seed := fs.Int64("seed", 1, "rng seed")
	analyticGrad := fs.Bool("analytic-grad", false, "use the analytic gradient with strategy=lbfgs")
	renderCharts := fs.Bool("charts", false, "render trace and loss charts into the run directory")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "graphbirl.db", "sqlite database path")
	jsonOut := fs.Bool("json", false, "emit the run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultInferRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = birlapi.InferRequest{
			ProblemPath:      *problemPath,
			Strategy:         *strategyName,
			Beta:             *beta,
			RewardMax:        *rewardMax,
			StepSize:         *stepSize,
			Burn:             *burn,
			MCMCIter:         *mcmcIter,
			Cooling:          *cooling,
			Prior:            *priorName,
			OuterIter:        *outerIter,
			Tolerance:        *tolerance,
			Batches:          *batches,
			MaxDepth:         *maxDepth,
			Seed:             *seed,
			AnalyticGradient: *analyticGrad,
			RenderCharts:     *renderCharts,
			RunID:            *runID,
		}
	} else {
		overrideFromFlags(&req, setFlags, map[string]any{
			"run-id":        *runID,
			"problem":       *problemPath,
			"strategy":      *strategyName,
			"beta":          *beta,
			"reward-max":    *rewardMax,
			"step-size":     *stepSize,
			"burn":          *burn,
			"mcmc-iter":     *mcmcIter,
			"cooling":       *cooling,
			"prior":         *priorName,
			"outer-iter":    *outerIter,
			"tolerance":     *tolerance,
			"batches":       *batches,
			"max-depth":     *maxDepth,
			"seed":          *seed,
			"analytic-grad": *analyticGrad,
			"charts":        *renderCharts,
		})
	}
	if req.ProblemPath == "" {
		return errors.New("infer requires --problem (or problem_path in --config)")
	}

	client, err := birlapi.New(birlapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: runsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Infer(ctx, req)
	if err != nil {
		return err
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("run_id=%s strategy=%s iterations=%d converged=%t final_loss=%.6f artifacts=%s\n",
		summary.RunID,
		req.Strategy,
		summary.Iterations,
		summary.Converged,
		summary.FinalLoss,
		summary.ArtifactsDir,
	)
	for i, value := range summary.Reward {
		fmt.Printf("reward_%d=%.6f\n", i, value)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to show")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	entries, err := stats.ListRunIndex(runsDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if len(entries) > *limit {
		entries = entries[:*limit]
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, e := range entries {
		fmt.Printf("run_id=%s created_at=%s strategy=%s reward_dim=%d mcmc_iter=%d outer_iter=%d seed=%d final_loss=%.6f\n",
			e.RunID,
			e.CreatedAtUTC,
			e.Strategy,
			e.RewardDim,
			e.MCMCIter,
			e.OuterIter,
			e.Seed,
			e.FinalLoss,
		)
	}
	return nil
}

func runRewards(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rewards", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show rewards for the most recent run from run index")
	jsonOut := fs.Bool("json", false, "emit rewards as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "graphbirl.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("rewards requires --run-id or --latest")
	}

	client, err := birlapi.New(birlapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: runsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	rewards, err := client.Rewards(ctx, birlapi.RewardsRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if len(rewards) == 0 {
		fmt.Println("no reward history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rewards)
	}

	for i, reward := range rewards {
		fmt.Printf("iteration=%d reward=%v\n", i+1, reward)
	}
	return nil
}

func runTrace(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show trace for the most recent run from run index")
	limit := fs.Int("limit", 50, "max trace rows to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit trace as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "graphbirl.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("trace requires --run-id or --latest")
	}

	client, err := birlapi.New(birlapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: runsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	trace, err := client.Trace(ctx, birlapi.DiagnosticsRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(trace) == 0 {
		fmt.Println("no trace records")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(trace)
	}

	for i, mean := range trace {
		fmt.Printf("step=%d mean=%v\n", i+1, mean)
	}
	return nil
}

func runLoss(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("loss", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show loss history for the most recent run from run index")
	limit := fs.Int("limit", 50, "max loss rows to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit loss history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "graphbirl.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("loss requires --run-id or --latest")
	}

	client, err := birlapi.New(birlapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: runsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	loss, err := client.Loss(ctx, birlapi.DiagnosticsRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(loss) == 0 {
		fmt.Println("no loss history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(loss)
	}

	for i, value := range loss {
		fmt.Printf("call=%d loss=%.6f\n", i+1, value)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := birlapi.New(birlapi.Options{
		StoreKind:    "memory",
		ArtifactsDir: runsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, birlapi.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s dir=%s\n", summary.RunID, summary.Directory)
	return nil
}

func runPlot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "plot the most recent run from run index")
	thin := fs.Int("thin", 1, "keep every N-th trace step in the chart")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "graphbirl.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("plot requires --run-id or --latest")
	}

	client, err := birlapi.New(birlapi.Options{
		StoreKind:    *storeKind,
		DBPath:       *dbPath,
		ArtifactsDir: runsDir,
		ExportsDir:   exportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Plot(ctx, birlapi.PlotRequest{RunID: *runID, Latest: *latest, Thin: *thin})
	if err != nil {
		return err
	}

	fmt.Printf("plotted run_id=%s trace=%s loss=%s\n", summary.RunID, summary.TracePath, summary.LossPath)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: birlctl <init|reset|infer|runs|rewards|trace|loss|export|plot> [flags]", msg)
}
