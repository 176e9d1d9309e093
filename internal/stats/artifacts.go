package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"graphbirl/internal/model"
)

const runIndexFile = "run_index.json"

// RunConfig is the on-disk record of every knob a single inference run was
// started with. It is written once per run and never rewritten afterwards.
type RunConfig struct {
	RunID       string  `json:"run_id"`
	Strategy    string  `json:"strategy"`
	ProblemPath string  `json:"problem_path,omitempty"`
	RewardDim   int     `json:"reward_dim"`
	Beta        float64 `json:"beta"`
	RewardMax   float64 `json:"reward_max"`
	StepSize    float64 `json:"step_size"`
	Burn        float64 `json:"burn"`
	MCMCIter    int     `json:"mcmc_iter"`
	Cooling     bool    `json:"cooling"`
	Prior       string  `json:"prior,omitempty"`
	OuterIter   int     `json:"outer_iter"`
	Tolerance   float64 `json:"tolerance,omitempty"`
	Batches     int     `json:"batches"`
	MaxDepth    int     `json:"max_depth"`
	Seed        int64   `json:"seed"`
}

type RunArtifacts struct {
	Config           RunConfig               `json:"config"`
	FinalReward      []float64               `json:"final_reward"`
	IterationRewards [][]float64             `json:"iteration_rewards"`
	Diagnostics      model.ChainDiagnostics  `json:"diagnostics"`
	Demos            []model.Trajectory      `json:"demos,omitempty"`
	Generated        []model.TrajectoryBatch `json:"generated,omitempty"`
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Strategy     string  `json:"strategy"`
	RewardDim    int     `json:"reward_dim"`
	MCMCIter     int     `json:"mcmc_iter"`
	OuterIter    int     `json:"outer_iter"`
	Seed         int64   `json:"seed"`
	FinalLoss    float64 `json:"final_loss"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "reward_history.json"), map[string]any{"iteration_rewards": artifacts.IterationRewards, "final_reward": artifacts.FinalReward}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "diagnostics.json"), artifacts.Diagnostics); err != nil {
		return "", err
	}
	if len(artifacts.Demos) > 0 {
		if err := writeJSON(filepath.Join(runDir, "demos.json"), artifacts.Demos); err != nil {
			return "", err
		}
	}
	if len(artifacts.Generated) > 0 {
		if err := writeJSON(filepath.Join(runDir, "generated.json"), artifacts.Generated); err != nil {
			return "", err
		}
	}
	if err := WriteRewardSeries(runDir, artifacts.IterationRewards); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	files := []string{"config.json", "reward_history.json", "diagnostics.json", "reward_series.csv"}
	for _, file := range files {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	optional := []string{"demos.json", "generated.json", "trace.html", "loss.html", "accept.html"}
	for _, file := range optional {
		srcPath := filepath.Join(src, file)
		if _, err := os.Stat(srcPath); err == nil {
			if err := copyFile(srcPath, filepath.Join(dst, file)); err != nil {
				return "", err
			}
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func WriteRunConfig(baseDir, runID string, cfg RunConfig) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(cfg.RunID) == "" {
		cfg.RunID = strings.TrimSpace(runID)
	}
	if cfg.RunID != strings.TrimSpace(runID) {
		return fmt.Errorf("run config run id mismatch: got=%s want=%s", cfg.RunID, strings.TrimSpace(runID))
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, "config.json"), cfg)
}

func ReadDiagnostics(baseDir, runID string) (model.ChainDiagnostics, bool, error) {
	path := filepath.Join(baseDir, runID, "diagnostics.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.ChainDiagnostics{}, false, nil
		}
		return model.ChainDiagnostics{}, false, err
	}

	var diagnostics model.ChainDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return model.ChainDiagnostics{}, false, err
	}
	return diagnostics, true, nil
}

// WriteRewardSeries persists the per-iteration reward estimates as CSV, one
// row per outer iteration with one column per reward dimension.
func WriteRewardSeries(runDir string, iterationRewards [][]float64) error {
	path := filepath.Join(runDir, "reward_series.csv")
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	dim := 0
	if len(iterationRewards) > 0 {
		dim = len(iterationRewards[0])
	}
	header := make([]string, 0, dim+1)
	header = append(header, "iteration")
	for k := 0; k < dim; k++ {
		header = append(header, fmt.Sprintf("reward_%d", k))
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	for i, reward := range iterationRewards {
		row := make([]string, 0, len(reward)+1)
		row = append(row, strconv.Itoa(i+1))
		for _, value := range reward {
			row = append(row, strconv.FormatFloat(value, 'f', -1, 64))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadRewardSeries(baseDir, runID string) ([][]float64, bool, error) {
	path := filepath.Join(baseDir, runID, "reward_series.csv")
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return [][]float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("reward series header must have at least 2 columns")
	}

	series := make([][]float64, 0, 32)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) != len(header) {
			return nil, false, fmt.Errorf("reward series row width mismatch: got=%d want=%d", len(record), len(header))
		}
		reward := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			value, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, false, err
			}
			reward = append(reward, value)
		}
		series = append(series, reward)
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
