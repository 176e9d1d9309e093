package mdp

import (
	"os"
	"path/filepath"
	"testing"
)

func validProblemFile() ProblemFile {
	return ProblemFile{
		Gamma:         0.9,
		RewardDim:     1,
		TerminalBonus: 1,
		Nodes: []NodeSpec{
			{ID: "a", Action: 0},
			{ID: "b", Action: 0},
		},
		Edges: []EdgeSpec{
			{From: "a", To: "b", Phi: []float64{1}, Duration: 1},
		},
		StartStates: []string{"a"},
		Demos:       []TrajectoryIn{{Nodes: []string{"a", "b"}}},
	}
}

func TestBuildProblem(t *testing.T) {
	problem, err := BuildProblem(validProblemFile())
	if err != nil {
		t.Fatalf("build problem: %v", err)
	}
	if problem.Graph.RewardDim != 1 {
		t.Fatalf("unexpected reward dim: %d", problem.Graph.RewardDim)
	}
	if len(problem.Demos) != 1 || problem.Demos[0].Nodes[1] != "b" {
		t.Fatalf("unexpected demos: %+v", problem.Demos)
	}
	if len(problem.StartStates) != 1 || problem.StartStates[0] != "a" {
		t.Fatalf("unexpected start states: %+v", problem.StartStates)
	}
}

func TestBuildProblemRequiresDemos(t *testing.T) {
	file := validProblemFile()
	file.Demos = nil
	file.StartStates = nil
	if _, err := BuildProblem(file); err == nil {
		t.Fatal("expected error for missing demos")
	}
}

func TestBuildProblemStartStateMismatch(t *testing.T) {
	file := validProblemFile()
	file.StartStates = []string{"a", "b"}
	if _, err := BuildProblem(file); err == nil {
		t.Fatal("expected error for start state count mismatch")
	}
}

func TestBuildProblemDemoMustBeginAtStart(t *testing.T) {
	file := validProblemFile()
	file.Demos = []TrajectoryIn{{Nodes: []string{"b", "a"}}}
	if _, err := BuildProblem(file); err == nil {
		t.Fatal("expected error for demo not starting at its start state")
	}
}

func TestBuildProblemDemoUnknownNode(t *testing.T) {
	file := validProblemFile()
	file.Demos = []TrajectoryIn{{Nodes: []string{"a", "z"}}}
	if _, err := BuildProblem(file); err == nil {
		t.Fatal("expected error for unknown demo node")
	}
}

func TestLoadProblemFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problem.json")
	body := `{
		"gamma": 0.9,
		"reward_dim": 1,
		"terminal_bonus": 1,
		"nodes": [{"id": "a", "action": 0}, {"id": "b", "action": 0}],
		"edges": [{"from": "a", "to": "b", "phi": [1], "duration": 1}],
		"start_states": ["a"],
		"demos": [{"nodes": ["a", "b"]}]
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write problem file: %v", err)
	}

	problem, err := LoadProblemFile(path)
	if err != nil {
		t.Fatalf("load problem: %v", err)
	}
	if !problem.Graph.HasNode("b") {
		t.Fatal("expected node b to be registered")
	}
}

func TestLoadProblemFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problem.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write problem file: %v", err)
	}
	if _, err := LoadProblemFile(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
