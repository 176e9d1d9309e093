package mdp

import (
	"encoding/json"
	"fmt"
	"os"

	"graphbirl/internal/model"
)

// ProblemFile is the JSON schema for a full inference problem: the controlled
// graph, the expert demonstrations (one per start state, in order), and the
// start states themselves.
type ProblemFile struct {
	Gamma         float64        `json:"gamma"`
	RewardDim     int            `json:"reward_dim"`
	TerminalBonus float64        `json:"terminal_bonus"`
	Nodes         []NodeSpec     `json:"nodes"`
	Edges         []EdgeSpec     `json:"edges"`
	StartStates   []string       `json:"start_states"`
	Demos         []TrajectoryIn `json:"demos"`
}

type NodeSpec struct {
	ID     string `json:"id"`
	Action int    `json:"action"`
}

type EdgeSpec struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Phi      []float64 `json:"phi"`
	Duration float64   `json:"duration"`
}

type TrajectoryIn struct {
	Nodes []string `json:"nodes"`
}

// Problem is a loaded and validated inference problem.
type Problem struct {
	Graph       *Graph
	Demos       []model.Trajectory
	StartStates []string
}

// LoadProblemFile reads and validates a problem JSON file.
func LoadProblemFile(path string) (Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Problem{}, err
	}
	var file ProblemFile
	if err := json.Unmarshal(data, &file); err != nil {
		return Problem{}, fmt.Errorf("parse problem file: %w", err)
	}
	return BuildProblem(file)
}

// BuildProblem constructs the graph and demonstrations from a parsed file.
func BuildProblem(file ProblemFile) (Problem, error) {
	graph, err := NewGraph(file.Gamma, file.RewardDim, file.TerminalBonus)
	if err != nil {
		return Problem{}, err
	}
	for _, node := range file.Nodes {
		if err := graph.AddNode(node.ID, node.Action); err != nil {
			return Problem{}, err
		}
	}
	for _, edge := range file.Edges {
		if err := graph.AddEdge(Edge{From: edge.From, To: edge.To, Phi: edge.Phi, Duration: edge.Duration}); err != nil {
			return Problem{}, err
		}
	}
	if err := graph.Validate(); err != nil {
		return Problem{}, err
	}

	if len(file.Demos) == 0 {
		return Problem{}, fmt.Errorf("at least one demonstration is required")
	}
	if len(file.StartStates) != len(file.Demos) {
		return Problem{}, fmt.Errorf("start states and demos mismatch: got=%d want=%d", len(file.StartStates), len(file.Demos))
	}
	demos := make([]model.Trajectory, 0, len(file.Demos))
	for i, demo := range file.Demos {
		if len(demo.Nodes) == 0 {
			return Problem{}, fmt.Errorf("demo %d is empty", i)
		}
		if demo.Nodes[0] != file.StartStates[i] {
			return Problem{}, fmt.Errorf("demo %d does not begin at its start state %s", i, file.StartStates[i])
		}
		for _, id := range demo.Nodes {
			if !graph.HasNode(id) {
				return Problem{}, fmt.Errorf("demo %d references unknown node: %s", i, id)
			}
		}
		demos = append(demos, model.Trajectory{Nodes: append([]string(nil), demo.Nodes...)})
	}

	return Problem{
		Graph:       graph,
		Demos:       demos,
		StartStates: append([]string(nil), file.StartStates...),
	}, nil
}
