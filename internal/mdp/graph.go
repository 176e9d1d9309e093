package mdp

import (
	"fmt"
	"sort"
)

// Edge is a directed transition carrying the reward features and the time
// spent traversing it.
type Edge struct {
	From     string
	To       string
	Phi      []float64
	Duration float64
}

// Graph is a controlled (semi-)Markov decision process over named nodes.
// Each non-sink node records the policy action currently annotated on it: an
// index into its ordered out-edge list. Sinks have no out-edges and pay the
// terminal bonus when reached.
type Graph struct {
	Gamma         float64
	RewardDim     int
	TerminalBonus float64

	actions map[string]int
	edges   map[string][]Edge
}

// NewGraph returns an empty graph with the given discount, reward dimension
// and terminal bonus.
func NewGraph(gamma float64, rewardDim int, terminalBonus float64) (*Graph, error) {
	if gamma <= 0 || gamma > 1 {
		return nil, fmt.Errorf("gamma must be in (0, 1]: %v", gamma)
	}
	if rewardDim <= 0 {
		return nil, fmt.Errorf("reward dimension must be > 0: %d", rewardDim)
	}
	return &Graph{
		Gamma:         gamma,
		RewardDim:     rewardDim,
		TerminalBonus: terminalBonus,
		actions:       make(map[string]int),
		edges:         make(map[string][]Edge),
	}, nil
}

// AddNode registers a node and the policy action annotated on it. A sink is
// added with action 0 and no out-edges.
func (g *Graph) AddNode(id string, action int) error {
	if id == "" {
		return fmt.Errorf("node id is required")
	}
	if action < 0 {
		return fmt.Errorf("node %s: action must be >= 0: %d", id, action)
	}
	if _, exists := g.actions[id]; exists {
		return fmt.Errorf("duplicate node: %s", id)
	}
	g.actions[id] = action
	return nil
}

// AddEdge appends a directed edge to the source node's ordered out-edge list.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.actions[e.From]; !ok {
		return fmt.Errorf("edge source not registered: %s", e.From)
	}
	if _, ok := g.actions[e.To]; !ok {
		return fmt.Errorf("edge target not registered: %s", e.To)
	}
	if len(e.Phi) != g.RewardDim {
		return fmt.Errorf("edge %s->%s: phi dimension mismatch: got=%d want=%d", e.From, e.To, len(e.Phi), g.RewardDim)
	}
	if e.Duration < 0 {
		return fmt.Errorf("edge %s->%s: duration must be >= 0: %v", e.From, e.To, e.Duration)
	}
	e.Phi = append([]float64(nil), e.Phi...)
	g.edges[e.From] = append(g.edges[e.From], e)
	return nil
}

// SetAction re-annotates the policy action on a node.
func (g *Graph) SetAction(id string, action int) error {
	if _, ok := g.actions[id]; !ok {
		return fmt.Errorf("node not registered: %s", id)
	}
	if action < 0 {
		return fmt.Errorf("node %s: action must be >= 0: %d", id, action)
	}
	g.actions[id] = action
	return nil
}

// OutEdges returns the ordered out-edge list of a node. A sink returns an
// empty list.
func (g *Graph) OutEdges(id string) []Edge {
	return g.edges[id]
}

// NodeAction returns the policy action annotated on a node.
func (g *Graph) NodeAction(id string) (int, error) {
	action, ok := g.actions[id]
	if !ok {
		return 0, fmt.Errorf("node not registered: %s", id)
	}
	return action, nil
}

// HasNode reports whether a node is registered.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.actions[id]
	return ok
}

// Nodes returns all registered node ids in sorted order.
func (g *Graph) Nodes() []string {
	ids := make([]string, 0, len(g.actions))
	for id := range g.actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks that every non-sink node's action indexes an existing
// out-edge. Inconsistent annotations are input-validation failures.
func (g *Graph) Validate() error {
	for _, id := range g.Nodes() {
		out := g.edges[id]
		if len(out) == 0 {
			continue
		}
		action := g.actions[id]
		if action >= len(out) {
			return fmt.Errorf("node %s: action %d out of range for %d out-edges", id, action, len(out))
		}
	}
	return nil
}
