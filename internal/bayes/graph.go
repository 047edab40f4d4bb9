// Package bayes builds the causal probability model of pneumonia and answers
// exact posterior queries over it by variable elimination.
package bayes

import (
	"fmt"
	"math"

	"github.com/pneumonia-risk-mcp-server/internal/calibration"
	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// Node names of the fixed part of the model. Symptom nodes use the symptom
// identifier as their name.
const (
	DiseaseNode = "Pneumonia"
	ImagingNode = "X-ray"
)

// State indices. Disease and symptom nodes use Absent/Present, the imaging
// node uses Negative/Positive.
const (
	Absent  = 0
	Present = 1

	Negative = 0
	Positive = 1
)

// rowTolerance bounds how far a CPT row may stray from summing to one.
const rowTolerance = 1e-9

var (
	presenceStates = []string{"absent", "present"}
	imagingStates  = []string{"negative", "positive"}
)

// Node is one discrete variable with its conditional probability table.
// CPT has one row per joint assignment of Parents (row-major, last parent
// fastest) and one column per state.
type Node struct {
	Name    string      `json:"name"`
	States  []string    `json:"states"`
	Parents []string    `json:"parents,omitempty"`
	CPT     [][]float64 `json:"cpt"`
}

func (n Node) clone() Node {
	out := Node{
		Name:    n.Name,
		States:  append([]string(nil), n.States...),
		Parents: append([]string(nil), n.Parents...),
		CPT:     make([][]float64, len(n.CPT)),
	}
	for i, row := range n.CPT {
		out.CPT[i] = append([]float64(nil), row...)
	}
	return out
}

// Graph is an immutable directed acyclic probability model. Nodes are kept
// in topological order.
type Graph struct {
	nodes []Node
	index map[string]int
}

// NewGraph validates nodes and copies them into a graph. Each parent must be
// listed before its children.
func NewGraph(nodes ...Node) (*Graph, error) {
	g := &Graph{
		nodes: make([]Node, 0, len(nodes)),
		index: make(map[string]int, len(nodes)),
	}

	for _, n := range nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("%w: node without a name", domain.ErrInvalidCalibration)
		}
		if _, dup := g.index[n.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", domain.ErrInvalidCalibration, n.Name)
		}
		if len(n.States) < 2 {
			return nil, fmt.Errorf("%w: node %q needs at least two states", domain.ErrInvalidCalibration, n.Name)
		}

		rows := 1
		for _, parent := range n.Parents {
			i, ok := g.index[parent]
			if !ok {
				return nil, fmt.Errorf("%w: node %q has undeclared parent %q", domain.ErrInvalidCalibration, n.Name, parent)
			}
			rows *= len(g.nodes[i].States)
		}
		if err := validateCPT(n, rows); err != nil {
			return nil, err
		}

		g.index[n.Name] = len(g.nodes)
		g.nodes = append(g.nodes, n.clone())
	}
	return g, nil
}

func validateCPT(n Node, rows int) error {
	if len(n.CPT) != rows {
		return fmt.Errorf("%w: node %q has %d CPT rows, want %d", domain.ErrInvalidCalibration, n.Name, len(n.CPT), rows)
	}
	for r, row := range n.CPT {
		if len(row) != len(n.States) {
			return fmt.Errorf("%w: node %q row %d has %d columns, want %d",
				domain.ErrInvalidCalibration, n.Name, r, len(row), len(n.States))
		}
		sum := 0.0
		for _, p := range row {
			if !domain.IsProbability(p) {
				return fmt.Errorf("%w: node %q row %d holds %v", domain.ErrInvalidCalibration, n.Name, r, p)
			}
			sum += p
		}
		if math.Abs(sum-1) > rowTolerance {
			return fmt.Errorf("%w: node %q row %d sums to %v", domain.ErrInvalidCalibration, n.Name, r, sum)
		}
	}
	return nil
}

// Build constructs the pneumonia model for the given symptoms: a disease
// root, an imaging child and one child per symptom. Unknown symptoms take
// the profile's default pair. Every call returns a fresh graph.
func Build(symptoms domain.SymptomEvidence, profile *calibration.Profile) (*Graph, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: no calibration profile", domain.ErrInvalidCalibration)
	}
	d := profile.Diagnosis()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, symptoms.Len()+2)
	nodes = append(nodes,
		Node{
			Name:   DiseaseNode,
			States: presenceStates,
			CPT:    [][]float64{{1 - d.BasePrevalence, d.BasePrevalence}},
		},
		Node{
			Name:    ImagingNode,
			States:  imagingStates,
			Parents: []string{DiseaseNode},
			CPT: [][]float64{
				{d.ImagingSpecificity, 1 - d.ImagingSpecificity},
				{1 - d.ImagingSensitivity, d.ImagingSensitivity},
			},
		},
	)

	for _, id := range symptoms.List() {
		pair, _ := profile.Lookup(id)
		if err := pair.Validate(); err != nil {
			return nil, fmt.Errorf("symptom %q: %w", id, err)
		}
		nodes = append(nodes, Node{
			Name:    id,
			States:  presenceStates,
			Parents: []string{DiseaseNode},
			CPT: [][]float64{
				{1 - pair.FalsePositiveRate, pair.FalsePositiveRate},
				{1 - pair.Sensitivity, pair.Sensitivity},
			},
		})
	}

	return NewGraph(nodes...)
}

// Variables lists node names in topological order.
func (g *Graph) Variables() []string {
	names := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		names[i] = n.Name
	}
	return names
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Has reports whether the graph contains the named node.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Node returns a copy of the named node.
func (g *Graph) Node(name string) (Node, bool) {
	i, ok := g.index[name]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i].clone(), true
}

// CPT returns a copy of the named node's table, or nil.
func (g *Graph) CPT(name string) [][]float64 {
	n, ok := g.Node(name)
	if !ok {
		return nil
	}
	return n.CPT
}

// Parents returns the named node's parents, or nil.
func (g *Graph) Parents(name string) []string {
	n, ok := g.Node(name)
	if !ok {
		return nil
	}
	return n.Parents
}

// States returns the named node's state labels, or nil.
func (g *Graph) States(name string) []string {
	n, ok := g.Node(name)
	if !ok {
		return nil
	}
	return n.States
}

// Nodes returns copies of all nodes in topological order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.clone()
	}
	return out
}

func (g *Graph) factorOf(n Node) *factor {
	vars := append(append([]string(nil), n.Parents...), n.Name)
	card := make([]int, len(vars))
	for i, v := range n.Parents {
		card[i] = len(g.nodes[g.index[v]].States)
	}
	card[len(card)-1] = len(n.States)

	f := newFactor(vars, card)
	width := len(n.States)
	for r, row := range n.CPT {
		copy(f.values[r*width:(r+1)*width], row)
	}
	return f
}
