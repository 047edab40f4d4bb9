package bayes

import (
	"fmt"
	"math"
	"sort"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// Evidence assigns observed state indices to node names.
type Evidence map[string]int

// Posterior is the normalised marginal of one variable.
type Posterior struct {
	Variable      string    `json:"variable"`
	States        []string  `json:"states"`
	Probabilities []float64 `json:"probabilities"`
}

// P returns the probability of state, or 0 when out of range.
func (p Posterior) P(state int) float64 {
	if state < 0 || state >= len(p.Probabilities) {
		return 0
	}
	return p.Probabilities[state]
}

// ObservedEvidence is the standard assessment evidence: the imaging verdict
// plus every listed symptom observed present.
func ObservedEvidence(imaging domain.ImagingEvidence, symptoms domain.SymptomEvidence) Evidence {
	ev := Evidence{ImagingNode: Negative}
	if imaging.Positive() {
		ev[ImagingNode] = Positive
	}
	for _, id := range symptoms.List() {
		ev[id] = Present
	}
	return ev
}

// Query computes P(target | evidence) by variable elimination. The graph is
// not modified. Contradictory evidence yields an InferenceError rather than
// a fabricated distribution.
func Query(g *Graph, target string, evidence Evidence) (Posterior, error) {
	if g == nil || g.Len() == 0 {
		return Posterior{}, domain.NewInferenceError(target, "graph is empty")
	}
	ti, ok := g.index[target]
	if !ok {
		return Posterior{}, domain.NewInferenceError(target, "unknown query variable")
	}
	if _, observed := evidence[target]; observed {
		return Posterior{}, domain.NewInferenceError(target, "query variable is also observed")
	}
	for name, state := range evidence {
		i, ok := g.index[name]
		if !ok {
			return Posterior{}, domain.NewInferenceError(name, "unknown evidence variable")
		}
		if state < 0 || state >= len(g.nodes[i].States) {
			return Posterior{}, domain.NewInferenceError(name, fmt.Sprintf("state %d out of range", state))
		}
	}

	factors := make([]*factor, 0, g.Len())
	for _, n := range g.nodes {
		f := g.factorOf(n)
		for name, state := range evidence {
			f = f.reduce(name, state)
		}
		factors = append(factors, f)
	}

	hidden := make(map[string]bool)
	for _, n := range g.nodes {
		if n.Name == target {
			continue
		}
		if _, observed := evidence[n.Name]; observed {
			continue
		}
		hidden[n.Name] = true
	}

	for len(hidden) > 0 {
		v := nextToEliminate(hidden, factors)
		delete(hidden, v)
		factors = eliminate(factors, v)
	}

	result := factors[0]
	for _, f := range factors[1:] {
		result = product(result, f)
	}

	z := result.sum()
	if z <= 0 || math.IsNaN(z) || math.IsInf(z, 0) {
		return Posterior{}, domain.NewInferenceError(target, "evidence has zero probability")
	}

	node := g.nodes[ti]
	probs := make([]float64, len(node.States))
	for i, v := range result.values {
		probs[i] = v / z
	}
	return Posterior{
		Variable:      target,
		States:        append([]string(nil), node.States...),
		Probabilities: probs,
	}, nil
}

// nextToEliminate picks the hidden variable with the fewest neighbours in
// the current factor set. Ties break by name so runs are reproducible.
func nextToEliminate(hidden map[string]bool, factors []*factor) string {
	names := make([]string, 0, len(hidden))
	for v := range hidden {
		names = append(names, v)
	}
	sort.Strings(names)

	best, bestDegree := "", math.MaxInt
	for _, v := range names {
		neighbours := make(map[string]struct{})
		for _, f := range factors {
			if !f.has(v) {
				continue
			}
			for _, u := range f.vars {
				if u != v {
					neighbours[u] = struct{}{}
				}
			}
		}
		if len(neighbours) < bestDegree {
			best, bestDegree = v, len(neighbours)
		}
	}
	return best
}

// eliminate multiplies every factor mentioning v and sums v out.
func eliminate(factors []*factor, v string) []*factor {
	var joined *factor
	rest := factors[:0:0]
	for _, f := range factors {
		if !f.has(v) {
			rest = append(rest, f)
			continue
		}
		if joined == nil {
			joined = f
		} else {
			joined = product(joined, f)
		}
	}
	if joined == nil {
		return rest
	}
	return append(rest, joined.sumOut(v))
}
