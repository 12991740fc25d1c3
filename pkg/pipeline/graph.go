// Package pipeline orders the analytics stages as a dependency graph.
package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethpandaops/parcelsight/pkg/analysis"
	"github.com/heimdalr/dag"
)

// Stage is a named unit of analysis with the stages it consumes.
type Stage struct {
	Name      string   `json:"name"`
	DependsOn []string `json:"depends_on,omitempty"`
}

// DefaultStages returns the engine's stages: validation feeds fusion, features, patterns
// and correlation; risk consumes features and factors consume the fused table.
func DefaultStages() []Stage {
	return []Stage{
		{Name: analysis.StageValidation},
		{Name: analysis.StageFusion, DependsOn: []string{analysis.StageValidation}},
		{Name: analysis.StageFeatures, DependsOn: []string{analysis.StageValidation}},
		{Name: analysis.StageRisk, DependsOn: []string{analysis.StageFeatures}},
		{Name: analysis.StagePatterns, DependsOn: []string{analysis.StageValidation}},
		{Name: analysis.StageFactors, DependsOn: []string{analysis.StageFusion}},
		{Name: analysis.StageCorrelation, DependsOn: []string{analysis.StageValidation}},
	}
}

// Graph holds the stage dependency graph
type Graph struct {
	dag    *dag.DAG
	stages map[string]Stage
	mutex  sync.RWMutex
}

// NewGraph creates an empty stage graph
func NewGraph() *Graph {
	return &Graph{
		dag:    dag.NewDAG(),
		stages: make(map[string]Stage),
	}
}

// Build replaces the graph with the given stages. Cycles are rejected.
func (g *Graph) Build(stages []Stage) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.dag = dag.NewDAG()
	g.stages = make(map[string]Stage, len(stages))

	for _, s := range stages {
		if _, exists := g.stages[s.Name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateStage, s.Name)
		}
		g.stages[s.Name] = s

		if err := g.dag.AddVertexByID(s.Name, s.Name); err != nil {
			return fmt.Errorf("failed to add stage %s: %w", s.Name, err)
		}
	}

	// Edges run dependency → dependent
	for _, s := range stages {
		for _, dep := range s.DependsOn {
			if _, exists := g.stages[dep]; !exists {
				return fmt.Errorf("%w: %s depends on %s", ErrNonExistentDependency, s.Name, dep)
			}

			if err := g.dag.AddEdge(dep, s.Name); err != nil {
				return fmt.Errorf("invalid dependency %s → %s: %w", dep, s.Name, err)
			}
		}
	}

	return nil
}

// Dependencies returns the direct dependencies of a stage, sorted
func (g *Graph) Dependencies(name string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	parents, err := g.dag.GetParents(name)
	if err != nil {
		return nil
	}

	return sortedKeys(parents)
}

// Dependents returns the direct dependents of a stage, sorted
func (g *Graph) Dependents(name string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	children, err := g.dag.GetChildren(name)
	if err != nil {
		return nil
	}

	return sortedKeys(children)
}

// AllDependencies returns every stage a stage transitively depends on, sorted
func (g *Graph) AllDependencies(name string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	ancestors, err := g.dag.GetAncestors(name)
	if err != nil {
		return nil
	}

	return sortedKeys(ancestors)
}

// Requires reports whether stage `from` must run before stage `to`
func (g *Graph) Requires(to, from string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	descendants, err := g.dag.GetDescendants(from)
	if err != nil {
		return false
	}

	_, exists := descendants[to]

	return exists
}

// Stage returns a registered stage
func (g *Graph) Stage(name string) (Stage, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	s, ok := g.stages[name]
	if !ok {
		return Stage{}, fmt.Errorf("%w: %s", ErrUnknownStage, name)
	}

	return s, nil
}

// Levels groups the stages into execution levels: every stage runs after all stages of
// earlier levels, and stages within a level are independent. Names are sorted per level.
func (g *Graph) Levels() [][]string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	remaining := make(map[string]int, len(g.stages))
	for name := range g.stages {
		parents, err := g.dag.GetParents(name)
		if err != nil {
			continue
		}
		remaining[name] = len(parents)
	}

	var levels [][]string
	for len(remaining) > 0 {
		var level []string
		for name, pending := range remaining {
			if pending == 0 {
				level = append(level, name)
			}
		}

		if len(level) == 0 {
			// unreachable: the DAG rejects cycles
			break
		}
		sort.Strings(level)

		for _, name := range level {
			delete(remaining, name)

			children, err := g.dag.GetChildren(name)
			if err != nil {
				continue
			}
			for child := range children {
				remaining[child]--
			}
		}

		levels = append(levels, level)
	}

	return levels
}

func sortedKeys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)

	return out
}
