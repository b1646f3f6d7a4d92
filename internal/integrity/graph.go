package integrity

import (
	"errors"
	"fmt"

	"github.com/bankclean/bankclean/internal/schema"
)

// ErrInvalidRelation is returned when a foreign key references an undeclared
// table or the clean partition of a table that is not filtered.
var ErrInvalidRelation = errors.New("invalid relation")

// StageEdge records that Stage consumes the clean output of DependsOn.
type StageEdge struct {
	Stage     string
	DependsOn string
	FKName    string
}

// StageGraph holds the filter stages and the data dependencies between them.
type StageGraph struct {
	stages []string
	edges  []StageEdge
	// adjacency: stage -> stages consuming its clean output
	dependents map[string][]StageEdge
	// adjacency: stage -> stages it consumes
	dependencies map[string][]StageEdge
}

// NewStageGraph builds the stage graph from the filtered tables of s.
func NewStageGraph(s *schema.Schema) (*StageGraph, error) {
	g := &StageGraph{
		dependents:   make(map[string][]StageEdge),
		dependencies: make(map[string][]StageEdge),
	}

	filtered := make(map[string]bool)
	for _, t := range s.FilteredTables() {
		g.stages = append(g.stages, t.Name)
		filtered[t.Name] = true
	}

	for _, t := range s.FilteredTables() {
		for _, fk := range t.ForeignKeys {
			if s.Table(fk.ReferencedTable) == nil {
				return nil, fmt.Errorf("%w: %s references undeclared table %s", ErrInvalidRelation, fk.Name, fk.ReferencedTable)
			}
			if fk.Partition != schema.PartitionClean {
				continue
			}
			if !filtered[fk.ReferencedTable] {
				return nil, fmt.Errorf("%w: %s references the clean partition of unfiltered table %s", ErrInvalidRelation, fk.Name, fk.ReferencedTable)
			}
			edge := StageEdge{Stage: t.Name, DependsOn: fk.ReferencedTable, FKName: fk.Name}
			g.edges = append(g.edges, edge)
			g.dependents[edge.DependsOn] = append(g.dependents[edge.DependsOn], edge)
			g.dependencies[edge.Stage] = append(g.dependencies[edge.Stage], edge)
		}
	}

	return g, nil
}

// Stages returns the stage names in declaration order.
func (g *StageGraph) Stages() []string {
	return g.stages
}

// Edges returns every dependency edge.
func (g *StageGraph) Edges() []StageEdge {
	return g.edges
}

// DependsOn returns the stages whose clean output stage consumes.
func (g *StageGraph) DependsOn(stage string) []string {
	var out []string
	for _, e := range g.dependencies[stage] {
		out = append(out, e.DependsOn)
	}
	return out
}

// DetectCycles finds all dependency cycles using DFS. A stage consuming its
// own clean output is reported as a one-element cycle.
func (g *StageGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	adj := make(map[string][]string)
	for _, e := range g.edges {
		adj[e.Stage] = append(adj[e.Stage], e.DependsOn)
	}

	var path []string
	var dfs func(node string)
	dfs = func(node string) {
		visited[node] = true
		inStack[node] = true
		path = append(path, node)

		for _, neighbor := range adj[node] {
			if !visited[neighbor] {
				dfs(neighbor)
			} else if inStack[neighbor] {
				for i, n := range path {
					if n == neighbor {
						cycle := make([]string, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		path = path[:len(path)-1]
		inStack[node] = false
	}

	for _, name := range g.stages {
		if !visited[name] {
			dfs(name)
		}
	}

	return cycles
}

// Order returns the stages in execution order: every stage runs after the
// stages whose clean output it consumes. Independent stages keep their
// declaration order.
func (g *StageGraph) Order() ([]string, error) {
	inDegree := make(map[string]int, len(g.stages))
	for _, s := range g.stages {
		inDegree[s] = len(g.dependencies[s])
	}

	// Kahn's algorithm, always picking the earliest declared ready stage.
	done := make(map[string]bool, len(g.stages))
	var sorted []string
	for len(sorted) < len(g.stages) {
		next := ""
		for _, s := range g.stages {
			if !done[s] && inDegree[s] == 0 {
				next = s
				break
			}
		}
		if next == "" {
			return sorted, &CycleError{Stages: g.remaining(done)}
		}
		done[next] = true
		sorted = append(sorted, next)
		for _, e := range g.dependents[next] {
			inDegree[e.Stage]--
		}
	}
	return sorted, nil
}

func (g *StageGraph) remaining(done map[string]bool) []string {
	var out []string
	for _, s := range g.stages {
		if !done[s] {
			out = append(out, s)
		}
	}
	return out
}

// CycleError indicates the stage dependencies contain a cycle.
type CycleError struct {
	Stages []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected in filter stages: %v", e.Stages)
}
