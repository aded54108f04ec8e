package flowplan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
)

// ErrTrapNotUnique marks an invalid plan: the same capture tap registered for
// more than one branch.
var ErrTrapNotUnique = errors.New("traps must be unique, cannot be reused on different branches")

type planner struct {
	log      logr.Logger
	flowName string
}

// Plan compiles the logical element graph into a step graph: one step per
// produced tap, linked by completion dependencies, each carrying the element
// subgraph it executes and its trap bindings.
//
// The traps registry maps stage names to capture taps and is treated as an
// immutable snapshot. Plan returns no step graph on a trap uniqueness
// violation.
func Plan(graph *ElementGraph, traps map[string]Tap, opts ...Option) (*StepGraph, error) {
	p := &planner{
		log: logr.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := verifyTrapsAreUnique(traps); err != nil {
		return nil, err
	}

	return p.makeStepGraph(graph, traps)
}

// verifyTrapsAreUnique rejects any capture tap registered more than once,
// independent of branch. Every duplicate is reported, not just the first.
func verifyTrapsAreUnique(traps map[string]Tap) error {
	freq := make(map[string]int, len(traps))
	for _, tap := range traps {
		freq[tap.ID()]++
	}

	var dups []string
	for id, n := range freq {
		if n != 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)

	var err error
	for _, id := range dups {
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrTrapNotUnique, id))
	}
	return err
}

func (p *planner) makeStepGraph(graph *ElementGraph, traps map[string]Tap) (*StepGraph, error) {
	tapGraph := graph.TapGraph()

	sg := &StepGraph{
		byID:    make(map[string]*Step),
		index:   make(map[*Step]int),
		linked:  make(map[[2]int]bool),
		numJobs: tapGraph.NumJobs(),
	}

	count := 0

	for _, source := range tapGraph.TopoOrder() {
		p.log.V(1).Info("handling source", "flow", p.flowName, "source", source.Path())

		for _, sink := range tapGraph.Successors(source) {
			p.log.V(1).Info("handling path", "flow", p.flowName, "source", source.Path(), "sink", sink.Path())

			step := sg.getCreateStep(p.log, sink)

			if producer, ok := sg.byID[source.ID()]; ok {
				sg.addDependency(producer, step, &count)
			}

			// Multiple shortest paths between one source and sink support
			// self joins on groups, even with different stage stacks between
			// them. Paths crossing an intermediate tap belong to other steps
			// and are skipped.
			for _, path := range graph.AllShortestPaths(source, sink) {
				if pathContainsTap(path) {
					continue
				}
				p.assemble(step, source, sink, path, traps)
			}
		}
	}

	return sg, nil
}

// assemble merges one retained source-to-sink path into the step: source and
// sink bindings, staging sink insertion, subgraph vertices and edges, the
// grouping boundary, and side-partitioned trap assignment.
func (p *planner) assemble(step *Step, source, sink Tap, path Path, traps map[string]Tap) {
	// The first scope carries the branch name this input enters under.
	step.Sources[path.Scopes[0].Name] = source
	step.Sink = sink

	if !sink.WriteDirect() && step.StagingSink == nil {
		step.StagingSink = NewStagingTap(sink)
	}

	lhs := path.Vertices[0]
	step.Subgraph.addVertex(lhs)

	onMapSide := true

	for i, scope := range path.Scopes {
		rhs := path.Vertices[i+1]

		step.Subgraph.addVertex(rhs)
		step.Subgraph.addEdge(lhs, rhs, scope)

		switch e := rhs.(type) {
		case *Grouping:
			step.Group = e
			onMapSide = false
		case *Stage:
			if trap, ok := traps[e.Name]; ok {
				if onMapSide {
					step.MapSideTraps[e.Name] = trap
				} else {
					step.ReduceSideTraps[e.Name] = trap
				}
			}
		}

		lhs = rhs
	}
}

// pathContainsTap reports whether the path routes through an intermediate
// tap. The first and last vertices are taps; any further tap means the path
// is owned by a different step.
func pathContainsTap(path Path) bool {
	count := 0
	for _, e := range path.Vertices {
		if _, ok := e.(Tap); ok {
			count++
		}
	}
	return count > 2
}

type stepEdge struct {
	from, to int

	// id is a unique label only; it carries no ordering semantics.
	id int
}

// StepGraph is the dependency DAG of steps produced by Plan. It is immutable;
// scheduling state lives in the iterators it hands out.
type StepGraph struct {
	steps      []*Step
	byID       map[string]*Step
	index      map[*Step]int
	edges      []stepEdge
	deps       [][]int
	dependents [][]int
	linked     map[[2]int]bool
	numJobs    int
}

// getCreateStep returns the step producing sink, creating it on first
// request. Creation is idempotent per sink identity so fan-in onto a shared
// sink never duplicates steps.
func (sg *StepGraph) getCreateStep(log logr.Logger, sink Tap) *Step {
	if step, ok := sg.byID[sink.ID()]; ok {
		return step
	}

	log.V(1).Info("creating step", "sink", sink.ID())

	ordinal := len(sg.steps) + 1
	step := newStep(makeStepName(ordinal, sg.numJobs, sink.Path()), ordinal)

	sg.byID[sink.ID()] = step
	sg.index[step] = len(sg.steps)
	sg.steps = append(sg.steps, step)
	sg.deps = append(sg.deps, nil)
	sg.dependents = append(sg.dependents, nil)

	return step
}

func (sg *StepGraph) addDependency(from, to *Step, count *int) {
	fi, ti := sg.index[from], sg.index[to]
	key := [2]int{fi, ti}
	if sg.linked[key] {
		return
	}
	sg.linked[key] = true

	sg.edges = append(sg.edges, stepEdge{from: fi, to: ti, id: *count})
	*count++

	sg.deps[ti] = append(sg.deps[ti], fi)
	sg.dependents[fi] = append(sg.dependents[fi], ti)
}

// Steps returns all steps in creation order.
func (sg *StepGraph) Steps() []*Step {
	return append([]*Step(nil), sg.steps...)
}

// NumJobs returns the number of steps in the plan.
func (sg *StepGraph) NumJobs() int {
	return sg.numJobs
}

// DependenciesOf returns the steps that must complete before step runs.
func (sg *StepGraph) DependenciesOf(step *Step) []*Step {
	si, ok := sg.index[step]
	if !ok {
		return nil
	}
	deps := make([]*Step, 0, len(sg.deps[si]))
	for _, di := range sg.deps[si] {
		deps = append(deps, sg.steps[di])
	}
	return deps
}

// DependentsOf returns the steps that wait on step.
func (sg *StepGraph) DependentsOf(step *Step) []*Step {
	si, ok := sg.index[step]
	if !ok {
		return nil
	}
	dependents := make([]*Step, 0, len(sg.dependents[si]))
	for _, di := range sg.dependents[si] {
		dependents = append(dependents, sg.steps[di])
	}
	return dependents
}
