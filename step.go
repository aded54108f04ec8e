package flowplan

import "fmt"

// maxSinkNameLen bounds the sink path portion of a step name. Longer paths
// keep their trailing characters behind an ellipsis marker.
const maxSinkNameLen = 75

// Step is one schedulable unit of physical execution. A step reads its
// sources, runs the element subgraph between them and its sink, and produces
// exactly one sink tap. Steps are built once by Plan and are immutable
// afterwards, except for SubmitPriority which the scheduler may assign before
// iteration begins.
type Step struct {
	// Name is the human-readable identity, "(i/N) <sink path>".
	Name string

	// Ordinal is the 1-based creation rank within the plan.
	Ordinal int

	// Sources maps each branch name to the tap whose input enters the
	// subgraph under it. A self join lists the same tap under every branch
	// feeding the sink.
	Sources map[string]Tap

	// Sink is the single output tap.
	Sink Tap

	// StagingSink is set when Sink cannot be written directly; the step
	// writes here and a later copy into Sink is the executor's concern.
	StagingSink Tap

	// Group is the grouping boundary owned by this step, nil for pure
	// map-side steps. When a path crosses several grouping vertices the
	// final one is retained.
	Group *Grouping

	// Subgraph is the fragment of the element graph this step executes.
	Subgraph *StepSubgraph

	// MapSideTraps and ReduceSideTraps map failing stage names to their
	// capture taps, split by which side of the grouping boundary the stage
	// runs on.
	MapSideTraps    map[string]Tap
	ReduceSideTraps map[string]Tap

	// SubmitPriority orders otherwise-ready steps at dispatch time; lower
	// runs earlier. Defaults to 0.
	SubmitPriority int
}

func newStep(name string, ordinal int) *Step {
	return &Step{
		Name:            name,
		Ordinal:         ordinal,
		Sources:         make(map[string]Tap),
		Subgraph:        newStepSubgraph(),
		MapSideTraps:    make(map[string]Tap),
		ReduceSideTraps: make(map[string]Tap),
	}
}

func (s *Step) String() string {
	return s.Name
}

func makeStepName(ordinal, numJobs int, sinkPath string) string {
	if len(sinkPath) > maxSinkNameLen {
		sinkPath = "..." + sinkPath[len(sinkPath)-maxSinkNameLen:]
	}
	return fmt.Sprintf("(%d/%d) %s", ordinal, numJobs, sinkPath)
}

type SubgraphEdge struct {
	From, To Element
	Scope    Scope
}

// StepSubgraph is the portion of the element graph one step executes: the
// union of every retained source-to-sink path. At most two of its vertices
// are taps, the step's own sources and sink.
type StepSubgraph struct {
	vertices []Element
	seen     map[Element]bool
	edges    []SubgraphEdge
	linked   map[[2]Element]bool
}

func newStepSubgraph() *StepSubgraph {
	return &StepSubgraph{
		seen:   make(map[Element]bool),
		linked: make(map[[2]Element]bool),
	}
}

func (sg *StepSubgraph) addVertex(e Element) {
	if sg.seen[e] {
		return
	}
	sg.seen[e] = true
	sg.vertices = append(sg.vertices, e)
}

func (sg *StepSubgraph) addEdge(from, to Element, scope Scope) {
	key := [2]Element{from, to}
	if sg.linked[key] {
		return
	}
	sg.linked[key] = true
	sg.edges = append(sg.edges, SubgraphEdge{From: from, To: to, Scope: scope})
}

// Vertices returns the subgraph vertices in first-insertion order.
func (sg *StepSubgraph) Vertices() []Element {
	return append([]Element(nil), sg.vertices...)
}

// Edges returns the scoped subgraph edges in insertion order.
func (sg *StepSubgraph) Edges() []SubgraphEdge {
	return append([]SubgraphEdge(nil), sg.edges...)
}

// Contains reports whether e is part of the subgraph.
func (sg *StepSubgraph) Contains(e Element) bool {
	return sg.seen[e]
}
