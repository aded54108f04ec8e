package flowplan

import (
	"errors"
	"fmt"
)

var (
	ErrElementExists   = errors.New("element already exists")
	ErrElementNotFound = errors.New("element not found")
	ErrGraphCyclic     = errors.New("cycle detected in element graph")
)

type graphEdge struct {
	from, to int
	scope    Scope
}

// ElementGraphBuilder constructs a logical element graph.
//
// The builder is NOT safe for concurrent use. The resulting ElementGraph is
// immutable and safe to share.
type ElementGraphBuilder struct {
	elements []Element
	index    map[Element]int
	edges    []graphEdge
}

// NewElementGraphBuilder creates a new empty builder.
func NewElementGraphBuilder() *ElementGraphBuilder {
	return &ElementGraphBuilder{
		index: make(map[Element]int),
	}
}

// AddElement registers a vertex. Elements must be registered before they can
// be connected.
func (b *ElementGraphBuilder) AddElement(e Element) error {
	if _, exists := b.index[e]; exists {
		return fmt.Errorf("%w: %s %q", ErrElementExists, e.Kind(), e)
	}
	b.index[e] = len(b.elements)
	b.elements = append(b.elements, e)
	return nil
}

// AddScope connects from to to with a scoped edge. Both elements must already
// be registered.
func (b *ElementGraphBuilder) AddScope(from, to Element, scope Scope) error {
	fromIdx, ok := b.index[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrElementNotFound, from)
	}
	toIdx, ok := b.index[to]
	if !ok {
		return fmt.Errorf("%w: %q", ErrElementNotFound, to)
	}
	b.edges = append(b.edges, graphEdge{from: fromIdx, to: toIdx, scope: scope})
	return nil
}

// Connect registers any unregistered elements and links them pairwise, every
// edge labeled with scope. Convenience for linear chains.
func (b *ElementGraphBuilder) Connect(scope Scope, elems ...Element) error {
	for _, e := range elems {
		if _, exists := b.index[e]; !exists {
			if err := b.AddElement(e); err != nil {
				return err
			}
		}
	}
	for i := 0; i+1 < len(elems); i++ {
		if err := b.AddScope(elems[i], elems[i+1], scope); err != nil {
			return err
		}
	}
	return nil
}

// Build validates the graph and returns an immutable snapshot.
func (b *ElementGraphBuilder) Build() (*ElementGraph, error) {
	g := &ElementGraph{
		elements: append([]Element(nil), b.elements...),
		index:    make(map[Element]int, len(b.elements)),
		edges:    append([]graphEdge(nil), b.edges...),
		out:      make([][]int, len(b.elements)),
		in:       make([][]int, len(b.elements)),
	}
	for e, i := range b.index {
		g.index[e] = i
	}
	for i, e := range g.edges {
		g.out[e.from] = append(g.out[e.from], i)
		g.in[e.to] = append(g.in[e.to], i)
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}

	return g, nil
}

// MustBuild is like Build but panics on error.
func (b *ElementGraphBuilder) MustBuild() *ElementGraph {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}

// ElementGraph is the immutable logical pipeline graph: taps, stages and
// grouping vertices connected by scoped edges.
type ElementGraph struct {
	elements []Element
	index    map[Element]int
	edges    []graphEdge
	out      [][]int // outgoing edge indices per vertex
	in       [][]int // incoming edge indices per vertex
}

// Elements returns all vertices in registration order.
func (g *ElementGraph) Elements() []Element {
	return append([]Element(nil), g.elements...)
}

// detectCycles uses DFS with a recursion stack to reject cyclic graphs.
func (g *ElementGraph) detectCycles() error {
	visited := make([]bool, len(g.elements))
	recStack := make([]bool, len(g.elements))

	var dfs func(v int, path []Element) error
	dfs = func(v int, path []Element) error {
		visited[v] = true
		recStack[v] = true
		path = append(path, g.elements[v])

		for _, ei := range g.out[v] {
			next := g.edges[ei].to
			if !visited[next] {
				if err := dfs(next, path); err != nil {
					return err
				}
			} else if recStack[next] {
				return fmt.Errorf("%w: %v", ErrGraphCyclic, append(path, g.elements[next]))
			}
		}

		recStack[v] = false
		return nil
	}

	for v := range g.elements {
		if !visited[v] {
			if err := dfs(v, nil); err != nil {
				return err
			}
		}
	}

	return nil
}

// Path is one directed path through the element graph. Scopes[i] labels the
// edge from Vertices[i] to Vertices[i+1].
type Path struct {
	Vertices []Element
	Scopes   []Scope
}

// AllShortestPaths returns every minimum-edge-count path from from to to, in
// deterministic edge-registration order. The result is empty if to is not
// reachable from from.
func (g *ElementGraph) AllShortestPaths(from, to Element) []Path {
	src, ok := g.index[from]
	if !ok {
		return nil
	}
	dst, ok := g.index[to]
	if !ok {
		return nil
	}

	// BFS level distances from src.
	const unreached = -1
	dist := make([]int, len(g.elements))
	for i := range dist {
		dist[i] = unreached
	}
	dist[src] = 0
	queue := []int{src}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, ei := range g.out[v] {
			next := g.edges[ei].to
			if dist[next] == unreached {
				dist[next] = dist[v] + 1
				queue = append(queue, next)
			}
		}
	}
	if dist[dst] == unreached {
		return nil
	}

	// Walk forward along strictly level-increasing edges, materializing only
	// the shortest paths.
	var paths []Path
	var vertices []Element
	var scopes []Scope

	var walk func(v int)
	walk = func(v int) {
		vertices = append(vertices, g.elements[v])
		defer func() { vertices = vertices[:len(vertices)-1] }()

		if v == dst {
			paths = append(paths, Path{
				Vertices: append([]Element(nil), vertices...),
				Scopes:   append([]Scope(nil), scopes...),
			})
			return
		}

		for _, ei := range g.out[v] {
			e := g.edges[ei]
			if dist[e.to] != dist[v]+1 || dist[e.to] > dist[dst] {
				continue
			}
			scopes = append(scopes, e.scope)
			walk(e.to)
			scopes = scopes[:len(scopes)-1]
		}
	}
	walk(src)

	return paths
}

// TapGraph condenses the element graph down to its taps: an edge u -> v means
// some path runs from u to v without crossing any other tap. Reachability is
// computed per source tap, never by materializing logical paths.
func (g *ElementGraph) TapGraph() *TapGraph {
	tg := &TapGraph{index: make(map[Tap]int)}
	for _, e := range g.elements {
		if tap, ok := e.(Tap); ok {
			tg.index[tap] = len(tg.taps)
			tg.taps = append(tg.taps, tap)
		}
	}
	tg.succ = make([][]int, len(tg.taps))
	tg.indeg = make([]int, len(tg.taps))

	for ti, tap := range tg.taps {
		src := g.index[tap]
		visited := make([]bool, len(g.elements))
		seen := make(map[int]bool)

		var dfs func(v int)
		dfs = func(v int) {
			visited[v] = true
			for _, ei := range g.out[v] {
				next := g.edges[ei].to
				if reached, ok := g.elements[next].(Tap); ok {
					ni := tg.index[reached]
					if !seen[ni] {
						seen[ni] = true
						tg.succ[ti] = append(tg.succ[ti], ni)
						tg.indeg[ni]++
					}
					continue // stop at taps, the path beyond belongs elsewhere
				}
				if !visited[next] {
					dfs(next)
				}
			}
		}
		dfs(src)
	}

	return tg
}

// TapGraph is the condensed endpoint graph derived from an ElementGraph.
type TapGraph struct {
	taps  []Tap
	index map[Tap]int
	succ  [][]int
	indeg []int
}

// Taps returns all taps in element-registration order.
func (tg *TapGraph) Taps() []Tap {
	return append([]Tap(nil), tg.taps...)
}

// Successors returns the taps reachable from t without crossing another tap.
func (tg *TapGraph) Successors(t Tap) []Tap {
	ti, ok := tg.index[t]
	if !ok {
		return nil
	}
	succ := make([]Tap, 0, len(tg.succ[ti]))
	for _, ni := range tg.succ[ti] {
		succ = append(succ, tg.taps[ni])
	}
	return succ
}

// InDegree returns the number of distinct taps that reach t directly.
func (tg *TapGraph) InDegree(t Tap) int {
	ti, ok := tg.index[t]
	if !ok {
		return 0
	}
	return tg.indeg[ti]
}

// NumJobs returns the number of steps a plan over this graph will contain:
// one per tap that is produced by at least one other tap.
func (tg *TapGraph) NumJobs() int {
	count := 0
	for _, d := range tg.indeg {
		if d != 0 {
			count++
		}
	}
	return count
}

// TopoOrder returns the taps in topological order, sources before the taps
// they feed. Ties resolve in registration order. The element graph is acyclic
// so the condensed graph is too.
func (tg *TapGraph) TopoOrder() []Tap {
	indeg := append([]int(nil), tg.indeg...)

	var queue []int
	for ti := range tg.taps {
		if indeg[ti] == 0 {
			queue = append(queue, ti)
		}
	}

	order := make([]Tap, 0, len(tg.taps))
	for len(queue) > 0 {
		ti := queue[0]
		queue = queue[1:]
		order = append(order, tg.taps[ti])
		for _, ni := range tg.succ[ti] {
			indeg[ni]--
			if indeg[ni] == 0 {
				queue = append(queue, ni)
			}
		}
	}

	return order
}
