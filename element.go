package flowplan

// ElementKind represents the kind of vertex in the element graph.
type ElementKind int

const (
	KindTap ElementKind = iota
	KindStage
	KindGrouping
)

func (k ElementKind) String() string {
	switch k {
	case KindTap:
		return "Tap"
	case KindStage:
		return "Stage"
	case KindGrouping:
		return "Grouping"
	default:
		return "Unknown"
	}
}

// Element is a vertex in the logical element graph. It is a closed variant:
// the only implementations are Tap, *Stage and *Grouping.
type Element interface {
	Kind() ElementKind
	String() string
}

// Stage is a transform stage in the pipeline. Its name keys trap lookup: a
// trap registered under the same name captures records that fail in this
// stage.
type Stage struct {
	Name string
}

func (s *Stage) Kind() ElementKind { return KindStage }
func (s *Stage) String() string    { return s.Name }

// Grouping marks the boundary where parallel map-side processing converges
// into a single downstream flow.
type Grouping struct {
	Name string
}

func (g *Grouping) Kind() ElementKind { return KindGrouping }
func (g *Grouping) String() string    { return g.Name }

// Scope labels a directed edge in the element graph with the branch name it
// belongs to. Scopes may repeat across edges; edge identity is positional.
type Scope struct {
	Name string
}
