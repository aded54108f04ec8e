package flowplan

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

// WriteDOT renders the step graph in Graphviz DOT form for visualization and
// debugging. Each vertex is labeled with the step name, its non-staging
// source paths, its grouping name if any, and its non-staging sink path.
// Export is purely observational and runs after planning; callers treat a
// failure here as reportable, never as invalidating the plan.
func (sg *StepGraph) WriteDOT(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph G {\n")

	for si, step := range sg.steps {
		fmt.Fprintf(&b, "  %d [label=\"%s\"];\n", si+1, dotLabel(step))
	}

	for _, e := range sg.edges {
		fmt.Fprintf(&b, "  %d -> %d [label=\"%d\"];\n", e.from+1, e.to+1, e.id)
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteDOTFile writes the DOT rendering to the given file path.
func (sg *StepGraph) WriteDOTFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	err = sg.WriteDOT(f)
	return multierr.Append(err, f.Close())
}

func dotLabel(step *Step) string {
	srcSeen := make(map[string]bool)
	var srcPaths []string
	for _, source := range step.Sources {
		if IsStaging(source) || srcSeen[source.Path()] {
			continue
		}
		srcSeen[source.Path()] = true
		srcPaths = append(srcPaths, "["+source.Path()+"]")
	}
	sort.Strings(srcPaths)

	label := "[" + step.Name + "]"

	if len(srcPaths) != 0 {
		label += "\\nsrc:" + strings.Join(srcPaths, "")
	}

	if step.Group != nil && step.Group.Name != "" {
		label += "\\ngrp:" + step.Group.Name
	}

	if step.Sink != nil && !IsStaging(step.Sink) {
		label += "\\nsnk:[" + step.Sink.Path() + "]"
	}

	return strings.ReplaceAll(label, `"`, `'`)
}
