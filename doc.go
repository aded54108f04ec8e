// Package flowplan compiles a logical data-processing pipeline into a
// physical execution plan.
//
// The input is an element graph: taps (durable sources and sinks), transform
// stages and grouping vertices connected by scoped edges. Plan condenses the
// graph down to its taps, walks the condensed graph in topological order and
// synthesizes one Step per produced tap. Each step carries the fragment of
// the element graph it executes, its source and sink bindings, an optional
// staging sink for taps that cannot be written directly, and its error
// capture taps partitioned around the grouping boundary.
//
// The resulting StepGraph is an immutable dependency DAG. Its scheduling
// iterator yields steps in dependency order, preferring the lowest submit
// priority among ready steps, and is the contract an external executor
// dispatches against.
//
// Basic usage:
//
//	b := flowplan.NewElementGraphBuilder()
//	b.Connect(flowplan.Scope{Name: "wordcount"},
//	    flowplan.NewFileTap("hdfs:/input"),
//	    &flowplan.Stage{Name: "tokenize"},
//	    &flowplan.Grouping{Name: "by-word"},
//	    &flowplan.Stage{Name: "count"},
//	    flowplan.NewFileTap("hdfs:/output"),
//	)
//
//	plan, err := flowplan.Plan(b.MustBuild(), nil)
//	if err != nil {
//	    // invalid plan, nothing was built
//	}
//
//	it := plan.Iterate()
//	for step, ok := it.Next(); ok; step, ok = it.Next() {
//	    submit(step)
//	}
//
// Plan fails with ErrTrapNotUnique when the same capture tap is registered
// for more than one stage; no partial plan is returned. Builders are not safe
// for concurrent use; a built ElementGraph and a StepGraph are immutable and
// safe to share, while each StepIterator is single use and must be advanced
// from one goroutine.
package flowplan
