// Example executor for a compiled plan. Steps run concurrently on a bounded
// worker pool; each worker gates on the completion of the step's
// dependencies, which the scheduling iterator guarantees have been handed out
// earlier.
package main

import (
	"os"
	"time"

	"github.com/flowmill/flowplan"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02T15:04:05.000Z07:00"}
	zlog := zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()

	b := flowplan.NewElementGraphBuilder()

	events := flowplan.NewFileTap("hdfs:/events")
	sessions := flowplan.NewFileTap("hdfs:/sessions")
	users := flowplan.NewFileTap("hdfs:/users")
	rollup := flowplan.NewFileTap("hdfs:/rollup")

	must(b.Connect(flowplan.Scope{Name: "sessionize"},
		events, &flowplan.Stage{Name: "sessionize"}, &flowplan.Grouping{Name: "by-session"}, &flowplan.Stage{Name: "fold"}, sessions))
	must(b.Connect(flowplan.Scope{Name: "identify"},
		events, &flowplan.Stage{Name: "identify"}, users))
	must(b.Connect(flowplan.Scope{Name: "join-sessions"},
		sessions, &flowplan.Stage{Name: "join"}, rollup))
	must(b.Connect(flowplan.Scope{Name: "join-users"},
		users, &flowplan.Stage{Name: "join2"}, rollup))

	plan, err := flowplan.Plan(b.MustBuild(), nil, flowplan.WithLogr(zerologr.New(&zlog)))
	if err != nil {
		zlog.Fatal().Err(err).Msg("plan is invalid")
	}

	// Prefer the user extraction when both forks are ready.
	for _, step := range plan.Steps() {
		if step.Sink == users {
			step.SubmitPriority = -1
		}
	}

	done := make(map[*flowplan.Step]chan struct{}, len(plan.Steps()))
	for _, step := range plan.Steps() {
		done[step] = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(2)

	it := plan.Iterate()
	for step, ok := it.Next(); ok; step, ok = it.Next() {
		step := step
		g.Go(func() error {
			for _, dep := range plan.DependenciesOf(step) {
				<-done[dep]
			}
			zlog.Info().Str("step", step.Name).Msg("executing")
			time.Sleep(100 * time.Millisecond) // stand-in for the real job
			close(done[step])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zlog.Fatal().Err(err).Msg("execution failed")
	}
	zlog.Info().Int("steps", len(plan.Steps())).Msg("flow complete")
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
