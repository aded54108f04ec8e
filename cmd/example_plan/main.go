package main

import (
	"fmt"
	"os"
	"time"

	"github.com/flowmill/flowplan"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
)

var log *zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerologr.NameFieldName = "logger"
	zerologr.NameSeparator = "/"
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02T15:04:05.000Z07:00"}
	zlog := zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	log = &zlog
}

func main() {
	b := flowplan.NewElementGraphBuilder()

	logs := flowplan.NewFileTap("hdfs:/logs/raw")
	parsed := flowplan.NewFileTap("hdfs:/logs/parsed")
	report := flowplan.NewIndirectFileTap("db:/reports/daily")

	must(b.Connect(flowplan.Scope{Name: "parse"},
		logs,
		&flowplan.Stage{Name: "split-lines"},
		&flowplan.Stage{Name: "extract-fields"},
		parsed,
	))
	must(b.Connect(flowplan.Scope{Name: "aggregate"},
		parsed,
		&flowplan.Stage{Name: "filter-errors"},
		&flowplan.Grouping{Name: "by-endpoint"},
		&flowplan.Stage{Name: "count-hits"},
		report,
	))

	traps := map[string]flowplan.Tap{
		"extract-fields": flowplan.NewFileTap("hdfs:/traps/extract-fields"),
	}

	plan, err := flowplan.Plan(b.MustBuild(), traps,
		flowplan.WithLogr(zerologr.New(log)),
		flowplan.WithFlowName("daily-report"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("plan is invalid")
	}

	it := plan.Iterate()
	for step, ok := it.Next(); ok; step, ok = it.Next() {
		fmt.Printf("dispatch %s sink=%s", step.Name, step.Sink.Path())
		if step.StagingSink != nil {
			fmt.Printf(" via %s", step.StagingSink.Path())
		}
		fmt.Println()
	}

	// Export failure is diagnostic only, the plan stays valid.
	if err := plan.WriteDOTFile("plan.dot"); err != nil {
		log.Error().Err(err).Msg("failed to write plan.dot")
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
