package flowplan

import "github.com/go-logr/logr"

// Option configures a planning run.
type Option func(*planner)

// WithLogr sets the logger used during planning. Defaults to logr.Discard().
var WithLogr = func(log logr.Logger) Option {
	return func(p *planner) {
		p.log = log
	}
}

// WithFlowName sets the flow name attached to planner log output.
var WithFlowName = func(name string) Option {
	return func(p *planner) {
		p.flowName = name
	}
}
