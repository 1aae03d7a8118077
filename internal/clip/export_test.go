package clip

// WithRenamer exposes withRenamer for testing.
var WithRenamer = withRenamer
