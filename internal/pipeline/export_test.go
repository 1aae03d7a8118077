package pipeline

// WithDirCreator exposes withDirCreator for testing.
var WithDirCreator = withDirCreator
