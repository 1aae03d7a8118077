package pipeline

import "os"

// dirCreator abstracts os.MkdirAll for testing.
type dirCreator interface {
	MkdirAll(path string, perm os.FileMode) error
}

type osDirCreator struct{}

func (osDirCreator) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}
