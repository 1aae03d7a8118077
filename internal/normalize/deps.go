package normalize

import "os"

// fileSystem abstracts the file operations of a job for testing.
type fileSystem interface {
	// CreateTemp reserves a unique file name in dir and returns its path.
	CreateTemp(dir, pattern string) (string, error)
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

type osFileSystem struct{}

func (osFileSystem) CreateTemp(dir, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

func (osFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (osFileSystem) Remove(name string) error {
	return os.Remove(name)
}
