package clip

import "os"

// renamer abstracts os.Rename for testing.
type renamer interface {
	Rename(oldpath, newpath string) error
}

type osRenamer struct{}

func (osRenamer) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}
