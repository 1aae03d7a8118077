package clip

import "errors"

// ErrWrite indicates a clip could not be saved.
var ErrWrite = errors.New("cannot write clip")

// ErrRename indicates a classified clip could not be renamed.
var ErrRename = errors.New("cannot rename clip")
