package audio

import (
	"context"
	"os"
)

// transcoder converts arbitrary containers into PCM WAV.
// *ffmpeg.Executor implements this.
type transcoder interface {
	TranscodeToWAV(ctx context.Context, ffmpegPath, inputPath, outputPath string, bitDepth int) error
}

// ffmpegResolver locates the ffmpeg binary. *ffmpeg.Resolver implements this.
type ffmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// tempDirCreator creates temporary directories.
type tempDirCreator interface {
	MkdirTemp(dir, pattern string) (string, error)
}

// fileRemover removes files and directories.
type fileRemover interface {
	Remove(name string) error
	RemoveAll(path string) error
}

// --- Default implementations using real OS functions ---

// osTempDirCreator implements tempDirCreator using os.MkdirTemp.
type osTempDirCreator struct{}

func (osTempDirCreator) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

// osFileRemover implements fileRemover using os.Remove and os.RemoveAll.
type osFileRemover struct{}

func (osFileRemover) Remove(name string) error {
	return os.Remove(name)
}

func (osFileRemover) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
