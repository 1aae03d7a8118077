package ffmpeg

import "errors"

// ErrNotFound indicates the FFmpeg binary is neither configured nor on PATH.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrTranscodeFailed indicates FFmpeg could not convert an input to WAV.
var ErrTranscodeFailed = errors.New("ffmpeg transcode failed")
