package audio

import "errors"

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrDecode indicates an input could not be decoded into samples.
var ErrDecode = errors.New("audio decode failed")

// ErrEmpty indicates a decoded input holds no samples.
var ErrEmpty = errors.New("audio contains no samples")

// ErrUnsupportedFormat indicates an input extension no decoder handles.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ErrInvalidBuffer indicates a buffer that cannot be encoded (bad rate or depth).
var ErrInvalidBuffer = errors.New("invalid audio buffer")

// errNeedsTranscode marks WAV files the native decoder cannot read
// (IEEE float, A-law, 8-bit) so Load can retry through ffmpeg.
var errNeedsTranscode = errors.New("wav encoding requires transcoding")
