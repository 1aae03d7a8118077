package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Compile-time interface implementation check.
var _ Codec = (*WAVCodec)(nil)

// WAV format tags accepted by the native decoder.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// transcodeBitDepth is the PCM depth requested from ffmpeg for non-WAV inputs.
const transcodeBitDepth = 24

// nativeExtensions are decoded without ffmpeg.
var nativeExtensions = []string{".wav", ".wave"}

// transcodeExtensions are converted to WAV with ffmpeg before decoding.
var transcodeExtensions = []string{".aif", ".aiff", ".flac", ".m4a", ".mp3", ".ogg", ".opus"}

// SupportedExtensions returns every input extension Load accepts.
func SupportedExtensions() []string {
	exts := slices.Concat(nativeExtensions, transcodeExtensions)
	slices.Sort(exts)
	return exts
}

// IsNative reports whether path has an extension decoded without ffmpeg.
func IsNative(path string) bool {
	return slices.Contains(nativeExtensions, strings.ToLower(filepath.Ext(path)))
}

// Loader decodes an audio file into a mono Buffer.
type Loader interface {
	Load(ctx context.Context, path string) (Buffer, error)
}

// Saver encodes a Buffer into a lossless file.
type Saver interface {
	Save(buf Buffer, path string) error
}

// Codec loads and saves audio buffers.
type Codec interface {
	Loader
	Saver
}

// WAVCodec reads and writes PCM WAV natively and falls back to ffmpeg for
// other containers. Without ffmpeg configured only WAV inputs are accepted.
type WAVCodec struct {
	resolver   ffmpegResolver
	transcoder transcoder

	// Injectable dependencies (defaults to OS implementations).
	tempDir tempDirCreator
	files   fileRemover
}

// CodecOption configures a WAVCodec.
type CodecOption func(*WAVCodec)

// WithFFmpeg enables transcoding of non-WAV inputs.
func WithFFmpeg(r ffmpegResolver, t transcoder) CodecOption {
	return func(c *WAVCodec) {
		c.resolver = r
		c.transcoder = t
	}
}

// WithCodecTempDir sets the temp directory creator used for transcoding.
func WithCodecTempDir(t tempDirCreator) CodecOption {
	return func(c *WAVCodec) {
		c.tempDir = t
	}
}

// WithCodecFileRemover sets the file remover used for cleanup.
func WithCodecFileRemover(f fileRemover) CodecOption {
	return func(c *WAVCodec) {
		c.files = f
	}
}

// NewWAVCodec creates a WAVCodec.
func NewWAVCodec(opts ...CodecOption) *WAVCodec {
	c := &WAVCodec{
		tempDir: osTempDirCreator{},
		files:   osFileRemover{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load decodes path into a mono buffer. Multi-channel input is downmixed by
// averaging channels.
func (c *WAVCodec) Load(ctx context.Context, path string) (Buffer, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Buffer{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return Buffer{}, fmt.Errorf("cannot access %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case slices.Contains(nativeExtensions, ext):
		buf, err := readWAVFile(path)
		if errors.Is(err, errNeedsTranscode) && c.resolver != nil {
			return c.transcode(ctx, path)
		}
		if errors.Is(err, errNeedsTranscode) {
			return Buffer{}, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
		}
		return buf, err
	case slices.Contains(transcodeExtensions, ext):
		if c.resolver == nil {
			return Buffer{}, fmt.Errorf("%w: %s requires ffmpeg", ErrUnsupportedFormat, ext)
		}
		return c.transcode(ctx, path)
	default:
		return Buffer{}, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions(), ", "))
	}
}

// transcode converts path to a temporary WAV with ffmpeg and decodes it.
func (c *WAVCodec) transcode(ctx context.Context, path string) (Buffer, error) {
	ffmpegPath, err := c.resolver.Resolve(ctx)
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	tempDir, err := c.tempDir.MkdirTemp("", "vstprep-*")
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = c.files.RemoveAll(tempDir) }() // best-effort cleanup

	out := filepath.Join(tempDir, "decoded.wav")
	if err := c.transcoder.TranscodeToWAV(ctx, ffmpegPath, path, out, transcodeBitDepth); err != nil {
		return Buffer{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	buf, err := readWAVFile(out)
	if err != nil {
		return Buffer{}, fmt.Errorf("decode transcoded %s: %w", path, err)
	}
	return buf, nil
}

// readWAVFile opens and decodes a WAV file.
func readWAVFile(path string) (Buffer, error) {
	f, err := os.Open(path) // #nosec G304 -- path is a user-supplied input file
	if err != nil {
		return Buffer{}, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	buf, err := DecodeWAV(f)
	if err != nil {
		return Buffer{}, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}

// DecodeWAV decodes 16/24/32-bit PCM WAV data into a mono buffer.
func DecodeWAV(r io.ReadSeeker) (Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return Buffer{}, fmt.Errorf("%w: not a valid WAV file", ErrDecode)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return Buffer{}, fmt.Errorf("%w: format tag %d", errNeedsTranscode, d.WavAudioFormat)
	}

	depth := int(d.BitDepth)
	switch depth {
	case 16, 24, 32:
	default:
		return Buffer{}, fmt.Errorf("%w: %d-bit samples", errNeedsTranscode, depth)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if pcm == nil || pcm.Format == nil || pcm.Format.NumChannels < 1 || pcm.Format.SampleRate <= 0 {
		return Buffer{}, fmt.Errorf("%w: missing format chunk", ErrDecode)
	}

	channels := pcm.Format.NumChannels
	frames := len(pcm.Data) / channels
	if frames == 0 {
		return Buffer{}, ErrEmpty
	}

	scale := fullScale(depth) * float64(channels)
	samples := make([]float64, frames)
	for i := range samples {
		var sum int
		for ch := 0; ch < channels; ch++ {
			sum += pcm.Data[i*channels+ch]
		}
		samples[i] = float64(sum) / scale
	}

	return Buffer{
		Samples:    samples,
		SampleRate: pcm.Format.SampleRate,
		BitDepth:   depth,
	}, nil
}

// Save encodes buf as mono PCM WAV at its bit depth.
// On failure the partial file is removed.
func (c *WAVCodec) Save(buf Buffer, path string) error {
	if err := buf.Validate(); err != nil {
		return err
	}

	// #nosec G304 -- output paths are built by the clip writer and normalizer
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		return EncodeWAV(f, buf)
	}()
	if writeErr != nil {
		_ = c.files.Remove(path)
		return fmt.Errorf("write %s: %w", path, writeErr)
	}
	return nil
}

// EncodeWAV writes buf as mono PCM WAV. Samples outside [-1, 1] are clipped.
func EncodeWAV(w io.WriteSeeker, buf Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	depth := buf.bitDepth()

	scale := fullScale(depth)
	lo, hi := -scale, scale-1
	data := make([]int, len(buf.Samples))
	for i, s := range buf.Samples {
		data[i] = int(math.Max(lo, math.Min(hi, math.Round(s*scale))))
	}

	enc := wav.NewEncoder(w, buf.SampleRate, depth, 1, wavFormatPCM)
	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: buf.SampleRate},
		Data:           data,
		SourceBitDepth: depth,
	}
	if err := enc.Write(ib); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// fullScale returns 2^(depth-1), the magnitude of the most negative sample.
// Decoding and encoding share it so PCM survives a round trip unchanged.
func fullScale(depth int) float64 {
	return float64(int64(1) << (depth - 1))
}
