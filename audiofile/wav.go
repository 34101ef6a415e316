// Package audiofile implements the bit-exact WAV and AIFF container
// writers (§4.J): parent directory creation, clipping to [-1, 1] ahead
// of quantization, and header sizes patched on close.
package audiofile

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	"github.com/waveforge/dawcore/dawerr"
)

// SampleFormat selects the PCM/float encoding a writer emits.
type SampleFormat int

const (
	PCM16 SampleFormat = iota
	PCM24
	PCM32
	Float32
)

func (f SampleFormat) bytesPerSample() int {
	switch f {
	case PCM16:
		return 2
	case PCM24:
		return 3
	case PCM32, Float32:
		return 4
	default:
		return 2
	}
}

func clip(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// WAVWriter emits a little-endian RIFF/WAVE container (§4.J): 44-byte
// header (fmt chunk size 16), patched RIFF/data sizes on Close.
type WAVWriter struct {
	f              *os.File
	channels       int
	sampleRate     int
	format         SampleFormat
	samplesWritten uint64
	closed         bool
}

// NewWAVWriter creates path (and any missing parent directories) and
// writes a placeholder header, to be patched by Close.
func NewWAVWriter(path string, channels, sampleRate int, format SampleFormat) (*WAVWriter, error) {
	if channels < 1 || channels > 32 {
		return nil, dawerr.New(dawerr.InvalidParameter, "channel count out of range").With("channels", channels)
	}
	if sampleRate < 8000 || sampleRate > 192000 {
		return nil, dawerr.New(dawerr.InvalidParameter, "sample rate out of range").With("sample_rate", sampleRate)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, dawerr.Wrap(dawerr.IoError, "create parent directory", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, dawerr.Wrap(dawerr.IoError, "open file for writing", err)
	}
	w := &WAVWriter{f: f, channels: channels, sampleRate: sampleRate, format: format}
	if err := w.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *WAVWriter) writeHeader() error {
	bytesPerSample := w.format.bytesPerSample()
	blockAlign := uint16(w.channels * bytesPerSample)
	byteRate := uint32(w.sampleRate) * uint32(blockAlign)
	audioFormat := uint16(1)
	if w.format == Float32 {
		audioFormat = 3
	}

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 0) // patched on Close
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], audioFormat)
	binary.LittleEndian.PutUint16(header[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], uint16(bytesPerSample*8))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], 0) // patched on Close

	_, err := w.f.Write(header)
	return err
}

// WriteSamples appends num_frames of interleaved, channel-order samples
// (one float64 per channel per frame, clipped to [-1, 1] before
// quantization).
func (w *WAVWriter) WriteSamples(interleaved []float64, nFrames int) error {
	buf := make([]byte, nFrames*w.channels*w.format.bytesPerSample())
	pos := 0
	for i := 0; i < nFrames*w.channels; i++ {
		v := clip(interleaved[i])
		switch w.format {
		case PCM16:
			iv := int16(v * 32767.0)
			binary.LittleEndian.PutUint16(buf[pos:], uint16(iv))
			pos += 2
		case PCM24:
			iv := int32(v * 8388607.0)
			buf[pos] = byte(iv)
			buf[pos+1] = byte(iv >> 8)
			buf[pos+2] = byte(iv >> 16)
			pos += 3
		case PCM32:
			iv := int32(v * 2147483647.0)
			binary.LittleEndian.PutUint32(buf[pos:], uint32(iv))
			pos += 4
		case Float32:
			binary.LittleEndian.PutUint32(buf[pos:], math.Float32bits(float32(v)))
			pos += 4
		}
	}
	if _, err := w.f.Write(buf); err != nil {
		return dawerr.Wrap(dawerr.IoError, "write samples", err)
	}
	w.samplesWritten += uint64(nFrames)
	return nil
}

// Close patches the RIFF and data chunk sizes and closes the file.
// Idempotent: calling Close more than once is a no-op.
func (w *WAVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	dataSize := w.samplesWritten * uint64(w.channels) * uint64(w.format.bytesPerSample())
	fileSize := dataSize + 36

	if _, err := w.f.Seek(4, 0); err != nil {
		w.f.Close()
		return dawerr.Wrap(dawerr.IoError, "seek to riff size", err)
	}
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], clampUint32(fileSize))
	if _, err := w.f.Write(sz[:]); err != nil {
		w.f.Close()
		return dawerr.Wrap(dawerr.IoError, "patch riff size", err)
	}

	if _, err := w.f.Seek(40, 0); err != nil {
		w.f.Close()
		return dawerr.Wrap(dawerr.IoError, "seek to data size", err)
	}
	binary.LittleEndian.PutUint32(sz[:], clampUint32(dataSize))
	if _, err := w.f.Write(sz[:]); err != nil {
		w.f.Close()
		return dawerr.Wrap(dawerr.IoError, "patch data size", err)
	}

	return w.f.Close()
}

// FileSizeBytes returns the writer's current on-disk size estimate.
func (w *WAVWriter) FileSizeBytes() uint64 {
	return 44 + w.samplesWritten*uint64(w.channels)*uint64(w.format.bytesPerSample())
}

func clampUint32(v uint64) uint32 {
	if v > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(v)
}
