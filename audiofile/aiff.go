package audiofile

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	"github.com/waveforge/dawcore/dawerr"
)

// AIFFWriter emits a big-endian FORM/AIFF container (§4.J): COMM chunk
// with an 80-bit IEEE-754 extended sample rate, SSND chunk, sizes
// patched on Close.
type AIFFWriter struct {
	f              *os.File
	channels       int
	sampleRate     int
	format         SampleFormat
	samplesWritten uint64
	closed         bool
}

// NewAIFFWriter creates path (and any missing parent directories) and
// writes a placeholder header, to be patched by Close. format must be
// PCM16, PCM24, or Float32 (AIFF has no native PCM32 layout here).
func NewAIFFWriter(path string, channels, sampleRate int, format SampleFormat) (*AIFFWriter, error) {
	if channels < 1 || channels > 32 {
		return nil, dawerr.New(dawerr.InvalidParameter, "channel count out of range").With("channels", channels)
	}
	if sampleRate < 8000 || sampleRate > 192000 {
		return nil, dawerr.New(dawerr.InvalidParameter, "sample rate out of range").With("sample_rate", sampleRate)
	}
	if format == PCM32 {
		return nil, dawerr.New(dawerr.FormatUnsupported, "AIFF does not support 32-bit PCM")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, dawerr.Wrap(dawerr.IoError, "create parent directory", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, dawerr.Wrap(dawerr.IoError, "open file for writing", err)
	}
	w := &AIFFWriter{f: f, channels: channels, sampleRate: sampleRate, format: format}
	if err := w.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *AIFFWriter) writeHeader() error {
	bytesPerSample := w.format.bytesPerSample()

	header := make([]byte, 54)
	copy(header[0:4], "FORM")
	binary.BigEndian.PutUint32(header[4:8], 0) // patched on Close
	copy(header[8:12], "AIFF")
	copy(header[12:16], "COMM")
	binary.BigEndian.PutUint32(header[16:20], 18)
	binary.BigEndian.PutUint16(header[20:22], uint16(w.channels))
	binary.BigEndian.PutUint32(header[22:26], 0) // sample frames, patched on Close
	binary.BigEndian.PutUint16(header[26:28], uint16(bytesPerSample*8))
	copy(header[28:38], ieeeExtended80(float64(w.sampleRate)))
	copy(header[38:42], "SSND")
	binary.BigEndian.PutUint32(header[42:46], 8) // patched on Close
	binary.BigEndian.PutUint32(header[46:50], 0) // offset
	binary.BigEndian.PutUint32(header[50:54], 0) // block size

	_, err := w.f.Write(header)
	return err
}

// ieeeExtended80 encodes v as an 80-bit IEEE-754 extended-precision
// value, as required by AIFF's COMM sample-rate field.
func ieeeExtended80(v float64) []byte {
	out := make([]byte, 10)
	if v == 0 {
		return out
	}
	negative := v < 0
	if negative {
		v = -v
	}
	mantissa, exponent := math.Frexp(v)
	biasedExp := exponent + 16382

	out[0] = byte(biasedExp >> 8)
	if negative {
		out[0] |= 0x80
	}
	out[1] = byte(biasedExp)

	mantissaInt := uint64((mantissa-0.5)*(1<<64)) | (1 << 63)
	for i := 0; i < 8; i++ {
		out[9-i] = byte(mantissaInt)
		mantissaInt >>= 8
	}
	return out
}

// WriteSamples appends num_frames of interleaved, channel-order samples
// (one float64 per channel per frame, clipped to [-1, 1] before
// quantization), big-endian.
func (w *AIFFWriter) WriteSamples(interleaved []float64, nFrames int) error {
	buf := make([]byte, nFrames*w.channels*w.format.bytesPerSample())
	pos := 0
	for i := 0; i < nFrames*w.channels; i++ {
		v := clip(interleaved[i])
		switch w.format {
		case PCM16:
			iv := int16(v * 32767.0)
			binary.BigEndian.PutUint16(buf[pos:], uint16(iv))
			pos += 2
		case PCM24:
			iv := int32(v * 8388607.0)
			buf[pos] = byte(iv >> 16)
			buf[pos+1] = byte(iv >> 8)
			buf[pos+2] = byte(iv)
			pos += 3
		case Float32:
			binary.BigEndian.PutUint32(buf[pos:], math.Float32bits(float32(v)))
			pos += 4
		}
	}
	if _, err := w.f.Write(buf); err != nil {
		return dawerr.Wrap(dawerr.IoError, "write samples", err)
	}
	w.samplesWritten += uint64(nFrames)
	return nil
}

// Close patches the FORM/COMM/SSND sizes and closes the file.
// Idempotent: calling Close more than once is a no-op.
func (w *AIFFWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	dataSize := w.samplesWritten * uint64(w.channels) * uint64(w.format.bytesPerSample())
	soundChunkSize := dataSize + 8 // SSND data: offset(4) + blockSize(4) + audio data
	// FORM's size field covers everything after the FORM id+size: "AIFF"(4) +
	// COMM header(8) + COMM data(18) + SSND header(8) + SSND data.
	fileSize := soundChunkSize + 4 + 8 + 18 + 8

	patches := []struct {
		offset int64
		value  uint32
	}{
		{4, clampUint32(fileSize)},
		{22, clampUint32(w.samplesWritten)},
		{42, clampUint32(soundChunkSize)},
	}
	for _, p := range patches {
		if _, err := w.f.Seek(p.offset, 0); err != nil {
			w.f.Close()
			return dawerr.Wrap(dawerr.IoError, "seek to patch offset", err)
		}
		var sz [4]byte
		binary.BigEndian.PutUint32(sz[:], p.value)
		if _, err := w.f.Write(sz[:]); err != nil {
			w.f.Close()
			return dawerr.Wrap(dawerr.IoError, "patch chunk size", err)
		}
	}

	return w.f.Close()
}

// FileSizeBytes returns the writer's current on-disk size estimate.
func (w *AIFFWriter) FileSizeBytes() uint64 {
	return 54 + w.samplesWritten*uint64(w.channels)*uint64(w.format.bytesPerSample())
}
