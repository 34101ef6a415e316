package audiofile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readWAVSamplesPCM24(t *testing.T, path string, channels int) []float64 {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	payload := data[44 : 44+dataSize]
	n := int(dataSize) / 3
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		b := payload[i*3 : i*3+3]
		iv := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		iv = (iv << 8) >> 8 // sign-extend from 24 to 32 bits
		out[i] = float64(iv) / 8388607.0
	}
	return out
}

func TestWAVWriterRoundTripPCM24WithinOneLSB(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.wav")

	w, err := NewWAVWriter(path, 1, 44100, PCM24)
	require.NoError(t, err)

	input := []float64{0.0, 0.5, -0.5, 1.0, -1.0, 0.25, -0.999}
	require.NoError(t, w.WriteSamples(input, len(input)))
	require.NoError(t, w.Close())

	got := readWAVSamplesPCM24(t, path, 1)
	require.Len(t, got, len(input))
	const lsb = 1.0 / 8388607.0
	for i := range input {
		assert.InDelta(t, input[i], got[i], lsb*1.5)
	}
}

func TestWAVWriterHeaderFieldsMatchFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	w, err := NewWAVWriter(path, 2, 48000, PCM16)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, 1, binary.LittleEndian.Uint16(data[20:22])) // PCM
	assert.EqualValues(t, 2, binary.LittleEndian.Uint16(data[22:24]))
	assert.EqualValues(t, 48000, binary.LittleEndian.Uint32(data[24:28]))
	assert.EqualValues(t, 16, binary.LittleEndian.Uint16(data[34:36]))
	assert.EqualValues(t, 0, binary.LittleEndian.Uint32(data[40:44]))
}

func TestWAVWriterCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")
	w, err := NewWAVWriter(path, 1, 44100, PCM16)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWAVWriterRejectsInvalidChannelCount(t *testing.T) {
	dir := t.TempDir()
	_, err := NewWAVWriter(filepath.Join(dir, "out.wav"), 0, 44100, PCM16)
	assert.Error(t, err)
}

func TestWAVWriterClipsOutOfRangeSamples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")
	w, err := NewWAVWriter(path, 1, 44100, PCM16)
	require.NoError(t, err)
	require.NoError(t, w.WriteSamples([]float64{2.0, -3.0}, 2))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	payload := data[44:]
	first := int16(binary.LittleEndian.Uint16(payload[0:2]))
	second := int16(binary.LittleEndian.Uint16(payload[2:4]))
	assert.Equal(t, int16(32767), first)
	assert.Equal(t, int16(-32767), second)
}
