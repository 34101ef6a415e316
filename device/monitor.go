// Package device streams a mixer graph's master bus to a live audio
// output device, the real-time-callback collaborator the bus graph's
// ProcessPass is designed to be driven from.
package device

import (
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"

	"github.com/waveforge/dawcore/dawerr"
	"github.com/waveforge/dawcore/mixer"
)

// Monitor streams a mixer.Manager's master bus output to the system's
// default audio output device in real time.
type Monitor struct {
	manager  *mixer.Manager
	channels int
	stream   *portaudio.Stream

	mu       sync.Mutex
	position int64

	Logger *log.Logger
}

// NewMonitor opens (but does not start) a playback stream against the
// default output device, driven by manager's master bus at sampleRate.
func NewMonitor(manager *mixer.Manager, sampleRate float64, framesPerBuffer int) (*Monitor, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, dawerr.Wrap(dawerr.IoError, "initialize portaudio", err)
	}

	m := &Monitor{
		manager:  manager,
		channels: manager.MasterBus().Channels,
		Logger:   log.New(os.Stderr),
	}
	m.Logger.SetPrefix("device")

	stream, err := portaudio.OpenDefaultStream(0, m.channels, sampleRate, framesPerBuffer, m.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, dawerr.Wrap(dawerr.IoError, "open output stream", err)
	}
	m.stream = stream
	return m, nil
}

// callback is the audio-thread entry point PortAudio invokes directly;
// it must not allocate beyond what ProcessPass's own scratch buffers do.
func (m *Monitor) callback(out []float32) {
	m.mu.Lock()
	position := m.position
	m.position += int64(len(out) / m.channels)
	m.mu.Unlock()

	fillBuffer(m.manager, m.channels, position, out)
}

// fillBuffer drives one block through manager and writes it
// channel-interleaved into out, matching PortAudio's callback layout.
// Factored out of Monitor.callback so it can be exercised without a
// real audio device.
func fillBuffer(manager *mixer.Manager, channels int, blockStartSamples int64, out []float32) {
	if channels == 0 {
		return
	}
	nFrames := len(out) / channels
	buf := manager.ProcessPass(nil, blockStartSamples, nFrames)
	for f := 0; f < nFrames; f++ {
		for c := 0; c < channels; c++ {
			out[f*channels+c] = buf.At(c, f)
		}
	}
}

// Start begins streaming to the output device.
func (m *Monitor) Start() error {
	if err := m.stream.Start(); err != nil {
		return dawerr.Wrap(dawerr.IoError, "start output stream", err)
	}
	m.Logger.Info("monitor started")
	return nil
}

// Stop halts streaming without releasing the device.
func (m *Monitor) Stop() error {
	if err := m.stream.Stop(); err != nil {
		return dawerr.Wrap(dawerr.IoError, "stop output stream", err)
	}
	m.Logger.Info("monitor stopped")
	return nil
}

// Close releases the stream and the PortAudio runtime.
func (m *Monitor) Close() error {
	err := m.stream.Close()
	portaudio.Terminate()
	if err != nil {
		return dawerr.Wrap(dawerr.IoError, "close output stream", err)
	}
	return nil
}
