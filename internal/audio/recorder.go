package audio

import (
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	// Capture format expected by both transcription engines.
	SampleRate = 16000

	frameSize = 320 // 20ms at 16kHz
)

// Recorder captures mono 16kHz PCM from the default input device.
type Recorder struct {
	// SilenceRMS is the frame RMS below which the input counts as
	// silence once the speaker has started.
	SilenceRMS float64
	// SilenceHold is how long silence must last before capture stops.
	SilenceHold time.Duration
	// MaxDuration caps one capture.
	MaxDuration time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{
		SilenceRMS:  0.015,
		SilenceHold: 600 * time.Millisecond,
		MaxDuration: 10 * time.Second,
	}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record captures until the speaker falls silent for SilenceHold, or
// MaxDuration passes. Leading silence before any speech is discarded.
func (r *Recorder) Record() ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)
	frameDur := time.Duration(frameSize) * time.Second / SampleRate
	maxFrames := int(r.MaxDuration / frameDur)

	for i := 0; i < maxFrames; i++ {
		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > r.SilenceRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}
		if !speaking {
			continue
		}
		silenceFrames++
		if time.Duration(silenceFrames)*frameDur >= r.SilenceHold {
			break
		}
		out = append(out, buf...)
	}

	if len(out) == 0 {
		return nil, errors.New("no speech captured")
	}
	return out, nil
}

// RecordWindow captures a fixed-length window regardless of silence.
// The wake-word loop uses it for its rolling listen chunks.
func (r *Recorder) RecordWindow(d time.Duration) ([]float32, error) {
	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	frameDur := time.Duration(frameSize) * time.Second / SampleRate
	frames := int(d / frameDur)
	out := make([]float32, 0, frames*frameSize)

	for i := 0; i < frames; i++ {
		if err := stream.Read(); err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
