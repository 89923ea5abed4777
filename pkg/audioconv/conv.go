// Package audioconv converts captured PCM into the formats the speech
// engines consume.
package audioconv

import (
	"fmt"
	"math"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV stores mono float32 PCM as a 16-bit WAV file. The cloud
// transcriber uploads these; they are also handy for debugging capture.
func WriteWAV(path string, pcm []float32, sampleRate int) error {
	if len(pcm) == 0 {
		return fmt.Errorf("no samples")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           toInt16Samples(pcm),
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}

func toInt16Samples(pcm []float32) []int {
	out := make([]int, len(pcm))
	for i, s := range pcm {
		v := math.Round(float64(s) * math.MaxInt16)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int(v)
	}
	return out
}
