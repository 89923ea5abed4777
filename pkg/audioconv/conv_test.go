package audioconv

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWriteWAVRoundTrip(t *testing.T) {
	pcm := make([]float32, 160)
	for i := range pcm {
		pcm[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 16000))
	}

	path := filepath.Join(t.TempDir(), "capture.wav")
	if err := WriteWAV(path, pcm, 16000); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if int(dec.SampleRate) != 16000 {
		t.Fatalf("sample rate = %d", dec.SampleRate)
	}
	if int(dec.NumChans) != 1 {
		t.Fatalf("channels = %d", dec.NumChans)
	}
	if len(buf.Data) != len(pcm) {
		t.Fatalf("samples = %d, want %d", len(buf.Data), len(pcm))
	}
}

func TestWriteWAVRejectsEmptyInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	if err := WriteWAV(path, nil, 16000); err == nil {
		t.Fatal("expected an error for empty PCM")
	}
}

func TestToInt16SamplesClamps(t *testing.T) {
	got := toInt16Samples([]float32{0, 1, -1, 2, -2, 0.5})
	want := []int{0, math.MaxInt16, -math.MaxInt16, math.MaxInt16, math.MinInt16, 16384}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}
