package audio

import "testing"

const pactlListing = `Sink Input #42
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"

Sink Input #43
	Driver: protocol-native.c
	Volume: front-left: 32768 / 50% / -18.06 dB
	Properties:
		application.name = "darvis"

Sink Input #44
	Driver: protocol-native.c
	Properties:
		application.name = "mystery"
`

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(pactlListing)

	// #44 carries no volume line and must be dropped.
	if len(got) != 2 {
		t.Fatalf("parsed %d inputs, want 2: %+v", len(got), got)
	}
	if got[0].id != 42 || got[0].volume != 100 || got[0].appName != "Firefox" {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].id != 43 || got[1].volume != 50 || got[1].appName != "darvis" {
		t.Fatalf("second = %+v", got[1])
	}
}

func TestParseSinkInputsEmpty(t *testing.T) {
	if got := parseSinkInputs(""); len(got) != 0 {
		t.Fatalf("parsed %d inputs from empty output", len(got))
	}
}

func TestDuckerSkipsSelf(t *testing.T) {
	d := NewDucker([]string{"darvis"}, 0.3)
	if !d.isSelf(sinkInput{appName: "Darvis TTS"}) {
		t.Fatal("own stream not recognized")
	}
	if d.isSelf(sinkInput{appName: "Firefox"}) {
		t.Fatal("foreign stream misclassified as self")
	}
}

func TestNewDuckerClampsFactor(t *testing.T) {
	for _, bad := range []float64{-1, 0, 1, 3} {
		d := NewDucker(nil, bad)
		if d.duckFactor != 0.3 {
			t.Fatalf("factor %v -> %v, want default 0.3", bad, d.duckFactor)
		}
	}
}
