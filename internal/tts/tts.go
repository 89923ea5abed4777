// Package tts speaks text through the system speech engine. Synthesis
// is delegated entirely to an external program; failures are logged and
// swallowed since the text is always shown elsewhere too.
package tts

import (
	"os/exec"
	"runtime"

	log "log/slog"
)

// Speak voices text synchronously. Empty text is a no-op.
func Speak(text string) {
	if text == "" {
		return
	}

	name, args := engine()
	if name == "" {
		log.Debug("no speech engine found")
		return
	}

	if err := exec.Command(name, append(args, text)...).Run(); err != nil {
		log.Debug("speech failed", "engine", name, "err", err)
	}
}

func engine() (string, []string) {
	if runtime.GOOS == "darwin" {
		return "say", nil
	}
	for _, candidate := range []string{"espeak-ng", "espeak", "spd-say"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}
