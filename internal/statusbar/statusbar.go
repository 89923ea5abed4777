// Package statusbar pushes assistant state to a waybar custom module
// through a FIFO pipe. Everything here degrades to a no-op when waybar
// is not around.
package statusbar

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"

	log "log/slog"
)

// payload is the JSON waybar expects from a custom module.
type payload struct {
	Text    string `json:"text"`
	Class   string `json:"class"`
	Tooltip string `json:"tooltip,omitempty"`
}

var statusMap = map[string]payload{
	"idle":       {Text: "🤖", Class: "idle"},
	"listening":  {Text: "🎤", Class: "listening"},
	"processing": {Text: "⚙️", Class: "processing"},
	"thinking":   {Text: "🧠", Class: "thinking"},
	"speaking":   {Text: "🔊", Class: "speaking"},
	"success":    {Text: "✅", Class: "success"},
	"error":      {Text: "❌", Class: "error"},
	"warning":    {Text: "⚠️", Class: "warning"},
}

// Waybar writes status updates to the FIFO. The zero-value-ish disabled
// state satisfies the router's Sink without side effects.
type Waybar struct {
	path    string
	enabled bool
}

// Setup creates the FIFO under ~/.cache/darvis when running on Linux
// with a live waybar process. Returns a disabled sink otherwise.
func Setup() *Waybar {
	if runtime.GOOS != "linux" || !waybarRunning() {
		return &Waybar{}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return &Waybar{}
	}
	dir := filepath.Join(home, ".cache", "darvis")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("statusbar cache dir", "err", err)
		return &Waybar{}
	}

	path := filepath.Join(dir, "status.fifo")
	if err := syscall.Mkfifo(path, 0o644); err != nil && !os.IsExist(err) {
		log.Warn("statusbar mkfifo", "err", err)
		return &Waybar{}
	}

	w := &Waybar{path: path, enabled: true}
	w.Update("idle", "Ready")
	return w
}

func waybarRunning() bool {
	return exec.Command("pgrep", "-x", "waybar").Run() == nil
}

// Update sends one status to waybar. Unknown statuses are ignored, and
// a missing reader on the FIFO just drops the update.
func (w *Waybar) Update(status, tooltip string) {
	if !w.enabled {
		return
	}
	data, ok := render(status, tooltip)
	if !ok {
		return
	}

	// O_NONBLOCK so a FIFO with no reader fails with ENXIO instead of
	// hanging the caller.
	f, err := os.OpenFile(w.path, os.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(append(data, '\n'))
}

// Close removes the FIFO.
func (w *Waybar) Close() {
	if w.enabled {
		os.Remove(w.path)
	}
}

func render(status, tooltip string) ([]byte, bool) {
	p, ok := statusMap[status]
	if !ok {
		return nil, false
	}
	if tooltip != "" {
		p.Tooltip = "Darvis: " + tooltip
	} else {
		p.Tooltip = "Darvis: " + status
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, false
	}
	return data, true
}
