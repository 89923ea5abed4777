// Package apps launches desktop applications and web services. Launches
// are fire-and-forget process spawns; the only waiting done here is the
// PATH probing needed to pick a command.
package apps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

type Status int

const (
	// Launched means the target was started (or handed to the OS opener).
	Launched Status = iota
	// NotFound means no launchable command exists for the target.
	NotFound
	// Failed means a command was found but spawning it failed.
	Failed
)

// Result is the typed outcome of a launch attempt. Message is display
// text only; callers branch on Status.
type Result struct {
	Status  Status
	Message string
}

// DefaultWebServices maps service names to URLs opened in the browser.
var DefaultWebServices = map[string]string{
	"youtube": "https://youtube.com",
	"google":  "https://google.com",
	"gmail":   "https://gmail.com",
	"github":  "https://github.com",
	"netflix": "https://netflix.com",
	"spotify": "https://spotify.com",
}

// Command variations tried for common spoken app names.
var appTable = map[string][]string{
	"chrome":         {"chromium", "google-chrome", "chrome"},
	"browser":        {"firefox", "chromium", "chrome"},
	"firefox":        {"firefox"},
	"chromium":       {"chromium"},
	"terminal":       {"xterm", "gnome-terminal", "konsole", "terminator", "alacritty"},
	"editor":         {"gedit", "kate", "mousepad", "nano", "vim", "code"},
	"calculator":     {"galculator", "gnome-calculator", "kcalc", "speedcrunch"},
	"settings":       {"gnome-control-center", "systemsettings"},
	"volume control": {"pavucontrol", "alsamixer"},
	"bluetooth":      {"blueman-manager"},
	"discord":        {"discord", "discord-canary"},
	"signal":         {"signal-desktop", "signal"},
	"slack":          {"slack"},
	"spotify":        {"spotify"},
	"vlc":            {"vlc"},
	"code":           {"code", "vscode"},
	"telegram":       {"telegram-desktop", "telegram"},
	"gimp":           {"gimp"},
	"steam":          {"steam"},
	"thunderbird":    {"thunderbird"},
	"libreoffice":    {"libreoffice", "lowriter"},
}

var desktopDirs = []string{
	"/usr/share/applications",
	"/usr/local/share/applications",
	filepath.Join(os.Getenv("HOME"), ".local/share/applications"),
	"/var/lib/snapd/desktop/applications",
}

// Launcher opens applications and web services.
type Launcher struct {
	WebServices map[string]string
}

func NewLauncher(webServices map[string]string) *Launcher {
	if len(webServices) == 0 {
		webServices = DefaultWebServices
	}
	return &Launcher{WebServices: webServices}
}

// Open launches the named application or web service.
func (l *Launcher) Open(name string) Result {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return Result{Status: NotFound, Message: "Nothing to open"}
	}

	if url, ok := l.WebServices[lower]; ok {
		return openURL(name, url)
	}

	command := findCommand(lower)
	if command == "" {
		return Result{
			Status:  NotFound,
			Message: fmt.Sprintf("'%s' is not installed or not found on this system", name),
		}
	}

	if err := spawn(command); err != nil {
		return Result{
			Status:  Failed,
			Message: fmt.Sprintf("Error launching %s: %v", name, err),
		}
	}
	return Result{Status: Launched, Message: "Opening " + name}
}

func openURL(name, url string) Result {
	opener := "xdg-open"
	if runtime.GOOS == "darwin" {
		opener = "open"
	}

	if err := spawn(opener, url); err != nil {
		// No opener available; try browsers directly.
		for _, browser := range []string{"firefox", "chromium", "google-chrome"} {
			if spawn(browser, url) == nil {
				return Result{Status: Launched, Message: fmt.Sprintf("Opening %s in %s", name, browser)}
			}
		}
		return Result{
			Status:  NotFound,
			Message: fmt.Sprintf("Couldn't find a way to open %s", name),
		}
	}
	return Result{Status: Launched, Message: "Opening " + name}
}

// findCommand resolves a spoken app name to an executable: the variation
// table first, then .desktop files, then PATH with common suffixes.
func findCommand(lower string) string {
	if variants, ok := appTable[lower]; ok {
		for _, v := range variants {
			if _, err := exec.LookPath(v); err == nil {
				return v
			}
		}
	}

	if runtime.GOOS == "linux" {
		if cmd := findDesktopCommand(lower); cmd != "" {
			return cmd
		}
	}

	for _, candidate := range []string{
		lower,
		lower + "-desktop",
		strings.ReplaceAll(lower, " ", "-"),
		strings.ReplaceAll(lower, " ", ""),
	} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

func findDesktopCommand(lower string) string {
	patterns := []string{
		lower + ".desktop",
		strings.ReplaceAll(lower, " ", "-") + ".desktop",
		"*" + lower + "*.desktop",
	}

	for _, dir := range desktopDirs {
		for _, pattern := range patterns {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				continue
			}
			for _, match := range matches {
				cmd := parseDesktopExec(match)
				if cmd == "" {
					continue
				}
				if _, err := exec.LookPath(cmd); err == nil {
					return cmd
				}
			}
		}
	}
	return ""
}

// parseDesktopExec extracts the bare command from a .desktop file's Exec
// line, dropping arguments and %-field codes.
func parseDesktopExec(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if value, ok := strings.CutPrefix(line, "Exec="); ok {
			fields := strings.Fields(strings.TrimSpace(value))
			if len(fields) == 0 {
				return ""
			}
			return fields[0]
		}
	}
	return ""
}

func spawn(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the child in the background so it doesn't zombie.
	go cmd.Wait()
	return nil
}
