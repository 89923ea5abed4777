// Package ai owns the conversation with the external opencode tool: one
// session per daemon instance, at most one request in flight, explicit
// cancel and reset.
package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	log "log/slog"
)

type Status int

const (
	StatusOK Status = iota
	StatusTimeout
	StatusUnavailable
	StatusBusy
	StatusCancelled
	StatusError
)

// Result is the outcome of one Send. Text is always non-empty and safe
// to display or speak. Warning carries a non-fatal notice (e.g. the new
// session id could not be discovered).
type Result struct {
	Status    Status
	Text      string
	SessionID string
	Warning   string
}

// ContinueMode selects how follow-up queries reference the conversation.
type ContinueMode string

const (
	// ContinueBySession passes the stored id: `run --session <id>`.
	ContinueBySession ContinueMode = "session"
	// ContinueMostRecent relies on the tool's own notion of the latest
	// conversation: `run --continue`.
	ContinueMostRecent ContinueMode = "recent"
)

const (
	DefaultTimeout = 120 * time.Second
	DefaultAgent   = "darvis"

	// How long Cancel waits for a graceful exit before force-killing.
	cancelGrace = 2 * time.Second
	// Timeout for the session-listing call after a new session.
	listTimeout = 10 * time.Second
)

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	Command  string // opencode binary; resolved against PATH when bare
	Agent    string
	Timeout  time.Duration
	Continue ContinueMode
}

// Manager runs opencode queries. All methods are safe for concurrent
// use; Send blocks up to the configured timeout and must be called off
// any UI loop.
type Manager struct {
	command  string
	agent    string
	timeout  time.Duration
	contMode ContinueMode

	mu        sync.Mutex
	sessionID string
	inflight  *request
}

type request struct {
	cmd       *exec.Cmd
	cancelled bool
}

func NewManager(opts Options) *Manager {
	if opts.Command == "" {
		opts.Command = lookupCommand()
	}
	if opts.Agent == "" {
		opts.Agent = DefaultAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Continue == "" {
		opts.Continue = ContinueBySession
	}
	return &Manager{
		command:  opts.Command,
		agent:    opts.Agent,
		timeout:  opts.Timeout,
		contMode: opts.Continue,
	}
}

// lookupCommand prefers PATH, then the installer's home location.
func lookupCommand() string {
	if _, err := exec.LookPath("opencode"); err == nil {
		return "opencode"
	}
	home, err := os.UserHomeDir()
	if err == nil {
		candidate := home + "/.opencode/bin/opencode"
		if info, err := os.Stat(candidate); err == nil && info.Mode()&0o111 != 0 {
			return candidate
		}
	}
	return "opencode"
}

// SessionID returns the current session id, empty when no session has
// been established yet.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Send runs one query against opencode. The first successful call
// establishes the session; later calls continue it. A second Send while
// one is in flight returns StatusBusy without touching the running
// request.
func (m *Manager) Send(ctx context.Context, query string) Result {
	m.mu.Lock()
	if m.inflight != nil {
		m.mu.Unlock()
		return Result{Status: StatusBusy, Text: "Still working on the previous request"}
	}

	newSession := m.sessionID == ""
	args := m.buildArgsLocked(query)
	sessionID := m.sessionID

	cmd := exec.Command(m.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		m.mu.Unlock()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return Result{Status: StatusUnavailable, Text: "AI assistance not available"}
		}
		return Result{Status: StatusError, Text: "AI error: " + err.Error()}
	}

	req := &request{cmd: cmd}
	m.inflight = req
	m.mu.Unlock()

	log.Debug("opencode started", "args", args, "pid", cmd.Process.Pid)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-timer.C:
		cmd.Process.Kill()
		<-done
		m.clearInflight(req)
		return Result{Status: StatusTimeout, Text: "AI query timed out", SessionID: sessionID}
	case <-ctx.Done():
		cmd.Process.Kill()
		<-done
		m.clearInflight(req)
		return Result{Status: StatusCancelled, Text: "AI request cancelled", SessionID: sessionID}
	}

	cancelled := m.clearInflight(req)
	if cancelled {
		return Result{Status: StatusCancelled, Text: "AI request cancelled", SessionID: sessionID}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return Result{Status: StatusError, Text: "AI error: " + waitErr.Error(), SessionID: sessionID}
		}
		// Nonzero exit still carries usable stdout; fall through.
		log.Debug("opencode exited nonzero", "code", exitErr.ExitCode(), "stderr", strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		text = "No response"
	}

	result := Result{Status: StatusOK, Text: text, SessionID: sessionID}
	if newSession {
		id, err := m.discoverSession()
		if err != nil || id == "" {
			log.Warn("session id discovery failed", "err", err)
			result.Warning = "Could not retrieve session ID"
		} else {
			m.mu.Lock()
			m.sessionID = id
			m.mu.Unlock()
			result.SessionID = id
		}
	}
	return result
}

// buildArgsLocked composes the opencode argv. The caller holds m.mu.
func (m *Manager) buildArgsLocked(query string) []string {
	if m.sessionID == "" {
		return []string{"run", "--agent", m.agent, query}
	}
	switch m.contMode {
	case ContinueMostRecent:
		return []string{"run", "--continue", query}
	default:
		// Tag the query so the continuation stays with our agent.
		return []string{"run", "--session", m.sessionID, "@" + m.agent + " " + query}
	}
}

// clearInflight detaches req if it is still the active request and
// reports whether it had been cancelled.
func (m *Manager) clearInflight(req *request) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancelled := req.cancelled
	if m.inflight == req {
		m.inflight = nil
	}
	return cancelled
}

// Cancel terminates the in-flight request, if any. Graceful SIGTERM
// first, SIGKILL after a short grace period. Returns false when nothing
// was running. Safe to call while Send completes naturally.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	req := m.inflight
	if req == nil {
		m.mu.Unlock()
		return false
	}
	req.cancelled = true
	m.mu.Unlock()

	proc := req.cmd.Process
	if proc == nil {
		return false
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		// Already gone.
		return true
	}

	// Send's goroutine owns cmd.Wait; poll until it reaps the child,
	// then force-kill if the grace period runs out.
	deadline := time.Now().Add(cancelGrace)
	for time.Now().Before(deadline) {
		if proc.Signal(syscall.Signal(0)) != nil {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	proc.Kill()
	return true
}

// Reset cancels any running request and forgets the session id so the
// next Send starts a fresh conversation. Idempotent.
func (m *Manager) Reset() {
	m.Cancel()
	m.mu.Lock()
	m.sessionID = ""
	m.mu.Unlock()
}

// discoverSession asks opencode for its most recent session id.
func (m *Manager) discoverSession() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, m.command, "session", "list").Output()
	if err != nil {
		return "", fmt.Errorf("opencode session list: %w", err)
	}
	return parseSessionList(string(out)), nil
}

// parseSessionList extracts the newest session id from `opencode session
// list` output: a header line, a separator line, then data lines ordered
// most-recent-first. The id is the first whitespace-delimited token of
// the first data line.
func parseSessionList(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 3 {
		return ""
	}
	first := strings.TrimSpace(lines[2])
	if first == "" || strings.HasPrefix(first, "─") {
		return ""
	}
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
