package ai

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeStub installs a fake opencode binary in dir and returns its path.
// The script appends its argv to argv.log next to itself.
func writeStub(t *testing.T, dir, body string) string {
	t.Helper()
	script := "#!/bin/sh\n" +
		"dir=$(dirname \"$0\")\n" +
		"echo \"$@\" >> \"$dir/argv.log\"\n" +
		body
	path := filepath.Join(dir, "opencode")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func readArgvLog(t *testing.T, dir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "argv.log"))
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

const sessionListBody = `if [ "$1" = "session" ]; then
  echo "ID          TITLE"
  echo "----------  -----"
  echo "ses_abc123  first conversation"
  exit 0
fi
`

func TestSendNewSessionThenContinue(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, sessionListBody+"echo \"the answer\"\n")

	m := NewManager(Options{Command: stub, Timeout: 5 * time.Second})

	res := m.Send(context.Background(), "what is 2+2")
	if res.Status != StatusOK {
		t.Fatalf("status = %v, want OK (%q)", res.Status, res.Text)
	}
	if res.Text != "the answer" {
		t.Fatalf("text = %q", res.Text)
	}
	if res.SessionID != "ses_abc123" {
		t.Fatalf("session id = %q, want ses_abc123", res.SessionID)
	}
	if res.Warning != "" {
		t.Fatalf("unexpected warning %q", res.Warning)
	}

	res = m.Send(context.Background(), "and 3+3")
	if res.Status != StatusOK {
		t.Fatalf("second status = %v", res.Status)
	}
	if res.SessionID != "ses_abc123" {
		t.Fatalf("second session id = %q", res.SessionID)
	}

	lines := readArgvLog(t, dir)
	if want := "run --agent darvis what is 2+2"; lines[0] != want {
		t.Fatalf("first call argv = %q, want %q", lines[0], want)
	}
	if want := "session list"; lines[1] != want {
		t.Fatalf("second call argv = %q, want %q", lines[1], want)
	}
	if want := "run --session ses_abc123 @darvis and 3+3"; lines[2] != want {
		t.Fatalf("third call argv = %q, want %q", lines[2], want)
	}
	// No second discovery once the session is established.
	if len(lines) != 3 {
		t.Fatalf("argv log has %d entries, want 3: %v", len(lines), lines)
	}
}

// Send composes the argv while already holding the manager lock; guard
// against it ever blocking on its own state again.
func TestSendResolvesOnBothSessionPaths(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, sessionListBody+"echo ok\n")

	m := NewManager(Options{Command: stub, Timeout: 5 * time.Second})

	for _, query := range []string{"fresh conversation", "follow-up"} {
		done := make(chan Result, 1)
		go func() { done <- m.Send(context.Background(), query) }()

		select {
		case res := <-done:
			if res.Status != StatusOK {
				t.Fatalf("Send(%q) status = %v (%q)", query, res.Status, res.Text)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("Send(%q) never returned", query)
		}
	}
}

func TestSendContinueMostRecent(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, sessionListBody+"echo ok\n")

	m := NewManager(Options{Command: stub, Timeout: 5 * time.Second, Continue: ContinueMostRecent})

	m.Send(context.Background(), "first")
	m.Send(context.Background(), "second")

	lines := readArgvLog(t, dir)
	if want := "run --continue second"; lines[len(lines)-1] != want {
		t.Fatalf("continuation argv = %q, want %q", lines[len(lines)-1], want)
	}
}

func TestSendNormalizesEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, sessionListBody+"echo \"   \"\n")

	m := NewManager(Options{Command: stub, Timeout: 5 * time.Second})

	res := m.Send(context.Background(), "anything")
	if res.Status != StatusOK {
		t.Fatalf("status = %v", res.Status)
	}
	if res.Text != "No response" {
		t.Fatalf("text = %q, want %q", res.Text, "No response")
	}
}

func TestSendWarnsWhenDiscoveryFails(t *testing.T) {
	dir := t.TempDir()
	// session list yields only a header, no data line.
	stub := writeStub(t, dir, `if [ "$1" = "session" ]; then
  echo "ID  TITLE"
  exit 0
fi
echo hello
`)

	m := NewManager(Options{Command: stub, Timeout: 5 * time.Second})

	res := m.Send(context.Background(), "query")
	if res.Status != StatusOK {
		t.Fatalf("status = %v", res.Status)
	}
	if res.Warning == "" {
		t.Fatal("expected a discovery warning")
	}
	if res.SessionID != "" {
		t.Fatalf("session id = %q, want empty", res.SessionID)
	}
	if m.SessionID() != "" {
		t.Fatalf("stored session id = %q, want empty", m.SessionID())
	}
}

func TestSendTimeoutPreservesSession(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, sessionListBody+`if [ -f "$dir/slow" ]; then
  exec sleep 5
fi
echo fast
`)

	m := NewManager(Options{Command: stub, Timeout: 500 * time.Millisecond})

	if res := m.Send(context.Background(), "warm up"); res.Status != StatusOK {
		t.Fatalf("warm-up status = %v", res.Status)
	}
	before := m.SessionID()
	if before == "" {
		t.Fatal("expected a session after warm-up")
	}

	if err := os.WriteFile(filepath.Join(dir, "slow"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	res := m.Send(context.Background(), "slow one")
	if res.Status != StatusTimeout {
		t.Fatalf("status = %v, want timeout (%q)", res.Status, res.Text)
	}
	if res.Text != "AI query timed out" {
		t.Fatalf("text = %q", res.Text)
	}
	if m.SessionID() != before {
		t.Fatalf("session id changed across timeout: %q -> %q", before, m.SessionID())
	}
}

func TestSendUnavailable(t *testing.T) {
	m := NewManager(Options{Command: "darvis-definitely-missing-tool", Timeout: time.Second})

	res := m.Send(context.Background(), "hello")
	if res.Status != StatusUnavailable {
		t.Fatalf("status = %v, want unavailable", res.Status)
	}
	if res.Text != "AI assistance not available" {
		t.Fatalf("text = %q", res.Text)
	}
	if m.SessionID() != "" {
		t.Fatal("session must stay untouched")
	}
}

func TestCancelInFlight(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "exec sleep 30\n")

	m := NewManager(Options{Command: stub, Timeout: time.Minute})

	results := make(chan Result, 1)
	go func() { results <- m.Send(context.Background(), "long one") }()

	time.Sleep(500 * time.Millisecond)
	if !m.Cancel() {
		t.Fatal("Cancel returned false with a request in flight")
	}

	select {
	case res := <-results:
		if res.Status != StatusCancelled {
			t.Fatalf("status = %v, want cancelled (%q)", res.Status, res.Text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Send did not resolve after Cancel")
	}

	// Idempotent: nothing left to cancel.
	if m.Cancel() {
		t.Fatal("second Cancel returned true")
	}
}

func TestCancelIdleReturnsFalse(t *testing.T) {
	m := NewManager(Options{Command: "opencode"})
	if m.Cancel() {
		t.Fatal("Cancel with no request must return false")
	}
}

func TestSendBusy(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "exec sleep 30\n")

	m := NewManager(Options{Command: stub, Timeout: time.Minute})

	done := make(chan Result, 1)
	go func() { done <- m.Send(context.Background(), "first") }()

	time.Sleep(500 * time.Millisecond)
	if res := m.Send(context.Background(), "second"); res.Status != StatusBusy {
		t.Fatalf("status = %v, want busy", res.Status)
	}

	m.Cancel()
	<-done
}

func TestResetIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, sessionListBody+"echo ok\n")

	m := NewManager(Options{Command: stub, Timeout: 5 * time.Second})

	m.Send(context.Background(), "establish")
	if m.SessionID() == "" {
		t.Fatal("expected a session")
	}

	m.Reset()
	if m.SessionID() != "" {
		t.Fatal("Reset must clear the session id")
	}
	m.Reset()
	if m.SessionID() != "" {
		t.Fatal("second Reset must leave NoSession")
	}

	// The next send starts a fresh conversation.
	m.Send(context.Background(), "again")
	lines := readArgvLog(t, dir)
	last := lines[len(lines)-2] // final entry is the discovery call
	if want := "run --agent darvis again"; last != want {
		t.Fatalf("post-reset argv = %q, want %q", last, want)
	}
}

func TestParseSessionList(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "normal",
			in:   "ID    TITLE\n----  -----\nses_1  newest\nses_0  older\n",
			want: "ses_1",
		},
		{
			name: "header only",
			in:   "ID    TITLE\n----  -----\n",
			want: "",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "decorative separator as data",
			in:   "ID\n--\n────────\n",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseSessionList(tc.in); got != tc.want {
				t.Fatalf("parseSessionList = %q, want %q", got, tc.want)
			}
		})
	}
}
