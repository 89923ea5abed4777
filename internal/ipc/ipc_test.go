package ipc

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSendCommandRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "darvis.sock")

	got := make(chan ControlMessage, 1)
	if err := StartServer(path, func(m ControlMessage) { got <- m }); err != nil {
		t.Fatal(err)
	}

	if err := SendCommand(path, "run", "open firefox"); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-got:
		if m.Cmd != "run" || m.Arg != "open firefox" {
			t.Fatalf("message = %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}
}

func TestSendCommandNoDaemon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "darvis.sock")
	if err := SendCommand(path, "trigger", ""); err == nil {
		t.Fatal("expected dial error with no listener")
	}
}

func TestServerReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "darvis.sock")

	if err := StartServer(path, func(ControlMessage) {}); err != nil {
		t.Fatal(err)
	}
	// A second daemon start must take over the socket file.
	got := make(chan ControlMessage, 1)
	if err := StartServer(path, func(m ControlMessage) { got <- m }); err != nil {
		t.Fatal(err)
	}

	if err := SendCommand(path, "cancel", ""); err != nil {
		t.Fatal(err)
	}
	select {
	case m := <-got:
		if m.Cmd != "cancel" {
			t.Fatalf("message = %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("replacement server never got the message")
	}
}
