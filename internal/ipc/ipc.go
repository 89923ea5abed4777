package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

const SocketPath = "/tmp/darvis.sock"

// ControlMessage is one command for the daemon. Arg is optional and
// carries e.g. the text for a "run" command.
type ControlMessage struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

// StartServer listens on path (SocketPath when empty) and invokes
// handler for every decoded message.
func StartServer(path string, handler func(ControlMessage)) error {
	if path == "" {
		path = SocketPath
	}
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return nil
}

func handleConn(conn net.Conn, handler func(ControlMessage)) {
	defer conn.Close()

	var msg ControlMessage
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&msg); err != nil {
		return
	}
	handler(msg)
}

// SendCommand delivers one command to a running daemon.
func SendCommand(path, cmd, arg string) error {
	if path == "" {
		path = SocketPath
	}
	conn, err := net.Dial("unix", path)
	if err != nil {
		return err
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	return enc.Encode(ControlMessage{Cmd: cmd, Arg: arg})
}
