package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	cli "github.com/spf13/pflag"

	log "log/slog"

	"darvis/internal/mirror"
)

// transcript is the read side of the mirror connection.
type transcript interface {
	Read() (*mirror.Message, error)
}

// Terminal chat client: follows the daemon's mirror transcript and
// forwards typed lines as commands.
func main() {
	url := cli.StringP("url", "u", "ws://localhost:8990/ws", "Mirror websocket URL")
	cli.Parse()

	client, err := mirror.Dial(*url)
	if err != nil {
		log.Error("failed to connect to mirror", "url", *url, "err", err)
		os.Exit(1)
	}
	defer client.Close()

	readErr := make(chan error, 1)
	go func() { readErr <- follow(client, os.Stdout) }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case err := <-readErr:
			log.Error("mirror read failed", "err", err)
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch line {
			case "":
			case "/cancel":
				client.Send(mirror.Inbound{Type: "cancel"})
			case "/reset":
				client.Send(mirror.Inbound{Type: "reset"})
			case "/quit":
				return
			default:
				client.Send(mirror.Inbound{Type: "command", Text: line})
			}
		}
	}
}

// follow prints transcript messages to out until the connection fails.
func follow(tr transcript, out io.Writer) error {
	for {
		m, err := tr.Read()
		if err != nil {
			return err
		}
		switch m.Role {
		case "user":
			fmt.Fprintf(out, "You: %s\n", m.Text)
		case "assistant":
			fmt.Fprintf(out, "Darvis: %s\n", m.Text)
		default:
			fmt.Fprintf(out, "-- %s\n", m.Text)
		}
	}
}
