package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"darvis/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		fmt.Println("usage: darvis-ctl [--socket path] trigger|cancel|reset|run <text>")
		os.Exit(2)
	}

	cmd := args[0]
	var arg string
	switch cmd {
	case "trigger", "cancel", "reset":
	case "run":
		if len(args) < 2 {
			fmt.Println("run needs the command text")
			os.Exit(2)
		}
		arg = strings.Join(args[1:], " ")
	default:
		fmt.Println("unknown command:", cmd)
		os.Exit(2)
	}

	if err := ipc.SendCommand(*socket, cmd, arg); err != nil {
		fmt.Println("darvis-daemon not running:", err)
		os.Exit(1)
	}
}
