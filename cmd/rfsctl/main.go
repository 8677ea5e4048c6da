// Command rfsctl is an interactive console for a running rfsd's admin
// socket: status, connections, and loglevel commands, with line
// editing and history courtesy of peterh/liner.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/peterh/liner"
)

var f_admin = flag.String("admin", "/tmp/rfsd.admin.sock", "rfsd admin socket path")

const historyFile = "/tmp/.rfsctl_history"

type command struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

type response struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

func main() {
	flag.Parse()

	conn, err := net.Dial("unix", *f_admin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rfsctl: connect %s: %v\n", *f_admin, err)
		os.Exit(1)
	}
	defer conn.Close()

	if len(flag.Args()) > 0 {
		runOne(conn, strings.Join(flag.Args(), " "))
		return
	}

	runInteractive(conn)
}

func runInteractive(conn net.Conn) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		cmd, err := line.Prompt("rfsctl> ")
		if err != nil {
			return
		}
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		if cmd == "quit" || cmd == "exit" {
			return
		}
		line.AppendHistory(cmd)
		runOne(conn, cmd)
	}
}

func runOne(conn net.Conn, line string) {
	fields := strings.Fields(line)
	name := fields[0]
	args := fields[1:]

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)

	if err := enc.Encode(command{Name: name, Args: args}); err != nil {
		fmt.Fprintf(os.Stderr, "rfsctl: %v\n", err)
		return
	}

	var resp response
	if err := dec.Decode(&resp); err != nil {
		fmt.Fprintf(os.Stderr, "rfsctl: %v\n", err)
		return
	}
	if resp.Error != "" {
		fmt.Fprintf(os.Stderr, "error: %s\n", resp.Error)
		return
	}
	fmt.Println(resp.Output)
}
