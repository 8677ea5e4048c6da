// Package rfsadmin implements the server's local control channel: a
// Unix domain socket accepting newline-delimited JSON commands and
// replying with newline-delimited JSON responses over a single
// persistent connection. It is operational tooling, not part of the
// nine-opcode wire protocol.
package rfsadmin

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/kestrel-systems/rfsd/internal/rfslog"
)

// Command is one request sent by rfsctl.
type Command struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// Response is one reply sent back to rfsctl.
type Response struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Status reports the subset of server state the admin channel exposes.
// Supplied by the caller of Serve at each request.
type Status struct {
	Connections int
	Root        string
	Addr        string
}

// StatusFunc returns a live snapshot of server status.
type StatusFunc func() Status

// Handler dispatches one admin Command to its Response. Serve installs
// no commands of its own; BuiltinHandler provides "status",
// "connections" and "loglevel".
type Handler func(Command) Response

// Serve accepts connections on a Unix socket at path until the
// listener is closed, handling one JSON command per line per
// connection. The socket file is removed and recreated at startup.
func Serve(path string, handle Handler) (net.Listener, error) {
	os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	go acceptLoop(ln, handle)
	return ln, nil
}

func acceptLoop(ln net.Listener, handle Handler) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go serveConn(conn, handle)
	}
}

func serveConn(conn net.Conn, handle Handler) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var cmd Command
		if err := dec.Decode(&cmd); err != nil {
			return
		}
		resp := handle(cmd)
		if err := enc.Encode(&resp); err != nil {
			rfslog.Debugf("rfsadmin: encode reply: %v", err)
			return
		}
	}
}

// BuiltinHandler returns a Handler implementing the three built-in
// commands: "status", "connections", and "loglevel <name>=<level>".
func BuiltinHandler(statusFn StatusFunc) Handler {
	return func(cmd Command) Response {
		switch cmd.Name {
		case "status":
			s := statusFn()
			return Response{Output: fmt.Sprintf("addr=%s root=%s connections=%d", s.Addr, s.Root, s.Connections)}
		case "connections":
			s := statusFn()
			return Response{Output: fmt.Sprintf("%d", s.Connections)}
		case "loglevel":
			if len(cmd.Args) != 1 {
				return Response{Error: "usage: loglevel <name>=<level>"}
			}
			name, levelStr, ok := splitKV(cmd.Args[0])
			if !ok {
				return Response{Error: "usage: loglevel <name>=<level>"}
			}
			level, err := rfslog.ParseLevel(levelStr)
			if err != nil {
				return Response{Error: err.Error()}
			}
			if err := rfslog.SetLevel(name, level); err != nil {
				return Response{Error: err.Error()}
			}
			return Response{Output: fmt.Sprintf("%s now at %s", name, level)}
		default:
			return Response{Error: fmt.Sprintf("unknown command %q", cmd.Name)}
		}
	}
}

func splitKV(s string) (k, v string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
