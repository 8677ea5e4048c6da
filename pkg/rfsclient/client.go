// Package rfsclient is the public client shim: exported functions with
// the same call signatures and error semantics as the host file
// operations they stand in for, routing remote descriptors over the
// wire protocol and local descriptors straight through to the host OS.
//
// An interception layer (not part of this package) is responsible for
// directing application calls here in place of the host's own
// primitives; this package only needs to be called with the same
// arguments the application passed.
package rfsclient

import (
	"fmt"
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/kestrel-systems/rfsd/internal/dirtree"
	"github.com/kestrel-systems/rfsd/internal/rfslog"
	"github.com/kestrel-systems/rfsd/internal/transport"
	"github.com/kestrel-systems/rfsd/internal/wire"
)

// Offset divides the descriptor namespace between local (< Offset) and
// remote (>= Offset) descriptors.
const Offset = 25000

// Env variable names read once at Init.
const (
	EnvServer = "server15440"
	EnvPort   = "serverport15440"
)

const (
	defaultServer = "127.0.0.1"
	defaultPort   = "15440"
)

// Client owns the single shared connection to the remote server. All
// application threads share one Client; Init installs it as the
// package-level singleton used by the exported Open/Close/etc
// functions, replacing the source's load-time dlsym global table with
// an explicit, sync.Once-guarded initializer.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

var (
	once   sync.Once
	client *Client
	initErr error
)

// Init establishes the remote connection from the server15440 and
// serverport15440 environment variables, if it has not already been
// established. It is safe to call multiple times and from multiple
// goroutines; only the first call has effect.
func Init() error {
	once.Do(func() {
		host := os.Getenv(EnvServer)
		if host == "" {
			host = defaultServer
		}
		port := os.Getenv(EnvPort)
		if port == "" {
			port = defaultPort
		}
		addr := net.JoinHostPort(host, port)
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			initErr = fmt.Errorf("rfsclient: connect to %s: %w", addr, err)
			return
		}
		client = &Client{conn: conn}
		rfslog.Debugf("rfsclient: connected to %s", addr)
	})
	return initErr
}

func mustClient() (*Client, error) {
	if client == nil {
		if err := Init(); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// Shutdown terminates the shared connection. It is not required but is
// available for tests and clean process shutdown.
func Shutdown() error {
	if client == nil {
		return nil
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.conn.Close()
}

// call performs one request/reply exchange under the client's mutex,
// serializing concurrent application threads onto the single shared
// connection.
func (c *Client) call(req []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := transport.SendAll(c.conn, req); err != nil {
		return nil, err
	}
	return transport.RecvFrame(c.conn)
}

func remoteErr(v int64) error {
	return unix.Errno(-v)
}

// Open implements the OPEN call. Descriptors >= Offset are remote;
// flags/mode match the host open(2) contract.
func Open(path string, flags int, mode uint32) (int, error) {
	c, err := mustClient()
	if err != nil {
		return -1, err
	}

	req := wire.EncodeOpenRequest(wire.OpenRequest{Flags: int32(flags), Mode: mode, Path: path})
	frame, err := c.call(req)
	if err != nil {
		return -1, err
	}
	v, err := wire.DecodeIntReply(frame[wire.HeaderLen:])
	if err != nil {
		return -1, err
	}
	if v < 0 {
		return -1, remoteErr(v)
	}
	return int(v), nil
}

// Close implements the CLOSE call, delegating to the host OS when fd
// is local.
func Close(fd int) error {
	if fd < Offset {
		return unix.Close(fd)
	}
	c, err := mustClient()
	if err != nil {
		return err
	}

	req := wire.EncodeCloseRequest(wire.CloseRequest{FD: int32(fd)})
	frame, err := c.call(req)
	if err != nil {
		return err
	}
	v, err := wire.DecodeIntReply(frame[wire.HeaderLen:])
	if err != nil {
		return err
	}
	if v < 0 {
		return remoteErr(v)
	}
	return nil
}

// Read implements the READ call, looping on the transport read to
// reassemble replies whose payload exceeds one chunk.
func Read(fd int, buf []byte) (int, error) {
	if fd < Offset {
		return unix.Read(fd, buf)
	}
	c, err := mustClient()
	if err != nil {
		return -1, err
	}

	req := wire.EncodeReadRequest(wire.ReadRequest{FD: int32(fd), Nbyte: uint64(len(buf))})
	frame, err := c.call(req)
	if err != nil {
		return -1, err
	}
	reply, err := wire.DecodeReadReply(frame[wire.HeaderLen:])
	if err != nil {
		return -1, err
	}
	if reply.ReadNum < 0 {
		return -1, remoteErr(int64(reply.ReadNum))
	}
	n := copy(buf, reply.Data)
	return n, nil
}

// Write implements the WRITE call.
func Write(fd int, data []byte) (int, error) {
	if fd < Offset {
		return unix.Write(fd, data)
	}
	c, err := mustClient()
	if err != nil {
		return -1, err
	}

	req := wire.EncodeWriteRequest(wire.WriteRequest{FD: int32(fd), Count: uint64(len(data)), Data: data})
	frame, err := c.call(req)
	if err != nil {
		return -1, err
	}
	v, err := wire.DecodeIntReply(frame[wire.HeaderLen:])
	if err != nil {
		return -1, err
	}
	if v < 0 {
		return -1, remoteErr(v)
	}
	return int(v), nil
}

// Lseek implements the LSEEK call, returning the full 64-bit resulting
// offset.
func Lseek(fd int, offset int64, whence int) (int64, error) {
	if fd < Offset {
		return unix.Seek(fd, offset, whence)
	}
	c, err := mustClient()
	if err != nil {
		return -1, err
	}

	req := wire.EncodeLseekRequest(wire.LseekRequest{FD: int32(fd), Offset: offset, Whence: int32(whence)})
	frame, err := c.call(req)
	if err != nil {
		return -1, err
	}
	v, err := wire.DecodeIntReply(frame[wire.HeaderLen:])
	if err != nil {
		return -1, err
	}
	if v < 0 {
		return -1, remoteErr(v)
	}
	return v, nil
}

// Stat implements the stat-family entry point. ver is carried for
// wire compatibility with callers that pass a glibc stat version; it
// is otherwise unused.
func Stat(path string, ver int) (wire.StatInfo, error) {
	c, err := mustClient()
	if err != nil {
		return wire.StatInfo{}, err
	}

	req := wire.EncodeStatRequest(wire.StatRequest{Ver: int32(ver), Path: path})
	frame, err := c.call(req)
	if err != nil {
		return wire.StatInfo{}, err
	}
	reply, err := wire.DecodeStatReply(frame[wire.HeaderLen:])
	if err != nil {
		return wire.StatInfo{}, err
	}
	if reply.State < 0 {
		return wire.StatInfo{}, remoteErr(int64(reply.State))
	}
	return wire.DecodeStatInfo(reply.Stat)
}

// Unlink implements the UNLINK call.
func Unlink(path string) error {
	c, err := mustClient()
	if err != nil {
		return err
	}

	req := wire.EncodeUnlinkRequest(wire.UnlinkRequest{Path: path})
	frame, err := c.call(req)
	if err != nil {
		return err
	}
	v, err := wire.DecodeIntReply(frame[wire.HeaderLen:])
	if err != nil {
		return err
	}
	if v < 0 {
		return remoteErr(v)
	}
	return nil
}

// Getdirentries implements the GETENTRY call, looping on the
// transport read the same way Read does.
func Getdirentries(fd int, buf []byte, basep *int64) (int, error) {
	if fd < Offset {
		return unix.Getdents(fd, buf)
	}
	c, err := mustClient()
	if err != nil {
		return -1, err
	}

	req := wire.EncodeGetentryRequest(wire.GetentryRequest{FD: int32(fd), Nbyte: uint64(len(buf)), Basep: *basep})
	frame, err := c.call(req)
	if err != nil {
		return -1, err
	}
	reply, err := wire.DecodeGetentryReply(frame[wire.HeaderLen:])
	if err != nil {
		return -1, err
	}
	if reply.ReadNum < 0 {
		*basep = reply.Basep
		return -1, remoteErr(int64(reply.ReadNum))
	}
	*basep = reply.Basep
	n := copy(buf, reply.Data)
	return n, nil
}

// Tree is the client-owned directory tree returned by Getdirtree.
type Tree struct {
	root *dirtree.Node
}

// Root returns the tree's root node.
func (t *Tree) Root() *dirtree.Node { return t.root }

// Getdirtree implements the GETDIRTREE call.
func Getdirtree(path string) (*Tree, error) {
	c, err := mustClient()
	if err != nil {
		return nil, err
	}

	req := wire.EncodeDirtreeRequest(wire.DirtreeRequest{Path: path})
	frame, err := c.call(req)
	if err != nil {
		return nil, err
	}
	body := frame[wire.HeaderLen:]
	if errno, isErr := dirtree.PeekError(body); isErr {
		return nil, remoteErr(int64(-errno))
	}
	root, err := dirtree.Deserialize(body)
	if err != nil {
		return nil, err
	}
	return &Tree{root: root}, nil
}

// Freedirtree releases the client's reference to t. There is no
// explicit recursive deallocation: dropping the reference lets the
// garbage collector reclaim the tree. The call is kept so callers can
// mirror a release point even though nothing must run at that point.
func Freedirtree(t *Tree) {
	if t != nil {
		t.root = nil
	}
}

// String renders t for debugging; it is not part of the wire contract.
func (t *Tree) String() string {
	if t == nil || t.root == nil {
		return "<nil>"
	}
	return treeString(t.root, 0)
}

func treeString(n *dirtree.Node, depth int) string {
	s := ""
	for i := 0; i < depth; i++ {
		s += "  "
	}
	s += n.Name + "\n"
	for _, c := range n.Children {
		s += treeString(c, depth+1)
	}
	return s
}
