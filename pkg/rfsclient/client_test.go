package rfsclient

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/kestrel-systems/rfsd/internal/rfsserver"
)

// TestMain starts one in-process rfsserver and points Init at it via
// the same environment variables a real application would set, since
// the package-level client is a sync.Once singleton shared by every
// test in this package: one connection for the lifetime of the
// process.
func TestMain(m *testing.M) {
	root, err := os.MkdirTemp("", "rfsclient-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(root)

	if err := os.WriteFile(filepath.Join(root, "hello"), []byte("hello\n"), 0644); err != nil {
		panic(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "tree", "sub"), 0755); err != nil {
		panic(err)
	}

	srv := rfsserver.New(root, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	go srv.Serve(ln)
	defer srv.Close()

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	os.Setenv(EnvServer, host)
	os.Setenv(EnvPort, port)

	os.Exit(m.Run())
}

func TestOpenReadClose(t *testing.T) {
	fd, err := Open("/hello", unix.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if fd < Offset {
		t.Fatalf("fd = %d, want >= %d", fd, Offset)
	}

	buf := make([]byte, 16)
	n, err := Read(fd, buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 6 || string(buf[:n]) != "hello\n" {
		t.Fatalf("Read returned %q, want hello\\n", buf[:n])
	}

	if err := Close(fd); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenNonexistentReturnsENOENT(t *testing.T) {
	_, err := Open("/does-not-exist-"+strconv.Itoa(os.Getpid()), unix.O_RDONLY, 0)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if err != unix.ENOENT {
		t.Fatalf("err = %v, want ENOENT", err)
	}
}

func TestGetdirtree(t *testing.T) {
	tree, err := Getdirtree("/tree")
	if err != nil {
		t.Fatalf("Getdirtree: %v", err)
	}
	root := tree.Root()
	if root.Name != "tree" {
		t.Fatalf("root name = %q, want tree", root.Name)
	}
	if len(root.Children) != 1 || root.Children[0].Name != "sub" {
		t.Fatalf("children = %+v, want [sub]", root.Children)
	}
	Freedirtree(tree)
}

func TestLocalPassThrough(t *testing.T) {
	f, err := os.CreateTemp("", "rfsclient-local")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	fd := int(f.Fd())
	if fd >= Offset {
		t.Skipf("host fd %d unexpectedly >= Offset, cannot exercise pass-through", fd)
	}

	n, err := Write(fd, []byte("local"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 5 {
		t.Fatalf("wrote %d bytes, want 5", n)
	}
}
