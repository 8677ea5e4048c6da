package transport

import (
	"net"
	"testing"

	"github.com/kestrel-systems/rfsd/internal/wire"
)

func TestSendAllRecvFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	req := wire.EncodeCloseRequest(wire.CloseRequest{FD: 25007})

	done := make(chan error, 1)
	go func() {
		done <- SendAll(client, req)
	}()

	got, err := RecvFrame(server)
	if err != nil {
		t.Fatalf("RecvFrame: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	if string(got) != string(req) {
		t.Fatalf("got %v, want %v", got, req)
	}
}

func TestRecvFrameCleanEOF(t *testing.T) {
	client, server := net.Pipe()
	client.Close()

	_, err := RecvFrame(server)
	if err != ErrTransportClosed {
		t.Fatalf("err = %v, want ErrTransportClosed", err)
	}
}

func TestRecvFrameShortFrame(t *testing.T) {
	client, server := net.Pipe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		hdr := make([]byte, wire.HeaderLen)
		wire.PutHeader(hdr, wire.OpClose, wire.HeaderLen+4)
		client.Write(hdr)
		client.Close()
	}()

	_, err := RecvFrame(server)
	<-done
	if err != ErrShortFrame {
		t.Fatalf("err = %v, want ErrShortFrame", err)
	}
}
