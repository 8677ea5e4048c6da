// Package transport provides the minimal byte-stream framing primitives
// shared by the client shim and the server workers: a short-write-safe
// send and a length-prefix-aware frame reassembly read.
package transport

import (
	"errors"
	"io"
	"net"

	"github.com/kestrel-systems/rfsd/internal/wire"
)

var (
	// ErrTransportClosed is returned when the peer disconnects cleanly,
	// either before any bytes of a new frame arrive or between frames.
	ErrTransportClosed = errors.New("transport: closed")
	// ErrShortFrame is returned when the peer disconnects after sending
	// a partial frame.
	ErrShortFrame = errors.New("transport: short frame")
)

// SendAll writes every byte of data to conn, looping on short writes;
// a single Write is not guaranteed to consume the whole buffer.
func SendAll(conn net.Conn, data []byte) error {
	for len(data) > 0 {
		n, err := conn.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// RecvFrame reads one complete frame from conn: the 8-byte prefix,
// then exactly TotalLen-8 further bytes. It returns the full frame
// including the prefix.
func RecvFrame(conn net.Conn) ([]byte, error) {
	hdr := make([]byte, wire.HeaderLen)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrTransportClosed
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortFrame
		}
		return nil, err
	}

	_, totalLen, err := wire.ParseHeader(hdr)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, totalLen)
	copy(frame, hdr)
	if totalLen > wire.HeaderLen {
		if _, err := io.ReadFull(conn, frame[wire.HeaderLen:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrShortFrame
			}
			return nil, err
		}
	}
	return frame, nil
}
