package rfsserver

import (
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/kestrel-systems/rfsd/internal/dirtree"
	"github.com/kestrel-systems/rfsd/internal/rfslog"
	"github.com/kestrel-systems/rfsd/internal/rfsmetrics"
	"github.com/kestrel-systems/rfsd/internal/wire"
)

// worker holds one connection's state: its root-relative view of the
// filesystem and the host descriptors it has opened. It is touched by
// exactly one goroutine, so no locking is needed around openFDs.
type worker struct {
	conn    net.Conn
	root    string
	openFDs map[int]struct{}
	metrics *rfsmetrics.Metrics
}

func (w *worker) resolve(path string) string {
	return filepath.Join(w.root, filepath.Clean("/"+path))
}

// hostFD translates an in-band remote descriptor into the real host
// fd the worker opened for it. A descriptor this worker did not open
// yields -1, so the host call fails with EBADF.
func (w *worker) hostFD(remote int32) int {
	fd := int(remote) - Offset
	if _, ok := w.openFDs[fd]; !ok {
		return -1
	}
	return fd
}

func (w *worker) closeAll() {
	for fd := range w.openFDs {
		unix.Close(fd)
	}
	w.openFDs = nil
}

// dispatch executes one request body for opcode op and returns the
// already-framed reply. ok reports whether the operation succeeded,
// for metrics purposes only.
func (w *worker) dispatch(op wire.Opcode, body []byte) (reply []byte, ok bool) {
	switch op {
	case wire.OpOpen:
		return w.handleOpen(body)
	case wire.OpClose:
		return w.handleClose(body)
	case wire.OpRead:
		return w.handleRead(body)
	case wire.OpWrite:
		return w.handleWrite(body)
	case wire.OpLseek:
		return w.handleLseek(body)
	case wire.OpStat:
		return w.handleStat(body)
	case wire.OpUnlink:
		return w.handleUnlink(body)
	case wire.OpGetentry:
		return w.handleGetentry(body)
	case wire.OpDirtree:
		return w.handleDirtree(body)
	default:
		return wire.EncodeIntReply(op, -int64(unix.EINVAL)), false
	}
}

func errno(err error) int64 {
	if e, ok := err.(unix.Errno); ok {
		return int64(e)
	}
	return int64(unix.EIO)
}

func (w *worker) handleOpen(body []byte) ([]byte, bool) {
	req, err := wire.DecodeOpenRequest(body)
	if err != nil {
		rfslog.Warnf("rfsserver: OPEN decode: %v", err)
		return wire.EncodeIntReply(wire.OpOpen, -int64(unix.EINVAL)), false
	}

	fd, err := unix.Open(w.resolve(req.Path), int(req.Flags), req.Mode)
	if err != nil {
		return wire.EncodeIntReply(wire.OpOpen, -errno(err)), false
	}
	w.openFDs[fd] = struct{}{}
	return wire.EncodeIntReply(wire.OpOpen, int64(fd)+Offset), true
}

func (w *worker) handleClose(body []byte) ([]byte, bool) {
	req, err := wire.DecodeCloseRequest(body)
	if err != nil {
		rfslog.Warnf("rfsserver: CLOSE decode: %v", err)
		return wire.EncodeIntReply(wire.OpClose, -int64(unix.EINVAL)), false
	}

	fd := w.hostFD(req.FD)
	if err := unix.Close(fd); err != nil {
		return wire.EncodeIntReply(wire.OpClose, -errno(err)), false
	}
	delete(w.openFDs, fd)
	return wire.EncodeIntReply(wire.OpClose, 0), true
}

func (w *worker) handleRead(body []byte) ([]byte, bool) {
	req, err := wire.DecodeReadRequest(body)
	if err != nil {
		rfslog.Warnf("rfsserver: READ decode: %v", err)
		return wire.EncodeReadReply(wire.ReadReply{ReadNum: -int32(unix.EINVAL)}), false
	}

	buf := make([]byte, req.Nbyte)
	n, err := unix.Read(w.hostFD(req.FD), buf)
	if err != nil {
		return wire.EncodeReadReply(wire.ReadReply{ReadNum: -int32(errno(err))}), false
	}
	return wire.EncodeReadReply(wire.ReadReply{ReadNum: int32(n), Data: buf[:n]}), true
}

func (w *worker) handleWrite(body []byte) ([]byte, bool) {
	req, err := wire.DecodeWriteRequest(body)
	if err != nil {
		rfslog.Warnf("rfsserver: WRITE decode: %v", err)
		return wire.EncodeIntReply(wire.OpWrite, -int64(unix.EINVAL)), false
	}

	n, err := unix.Write(w.hostFD(req.FD), req.Data)
	if err != nil {
		return wire.EncodeIntReply(wire.OpWrite, -errno(err)), false
	}
	return wire.EncodeIntReply(wire.OpWrite, int64(n)), true
}

func (w *worker) handleLseek(body []byte) ([]byte, bool) {
	req, err := wire.DecodeLseekRequest(body)
	if err != nil {
		rfslog.Warnf("rfsserver: LSEEK decode: %v", err)
		return wire.EncodeIntReply(wire.OpLseek, -int64(unix.EINVAL)), false
	}

	off, err := unix.Seek(w.hostFD(req.FD), req.Offset, int(req.Whence))
	if err != nil {
		return wire.EncodeIntReply(wire.OpLseek, -errno(err)), false
	}
	return wire.EncodeIntReply(wire.OpLseek, off), true
}

func (w *worker) handleStat(body []byte) ([]byte, bool) {
	req, err := wire.DecodeStatRequest(body)
	if err != nil {
		rfslog.Warnf("rfsserver: STAT decode: %v", err)
		return wire.EncodeStatReply(wire.StatReply{State: -int32(unix.EINVAL)}), false
	}

	var st unix.Stat_t
	if err := unix.Stat(w.resolve(req.Path), &st); err != nil {
		return wire.EncodeStatReply(wire.StatReply{State: -int32(errno(err))}), false
	}
	return wire.EncodeStatReply(wire.StatReply{State: 0, Stat: encodeStat(&st)}), true
}

func (w *worker) handleUnlink(body []byte) ([]byte, bool) {
	req, err := wire.DecodeUnlinkRequest(body)
	if err != nil {
		rfslog.Warnf("rfsserver: UNLINK decode: %v", err)
		return wire.EncodeIntReply(wire.OpUnlink, -int64(unix.EINVAL)), false
	}

	if err := unix.Unlink(w.resolve(req.Path)); err != nil {
		return wire.EncodeIntReply(wire.OpUnlink, -errno(err)), false
	}
	return wire.EncodeIntReply(wire.OpUnlink, 0), true
}

func (w *worker) handleGetentry(body []byte) ([]byte, bool) {
	req, err := wire.DecodeGetentryRequest(body)
	if err != nil {
		rfslog.Warnf("rfsserver: GETENTRY decode: %v", err)
		return wire.EncodeGetentryReply(wire.GetentryReply{ReadNum: -int32(unix.EINVAL)}), false
	}

	fd := w.hostFD(req.FD)
	if _, err := unix.Seek(fd, req.Basep, 0); err != nil {
		return wire.EncodeGetentryReply(wire.GetentryReply{ReadNum: -int32(errno(err))}), false
	}

	buf := make([]byte, req.Nbyte)
	n, err := unix.Getdents(fd, buf)
	if err != nil {
		return wire.EncodeGetentryReply(wire.GetentryReply{ReadNum: -int32(errno(err))}), false
	}
	newPos, err := unix.Seek(fd, 0, 1)
	if err != nil {
		return wire.EncodeGetentryReply(wire.GetentryReply{ReadNum: -int32(errno(err))}), false
	}
	return wire.EncodeGetentryReply(wire.GetentryReply{
		ReadNum: int32(n),
		Basep:   newPos,
		Data:    buf[:n],
	}), true
}

func (w *worker) handleDirtree(body []byte) ([]byte, bool) {
	req, err := wire.DecodeDirtreeRequest(body)
	if err != nil {
		rfslog.Warnf("rfsserver: DIRTREE decode: %v", err)
		return wire.FrameDirtreeReply(dirtree.SerializeError(int32(unix.EINVAL))), false
	}

	root, err := buildTree(w.resolve(req.Path), filepath.Base(filepath.Clean(req.Path)))
	if err != nil {
		errn := int32(unix.EIO)
		if pe, ok := err.(*os.PathError); ok {
			if e, ok := pe.Err.(unix.Errno); ok {
				errn = int32(e)
			}
		}
		return wire.FrameDirtreeReply(dirtree.SerializeError(errn)), false
	}
	return wire.FrameDirtreeReply(dirtree.Serialize(root)), true
}

// buildTree recursively lists the subdirectories of path, in the order
// os.ReadDir returns them, producing the rose tree DIRTREE replies.
func buildTree(path, name string) (*dirtree.Node, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	node := &dirtree.Node{Name: name}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		child, err := buildTree(filepath.Join(path, e.Name()), e.Name())
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}
