// Package wire defines the opcode set, frame prefix, and per-opcode
// request/reply encoding shared by the client shim and the server
// dispatcher. Every multi-byte field is little-endian; see the
// per-opcode Encode*Request and Encode*Reply functions for the body
// layouts.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Opcode discriminates the nine supported operations. Any other value
// received on the wire is a protocol error.
type Opcode uint32

const (
	OpOpen Opcode = iota
	OpClose
	OpRead
	OpWrite
	OpDirtree
	OpUnlink
	OpLseek
	OpStat
	OpGetentry
)

func (op Opcode) String() string {
	switch op {
	case OpOpen:
		return "OPEN"
	case OpClose:
		return "CLOSE"
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	case OpDirtree:
		return "DIRTREE"
	case OpUnlink:
		return "UNLINK"
	case OpLseek:
		return "LSEEK"
	case OpStat:
		return "STAT"
	case OpGetentry:
		return "GETENTRY"
	default:
		return fmt.Sprintf("Opcode(%d)", uint32(op))
	}
}

// Valid reports whether op is one of the nine defined opcodes.
func (op Opcode) Valid() bool {
	return op <= OpGetentry
}

// HeaderLen is the size in bytes of the frame prefix: {opcode, total_len}.
const HeaderLen = 8

var (
	ErrMalformedFrame = errors.New("wire: malformed frame")
	ErrUnknownOpcode  = errors.New("wire: unknown opcode")
	ErrShortBody      = errors.New("wire: short body")
)

// PutHeader writes the 8-byte frame prefix into buf, which must be at
// least HeaderLen bytes long.
func PutHeader(buf []byte, op Opcode, totalLen uint32) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(op))
	binary.LittleEndian.PutUint32(buf[4:8], totalLen)
}

// ParseHeader reads the 8-byte frame prefix from buf.
func ParseHeader(buf []byte) (op Opcode, totalLen uint32, err error) {
	if len(buf) < HeaderLen {
		return 0, 0, ErrShortBody
	}
	op = Opcode(binary.LittleEndian.Uint32(buf[0:4]))
	totalLen = binary.LittleEndian.Uint32(buf[4:8])
	if !op.Valid() {
		return op, totalLen, ErrUnknownOpcode
	}
	if totalLen < HeaderLen {
		return op, totalLen, ErrMalformedFrame
	}
	return op, totalLen, nil
}

func frame(op Opcode, body []byte) []byte {
	total := HeaderLen + len(body)
	buf := make([]byte, total)
	PutHeader(buf, op, uint32(total))
	copy(buf[HeaderLen:], body)
	return buf
}

// --- OPEN ---

type OpenRequest struct {
	Flags int32
	Mode  uint32
	Path  string // NUL-terminated on the wire
}

// EncodeOpenRequest lays out {flags int32, mode uint32, path_len int32, path bytes}.
func EncodeOpenRequest(r OpenRequest) []byte {
	pathz := append([]byte(r.Path), 0)
	body := make([]byte, 4+4+4+len(pathz))
	binary.LittleEndian.PutUint32(body[0:4], uint32(r.Flags))
	binary.LittleEndian.PutUint32(body[4:8], r.Mode)
	binary.LittleEndian.PutUint32(body[8:12], uint32(len(pathz)))
	copy(body[12:], pathz)
	return frame(OpOpen, body)
}

func DecodeOpenRequest(body []byte) (OpenRequest, error) {
	if len(body) < 12 {
		return OpenRequest{}, ErrShortBody
	}
	flags := int32(binary.LittleEndian.Uint32(body[0:4]))
	mode := binary.LittleEndian.Uint32(body[4:8])
	pathLen := int(binary.LittleEndian.Uint32(body[8:12]))
	if pathLen < 1 || 12+pathLen > len(body) {
		return OpenRequest{}, ErrMalformedFrame
	}
	raw := body[12 : 12+pathLen]
	return OpenRequest{Flags: flags, Mode: mode, Path: trimNUL(raw)}, nil
}

func trimNUL(b []byte) string {
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b)
}

// IntReply is the v2 uniform binary integer reply used by OPEN, CLOSE,
// WRITE, LSEEK and UNLINK: a single little-endian int64. A negative
// value is the negated remote errno. The STAT state field is not an
// IntReply; it is the int32 at the head of StatReply.
type IntReply struct {
	Value int64
}

func EncodeIntReply(op Opcode, v int64) []byte {
	body := make([]byte, 8)
	binary.LittleEndian.PutUint64(body, uint64(v))
	return frame(op, body)
}

func DecodeIntReply(body []byte) (int64, error) {
	if len(body) < 8 {
		return 0, ErrShortBody
	}
	return int64(binary.LittleEndian.Uint64(body[0:8])), nil
}

// --- CLOSE ---

type CloseRequest struct {
	FD int32
}

func EncodeCloseRequest(r CloseRequest) []byte {
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, uint32(r.FD))
	return frame(OpClose, body)
}

func DecodeCloseRequest(body []byte) (CloseRequest, error) {
	if len(body) < 4 {
		return CloseRequest{}, ErrShortBody
	}
	return CloseRequest{FD: int32(binary.LittleEndian.Uint32(body[0:4]))}, nil
}

// --- READ ---

type ReadRequest struct {
	FD    int32
	Nbyte uint64
}

func EncodeReadRequest(r ReadRequest) []byte {
	body := make([]byte, 12)
	binary.LittleEndian.PutUint32(body[0:4], uint32(r.FD))
	binary.LittleEndian.PutUint64(body[4:12], r.Nbyte)
	return frame(OpRead, body)
}

func DecodeReadRequest(body []byte) (ReadRequest, error) {
	if len(body) < 12 {
		return ReadRequest{}, ErrShortBody
	}
	return ReadRequest{
		FD:    int32(binary.LittleEndian.Uint32(body[0:4])),
		Nbyte: binary.LittleEndian.Uint64(body[4:12]),
	}, nil
}

// ReadReply is {read_num int32, data bytes(read_num)}; on error only
// {read_num int32 < 0} is present.
type ReadReply struct {
	ReadNum int32
	Data    []byte
}

func EncodeReadReply(r ReadReply) []byte {
	n := 4
	if r.ReadNum > 0 {
		n += len(r.Data)
	}
	body := make([]byte, n)
	binary.LittleEndian.PutUint32(body[0:4], uint32(r.ReadNum))
	if r.ReadNum > 0 {
		copy(body[4:], r.Data)
	}
	return frame(OpRead, body)
}

func DecodeReadReply(body []byte) (ReadReply, error) {
	if len(body) < 4 {
		return ReadReply{}, ErrShortBody
	}
	readNum := int32(binary.LittleEndian.Uint32(body[0:4]))
	if readNum <= 0 {
		return ReadReply{ReadNum: readNum}, nil
	}
	if 4+int(readNum) > len(body) {
		return ReadReply{}, ErrMalformedFrame
	}
	data := make([]byte, readNum)
	copy(data, body[4:4+int(readNum)])
	return ReadReply{ReadNum: readNum, Data: data}, nil
}

// --- WRITE ---

type WriteRequest struct {
	FD    int32
	Count uint64
	Data  []byte
}

func EncodeWriteRequest(r WriteRequest) []byte {
	body := make([]byte, 12+len(r.Data))
	binary.LittleEndian.PutUint32(body[0:4], uint32(r.FD))
	binary.LittleEndian.PutUint64(body[4:12], r.Count)
	copy(body[12:], r.Data)
	return frame(OpWrite, body)
}

func DecodeWriteRequest(body []byte) (WriteRequest, error) {
	if len(body) < 12 {
		return WriteRequest{}, ErrShortBody
	}
	fd := int32(binary.LittleEndian.Uint32(body[0:4]))
	count := binary.LittleEndian.Uint64(body[4:12])
	if 12+count > uint64(len(body)) {
		return WriteRequest{}, ErrMalformedFrame
	}
	data := make([]byte, count)
	copy(data, body[12:12+count])
	return WriteRequest{FD: fd, Count: count, Data: data}, nil
}

// --- LSEEK ---

type LseekRequest struct {
	FD     int32
	Offset int64
	Whence int32
}

func EncodeLseekRequest(r LseekRequest) []byte {
	body := make([]byte, 16)
	binary.LittleEndian.PutUint32(body[0:4], uint32(r.FD))
	binary.LittleEndian.PutUint64(body[4:12], uint64(r.Offset))
	binary.LittleEndian.PutUint32(body[12:16], uint32(r.Whence))
	return frame(OpLseek, body)
}

func DecodeLseekRequest(body []byte) (LseekRequest, error) {
	if len(body) < 16 {
		return LseekRequest{}, ErrShortBody
	}
	return LseekRequest{
		FD:     int32(binary.LittleEndian.Uint32(body[0:4])),
		Offset: int64(binary.LittleEndian.Uint64(body[4:12])),
		Whence: int32(binary.LittleEndian.Uint32(body[12:16])),
	}, nil
}

// --- STAT ---

type StatRequest struct {
	Ver  int32
	Path string
}

func EncodeStatRequest(r StatRequest) []byte {
	pathz := append([]byte(r.Path), 0)
	body := make([]byte, 8+len(pathz))
	binary.LittleEndian.PutUint32(body[0:4], uint32(r.Ver))
	binary.LittleEndian.PutUint32(body[4:8], uint32(len(pathz)))
	copy(body[8:], pathz)
	return frame(OpStat, body)
}

func DecodeStatRequest(body []byte) (StatRequest, error) {
	if len(body) < 8 {
		return StatRequest{}, ErrShortBody
	}
	ver := int32(binary.LittleEndian.Uint32(body[0:4]))
	pathLen := int(binary.LittleEndian.Uint32(body[4:8]))
	if pathLen < 1 || 8+pathLen > len(body) {
		return StatRequest{}, ErrMalformedFrame
	}
	return StatRequest{Ver: ver, Path: trimNUL(body[8 : 8+pathLen])}, nil
}

// StatReply is {state int32, stat bytes(StatSize)}; stat is absent
// when state < 0.
type StatReply struct {
	State int32
	Stat  []byte
}

// StatSize is the fixed encoded size of the host stat structure carried
// on success: mode, size, mtime-seconds, mtime-nanoseconds, uid, gid.
const StatSize = 4 + 8 + 8 + 8 + 4 + 4

func EncodeStatReply(r StatReply) []byte {
	n := 4
	if r.State >= 0 {
		n += StatSize
	}
	body := make([]byte, n)
	binary.LittleEndian.PutUint32(body[0:4], uint32(r.State))
	if r.State >= 0 {
		copy(body[4:], r.Stat)
	}
	return frame(OpStat, body)
}

func DecodeStatReply(body []byte) (StatReply, error) {
	if len(body) < 4 {
		return StatReply{}, ErrShortBody
	}
	state := int32(binary.LittleEndian.Uint32(body[0:4]))
	if state < 0 {
		return StatReply{State: state}, nil
	}
	if 4+StatSize > len(body) {
		return StatReply{}, ErrMalformedFrame
	}
	stat := make([]byte, StatSize)
	copy(stat, body[4:4+StatSize])
	return StatReply{State: state, Stat: stat}, nil
}

// --- UNLINK ---

type UnlinkRequest struct {
	Path string
}

func EncodeUnlinkRequest(r UnlinkRequest) []byte {
	pathz := append([]byte(r.Path), 0)
	body := make([]byte, 4+len(pathz))
	binary.LittleEndian.PutUint32(body[0:4], uint32(len(pathz)))
	copy(body[4:], pathz)
	return frame(OpUnlink, body)
}

func DecodeUnlinkRequest(body []byte) (UnlinkRequest, error) {
	if len(body) < 4 {
		return UnlinkRequest{}, ErrShortBody
	}
	pathLen := int(binary.LittleEndian.Uint32(body[0:4]))
	if pathLen < 1 || 4+pathLen > len(body) {
		return UnlinkRequest{}, ErrMalformedFrame
	}
	return UnlinkRequest{Path: trimNUL(body[4 : 4+pathLen])}, nil
}

// --- GETENTRY (getdirentries) ---

type GetentryRequest struct {
	FD    int32
	Nbyte uint64
	Basep int64
}

func EncodeGetentryRequest(r GetentryRequest) []byte {
	body := make([]byte, 20)
	binary.LittleEndian.PutUint32(body[0:4], uint32(r.FD))
	binary.LittleEndian.PutUint64(body[4:12], r.Nbyte)
	binary.LittleEndian.PutUint64(body[12:20], uint64(r.Basep))
	return frame(OpGetentry, body)
}

func DecodeGetentryRequest(body []byte) (GetentryRequest, error) {
	if len(body) < 20 {
		return GetentryRequest{}, ErrShortBody
	}
	return GetentryRequest{
		FD:    int32(binary.LittleEndian.Uint32(body[0:4])),
		Nbyte: binary.LittleEndian.Uint64(body[4:12]),
		Basep: int64(binary.LittleEndian.Uint64(body[12:20])),
	}, nil
}

// GetentryReply is {read_num int32, basep int64, data bytes(read_num)};
// on error only {read_num int32 < 0, basep int64} is present.
type GetentryReply struct {
	ReadNum int32
	Basep   int64
	Data    []byte
}

func EncodeGetentryReply(r GetentryReply) []byte {
	n := 12
	if r.ReadNum > 0 {
		n += len(r.Data)
	}
	body := make([]byte, n)
	binary.LittleEndian.PutUint32(body[0:4], uint32(r.ReadNum))
	binary.LittleEndian.PutUint64(body[4:12], uint64(r.Basep))
	if r.ReadNum > 0 {
		copy(body[12:], r.Data)
	}
	return frame(OpGetentry, body)
}

func DecodeGetentryReply(body []byte) (GetentryReply, error) {
	if len(body) < 12 {
		return GetentryReply{}, ErrShortBody
	}
	readNum := int32(binary.LittleEndian.Uint32(body[0:4]))
	basep := int64(binary.LittleEndian.Uint64(body[4:12]))
	if readNum <= 0 {
		return GetentryReply{ReadNum: readNum, Basep: basep}, nil
	}
	if 12+int(readNum) > len(body) {
		return GetentryReply{}, ErrMalformedFrame
	}
	data := make([]byte, readNum)
	copy(data, body[12:12+int(readNum)])
	return GetentryReply{ReadNum: readNum, Basep: basep, Data: data}, nil
}

// --- DIRTREE ---

type DirtreeRequest struct {
	Path string
}

func EncodeDirtreeRequest(r DirtreeRequest) []byte {
	pathz := append([]byte(r.Path), 0)
	body := make([]byte, 4+len(pathz))
	binary.LittleEndian.PutUint32(body[0:4], uint32(len(pathz)))
	copy(body[4:], pathz)
	return frame(OpDirtree, body)
}

func DecodeDirtreeRequest(body []byte) (DirtreeRequest, error) {
	if len(body) < 4 {
		return DirtreeRequest{}, ErrShortBody
	}
	pathLen := int(binary.LittleEndian.Uint32(body[0:4]))
	if pathLen < 1 || 4+pathLen > len(body) {
		return DirtreeRequest{}, ErrMalformedFrame
	}
	return DirtreeRequest{Path: trimNUL(body[4 : 4+pathLen])}, nil
}

// FrameDirtreeReply wraps an already-serialized tree buffer (produced by
// internal/dirtree) in the outer opcode/length prefix.
func FrameDirtreeReply(serialized []byte) []byte {
	return frame(OpDirtree, serialized)
}
