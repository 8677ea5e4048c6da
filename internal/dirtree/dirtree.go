// Package dirtree implements the breadth-first serialization used by
// the DIRTREE reply: a flat buffer of {num_subdirs, name_len, name}
// records, one per node, in BFS order. See Serialize and Deserialize.
package dirtree

import (
	"encoding/binary"
	"errors"
)

// Node is one directory in the reconstructed rose tree. The root's
// Name is the last path component of the tree's request path; every
// other node's Name is non-empty.
type Node struct {
	Name     string
	Children []*Node
}

// ErrNegativeCount is returned by Deserialize when the first record's
// subdir count is a negated errno rather than a real count.
var ErrNegativeCount = errors.New("dirtree: server reported an error")

// Serialize walks root breadth-first and writes one record per node:
// {num_subdirs int32, name_len int32, name bytes(name_len)}, name_len
// including a terminating NUL.
func Serialize(root *Node) []byte {
	var out []byte
	queue := []*Node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		namez := append([]byte(n.Name), 0)
		rec := make([]byte, 8+len(namez))
		binary.LittleEndian.PutUint32(rec[0:4], uint32(int32(len(n.Children))))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(len(namez)))
		copy(rec[8:], namez)
		out = append(out, rec...)

		queue = append(queue, n.Children...)
	}
	return out
}

// SerializeError produces the single-record error form of a DIRTREE
// reply: {num_subdirs: -errno, name_len: 0}.
func SerializeError(errno int32) []byte {
	rec := make([]byte, 8)
	binary.LittleEndian.PutUint32(rec[0:4], uint32(-errno))
	return rec
}

// EncodedSize returns the number of bytes Serialize(root) would
// produce, without allocating the buffer. Used by handlers that must
// precompute a frame's total_len before writing the header.
func EncodedSize(root *Node) int {
	var walk func(n *Node) int
	walk = func(n *Node) int {
		size := 8 + len(n.Name) + 1
		for _, c := range n.Children {
			size += walk(c)
		}
		return size
	}
	return walk(root)
}

// PeekError reports whether buf's first record signals a server-side
// error (a negative subdir count) and, if so, the errno it carries.
func PeekError(buf []byte) (errno int32, isErr bool) {
	if len(buf) < 4 {
		return 0, false
	}
	n := int32(binary.LittleEndian.Uint32(buf[0:4]))
	if n < 0 {
		return -n, true
	}
	return 0, false
}

// Deserialize reconstructs the tree from a BFS-linearized buffer,
// reading records in the order Serialize wrote them. It maintains a
// queue of nodes whose child count is known but whose child pointers
// are not yet filled, consuming one record per pending child slot.
func Deserialize(buf []byte) (*Node, error) {
	if len(buf) < 8 {
		return nil, errors.New("dirtree: short buffer")
	}

	numSubdirs := int32(binary.LittleEndian.Uint32(buf[0:4]))
	if numSubdirs < 0 {
		return nil, ErrNegativeCount
	}

	readRecord := func(b []byte) (numSub int32, name string, rest []byte, err error) {
		if len(b) < 8 {
			return 0, "", nil, errors.New("dirtree: short record header")
		}
		numSub = int32(binary.LittleEndian.Uint32(b[0:4]))
		nameLen := int(binary.LittleEndian.Uint32(b[4:8]))
		if nameLen < 1 || 8+nameLen > len(b) {
			return 0, "", nil, errors.New("dirtree: malformed record")
		}
		raw := b[8 : 8+nameLen]
		if raw[len(raw)-1] == 0 {
			raw = raw[:len(raw)-1]
		}
		return numSub, string(raw), b[8+nameLen:], nil
	}

	num, name, rest, err := readRecord(buf)
	if err != nil {
		return nil, err
	}

	root := &Node{Name: name}
	pending := []*Node{root}
	pendingCounts := []int32{num}

	for len(pending) > 0 {
		node := pending[0]
		count := pendingCounts[0]
		pending = pending[1:]
		pendingCounts = pendingCounts[1:]

		node.Children = make([]*Node, 0, count)
		for i := int32(0); i < count; i++ {
			var childNum int32
			var childName string
			childNum, childName, rest, err = readRecord(rest)
			if err != nil {
				return nil, err
			}
			child := &Node{Name: childName}
			node.Children = append(node.Children, child)
			pending = append(pending, child)
			pendingCounts = append(pendingCounts, childNum)
		}
	}

	return root, nil
}
