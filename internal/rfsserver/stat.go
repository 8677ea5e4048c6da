package rfsserver

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/kestrel-systems/rfsd/internal/wire"
)

// encodeStat packs the fields of st that STAT replies carry: mode,
// size, mtime seconds, mtime nanoseconds, uid, gid. This is a fixed
// subset of the host stat structure, addressed by explicit byte
// offsets rather than a struct overlaid directly onto unix.Stat_t.
func encodeStat(st *unix.Stat_t) []byte {
	buf := make([]byte, wire.StatSize)
	binary.LittleEndian.PutUint32(buf[0:4], st.Mode)
	binary.LittleEndian.PutUint64(buf[4:12], uint64(st.Size))
	binary.LittleEndian.PutUint64(buf[12:20], uint64(st.Mtim.Sec))
	binary.LittleEndian.PutUint64(buf[20:28], uint64(st.Mtim.Nsec))
	binary.LittleEndian.PutUint32(buf[28:32], st.Uid)
	binary.LittleEndian.PutUint32(buf[32:36], st.Gid)
	return buf
}
