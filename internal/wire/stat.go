package wire

import "encoding/binary"

// StatInfo is the decoded form of a successful STAT reply's Stat
// bytes: an explicit accessor over the fixed byte range rather than a
// struct overlaid directly onto the wire bytes.
type StatInfo struct {
	Mode      uint32
	Size      uint64
	MtimeSec  uint64
	MtimeNsec uint64
	UID       uint32
	GID       uint32
}

// DecodeStatInfo reads a StatInfo from the StatSize-byte buffer a
// successful StatReply carries.
func DecodeStatInfo(buf []byte) (StatInfo, error) {
	if len(buf) < StatSize {
		return StatInfo{}, ErrShortBody
	}
	return StatInfo{
		Mode:      binary.LittleEndian.Uint32(buf[0:4]),
		Size:      binary.LittleEndian.Uint64(buf[4:12]),
		MtimeSec:  binary.LittleEndian.Uint64(buf[12:20]),
		MtimeNsec: binary.LittleEndian.Uint64(buf[20:28]),
		UID:       binary.LittleEndian.Uint32(buf[28:32]),
		GID:       binary.LittleEndian.Uint32(buf[32:36]),
	}, nil
}
