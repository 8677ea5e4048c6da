package wire

import "testing"

func TestOpenRequestRoundTrip(t *testing.T) {
	want := OpenRequest{Flags: 0x41, Mode: 0644, Path: "/tmp/x"}
	frame := EncodeOpenRequest(want)

	op, total, err := ParseHeader(frame)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if op != OpOpen {
		t.Fatalf("op = %v, want OPEN", op)
	}
	if int(total) != len(frame) {
		t.Fatalf("total_len = %d, want %d", total, len(frame))
	}

	got, err := DecodeOpenRequest(frame[HeaderLen:])
	if err != nil {
		t.Fatalf("DecodeOpenRequest: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestIntReplyRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -2, 1 << 40, -(1 << 40)} {
		frame := EncodeIntReply(OpClose, v)
		op, _, err := ParseHeader(frame)
		if err != nil {
			t.Fatalf("ParseHeader: %v", err)
		}
		if op != OpClose {
			t.Fatalf("op = %v, want CLOSE", op)
		}
		got, err := DecodeIntReply(frame[HeaderLen:])
		if err != nil {
			t.Fatalf("DecodeIntReply: %v", err)
		}
		if got != v {
			t.Fatalf("got %d, want %d", got, v)
		}
	}
}

func TestReadReplyRoundTrip(t *testing.T) {
	want := ReadReply{ReadNum: 6, Data: []byte("hello\n")}
	frame := EncodeReadReply(want)
	got, err := DecodeReadReply(frame[HeaderLen:])
	if err != nil {
		t.Fatalf("DecodeReadReply: %v", err)
	}
	if got.ReadNum != want.ReadNum || string(got.Data) != string(want.Data) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestReadReplyError(t *testing.T) {
	frame := EncodeReadReply(ReadReply{ReadNum: -2})
	got, err := DecodeReadReply(frame[HeaderLen:])
	if err != nil {
		t.Fatalf("DecodeReadReply: %v", err)
	}
	if got.ReadNum != -2 || len(got.Data) != 0 {
		t.Fatalf("got %+v, want ReadNum=-2 empty Data", got)
	}
}

func TestWriteRequestRoundTrip(t *testing.T) {
	want := WriteRequest{FD: 25003, Count: 5, Data: []byte("abcde")}
	frame := EncodeWriteRequest(want)
	got, err := DecodeWriteRequest(frame[HeaderLen:])
	if err != nil {
		t.Fatalf("DecodeWriteRequest: %v", err)
	}
	if got.FD != want.FD || got.Count != want.Count || string(got.Data) != string(want.Data) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestGetentryReplyRoundTrip(t *testing.T) {
	want := GetentryReply{ReadNum: 3, Basep: 128, Data: []byte{1, 2, 3}}
	frame := EncodeGetentryReply(want)
	got, err := DecodeGetentryReply(frame[HeaderLen:])
	if err != nil {
		t.Fatalf("DecodeGetentryReply: %v", err)
	}
	if got.ReadNum != want.ReadNum || got.Basep != want.Basep || string(got.Data) != string(want.Data) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseHeaderUnknownOpcode(t *testing.T) {
	buf := make([]byte, HeaderLen)
	PutHeader(buf, Opcode(99), HeaderLen)
	if _, _, err := ParseHeader(buf); err != ErrUnknownOpcode {
		t.Fatalf("err = %v, want ErrUnknownOpcode", err)
	}
}

func TestParseHeaderShort(t *testing.T) {
	if _, _, err := ParseHeader([]byte{1, 2, 3}); err != ErrShortBody {
		t.Fatalf("err = %v, want ErrShortBody", err)
	}
}

func TestStatReplyRoundTrip(t *testing.T) {
	stat := make([]byte, StatSize)
	for i := range stat {
		stat[i] = byte(i)
	}
	want := StatReply{State: 0, Stat: stat}
	frame := EncodeStatReply(want)
	got, err := DecodeStatReply(frame[HeaderLen:])
	if err != nil {
		t.Fatalf("DecodeStatReply: %v", err)
	}
	if got.State != 0 || string(got.Stat) != string(stat) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestStatReplyError(t *testing.T) {
	frame := EncodeStatReply(StatReply{State: -2})
	got, err := DecodeStatReply(frame[HeaderLen:])
	if err != nil {
		t.Fatalf("DecodeStatReply: %v", err)
	}
	if got.State != -2 || got.Stat != nil {
		t.Fatalf("got %+v, want State=-2 nil Stat", got)
	}
}
