package dirtree

import "testing"

func sameTree(a, b *Node) bool {
	if a.Name != b.Name || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !sameTree(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func TestRoundTripNestedTree(t *testing.T) {
	// a/ -> [b/ -> [d/], c/]
	d := &Node{Name: "d"}
	b := &Node{Name: "b", Children: []*Node{d}}
	c := &Node{Name: "c"}
	a := &Node{Name: "a", Children: []*Node{b, c}}

	buf := Serialize(a)
	got, err := Deserialize(buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !sameTree(a, got) {
		t.Fatalf("got %+v, want %+v", got, a)
	}
}

func TestRoundTripLeafOnly(t *testing.T) {
	root := &Node{Name: "empty"}
	buf := Serialize(root)
	got, err := Deserialize(buf)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !sameTree(root, got) {
		t.Fatalf("got %+v, want %+v", got, root)
	}
	// A tree with zero children at the root serializes to exactly one record.
	if got := len(buf); got != 8+len("empty")+1 {
		t.Fatalf("serialized len = %d, want %d", got, 8+len("empty")+1)
	}
}

func TestEncodedSizeMatchesSerialize(t *testing.T) {
	b := &Node{Name: "b"}
	a := &Node{Name: "a", Children: []*Node{b}}
	if got, want := EncodedSize(a), len(Serialize(a)); got != want {
		t.Fatalf("EncodedSize = %d, want %d", got, want)
	}
}

func TestDeserializeErrorEncoding(t *testing.T) {
	buf := SerializeError(2) // ENOENT
	_, err := Deserialize(buf)
	if err != ErrNegativeCount {
		t.Fatalf("err = %v, want ErrNegativeCount", err)
	}
}

func TestBFSOrder(t *testing.T) {
	d := &Node{Name: "d"}
	b := &Node{Name: "b", Children: []*Node{d}}
	c := &Node{Name: "c"}
	a := &Node{Name: "a", Children: []*Node{b, c}}

	buf := Serialize(a)

	// record order must be: a(2), b(1), c(0), d(0)
	wantCounts := []int32{2, 1, 0, 0}
	off := 0
	for _, want := range wantCounts {
		num := int32(buf[off]) | int32(buf[off+1])<<8 | int32(buf[off+2])<<16 | int32(buf[off+3])<<24
		if num != want {
			t.Fatalf("record at offset %d: num_subdirs = %d, want %d", off, num, want)
		}
		nameLen := int(buf[off+4]) | int(buf[off+5])<<8 | int(buf[off+6])<<16 | int(buf[off+7])<<24
		off += 8 + nameLen
	}
}
