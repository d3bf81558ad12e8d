package paya

import "testing"

func TestResourceIdPackDropsVersion(t *testing.T) {
	id := ResourceId{Index: 7, Version: 42}
	if got := id.Pack(); got != PackedId(7) {
		t.Fatalf("Pack() = %d, want 7 (version must not leak into the packed id)", got)
	}
}

func TestImageAndBufferIdPack(t *testing.T) {
	img := ImageId{ResourceId{Index: 3, Version: 1}}
	if got := img.Pack(); got != PackedId(3) {
		t.Fatalf("ImageId.Pack() = %d, want 3", got)
	}

	buf := BufferId{ResourceId{Index: 9, Version: 5}}
	if got := buf.Pack(); got != PackedId(9) {
		t.Fatalf("BufferId.Pack() = %d, want 9", got)
	}
}
