package file_manager

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"SlotKV/err_def"
	"SlotKV/storage"
)

func openTestDataFile(t *testing.T) (*DataFile, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.bin")
	df, err := OpenDataFile(path, false)
	if err != nil {
		t.Fatalf("OpenDataFile() error = %v", err)
	}
	t.Cleanup(func() { _ = df.Close() })
	return df, path
}

func TestPlaceAppendsPaddedSlot(t *testing.T) {
	df, path := openTestDataFile(t)

	d, inPlace, err := df.Place(nil, 1, storage.String, []byte("hello"))
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if inPlace {
		t.Error("new key placed in place")
	}
	if d.Offset != 0 || d.Length != 5 || d.Allocated != 32 || d.IndexOffset != storage.NoIndexOffset {
		t.Errorf("Place() = %+v", d)
	}
	if df.Size() != 33 {
		t.Errorf("Size() = %d, want 33", df.Size())
	}
	st, _ := os.Stat(path)
	if st.Size() != 33 {
		t.Errorf("file size = %d, want 33", st.Size())
	}

	d2, _, _ := df.Place(nil, 2, storage.Int32, EncodeScalar(int32(7)))
	if d2.Offset != 33 {
		t.Errorf("second record Offset = %d, want 33", d2.Offset)
	}
}

func TestPlaceInPlaceWhenItFits(t *testing.T) {
	df, _ := openTestDataFile(t)

	big := bytes.Repeat([]byte("x"), 20)
	d, _, _ := df.Place(nil, 1, storage.String, big)
	d.IndexOffset = 0
	neighbour, _, _ := df.Place(nil, 2, storage.String, []byte("neighbour"))

	// grows inside the 32 byte slot
	grown := bytes.Repeat([]byte("y"), 32)
	d2, inPlace, err := df.Place(&d, 1, storage.String, grown)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if !inPlace || d2.Offset != d.Offset || d2.Allocated != 32 || d2.IndexOffset != 0 {
		t.Errorf("Place() = %+v inPlace=%v", d2, inPlace)
	}

	// neighbour untouched
	tag, payload, err := df.Read(neighbour)
	if err != nil || tag != storage.String || string(payload) != "neighbour" {
		t.Errorf("Read(neighbour) = %v %q %v", tag, payload, err)
	}

	// shrinking keeps the allocation
	d3, inPlace, _ := df.Place(&d2, 1, storage.String, []byte("s"))
	if !inPlace || d3.Allocated != 32 || d3.Length != 1 {
		t.Errorf("shrink Place() = %+v inPlace=%v", d3, inPlace)
	}
}

func TestPlaceRelocatesWhenItOutgrows(t *testing.T) {
	df, _ := openTestDataFile(t)

	d, _, _ := df.Place(nil, 1, storage.String, []byte("short"))
	d.IndexOffset = 24
	before := df.Size()

	long := bytes.Repeat([]byte("z"), 33)
	d2, inPlace, err := df.Place(&d, 1, storage.String, long)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if inPlace {
		t.Error("outgrown value written in place")
	}
	if d2.Offset != before || d2.Allocated != 64 || d2.IndexOffset != 24 {
		t.Errorf("Place() = %+v, want Offset=%d Allocated=64 IndexOffset=24", d2, before)
	}

	// the old bytes stay where they were
	tag, payload, _ := df.Read(d)
	if tag != storage.String || string(payload) != "short" {
		t.Errorf("old slot = %v %q", tag, payload)
	}
}

func TestPlaceEmptyPayload(t *testing.T) {
	df, _ := openTestDataFile(t)

	d, _, err := df.Place(nil, 1, storage.String, nil)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if d.Allocated != 0 || df.Size() != 1 {
		t.Errorf("Place() = %+v size=%d", d, df.Size())
	}
	// anything longer than zero must move
	d2, inPlace, _ := df.Place(&d, 1, storage.String, []byte("a"))
	if inPlace || d2.Offset != 1 {
		t.Errorf("Place() = %+v inPlace=%v", d2, inPlace)
	}
}

func TestReadTruncatedFile(t *testing.T) {
	df, path := openTestDataFile(t)
	d, _, _ := df.Place(nil, 1, storage.String, []byte("hello"))

	if err := os.Truncate(path, 3); err != nil {
		t.Fatal(err)
	}
	if _, _, err := df.Read(d); !errors.Is(err, err_def.ErrInsufficientData) {
		t.Errorf("Read() error = %v, want ErrInsufficientData", err)
	}
}

func TestTruncateAndReopen(t *testing.T) {
	df, path := openTestDataFile(t)
	_, _, _ = df.Place(nil, 1, storage.Int64, EncodeScalar(int64(1)))
	if err := df.Truncate(); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	if df.Size() != 0 {
		t.Errorf("Size() = %d, want 0", df.Size())
	}
	d, _, _ := df.Place(nil, 1, storage.Int64, EncodeScalar(int64(2)))
	if d.Offset != 0 {
		t.Errorf("Offset after Truncate = %d, want 0", d.Offset)
	}
	if err := df.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
	_ = df.Close()

	df2, err := OpenDataFile(path, true)
	if err != nil {
		t.Fatal(err)
	}
	defer df2.Close()
	if df2.Size() != 33 {
		t.Errorf("reopened Size() = %d, want 33", df2.Size())
	}
	tag, payload, err := df2.Read(d)
	if err != nil || tag != storage.Int64 {
		t.Fatalf("Read() = %v, %v", tag, err)
	}
	if v, _ := DecodeScalar[int64](payload); v != 2 {
		t.Errorf("value = %d, want 2", v)
	}
}
