package index

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"SlotKV/err_def"
	"SlotKV/storage"
)

func openTestKeyDir(t *testing.T, path string) *KeyDir {
	t.Helper()
	f, err := OpenIndexFile(path)
	if err != nil {
		t.Fatalf("OpenIndexFile() error = %v", err)
	}
	kd := NewKeyDir(f, 0, slog.Default())
	if err := kd.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() { _ = kd.Close() })
	return kd
}

func desc(id uint64, off int64, length int32) storage.Descriptor {
	return storage.Descriptor{
		KeyID:       id,
		Offset:      off,
		Length:      length,
		Allocated:   32,
		IndexOffset: storage.NoIndexOffset,
	}
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	return st.Size()
}

func TestKeyDirUpsertAppendsThenOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.idx")
	kd := openTestKeyDir(t, path)

	d, err := kd.Upsert(desc(7, 0, 4))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if d.IndexOffset != 0 {
		t.Errorf("first entry IndexOffset = %d, want 0", d.IndexOffset)
	}
	d2, _ := kd.Upsert(desc(8, 33, 4))
	if d2.IndexOffset != storage.IndexEntrySize {
		t.Errorf("second entry IndexOffset = %d, want %d", d2.IndexOffset, storage.IndexEntrySize)
	}

	// update keeps the slot in the index file
	d3, _ := kd.Upsert(desc(7, 66, 10))
	if d3.IndexOffset != 0 {
		t.Errorf("updated entry IndexOffset = %d, want 0", d3.IndexOffset)
	}
	if got := fileSize(t, path); got != 2*storage.IndexEntrySize {
		t.Errorf("index file size = %d, want %d", got, 2*storage.IndexEntrySize)
	}
	if got, _ := kd.Lookup(7); got.Offset != 66 || got.Length != 10 {
		t.Errorf("Lookup(7) = %+v", got)
	}
}

func TestKeyDirSwapDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.idx")
	kd := openTestKeyDir(t, path)

	for id := uint64(1); id <= 5; id++ {
		if _, err := kd.Upsert(desc(id, int64(id)*100, int32(id))); err != nil {
			t.Fatalf("Upsert(%d) error = %v", id, err)
		}
	}
	before := fileSize(t, path)

	ok, err := kd.Remove(3)
	if err != nil || !ok {
		t.Fatalf("Remove(3) = %v, %v", ok, err)
	}
	if got := fileSize(t, path); got != before-storage.IndexEntrySize {
		t.Errorf("index file size = %d, want %d", got, before-storage.IndexEntrySize)
	}
	// key 5 was last and now sits in key 3's old slot
	if d5, _ := kd.Lookup(5); d5.IndexOffset != 2*storage.IndexEntrySize {
		t.Errorf("moved entry IndexOffset = %d, want %d", d5.IndexOffset, 2*storage.IndexEntrySize)
	}
	if _, ok := kd.Lookup(3); ok {
		t.Error("Lookup(3) found removed key")
	}

	ok, err = kd.Remove(3)
	if err != nil || ok {
		t.Errorf("second Remove(3) = %v, %v, want false, nil", ok, err)
	}

	// removing the last entry moves nothing
	if ok, err := kd.Remove(4); err != nil || !ok {
		t.Fatalf("Remove(4) = %v, %v", ok, err)
	}

	// reload and compare with memory
	_ = kd.Close()
	kd2 := openTestKeyDir(t, path)
	if kd2.Len() != 3 {
		t.Fatalf("reloaded Len() = %d, want 3", kd2.Len())
	}
	for _, id := range []uint64{1, 2, 5} {
		d, ok := kd2.Lookup(id)
		if !ok {
			t.Fatalf("reloaded Lookup(%d) missing", id)
		}
		if d.Offset != int64(id)*100 || d.Length != int32(id) {
			t.Errorf("reloaded Lookup(%d) = %+v", id, d)
		}
	}
}

func TestKeyDirClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.idx")
	kd := openTestKeyDir(t, path)
	_, _ = kd.Upsert(desc(1, 0, 1))
	_, _ = kd.Upsert(desc(2, 33, 1))

	if err := kd.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if kd.Len() != 0 || kd.FileSize() != 0 || fileSize(t, path) != 0 {
		t.Errorf("Clear() left Len=%d FileSize=%d", kd.Len(), kd.FileSize())
	}
	d, err := kd.Upsert(desc(3, 0, 1))
	if err != nil || d.IndexOffset != 0 {
		t.Errorf("Upsert() after Clear = %+v, %v", d, err)
	}
}

func TestIndexFileDropsPartialTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.idx")
	kd := openTestKeyDir(t, path)
	_, _ = kd.Upsert(desc(1, 0, 1))
	_ = kd.Close()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.Write([]byte{1, 2, 3, 4, 5})
	_ = f.Close()

	kd2 := openTestKeyDir(t, path)
	if kd2.Len() != 1 {
		t.Errorf("Len() = %d, want 1", kd2.Len())
	}
	if got := fileSize(t, path); got != storage.IndexEntrySize {
		t.Errorf("index file size = %d, want %d", got, storage.IndexEntrySize)
	}
}

func TestIndexFileRejectsBadOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.idx")
	f, err := OpenIndexFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	d := desc(1, 0, 1)
	d.IndexOffset = 48
	if err := f.Overwrite(d); !errors.Is(err, err_def.ErrIndexCorrupt) {
		t.Errorf("Overwrite() error = %v, want ErrIndexCorrupt", err)
	}
	if _, _, err := f.SwapDelete(0); !errors.Is(err, err_def.ErrIndexCorrupt) {
		t.Errorf("SwapDelete() on empty file error = %v, want ErrIndexCorrupt", err)
	}
}

func TestEntryCodec(t *testing.T) {
	in := storage.Descriptor{KeyID: 0xdeadbeefcafebabe, Offset: 1 << 40, Length: 17, Allocated: 32}
	buf := make([]byte, storage.IndexEntrySize)
	encodeEntry(buf, in)
	// little-endian key id first
	if buf[0] != 0xbe || buf[7] != 0xde {
		t.Errorf("key id bytes = % x", buf[0:8])
	}
	out := decodeEntry(buf)
	in.IndexOffset = storage.NoIndexOffset
	if out != in {
		t.Errorf("decodeEntry() = %+v, want %+v", out, in)
	}
}

func writeEntries(t *testing.T, path string, ds ...storage.Descriptor) {
	t.Helper()
	f, err := OpenIndexFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for _, d := range ds {
		if _, err := f.Append(d); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
}

func TestKeyDirRemoveFailureKeepsKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.idx")
	kd := openTestKeyDir(t, path)
	_, _ = kd.Upsert(desc(1, 0, 1))
	_, _ = kd.Upsert(desc(2, 33, 1))

	_ = kd.file.Close()
	ok, err := kd.Remove(1)
	if err == nil || ok {
		t.Fatalf("Remove() on closed file = %v, %v, want false and an error", ok, err)
	}
	if _, ok := kd.Lookup(1); !ok {
		t.Error("key vanished from memory after a failed remove")
	}

	kd2 := openTestKeyDir(t, path)
	if _, ok := kd2.Lookup(1); !ok || kd2.Len() != 2 {
		t.Errorf("reloaded Len() = %d, key 1 present = %v", kd2.Len(), ok)
	}
}

func TestKeyDirLoadDropsStaleDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.idx")
	writeEntries(t, path, desc(1, 0, 1), desc(2, 33, 1), desc(1, 99, 2))

	kd := openTestKeyDir(t, path)
	if kd.Len() != 2 || fileSize(t, path) != 2*storage.IndexEntrySize {
		t.Fatalf("Len() = %d, file size = %d", kd.Len(), fileSize(t, path))
	}
	d, _ := kd.Lookup(1)
	if d.Offset != 99 || d.IndexOffset != 0 {
		t.Errorf("Lookup(1) = %+v, want the later entry moved to offset 0", d)
	}

	if ok, err := kd.Remove(1); err != nil || !ok {
		t.Fatalf("Remove(1) = %v, %v", ok, err)
	}
	_ = kd.Close()

	kd2 := openTestKeyDir(t, path)
	if _, ok := kd2.Lookup(1); ok {
		t.Error("removed key came back after reload")
	}
	if _, ok := kd2.Lookup(2); !ok || kd2.Len() != 1 {
		t.Errorf("reloaded Len() = %d", kd2.Len())
	}
}

func TestKeyDirLoadDropsCorruptEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.idx")
	bad := desc(2, 33, 40) // longer than its 32 byte slot
	negative := desc(4, 66, 1)
	negative.Allocated = -32
	writeEntries(t, path, desc(1, 0, 1), bad, desc(3, 99, 1), negative)

	kd := openTestKeyDir(t, path)
	if kd.Len() != 2 || fileSize(t, path) != 2*storage.IndexEntrySize {
		t.Fatalf("Len() = %d, file size = %d", kd.Len(), fileSize(t, path))
	}
	for _, id := range []uint64{2, 4} {
		if _, ok := kd.Lookup(id); ok {
			t.Errorf("corrupt entry %d loaded", id)
		}
	}
	if d, _ := kd.Lookup(3); d.IndexOffset != storage.IndexEntrySize {
		t.Errorf("Lookup(3) IndexOffset = %d, want %d", d.IndexOffset, storage.IndexEntrySize)
	}

	// memory and file agree: every entry can be removed cleanly
	for _, id := range []uint64{1, 3} {
		if ok, err := kd.Remove(id); err != nil || !ok {
			t.Errorf("Remove(%d) = %v, %v", id, ok, err)
		}
	}
	if fileSize(t, path) != 0 {
		t.Errorf("file size = %d, want 0", fileSize(t, path))
	}
}
