package file_manager

import (
	"errors"
	"math"
	"testing"

	"SlotKV/err_def"
	"SlotKV/storage"
)

func checkScalar[T storage.Scalar](t *testing.T, v T, tag storage.TypeTag) {
	t.Helper()
	if got := TagOf[T](); got != tag {
		t.Errorf("TagOf[%T]() = %v, want %v", v, got, tag)
	}
	b := EncodeScalar(v)
	if int32(len(b)) != tag.FixedSize() {
		t.Errorf("EncodeScalar(%v) length = %d, want %d", v, len(b), tag.FixedSize())
	}
	got, err := DecodeScalar[T](b)
	if err != nil {
		t.Fatalf("DecodeScalar[%T]() error = %v", v, err)
	}
	if got != v {
		t.Errorf("DecodeScalar[%T]() = %v, want %v", v, got, v)
	}
}

func TestScalarCodec(t *testing.T) {
	checkScalar(t, int32(math.MinInt32), storage.Int32)
	checkScalar(t, int64(math.MaxInt64), storage.Int64)
	checkScalar(t, float32(3.14), storage.Float32)
	checkScalar(t, 3.14159265359, storage.Float64)
	checkScalar(t, true, storage.Bool)
	checkScalar(t, false, storage.Bool)
	checkScalar(t, uint8(255), storage.Byte)
	checkScalar(t, int16(-12345), storage.Int16)
	checkScalar(t, uint32(math.MaxUint32), storage.UInt32)
	checkScalar(t, uint64(math.MaxUint64), storage.UInt64)
	checkScalar(t, uint16(65535), storage.UInt16)
}

func TestEncodeScalarLittleEndian(t *testing.T) {
	b := EncodeScalar(int32(42))
	if b[0] != 42 || b[1] != 0 || b[2] != 0 || b[3] != 0 {
		t.Errorf("EncodeScalar(int32(42)) = % x", b)
	}
}

func TestDecodeScalarLengthMismatch(t *testing.T) {
	_, err := DecodeScalar[int64]([]byte{1, 2, 3, 4})
	var lm *err_def.LengthMismatchError
	if !errors.As(err, &lm) {
		t.Fatalf("DecodeScalar() error = %v, want LengthMismatchError", err)
	}
	if lm.Stored != 4 || lm.Expected != 8 {
		t.Errorf("LengthMismatchError = %+v", lm)
	}
	if !errors.Is(err, err_def.ErrLengthMismatch) {
		t.Error("errors.Is(ErrLengthMismatch) = false")
	}
}

func TestDecodeBoolNonZero(t *testing.T) {
	v, err := DecodeScalar[bool]([]byte{7})
	if err != nil || !v {
		t.Errorf("DecodeScalar[bool](7) = %v, %v", v, err)
	}
}

func TestDecodeAs(t *testing.T) {
	v, err := DecodeAs(storage.UInt16, EncodeScalar(uint16(9)))
	if err != nil || v != uint16(9) {
		t.Errorf("DecodeAs(UInt16) = %v (%T), %v", v, v, err)
	}
	v, _ = DecodeAs(storage.String, []byte("hi"))
	if v != "hi" {
		t.Errorf("DecodeAs(String) = %v", v)
	}
	if _, err := DecodeAs(storage.Unknown, nil); !errors.Is(err, err_def.ErrUnknownType) {
		t.Errorf("DecodeAs(Unknown) error = %v", err)
	}
	if _, err := DecodeAs(storage.TypeTag(200), nil); !errors.Is(err, err_def.ErrUnknownType) {
		t.Errorf("DecodeAs(200) error = %v", err)
	}
}
