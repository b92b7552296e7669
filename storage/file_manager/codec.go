package file_manager

import (
	"encoding/binary"
	"fmt"
	"math"

	"SlotKV/err_def"
	"SlotKV/storage"
)

// TagOf 返回标量类型对应的类型标记
func TagOf[T storage.Scalar]() storage.TypeTag {
	var zero T
	switch any(zero).(type) {
	case int32:
		return storage.Int32
	case int64:
		return storage.Int64
	case float32:
		return storage.Float32
	case float64:
		return storage.Float64
	case bool:
		return storage.Bool
	case uint8:
		return storage.Byte
	case int16:
		return storage.Int16
	case uint32:
		return storage.UInt32
	case uint64:
		return storage.UInt64
	case uint16:
		return storage.UInt16
	}
	return storage.Unknown
}

// EncodeScalar 将标量编码为小端序负载，bool 编码为单字节 0/1
func EncodeScalar[T storage.Scalar](v T) []byte {
	switch x := any(v).(type) {
	case int32:
		return binary.LittleEndian.AppendUint32(nil, uint32(x))
	case int64:
		return binary.LittleEndian.AppendUint64(nil, uint64(x))
	case float32:
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(x))
	case float64:
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(x))
	case bool:
		if x {
			return []byte{1}
		}
		return []byte{0}
	case uint8:
		return []byte{x}
	case int16:
		return binary.LittleEndian.AppendUint16(nil, uint16(x))
	case uint32:
		return binary.LittleEndian.AppendUint32(nil, x)
	case uint64:
		return binary.LittleEndian.AppendUint64(nil, x)
	case uint16:
		return binary.LittleEndian.AppendUint16(nil, x)
	}
	return nil
}

// DecodeScalar 从负载解码标量，负载长度必须等于类型宽度
// 任何非零字节都解码为 true
func DecodeScalar[T storage.Scalar](b []byte) (T, error) {
	var zero T
	want := TagOf[T]().FixedSize()
	if int32(len(b)) != want {
		return zero, &err_def.LengthMismatchError{Stored: int32(len(b)), Expected: want}
	}

	var v any
	switch any(zero).(type) {
	case int32:
		v = int32(binary.LittleEndian.Uint32(b))
	case int64:
		v = int64(binary.LittleEndian.Uint64(b))
	case float32:
		v = math.Float32frombits(binary.LittleEndian.Uint32(b))
	case float64:
		v = math.Float64frombits(binary.LittleEndian.Uint64(b))
	case bool:
		v = b[0] != 0
	case uint8:
		v = b[0]
	case int16:
		v = int16(binary.LittleEndian.Uint16(b))
	case uint32:
		v = binary.LittleEndian.Uint32(b)
	case uint64:
		v = binary.LittleEndian.Uint64(b)
	case uint16:
		v = binary.LittleEndian.Uint16(b)
	default:
		return zero, fmt.Errorf("%w: %T", err_def.ErrUnknownType, zero)
	}
	return v.(T), nil
}

// DecodeAs 按类型标记把负载解码为对应的 Go 值，String 解码为 string，Custom 原样返回字节
func DecodeAs(tag storage.TypeTag, b []byte) (any, error) {
	switch tag {
	case storage.Int32:
		return DecodeScalar[int32](b)
	case storage.Int64:
		return DecodeScalar[int64](b)
	case storage.Float32:
		return DecodeScalar[float32](b)
	case storage.Float64:
		return DecodeScalar[float64](b)
	case storage.Bool:
		return DecodeScalar[bool](b)
	case storage.Byte:
		return DecodeScalar[uint8](b)
	case storage.Int16:
		return DecodeScalar[int16](b)
	case storage.UInt32:
		return DecodeScalar[uint32](b)
	case storage.UInt64:
		return DecodeScalar[uint64](b)
	case storage.UInt16:
		return DecodeScalar[uint16](b)
	case storage.String:
		return string(b), nil
	case storage.Custom:
		return b, nil
	}
	return nil, fmt.Errorf("%w: tag %d", err_def.ErrUnknownType, byte(tag))
}
