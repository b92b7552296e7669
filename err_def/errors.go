// Package err_def 定义了 SlotKV 中使用的所有错误类型
package err_def

import (
	"errors"
	"fmt"
)

// 系统中使用的错误常量定义
var (
	ErrKeyNotFound      = errors.New("key not found")           // 键不存在
	ErrDBClosed         = errors.New("database is closed")      // 数据库已关闭
	ErrWriteFailed      = errors.New("write failed")            // 写入失败
	ErrReadFailed       = errors.New("read failed")             // 读取失败
	ErrValueTooLarge    = errors.New("value too large")         // 值过大
	ErrInsufficientData = errors.New("insufficient data")       // 文件中的数据不足（截断或损坏）
	ErrTypeMismatch     = errors.New("type mismatch")           // 存储类型与读取类型不一致
	ErrLengthMismatch   = errors.New("data length mismatch")    // 存储长度与定长类型宽度不一致
	ErrUnknownType      = errors.New("unknown stored type")     // 类型标记无法识别
	ErrDecodeFailed     = errors.New("decode failed")           // 自定义类型反序列化失败
	ErrEncodeFailed     = errors.New("encode failed")           // 自定义类型序列化失败
	ErrIndexCorrupt     = errors.New("index file corrupt")      // 索引文件内容与内存不一致
	ErrBadOption        = errors.New("invalid storage options") // 配置项无效
)

// TypeMismatchError 记录一次类型不匹配的具体类型，Stored/Requested 为类型名
type TypeMismatchError struct {
	Stored    string
	Requested string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("stored %s, requested %s", e.Stored, e.Requested)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// LengthMismatchError 记录存储长度与预期长度
type LengthMismatchError struct {
	Stored   int32
	Expected int32
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("stored length %d, expected length %d", e.Stored, e.Expected)
}

func (e *LengthMismatchError) Is(target error) bool {
	return target == ErrLengthMismatch
}
