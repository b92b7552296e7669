package storage

import "strconv"

// TypeTag 数据记录的类型标记，占一个字节，写在负载之前
// 数值固定，磁盘格式依赖这些值
type TypeTag byte

const (
	Unknown TypeTag = iota
	Int32
	Int64
	Float32
	Float64
	Bool
	Byte
	Int16
	UInt32
	UInt64
	UInt16
	String
	Custom
)

var tagNames = [...]string{
	Unknown: "Unknown",
	Int32:   "Int32",
	Int64:   "Int64",
	Float32: "Float32",
	Float64: "Float64",
	Bool:    "Bool",
	Byte:    "Byte",
	Int16:   "Int16",
	UInt32:  "UInt32",
	UInt64:  "UInt64",
	UInt16:  "UInt16",
	String:  "String",
	Custom:  "Custom",
}

func (t TypeTag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "TypeTag(" + strconv.Itoa(int(t)) + ")"
}

// Valid 判断标记是否为已知的具体类型（Unknown 不算）
func (t TypeTag) Valid() bool {
	return t > Unknown && t <= Custom
}

// FixedSize 返回定长标量类型的负载宽度，String/Custom 等变长类型返回 0
func (t TypeTag) FixedSize() int32 {
	switch t {
	case Bool, Byte:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	default:
		return 0
	}
}

// Descriptor 记录描述符，内存索引中的条目，同时镜像到索引文件
type Descriptor struct {
	KeyID       uint64 // 键 ID
	Offset      int64  // 记录（类型标记）在数据文件中的偏移
	Length      int32  // 负载长度，不含类型标记
	Allocated   int32  // 分配的槽大小，追加时取 Length 向上对齐 32 字节，之后不再缩小
	IndexOffset int64  // 在索引文件中的偏移，NoIndexOffset 表示尚未写入
}

// Stats 存储引擎运行计数
type Stats struct {
	DiskReads     int64 // 读取数据文件的次数
	CacheHits     int64 // 缓存命中次数
	CacheMisses   int64 // 缓存未命中次数
	InPlaceWrites int64 // 原位覆盖写次数
	Appends       int64 // 追加写次数
	Removes       int64 // 删除次数
	DeadBytes     int64 // 本次打开以来因重新分配而废弃的字节数
	Keys          int   // 当前键数量
	DataFileSize  int64 // 数据文件大小（高水位，不代表有效数据量）
	IndexFileSize int64 // 索引文件大小
	CachedEntries int   // 缓存项数量
}

// Scalar 支持的定长标量类型
type Scalar interface {
	int32 | int64 | float32 | float64 | bool | uint8 | int16 | uint32 | uint64 | uint16
}
