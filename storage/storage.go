// Package storage 定义了 SlotKV 的存储引擎接口和常量
// 每个存储由同目录下的两个文件组成：<name>.bin 数据文件与 <name>.idx 索引文件
package storage

// 存储引擎相关常量
const (
	DataFileSuffix  = ".bin" // 数据文件后缀
	IndexFileSuffix = ".idx" // 索引文件后缀

	// IndexEntrySize 索引项大小: keyID(8) + offset(8) + length(4) + allocated(4) = 24 bytes
	IndexEntrySize = 8 + 8 + 4 + 4
	// TagSize 每条数据记录开头的类型标记长度
	TagSize = 1
	// MaxValueSize 单个值的最大长度 1GB（长度字段为 int32）
	MaxValueSize = 1 << 30
	// NoIndexOffset 描述符尚未写入索引文件时的占位偏移
	NoIndexOffset int64 = -1
)

// MemIndex 定义了内存索引接口
type MemIndex[KeyType comparable, ValueType any] interface {
	Put(key KeyType, value ValueType) error                  // 添加或覆盖索引项
	Get(key KeyType) (ValueType, error)                      // 获取索引项
	Del(key KeyType) error                                   // 删除索引项
	Foreach(f func(key KeyType, value ValueType) bool) error // 遍历所有索引项，f 返回 false 时停止
	Clear() error                                            // 清空索引
	Len() int                                                // 索引项数量
}

// MemCache 定义了内存缓存接口
// 缓存未命中总是可以安全地回落到磁盘读取
type MemCache[KeyType comparable, ValueType any] interface {
	Insert(key KeyType, value ValueType) error // 插入或更新缓存项
	Get(key KeyType) (ValueType, bool)         // 查找缓存项
	Delete(key KeyType) error                  // 删除缓存项
	Exist(key KeyType) bool                    // 检查缓存项是否存在
	Purge()                                    // 清空缓存
	Len() int                                  // 缓存项数量
}
