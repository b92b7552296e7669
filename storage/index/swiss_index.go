package index

import (
	"fmt"

	"github.com/dolthub/swiss"

	"SlotKV/storage"
)

var _ storage.MemIndex[uint64, storage.Descriptor] = (*SwissIndex[uint64, storage.Descriptor])(nil)

// SwissIndex 基于瑞士表的索引结构
// 自身不加锁，由上层的引擎锁保护
type SwissIndex[K comparable, V any] struct {
	swissTable *swiss.Map[K, V] // 底层使用的瑞士表实现
}

// NewSwissIndex 创建一个新的 SwissIndex 实例
func NewSwissIndex[K comparable, V any](size uint32) *SwissIndex[K, V] {
	if size == 0 {
		size = 1 << 10
	}
	return &SwissIndex[K, V]{
		swissTable: swiss.NewMap[K, V](size),
	}
}

// Put 向索引中插入一个键值对
func (s *SwissIndex[K, V]) Put(key K, value V) error {
	s.swissTable.Put(key, value)
	return nil
}

// Get 根据键获取对应的值
func (s *SwissIndex[K, V]) Get(key K) (V, error) {
	value, ok := s.swissTable.Get(key)
	if !ok {
		var zero V
		return zero, fmt.Errorf("no value found for key %v", key)
	}
	return value, nil
}

// Lookup 与 Get 相同，但用布尔值表示是否存在
func (s *SwissIndex[K, V]) Lookup(key K) (V, bool) {
	return s.swissTable.Get(key)
}

// Del 删除指定键的键值对
func (s *SwissIndex[K, V]) Del(key K) error {
	if ok := s.swissTable.Delete(key); !ok {
		return fmt.Errorf("no value found for key %v", key)
	}
	return nil
}

// Foreach 遍历索引中的所有键值对，f 返回 false 时停止
func (s *SwissIndex[K, V]) Foreach(f func(key K, value V) bool) error {
	s.swissTable.Iter(func(key K, value V) bool {
		return !f(key, value)
	})
	return nil
}

// Clear 清空索引中的所有键值对
func (s *SwissIndex[K, V]) Clear() error {
	s.swissTable.Clear()
	return nil
}

// Len 返回索引项数量
func (s *SwissIndex[K, V]) Len() int {
	return s.swissTable.Count()
}
