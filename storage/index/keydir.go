package index

import (
	"fmt"
	"log/slog"
	"slices"

	"SlotKV/err_def"
	"SlotKV/storage"
)

// KeyDir 键目录：内存中的键 ID -> 记录描述符映射，每次修改同步写入索引文件
type KeyDir struct {
	mem  *SwissIndex[uint64, storage.Descriptor]
	file *IndexFile
	log  *slog.Logger
}

// NewKeyDir 基于已打开的索引文件创建键目录，需要调用 Load 恢复内容
func NewKeyDir(file *IndexFile, size uint32, log *slog.Logger) *KeyDir {
	return &KeyDir{
		mem:  NewSwissIndex[uint64, storage.Descriptor](size),
		file: file,
		log:  log,
	}
}

// Load 从索引文件重建内存索引
// 损坏的索引项与重复键 ID 的旧索引项会从文件中交换删除，重复时后出现的生效
func (kd *KeyDir) Load() error {
	var stale []int64
	dropped, err := kd.file.Load(func(d storage.Descriptor) error {
		if err := checkEntry(d); err != nil {
			kd.log.Warn("drop corrupt index entry", "key_id", d.KeyID, "index_offset", d.IndexOffset, "err", err)
			stale = append(stale, d.IndexOffset)
			return nil
		}
		if old, ok := kd.mem.Lookup(d.KeyID); ok {
			kd.log.Warn("duplicate key id in index file",
				"key_id", d.KeyID, "first", old.IndexOffset, "second", d.IndexOffset)
			stale = append(stale, old.IndexOffset)
		}
		return kd.mem.Put(d.KeyID, d)
	})
	if err != nil {
		return fmt.Errorf("load index file failed: %w", err)
	}
	if dropped > 0 {
		kd.log.Warn("dropped partial trailing index entry", "path", kd.file.path, "bytes", dropped)
	}

	// 从后往前删，被搬动的总是尚未处理的有效项
	slices.Sort(stale)
	for i := len(stale) - 1; i >= 0; i-- {
		if err := kd.dropEntry(stale[i]); err != nil {
			return fmt.Errorf("drop stale index entry failed: %w", err)
		}
	}
	return nil
}

// checkEntry 检查从文件读出的索引项是否自洽
func checkEntry(d storage.Descriptor) error {
	if d.Offset < 0 || d.Length < 0 || d.Allocated < 0 || d.Length > d.Allocated || d.Allocated > storage.MaxValueSize {
		return fmt.Errorf("%w: offset=%d length=%d allocated=%d",
			err_def.ErrIndexCorrupt, d.Offset, d.Length, d.Allocated)
	}
	return nil
}

// dropEntry 交换删除 offset 处的索引项，并修正被搬动键的 IndexOffset
// 只有内存中记录的偏移正好是文件末项时才修正
func (kd *KeyDir) dropEntry(offset int64) error {
	last := kd.file.Size() - storage.IndexEntrySize
	movedID, moved, err := kd.file.SwapDelete(offset)
	if err != nil {
		return err
	}
	if moved {
		if md, ok := kd.mem.Lookup(movedID); ok && md.IndexOffset == last {
			md.IndexOffset = offset
			_ = kd.mem.Put(movedID, md)
		}
	}
	return nil
}

// Lookup 查找键 ID 对应的描述符
func (kd *KeyDir) Lookup(id uint64) (storage.Descriptor, bool) {
	return kd.mem.Lookup(id)
}

// Upsert 插入或替换描述符，并写入索引文件：
// 新键在文件末尾追加索引项，已有键覆盖其原有索引项
func (kd *KeyDir) Upsert(d storage.Descriptor) (storage.Descriptor, error) {
	if old, ok := kd.mem.Lookup(d.KeyID); ok && old.IndexOffset != storage.NoIndexOffset {
		d.IndexOffset = old.IndexOffset
		if err := kd.file.Overwrite(d); err != nil {
			return d, err
		}
	} else {
		offset, err := kd.file.Append(d)
		if err != nil {
			return d, err
		}
		d.IndexOffset = offset
	}
	_ = kd.mem.Put(d.KeyID, d)
	return d, nil
}

// Remove 删除键 ID，索引文件采用交换删除，键不存在时返回 false
// 文件操作失败时内存不变，键仍然存在
func (kd *KeyDir) Remove(id uint64) (bool, error) {
	d, ok := kd.mem.Lookup(id)
	if !ok {
		return false, nil
	}

	last := kd.file.Size() - storage.IndexEntrySize
	movedID, moved, err := kd.file.SwapDelete(d.IndexOffset)
	if err != nil {
		return false, err
	}
	_ = kd.mem.Del(id)
	if moved {
		md, ok := kd.mem.Lookup(movedID)
		if !ok || md.IndexOffset != last {
			return true, fmt.Errorf("%w: moved entry %d not in memory", err_def.ErrIndexCorrupt, movedID)
		}
		md.IndexOffset = d.IndexOffset
		_ = kd.mem.Put(movedID, md)
	}
	return true, nil
}

// Patch 只更新内存中的描述符，用于数据已写入而索引文件写入失败的情况
func (kd *KeyDir) Patch(d storage.Descriptor) {
	if old, ok := kd.mem.Lookup(d.KeyID); ok {
		d.IndexOffset = old.IndexOffset
		_ = kd.mem.Put(d.KeyID, d)
	}
}

// Clear 清空内存索引并截断索引文件
func (kd *KeyDir) Clear() error {
	_ = kd.mem.Clear()
	return kd.file.Truncate()
}

// Len 返回键数量
func (kd *KeyDir) Len() int {
	return kd.mem.Len()
}

// Foreach 遍历所有描述符，f 返回 false 时停止
func (kd *KeyDir) Foreach(f func(d storage.Descriptor) bool) {
	_ = kd.mem.Foreach(func(_ uint64, d storage.Descriptor) bool {
		return f(d)
	})
}

// FileSize 返回索引文件长度
func (kd *KeyDir) FileSize() int64 {
	return kd.file.Size()
}

// Sync 将索引文件刷到磁盘
func (kd *KeyDir) Sync() error {
	return kd.file.Sync()
}

// Close 关闭索引文件
func (kd *KeyDir) Close() error {
	return kd.file.Close()
}
