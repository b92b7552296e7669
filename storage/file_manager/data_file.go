package file_manager

import (
	"errors"
	"fmt"
	"io"
	"os"

	"SlotKV/err_def"
	"SlotKV/storage"
	"SlotKV/util"
)

// DataFile 数据文件，保存带类型标记的负载
// 记录格式: [Tag(1)|Payload(Length)]，位置由写入策略决定，文件没有文件头。
// 追加写入的槽会用零填充到 1+Allocated 字节，原位覆盖永远不会越过本槽。
type DataFile struct {
	path        string
	file        *os.File
	offset      int64 // 文件末尾，下一次追加的写入位置
	syncOnWrite bool
}

// OpenDataFile 打开数据文件，不存在时创建
func OpenDataFile(path string, syncOnWrite bool) (*DataFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open data file failed: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat data file failed: %w", err)
	}
	return &DataFile{
		path:        path,
		file:        file,
		offset:      stat.Size(),
		syncOnWrite: syncOnWrite,
	}, nil
}

// Place 写入一条记录并返回新的描述符
// prev 为该键已有的描述符（新键传 nil）。负载不超过已分配槽大小时原位覆盖，
// Offset 与 Allocated 保持不变；否则追加到文件末尾，Allocated 取对齐后的长度，
// 旧槽成为永久的死空间。inPlace 表示是否原位覆盖
func (df *DataFile) Place(prev *storage.Descriptor, keyID uint64, tag storage.TypeTag, payload []byte) (d storage.Descriptor, inPlace bool, err error) {
	if len(payload) > storage.MaxValueSize {
		return d, false, fmt.Errorf("%w: value length %d exceeds maximum %d", err_def.ErrValueTooLarge, len(payload), storage.MaxValueSize)
	}
	length := int32(len(payload))

	if prev != nil && length <= prev.Allocated {
		buf := make([]byte, storage.TagSize+len(payload))
		buf[0] = byte(tag)
		copy(buf[storage.TagSize:], payload)
		if _, err := df.file.WriteAt(buf, prev.Offset); err != nil {
			return d, false, fmt.Errorf("%w: overwrite at %d: %v", err_def.ErrWriteFailed, prev.Offset, err)
		}
		d = *prev
		d.Length = length
		inPlace = true
	} else {
		allocated := util.AllocSize(length)
		buf := make([]byte, storage.TagSize+int(allocated))
		buf[0] = byte(tag)
		copy(buf[storage.TagSize:], payload)
		pos := df.offset
		if _, err := df.file.WriteAt(buf, pos); err != nil {
			return d, false, fmt.Errorf("%w: append at %d: %v", err_def.ErrWriteFailed, pos, err)
		}
		df.offset += int64(len(buf))

		d = storage.Descriptor{
			KeyID:       keyID,
			Offset:      pos,
			Length:      length,
			Allocated:   allocated,
			IndexOffset: storage.NoIndexOffset,
		}
		if prev != nil {
			d.IndexOffset = prev.IndexOffset
		}
	}

	if df.syncOnWrite {
		if err := df.Sync(); err != nil {
			return d, inPlace, err
		}
	}
	return d, inPlace, nil
}

// Read 一次定位读取类型标记与负载，数据不足时返回 ErrInsufficientData
func (df *DataFile) Read(d storage.Descriptor) (storage.TypeTag, []byte, error) {
	if d.Length < 0 || d.Offset < 0 {
		return storage.Unknown, nil, fmt.Errorf("%w: offset=%d length=%d", err_def.ErrInsufficientData, d.Offset, d.Length)
	}
	buf := make([]byte, storage.TagSize+int(d.Length))
	n, err := df.file.ReadAt(buf, d.Offset)
	if n < len(buf) {
		if err == nil || errors.Is(err, io.EOF) {
			return storage.Unknown, nil, fmt.Errorf("%w: read %d of %d bytes at %d", err_def.ErrInsufficientData, n, len(buf), d.Offset)
		}
		return storage.Unknown, nil, fmt.Errorf("%w: %v", err_def.ErrReadFailed, err)
	}
	return storage.TypeTag(buf[0]), buf[storage.TagSize:], nil
}

// Truncate 清空数据文件
func (df *DataFile) Truncate() error {
	if err := df.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate data file failed: %w", err)
	}
	df.offset = 0
	return nil
}

// Size 返回数据文件长度
func (df *DataFile) Size() int64 {
	return df.offset
}

// Sync 将数据文件刷到磁盘
func (df *DataFile) Sync() error {
	if err := syncFile(df.file); err != nil {
		return fmt.Errorf("sync data file failed: %w", err)
	}
	return nil
}

// Close 关闭数据文件
func (df *DataFile) Close() error {
	return df.file.Close()
}
