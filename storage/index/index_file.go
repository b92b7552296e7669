package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"SlotKV/err_def"
	"SlotKV/storage"
)

// IndexFile 索引文件，内存索引的持久化镜像
// 文件由定长 24 字节的索引项顺序组成，没有文件头：
// [KeyID(8)|Offset(8)|Length(4)|Allocated(4)]，小端序
type IndexFile struct {
	path string
	file *os.File
	size int64 // 当前文件长度，总是 IndexEntrySize 的整数倍
}

// OpenIndexFile 打开索引文件，不存在时创建
func OpenIndexFile(path string) (*IndexFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open index file failed: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat index file failed: %w", err)
	}
	return &IndexFile{path: path, file: file, size: stat.Size()}, nil
}

// Load 从头顺序扫描索引文件，第 N 个索引项的偏移为 N*24
// 末尾不足一个索引项的残余字节（中断的追加）会被截掉，返回截掉的字节数
func (f *IndexFile) Load(fn func(d storage.Descriptor) error) (int64, error) {
	entries := f.size / storage.IndexEntrySize
	tail := f.size % storage.IndexEntrySize

	r := bufio.NewReaderSize(io.NewSectionReader(f.file, 0, entries*storage.IndexEntrySize), 64<<10)
	buf := make([]byte, storage.IndexEntrySize)
	for i := int64(0); i < entries; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, fmt.Errorf("%w: read index entry %d: %v", err_def.ErrReadFailed, i, err)
		}
		d := decodeEntry(buf)
		d.IndexOffset = i * storage.IndexEntrySize
		if err := fn(d); err != nil {
			return 0, err
		}
	}

	if tail != 0 {
		if err := f.file.Truncate(entries * storage.IndexEntrySize); err != nil {
			return 0, fmt.Errorf("truncate partial index entry failed: %w", err)
		}
		f.size = entries * storage.IndexEntrySize
	}
	return tail, nil
}

// Append 在文件末尾追加一个索引项，返回其偏移
func (f *IndexFile) Append(d storage.Descriptor) (int64, error) {
	buf := make([]byte, storage.IndexEntrySize)
	encodeEntry(buf, d)
	offset := f.size
	if _, err := f.file.WriteAt(buf, offset); err != nil {
		return 0, fmt.Errorf("%w: append index entry: %v", err_def.ErrWriteFailed, err)
	}
	f.size += storage.IndexEntrySize
	return offset, nil
}

// Overwrite 覆盖 d.IndexOffset 处的整个索引项
func (f *IndexFile) Overwrite(d storage.Descriptor) error {
	if err := f.checkOffset(d.IndexOffset); err != nil {
		return err
	}
	buf := make([]byte, storage.IndexEntrySize)
	encodeEntry(buf, d)
	if _, err := f.file.WriteAt(buf, d.IndexOffset); err != nil {
		return fmt.Errorf("%w: overwrite index entry: %v", err_def.ErrWriteFailed, err)
	}
	return nil
}

// SwapDelete 删除 offset 处的索引项：若它不是最后一项，先用最后一项覆盖它，
// 再把文件截短一个索引项。moved 为 true 时 movedID 是被搬动的键 ID，
// 调用方需要把该键的 IndexOffset 改为 offset
func (f *IndexFile) SwapDelete(offset int64) (movedID uint64, moved bool, err error) {
	if err := f.checkOffset(offset); err != nil {
		return 0, false, err
	}
	last := f.size - storage.IndexEntrySize
	var orig []byte
	if offset != last {
		orig = make([]byte, storage.IndexEntrySize)
		if _, err := f.file.ReadAt(orig, offset); err != nil {
			return 0, false, fmt.Errorf("%w: read index entry: %v", err_def.ErrReadFailed, err)
		}
		buf := make([]byte, storage.IndexEntrySize)
		if _, err := f.file.ReadAt(buf, last); err != nil {
			return 0, false, fmt.Errorf("%w: read last index entry: %v", err_def.ErrReadFailed, err)
		}
		if _, err := f.file.WriteAt(buf, offset); err != nil {
			return 0, false, fmt.Errorf("%w: move last index entry: %v", err_def.ErrWriteFailed, err)
		}
		movedID = binary.LittleEndian.Uint64(buf[0:8])
		moved = true
	}
	if err := f.file.Truncate(last); err != nil {
		// 截断失败时把原索引项写回，文件保持删除前的内容
		if orig != nil {
			_, _ = f.file.WriteAt(orig, offset)
		}
		return 0, false, fmt.Errorf("truncate index file failed: %w", err)
	}
	f.size = last
	return movedID, moved, nil
}

// Truncate 清空索引文件
func (f *IndexFile) Truncate() error {
	if err := f.file.Truncate(0); err != nil {
		return fmt.Errorf("truncate index file failed: %w", err)
	}
	f.size = 0
	return nil
}

// Size 返回索引文件当前长度
func (f *IndexFile) Size() int64 {
	return f.size
}

// Sync 将索引文件刷到磁盘
func (f *IndexFile) Sync() error {
	return f.file.Sync()
}

// Close 关闭索引文件
func (f *IndexFile) Close() error {
	return f.file.Close()
}

func (f *IndexFile) checkOffset(offset int64) error {
	if offset < 0 || offset%storage.IndexEntrySize != 0 || offset+storage.IndexEntrySize > f.size {
		return fmt.Errorf("%w: entry offset %d outside file of %d bytes", err_def.ErrIndexCorrupt, offset, f.size)
	}
	return nil
}

// encodeEntry 编码一个索引项，buf 至少 IndexEntrySize 字节
func encodeEntry(buf []byte, d storage.Descriptor) {
	binary.LittleEndian.PutUint64(buf[0:8], d.KeyID)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(d.Offset))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(d.Length))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(d.Allocated))
}

// decodeEntry 解码一个索引项，IndexOffset 由调用方填写
func decodeEntry(buf []byte) storage.Descriptor {
	return storage.Descriptor{
		KeyID:       binary.LittleEndian.Uint64(buf[0:8]),
		Offset:      int64(binary.LittleEndian.Uint64(buf[8:16])),
		Length:      int32(binary.LittleEndian.Uint32(buf[16:20])),
		Allocated:   int32(binary.LittleEndian.Uint32(buf[20:24])),
		IndexOffset: storage.NoIndexOffset,
	}
}
