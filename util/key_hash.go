package util

import (
	"crypto/md5"
	"encoding/binary"
)

// KeyID 将字符串键映射为 64 位键 ID
// 取 UTF-8 编码的 MD5 摘要前 8 字节，按小端序解释。不做冲突检测：
// 两个不同的键若得到相同 ID，会指向同一条记录。
func KeyID(key string) uint64 {
	sum := md5.Sum([]byte(key))
	return binary.LittleEndian.Uint64(sum[:8])
}
