package util

// SlotAlign 数据槽对齐粒度
const SlotAlign = 32

// AllocSize 将负载长度向上取整到 32 字节，吸收小幅度的值长度波动
func AllocSize(n int32) int32 {
	return ((n + SlotAlign - 1) / SlotAlign) * SlotAlign
}
