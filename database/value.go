package database

// Value 自定义类型写入时的值：要么有值（Present），要么缺省（Absent）
// 写入 Absent 等价于删除该键
type Value[T any] struct {
	v  T
	ok bool
}

// Present 包装一个存在的值
func Present[T any](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// Absent 表示没有值
func Absent[T any]() Value[T] {
	return Value[T]{}
}

func (v Value[T]) Get() (T, bool) {
	return v.v, v.ok
}

func (v Value[T]) IsPresent() bool {
	return v.ok
}
