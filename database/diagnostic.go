package database

import (
	"errors"

	"SlotKV/err_def"
)

// Category 诊断类别
type Category int

const (
	SetFailed Category = iota
	GetFailed
	TypeMismatch
	LengthMismatch
	UnknownType
	RemoveFailed
	ContainsFailed
	ClearFailed
)

var categoryNames = [...]string{
	SetFailed:      "SetFailed",
	GetFailed:      "GetFailed",
	TypeMismatch:   "TypeMismatch",
	LengthMismatch: "LengthMismatch",
	UnknownType:    "UnknownType",
	RemoveFailed:   "RemoveFailed",
	ContainsFailed: "ContainsFailed",
	ClearFailed:    "ClearFailed",
}

func (c Category) String() string {
	if c >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "Category(?)"
}

// Diagnostic 一次被吞掉的失败，宽松接口返回默认值前产生
type Diagnostic struct {
	Key      string
	Category Category
	Details  string // 类型不匹配为 "stored X, requested Y"，长度不匹配为 "stored length N, expected length M"
	Err      error
}

// classify 把读取错误归类，键不存在时返回 false
func classify(err error) (Category, bool) {
	var tm *err_def.TypeMismatchError
	var lm *err_def.LengthMismatchError
	switch {
	case errors.Is(err, err_def.ErrKeyNotFound):
		return 0, false
	case errors.As(err, &lm):
		return LengthMismatch, true
	case errors.As(err, &tm):
		return TypeMismatch, true
	case errors.Is(err, err_def.ErrUnknownType):
		return UnknownType, true
	default:
		return GetFailed, true
	}
}
