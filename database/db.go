// Package database 提供面向宿主程序的类型化键值接口
// 读写失败不会返回错误：先产生诊断（回调 + 日志），再返回调用方给出的默认值
package database

import (
	"encoding"
	"errors"
	"fmt"
	"log/slog"

	"SlotKV/err_def"
	"SlotKV/storage"
	"SlotKV/storage/engine"
)

// Store 类型化的持久键值存储
type Store struct {
	eng    *engine.Engine
	log    *slog.Logger
	onDiag func(Diagnostic)
}

// Open 创建 Store，文件在第一次访问时才打开
func Open(opts ...Option) (*Store, error) {
	var st settings
	for _, opt := range opts {
		opt(&st)
	}

	eng, err := engine.Open(st.storageOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}

	cfg := storage.DefaultOptions()
	for _, opt := range st.storageOpts {
		opt(cfg)
	}

	return &Store{
		eng:    eng,
		log:    cfg.Log().With("store", cfg.Name),
		onDiag: st.onDiag,
	}, nil
}

// Engine 返回底层引擎，用于需要明确错误的调用方
func (s *Store) Engine() *engine.Engine {
	return s.eng
}

// report 记录一条诊断并通知回调
func (s *Store) report(key string, cat Category, err error) {
	d := Diagnostic{Key: key, Category: cat, Err: err}
	var tm *err_def.TypeMismatchError
	var lm *err_def.LengthMismatchError
	switch {
	case errors.As(err, &lm):
		d.Details = lm.Error()
	case errors.As(err, &tm):
		d.Details = tm.Error()
	case err != nil:
		d.Details = err.Error()
	}

	s.log.Error("storage operation failed",
		"key", key, "category", cat.String(), "details", d.Details)
	if s.onDiag != nil {
		s.onDiag(d)
	}
}

func (s *Store) set(key string, put func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.report(key, SetFailed, fmt.Errorf("%w: %v", err_def.ErrWriteFailed, r))
		}
	}()
	if err := put(); err != nil {
		s.report(key, SetFailed, err)
	}
}

func getOr[T any](s *Store, key string, def T, get func() (T, error)) (v T) {
	defer func() {
		if r := recover(); r != nil {
			s.report(key, GetFailed, fmt.Errorf("%w: %v", err_def.ErrReadFailed, r))
			v = def
		}
	}()
	got, err := get()
	if err != nil {
		if cat, ok := classify(err); ok {
			s.report(key, cat, err)
		}
		return def
	}
	return got
}

func getScalar[T storage.Scalar](s *Store, key string, def T) T {
	return getOr(s, key, def, func() (T, error) {
		return engine.GetScalar[T](s.eng, key)
	})
}

func setScalar[T storage.Scalar](s *Store, key string, v T) {
	s.set(key, func() error {
		return engine.PutScalar(s.eng, key, v)
	})
}

func (s *Store) SetInt32(key string, v int32)     { setScalar(s, key, v) }
func (s *Store) SetInt64(key string, v int64)     { setScalar(s, key, v) }
func (s *Store) SetFloat32(key string, v float32) { setScalar(s, key, v) }
func (s *Store) SetFloat64(key string, v float64) { setScalar(s, key, v) }
func (s *Store) SetBool(key string, v bool)       { setScalar(s, key, v) }
func (s *Store) SetByte(key string, v byte)       { setScalar(s, key, v) }
func (s *Store) SetInt16(key string, v int16)     { setScalar(s, key, v) }
func (s *Store) SetUint32(key string, v uint32)   { setScalar(s, key, v) }
func (s *Store) SetUint64(key string, v uint64)   { setScalar(s, key, v) }
func (s *Store) SetUint16(key string, v uint16)   { setScalar(s, key, v) }

// SetString 写入字符串，空串也会被保存
func (s *Store) SetString(key, v string) {
	s.set(key, func() error {
		return s.eng.PutString(key, v)
	})
}

func (s *Store) GetInt32(key string, def int32) int32       { return getScalar(s, key, def) }
func (s *Store) GetInt64(key string, def int64) int64       { return getScalar(s, key, def) }
func (s *Store) GetFloat32(key string, def float32) float32 { return getScalar(s, key, def) }
func (s *Store) GetFloat64(key string, def float64) float64 { return getScalar(s, key, def) }
func (s *Store) GetBool(key string, def bool) bool          { return getScalar(s, key, def) }
func (s *Store) GetByte(key string, def byte) byte          { return getScalar(s, key, def) }
func (s *Store) GetInt16(key string, def int16) int16       { return getScalar(s, key, def) }
func (s *Store) GetUint32(key string, def uint32) uint32    { return getScalar(s, key, def) }
func (s *Store) GetUint64(key string, def uint64) uint64    { return getScalar(s, key, def) }
func (s *Store) GetUint16(key string, def uint16) uint16    { return getScalar(s, key, def) }

// GetString 读取字符串，失败时返回 def
func (s *Store) GetString(key, def string) string {
	return getOr(s, key, def, func() (string, error) {
		return s.eng.GetString(key)
	})
}

// SetObject 写入自定义类型；Absent 会删除该键
func SetObject[T encoding.BinaryMarshaler](s *Store, key string, val Value[T]) {
	v, ok := val.Get()
	if !ok {
		s.Remove(key)
		return
	}
	s.set(key, func() error {
		return engine.PutObject(s.eng, key, v)
	})
}

// GetObject 读取自定义类型，失败时返回 def
// 反序列化时的 panic 会被恢复并报告为 GetFailed
func GetObject[T any, PT interface {
	*T
	encoding.BinaryUnmarshaler
}](s *Store, key string, def PT) PT {
	return getOr(s, key, def, func() (PT, error) {
		return engine.GetObject[T, PT](s.eng, key)
	})
}

// Lookup 严格读取标量，错误原样返回，不产生诊断
func Lookup[T storage.Scalar](s *Store, key string) (T, error) {
	return engine.GetScalar[T](s.eng, key)
}

// ContainsKey 检查键是否存在，不读取数据文件
func (s *Store) ContainsKey(key string) bool {
	ok, err := s.eng.Contains(key)
	if err != nil {
		s.report(key, ContainsFailed, err)
		return false
	}
	return ok
}

// Remove 删除键，返回键是否存在过
func (s *Store) Remove(key string) bool {
	ok, err := s.eng.Remove(key)
	if err != nil {
		s.report(key, RemoveFailed, err)
		return false
	}
	return ok
}

// Clear 删除所有键并清空两个文件
func (s *Store) Clear() {
	if err := s.eng.Clear(); err != nil {
		s.report("", ClearFailed, err)
	}
}

// Describe 返回键的记录描述符
func (s *Store) Describe(key string) (storage.Descriptor, bool) {
	d, ok, err := s.eng.Describe(key)
	if err != nil {
		s.report(key, GetFailed, err)
		return storage.Descriptor{}, false
	}
	return d, ok
}

func (s *Store) Stats() storage.Stats {
	return s.eng.Stats()
}

func (s *Store) Sync() error {
	return s.eng.Sync()
}

func (s *Store) Close() error {
	return s.eng.Close()
}
