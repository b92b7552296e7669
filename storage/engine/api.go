package engine

import (
	"encoding"
	"fmt"

	"SlotKV/err_def"
	"SlotKV/storage"
	"SlotKV/storage/file_manager"
	"SlotKV/util"
)

// PutScalar 写入定长标量
func PutScalar[T storage.Scalar](e *Engine, key string, v T) error {
	return e.put(key, file_manager.TagOf[T](), file_manager.EncodeScalar(v), v)
}

// GetScalar 读取定长标量
// 存储长度不等于 T 的宽度时返回 *LengthMismatchError（先于类型检查），
// 类型标记不同时返回 *TypeMismatchError，键不存在时返回 ErrKeyNotFound
func GetScalar[T storage.Scalar](e *Engine, key string) (T, error) {
	v, err := e.get(key, file_manager.TagOf[T](),
		func(c any) bool {
			_, ok := c.(T)
			return ok
		},
		func(b []byte) (any, error) {
			return file_manager.DecodeScalar[T](b)
		})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// PutString 写入 UTF-8 字符串，空串也是一条合法记录
func (e *Engine) PutString(key, s string) error {
	return e.put(key, storage.String, []byte(s), s)
}

// GetString 读取字符串，任何长度都合法
func (e *Engine) GetString(key string) (string, error) {
	v, err := e.get(key, storage.String,
		func(c any) bool {
			_, ok := c.(string)
			return ok
		},
		func(b []byte) (any, error) {
			return string(b), nil
		})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// PutObject 写入自定义类型，缓存中保存 v 本身
func PutObject(e *Engine, key string, v encoding.BinaryMarshaler) error {
	payload, err := marshal(v)
	if err != nil {
		return err
	}
	return e.put(key, storage.Custom, payload, v)
}

// GetObject 读取自定义类型，每次缓存未命中都会新建一个 T 并反序列化
func GetObject[T any, PT interface {
	*T
	encoding.BinaryUnmarshaler
}](e *Engine, key string) (PT, error) {
	v, err := e.get(key, storage.Custom,
		func(c any) bool {
			_, ok := c.(PT)
			return ok
		},
		func(b []byte) (any, error) {
			p := PT(new(T))
			if err := p.UnmarshalBinary(b); err != nil {
				return nil, fmt.Errorf("%w: %v", err_def.ErrDecodeFailed, err)
			}
			return p, nil
		})
	if err != nil {
		var zero PT
		return zero, err
	}
	return v.(PT), nil
}

func marshal(v encoding.BinaryMarshaler) (payload []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload, err = nil, fmt.Errorf("%w: %v", err_def.ErrEncodeFailed, r)
		}
	}()
	payload, err = v.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", err_def.ErrEncodeFailed, err)
	}
	return payload, nil
}

// GetRaw 按存储的类型标记解码，用于不知道类型的调用方（命令行工具）
// 标量与字符串返回对应的 Go 值，Custom 返回原始字节；不读写缓存
func (e *Engine) GetRaw(key string) (storage.TypeTag, any, error) {
	unlock, err := e.begin()
	if err != nil {
		return storage.Unknown, nil, err
	}
	defer unlock()

	d, ok := e.keyDir.Lookup(util.KeyID(key))
	if !ok {
		return storage.Unknown, nil, err_def.ErrKeyNotFound
	}
	e.stats.DiskReads++
	tag, payload, err := e.data.Read(d)
	if err != nil {
		return storage.Unknown, nil, err
	}
	v, err := file_manager.DecodeAs(tag, payload)
	return tag, v, err
}
