package codec

import (
	"gopkg.in/yaml.v3"
)

// YAML 把普通 Go 结构体以 YAML 文本保存，字段用 yaml 标签控制
type YAML[T any] struct {
	V T
}

func NewYAML[T any](v T) *YAML[T] {
	return &YAML[T]{V: v}
}

func (y *YAML[T]) MarshalBinary() ([]byte, error) {
	return yaml.Marshal(y.V)
}

func (y *YAML[T]) UnmarshalBinary(b []byte) error {
	var v T
	if err := yaml.Unmarshal(b, &v); err != nil {
		return err
	}
	y.V = v
	return nil
}
