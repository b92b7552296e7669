// Package codec 把常见的序列化格式适配为 encoding.BinaryMarshaler / BinaryUnmarshaler，
// 以便作为自定义类型写入存储
package codec

import (
	"google.golang.org/protobuf/proto"
)

// Proto 包装一个 protobuf 消息
type Proto[M proto.Message] struct {
	Msg M
}

func NewProto[M proto.Message](m M) *Proto[M] {
	return &Proto[M]{Msg: m}
}

func (p *Proto[M]) MarshalBinary() ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(p.Msg)
}

// UnmarshalBinary 总是新建消息，不复用 p.Msg
func (p *Proto[M]) UnmarshalBinary(b []byte) error {
	var zero M
	m := zero.ProtoReflect().Type().New().Interface().(M)
	if err := proto.Unmarshal(b, m); err != nil {
		return err
	}
	p.Msg = m
	return nil
}
