package database

import (
	"log/slog"

	"SlotKV/storage"
)

type settings struct {
	storageOpts []storage.Option
	onDiag      func(Diagnostic)
}

// Option 配置 Store
type Option func(s *settings)

// WithStorage 追加存储引擎选项
func WithStorage(opts ...storage.Option) Option {
	return func(s *settings) {
		s.storageOpts = append(s.storageOpts, opts...)
	}
}

// WithDiagnostics 设置诊断回调，诊断同时总会写入日志
func WithDiagnostics(fn func(Diagnostic)) Option {
	return func(s *settings) {
		s.onDiag = fn
	}
}

// WithLogger 同时设置 Store 与存储引擎的日志器
func WithLogger(logger *slog.Logger) Option {
	return WithStorage(storage.WithLogger(logger))
}
