package storage

import (
	"fmt"
	"log/slog"
	"time"

	"SlotKV/err_def"
)

// Options 存储引擎的配置选项
type Options struct {
	// 基本配置
	Dir  string // 数据目录，两个存储文件放在此目录下
	Name string // 存储名称，文件名为 <Name>.bin / <Name>.idx

	// 内存索引相关配置
	SwissTableSize uint32 // SwissTable 的初始大小

	// 内存缓存相关配置
	OpenMemCache bool // 是否开启读穿透缓存
	MemCacheSize int  // 缓存容量，<=0 表示不限制

	// 文件相关配置
	SyncOnWrite  bool          // 每次写入后立即 fsync
	SyncInterval time.Duration // 后台定期 fsync 的间隔，0 表示关闭

	Logger *slog.Logger // 日志输出，nil 时使用 slog.Default()
}

// Option 定义了配置选项的函数类型
type Option func(opt *Options)

// DefaultOptions 返回存储引擎的默认配置选项
func DefaultOptions() *Options {
	return &Options{
		Dir:            ".",
		Name:           "slotkv",
		SwissTableSize: 1 << 10,
		OpenMemCache:   true,
		MemCacheSize:   0,
		SyncOnWrite:    false,
		SyncInterval:   0,
	}
}

// Validate 检查配置项
func (o *Options) Validate() error {
	if o.Dir == "" {
		return fmt.Errorf("%w: empty directory", err_def.ErrBadOption)
	}
	if o.Name == "" {
		return fmt.Errorf("%w: empty name", err_def.ErrBadOption)
	}
	if o.SyncInterval < 0 {
		return fmt.Errorf("%w: negative sync interval %s", err_def.ErrBadOption, o.SyncInterval)
	}
	return nil
}

// Log 返回配置的日志器
func (o *Options) Log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// WithDir 设置数据目录
func WithDir(dir string) Option {
	return func(opt *Options) {
		opt.Dir = dir
	}
}

// WithName 设置存储名称
func WithName(name string) Option {
	return func(opt *Options) {
		opt.Name = name
	}
}

func WithSwissTableSize(size uint32) Option {
	return func(opt *Options) {
		opt.SwissTableSize = size
	}
}

func WithOpenMemCache(openMemCache bool) Option {
	return func(opt *Options) {
		opt.OpenMemCache = openMemCache
	}
}

func WithMemCacheSize(memCacheSize int) Option {
	return func(opt *Options) {
		opt.MemCacheSize = memCacheSize
	}
}

func WithSyncOnWrite(syncOnWrite bool) Option {
	return func(opt *Options) {
		opt.SyncOnWrite = syncOnWrite
	}
}

func WithSyncInterval(interval time.Duration) Option {
	return func(opt *Options) {
		opt.SyncInterval = interval
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(opt *Options) {
		opt.Logger = logger
	}
}
