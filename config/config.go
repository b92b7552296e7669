package config

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper" // 用于识别配置文件，并且支持热更新

	"SlotKV/storage"
)

type BaseConfig struct {
	DataDir string // 数据目录
	Name    string // 存储名称
}

type MemCacheConfig struct {
	Enable bool // 启用缓存
	Size   int  // 缓存大小，<=0 不限制
}

type FileManagerConfig struct {
	SyncOnWrite  bool          // 每次写入后 fsync
	SyncInterval time.Duration // 同步间隔
}

type LogConfig struct {
	Level   string // debug / info / warn / error
	NoColor bool
}

type Config struct {
	Base        BaseConfig        // 基础配置
	MemCache    MemCacheConfig    // 缓存配置
	FileManager FileManagerConfig // 文件管理配置
	Log         LogConfig         // 日志配置
}

var (
	conf      *Config      // 全局配置
	confOnce  sync.Once    // 确保配置只初始化一次
	mu        sync.RWMutex // 配置读写锁
	listeners []func(*Config)
)

// Get 获取配置
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return conf
}

// OnChange 注册热更新回调，回调在配置替换之后调用
func OnChange(fn func(*Config)) {
	mu.Lock()
	listeners = append(listeners, fn)
	mu.Unlock()
}

func setDefaults(v *viper.Viper) {
	d := storage.DefaultOptions()
	v.SetDefault("base.data_dir", d.Dir)
	v.SetDefault("base.name", d.Name)
	v.SetDefault("mem_cache.enable", d.OpenMemCache)
	v.SetDefault("mem_cache.size", d.MemCacheSize)
	v.SetDefault("log.level", "info")
}

// 加载配置文件
func loadConfig(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Base.DataDir = v.GetString("base.data_dir")
	cfg.Base.Name = v.GetString("base.name")

	// 加载缓存配置
	cfg.MemCache.Enable = v.GetBool("mem_cache.enable")
	cfg.MemCache.Size = v.GetInt("mem_cache.size")

	// 加载文件管理配置
	cfg.FileManager.SyncOnWrite = v.GetBool("file_manager.sync_on_write")
	cfg.FileManager.SyncInterval = v.GetDuration("file_manager.sync_interval")

	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.NoColor = v.GetBool("log.no_color")

	return cfg
}

func readConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath) // 设置配置文件路径
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return loadConfig(v), nil
}

// Init 初始化配置，并监听文件变化
func Init(configPath string) error {
	var initErr error
	confOnce.Do(func() {
		v := viper.New()
		v.SetConfigFile(configPath) // 设置配置文件路径
		setDefaults(v)
		if err := v.ReadInConfig(); err != nil {
			initErr = err
			slog.Error("read config file failed", "path", configPath, "err", err)
			return
		}

		mu.Lock()
		conf = loadConfig(v)
		mu.Unlock()

		// 配置文件热更新监听
		v.OnConfigChange(func(e fsnotify.Event) {
			slog.Info("config file changed", "file", e.Name, "op", e.Op.String())

			// 重新加载配置
			newConfig, err := readConfig(configPath)
			if err != nil {
				slog.Warn("reload config failed", "err", err)
				return
			}

			mu.Lock()
			conf = newConfig
			fns := append(([]func(*Config))(nil), listeners...)
			mu.Unlock()

			for _, fn := range fns {
				fn(newConfig)
			}
		})
		v.WatchConfig()
	})
	return initErr
}

// Default 没有配置文件时使用的配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return loadConfig(v)
}

// Options 把配置转换为存储引擎选项
// 数据目录与名称只在启动时生效，热更新不会搬移已打开的文件
func (c *Config) Options() []storage.Option {
	opts := []storage.Option{
		storage.WithOpenMemCache(c.MemCache.Enable),
		storage.WithMemCacheSize(c.MemCache.Size),
		storage.WithSyncOnWrite(c.FileManager.SyncOnWrite),
		storage.WithSyncInterval(c.FileManager.SyncInterval),
	}
	if c.Base.DataDir != "" {
		opts = append(opts, storage.WithDir(c.Base.DataDir))
	}
	if c.Base.Name != "" {
		opts = append(opts, storage.WithName(c.Base.Name))
	}
	return opts
}

// SlogLevel 解析日志级别，无法识别时为 info
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
