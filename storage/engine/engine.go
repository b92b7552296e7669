// Package engine 实现 SlotKV 的存储引擎
// 一把互斥锁保护所有操作；索引与缓存在第一次访问时才加载
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"SlotKV/err_def"
	"SlotKV/storage"
	"SlotKV/storage/cache"
	"SlotKV/storage/file_manager"
	"SlotKV/storage/index"
	"SlotKV/util"
)

// Engine 存储引擎实例，独占 <name>.bin 与 <name>.idx 两个文件
type Engine struct {
	cfg *storage.Options
	log *slog.Logger

	data     *file_manager.DataFile
	keyDir   *index.KeyDir
	memCache storage.MemCache[uint64, any]

	stats storage.Stats

	initialized bool
	closed      bool

	syncStop chan struct{}
	wg       sync.WaitGroup

	mu sync.Mutex
}

// Open 创建引擎实例，只校验配置，不访问磁盘
func Open(options ...storage.Option) (*Engine, error) {
	cfg := storage.DefaultOptions()
	for _, opt := range options {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		log:      cfg.Log().With("store", cfg.Name),
		syncStop: make(chan struct{}),
	}
	if cfg.OpenMemCache {
		e.memCache = cache.NewLRUCache[uint64, any](cfg.MemCacheSize)
	}
	return e, nil
}

// DataPath 返回数据文件路径
func (e *Engine) DataPath() string {
	return filepath.Join(e.cfg.Dir, e.cfg.Name+storage.DataFileSuffix)
}

// IndexPath 返回索引文件路径
func (e *Engine) IndexPath() string {
	return filepath.Join(e.cfg.Dir, e.cfg.Name+storage.IndexFileSuffix)
}

// begin 加锁并完成延迟初始化，返回的函数用于解锁
func (e *Engine) begin() (func(), error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, err_def.ErrDBClosed
	}
	if err := e.init(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	return e.mu.Unlock, nil
}

// init 打开或创建两个文件并从索引文件重建内存索引，只成功执行一次
func (e *Engine) init() error {
	if e.initialized {
		return nil
	}
	if err := os.MkdirAll(e.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("create data directory failed: %w", err)
	}

	idxFile, err := index.OpenIndexFile(e.IndexPath())
	if err != nil {
		return err
	}
	keyDir := index.NewKeyDir(idxFile, e.cfg.SwissTableSize, e.log)
	if err := keyDir.Load(); err != nil {
		_ = keyDir.Close()
		return err
	}

	data, err := file_manager.OpenDataFile(e.DataPath(), e.cfg.SyncOnWrite)
	if err != nil {
		_ = keyDir.Close()
		return err
	}

	e.keyDir = keyDir
	e.data = data
	e.initialized = true

	if e.cfg.SyncInterval > 0 {
		e.wg.Add(1)
		go e.autoSync(e.cfg.SyncInterval)
	}

	e.log.Debug("storage loaded", "dir", e.cfg.Dir, "keys", keyDir.Len(), "data_bytes", data.Size())
	return nil
}

// put 写入一条带类型标记的记录，更新索引与缓存
func (e *Engine) put(key string, tag storage.TypeTag, payload []byte, native any) error {
	unlock, err := e.begin()
	if err != nil {
		return err
	}
	defer unlock()

	id := util.KeyID(key)
	var prev *storage.Descriptor
	if d, ok := e.keyDir.Lookup(id); ok {
		prev = &d
	}

	d, inPlace, err := e.data.Place(prev, id, tag, payload)
	if err != nil {
		e.dropCached(id)
		return err
	}
	if inPlace {
		e.stats.InPlaceWrites++
	} else {
		e.stats.Appends++
		if prev != nil {
			e.stats.DeadBytes += int64(storage.TagSize + prev.Allocated)
		}
	}

	if _, err := e.keyDir.Upsert(d); err != nil {
		e.dropCached(id)
		// 原槽已被覆盖，内存描述符必须跟随数据文件
		if inPlace {
			e.keyDir.Patch(d)
		}
		return fmt.Errorf("update index failed: %w", err)
	}
	if e.cfg.SyncOnWrite {
		if err := e.keyDir.Sync(); err != nil {
			return fmt.Errorf("sync index file failed: %w", err)
		}
	}

	if e.memCache != nil {
		_ = e.memCache.Insert(id, native)
	}
	return nil
}

// get 读取路径：缓存 -> 索引 -> 定长校验 -> 类型校验 -> 解码 -> 回填缓存
// cached 判断缓存中的值是否恰好是请求的类型；decode 把负载解码为该类型
func (e *Engine) get(key string, tag storage.TypeTag, cached func(any) bool, decode func([]byte) (any, error)) (any, error) {
	unlock, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer unlock()

	id := util.KeyID(key)
	if e.memCache != nil {
		if v, ok := e.memCache.Get(id); ok && cached(v) {
			e.stats.CacheHits++
			return v, nil
		}
		e.stats.CacheMisses++
	}

	d, ok := e.keyDir.Lookup(id)
	if !ok {
		return nil, err_def.ErrKeyNotFound
	}

	// 定长类型先比较长度，不读磁盘
	if fixed := tag.FixedSize(); fixed > 0 && d.Length != fixed {
		return nil, &err_def.LengthMismatchError{Stored: d.Length, Expected: fixed}
	}

	e.stats.DiskReads++
	stored, payload, err := e.data.Read(d)
	if err != nil {
		return nil, err
	}
	if !stored.Valid() {
		return nil, fmt.Errorf("%w: tag %d", err_def.ErrUnknownType, byte(stored))
	}
	if stored != tag {
		return nil, &err_def.TypeMismatchError{Stored: stored.String(), Requested: tag.String()}
	}

	v, err := safeDecode(decode, payload)
	if err != nil {
		return nil, err
	}
	if e.memCache != nil {
		_ = e.memCache.Insert(id, v)
	}
	return v, nil
}

// safeDecode 调用解码函数，把解码器的 panic 转成错误
func safeDecode(decode func([]byte) (any, error), payload []byte) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", err_def.ErrDecodeFailed, r)
		}
	}()
	return decode(payload)
}

func (e *Engine) dropCached(id uint64) {
	if e.memCache != nil {
		_ = e.memCache.Delete(id)
	}
}

// Contains 只检查索引，不读也不填充缓存
func (e *Engine) Contains(key string) (bool, error) {
	unlock, err := e.begin()
	if err != nil {
		return false, err
	}
	defer unlock()

	_, ok := e.keyDir.Lookup(util.KeyID(key))
	return ok, nil
}

// Describe 返回键当前的记录描述符
func (e *Engine) Describe(key string) (storage.Descriptor, bool, error) {
	unlock, err := e.begin()
	if err != nil {
		return storage.Descriptor{}, false, err
	}
	defer unlock()

	d, ok := e.keyDir.Lookup(util.KeyID(key))
	return d, ok, nil
}

// Remove 从索引（交换删除）与缓存中移除键，返回键是否存在
// 数据文件中的旧记录不会被回收
func (e *Engine) Remove(key string) (bool, error) {
	unlock, err := e.begin()
	if err != nil {
		return false, err
	}
	defer unlock()

	id := util.KeyID(key)
	e.dropCached(id)
	existed, err := e.keyDir.Remove(id)
	if err != nil {
		return existed, fmt.Errorf("remove index entry failed: %w", err)
	}
	if existed {
		e.stats.Removes++
		e.log.Debug("key removed", "key", key)
	}
	return existed, nil
}

// Clear 清空索引与缓存，并把两个文件截断为空
func (e *Engine) Clear() error {
	unlock, err := e.begin()
	if err != nil {
		return err
	}
	defer unlock()

	if e.memCache != nil {
		e.memCache.Purge()
	}
	if err := e.keyDir.Clear(); err != nil {
		return err
	}
	if err := e.data.Truncate(); err != nil {
		return err
	}
	e.stats.DeadBytes = 0
	e.log.Info("storage cleared")
	return nil
}

// Stats 返回运行计数与文件大小
func (e *Engine) Stats() storage.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.stats
	if e.initialized && !e.closed {
		s.Keys = e.keyDir.Len()
		s.DataFileSize = e.data.Size()
		s.IndexFileSize = e.keyDir.FileSize()
	}
	if e.memCache != nil {
		s.CachedEntries = e.memCache.Len()
	}
	return s
}

// Foreach 遍历当前所有描述符，f 返回 false 时停止
func (e *Engine) Foreach(f func(d storage.Descriptor) bool) error {
	unlock, err := e.begin()
	if err != nil {
		return err
	}
	defer unlock()

	e.keyDir.Foreach(f)
	return nil
}

// Sync 同步两个文件到磁盘
func (e *Engine) Sync() error {
	unlock, err := e.begin()
	if err != nil {
		return err
	}
	defer unlock()

	return e.syncLocked()
}

func (e *Engine) syncLocked() error {
	return errors.Join(e.data.Sync(), e.keyDir.Sync())
}

// autoSync 定时对两个文件做 fsync
func (e *Engine) autoSync(interval time.Duration) {
	defer e.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.mu.Lock()
			if !e.closed {
				if err := e.syncLocked(); err != nil {
					e.log.Warn("periodic sync failed", "err", err)
				}
			}
			e.mu.Unlock()
		case <-e.syncStop:
			return
		}
	}
}

// Close 关闭引擎，之后的所有操作返回 ErrDBClosed
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return err_def.ErrDBClosed
	}
	e.closed = true
	close(e.syncStop)
	if e.memCache != nil {
		e.memCache.Purge()
	}
	e.mu.Unlock()

	// 等后台同步协程退出后再关文件
	e.wg.Wait()

	if !e.initialized {
		return nil
	}
	return errors.Join(
		e.syncLocked(),
		e.data.Close(),
		e.keyDir.Close(),
	)
}
