package chatlog

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Loader 缓存已加载的索引, 并在导出目录变化后于下次访问时重建。
type Loader struct {
	mu         sync.Mutex
	exportPath string
	idx        *Index
	stale      bool
}

// NewLoader 创建一个针对导出目录的延迟加载器。
func NewLoader(exportPath string) *Loader {
	return &Loader{exportPath: exportPath, stale: true}
}

// Get 返回当前索引, 必要时重新加载。
func (l *Loader) Get() (*Index, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.idx == nil || l.stale {
		idx, err := LoadFromExport(l.exportPath)
		if err != nil {
			return nil, err
		}
		l.idx = idx
		l.stale = false
	}
	return l.idx, nil
}

// MarkStale 使缓存失效, 下次 Get 时重建索引。
func (l *Loader) MarkStale() {
	l.mu.Lock()
	l.stale = true
	l.mu.Unlock()
}

// SetExportPath 切换导出目录并使缓存失效。
func (l *Loader) SetExportPath(path string) {
	l.mu.Lock()
	l.exportPath = path
	l.stale = true
	l.mu.Unlock()
}

// ExportPath 返回当前导出目录。
func (l *Loader) ExportPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exportPath
}

// Watcher 监听导出目录, 文件有增删改时将 Loader 标记为过期。
type Watcher struct {
	watcher *fsnotify.Watcher
	loader  *Loader
	done    chan struct{}
}

// NewWatcher 创建导出目录监听器。
func NewWatcher(exportPath string, loader *Loader) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建 watcher 失败: %w", err)
	}
	if err := w.Add(exportPath); err != nil {
		w.Close()
		return nil, fmt.Errorf("监控路径 %s 失败: %w", exportPath, err)
	}
	return &Watcher{watcher: w, loader: loader, done: make(chan struct{})}, nil
}

// Start 启动事件循环。
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("导出目录发生变化, 索引标记为过期")
					w.loader.MarkStale()
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("Watcher 错误")
			case <-w.done:
				return
			}
		}
	}()
}

// Stop 停止监听。
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
