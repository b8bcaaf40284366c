// 库文件变更监听器实现。
//
// 基于 fsnotify 监听文件所在目录，合并短时间内的多次事件后触发回调。
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// --- 文件监听器类型定义 ---

// FileEvent represents a file change event
type FileEvent struct {
	// Path 是变更文件的绝对路径
	Path string `json:"path"`

	// Op 是操作类型
	Op FileOp `json:"op"`

	// Timestamp 是事件发生的时间
	Timestamp time.Time `json:"timestamp"`
}

// FileOp represents file operation types
type FileOp int

const (
	// FileOpCreate 表示文件已创建
	FileOpCreate FileOp = iota
	// FileOpWrite 指示文件已被修改
	FileOpWrite
	// FileOpRemove 表示文件已被删除
	FileOpRemove
	// FileOpRename 表示文件已重命名
	FileOpRename
)

// String returns the string representation of FileOp
func (op FileOp) String() string {
	switch op {
	case FileOpCreate:
		return "CREATE"
	case FileOpWrite:
		return "WRITE"
	case FileOpRemove:
		return "REMOVE"
	case FileOpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Reloadable reports whether the file is expected to hold new content.
func (op FileOp) Reloadable() bool {
	return op == FileOpCreate || op == FileOpWrite
}

// --- 文件监听器选项 ---

// WatcherOption configures the LibraryWatcher
type WatcherOption func(*LibraryWatcher)

// WithDebounceDelay sets the debounce delay for file events
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *LibraryWatcher) {
		w.debounceDelay = d
	}
}

// WithWatcherLogger sets the logger for the watcher
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *LibraryWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// --- 文件监听器实现 ---

// LibraryWatcher watches library files. Directories are watched instead of
// the files themselves so editors that replace files atomically still
// produce events.
type LibraryWatcher struct {
	mu sync.RWMutex

	paths         map[string]struct{}
	debounceDelay time.Duration

	running  bool
	stopChan chan struct{}
	watcher  *fsnotify.Watcher

	callbacks []func(event FileEvent)
	logger    *zap.Logger
}

// NewLibraryWatcher creates a watcher for paths. Empty paths are ignored.
func NewLibraryWatcher(paths []string, opts ...WatcherOption) (*LibraryWatcher, error) {
	w := &LibraryWatcher{
		paths:         make(map[string]struct{}, len(paths)),
		debounceDelay: 100 * time.Millisecond,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "library_watcher"))

	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", p, err)
		}
		if _, err := os.Stat(abs); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to stat path %s: %w", abs, err)
			}
			w.logger.Warn("library file does not exist, will watch for creation", zap.String("path", abs))
		}
		w.paths[filepath.Clean(abs)] = struct{}{}
	}
	return w, nil
}

// OnChange registers a callback for file change events
func (w *LibraryWatcher) OnChange(callback func(FileEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start begins watching until ctx ends or Stop is called.
func (w *LibraryWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	dirs := make(map[string]struct{})
	for p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	w.watcher = fw
	w.stopChan = make(chan struct{})
	w.running = true
	go w.loop(ctx, fw, w.stopChan)

	w.logger.Info("library watcher started",
		zap.Strings("paths", w.pathsLocked()),
		zap.Duration("debounce_delay", w.debounceDelay))
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *LibraryWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	close(w.stopChan)
	w.running = false
	err := w.watcher.Close()
	w.watcher = nil
	w.logger.Info("library watcher stopped")
	return err
}

// loop 合并同一文件的连续事件，防抖窗口结束后统一派发
func (w *LibraryWatcher) loop(ctx context.Context, fw *fsnotify.Watcher, stop <-chan struct{}) {
	pending := make(map[string]FileEvent)
	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			path := filepath.Clean(ev.Name)
			if !w.watches(path) {
				continue
			}
			op, ok := toFileOp(ev.Op)
			if !ok {
				continue
			}
			pending[path] = FileEvent{Path: path, Op: op, Timestamp: time.Now()}
			if timer == nil {
				timer = time.NewTimer(w.debounceDelay)
			} else {
				timer.Reset(w.debounceDelay)
			}
			timerC = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", zap.Error(err))

		case <-timerC:
			timerC = nil
			w.dispatch(pending)
			pending = make(map[string]FileEvent)
		}
	}
}

func (w *LibraryWatcher) dispatch(events map[string]FileEvent) {
	w.mu.RLock()
	callbacks := append(([]func(FileEvent))(nil), w.callbacks...)
	w.mu.RUnlock()

	for path, evt := range events {
		w.logger.Debug("dispatching file event",
			zap.String("path", path),
			zap.String("op", evt.Op.String()))
		for _, cb := range callbacks {
			cb(evt)
		}
	}
}

func (w *LibraryWatcher) watches(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.paths[path]
	return ok
}

func toFileOp(op fsnotify.Op) (FileOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return FileOpCreate, true
	case op.Has(fsnotify.Write):
		return FileOpWrite, true
	case op.Has(fsnotify.Remove):
		return FileOpRemove, true
	case op.Has(fsnotify.Rename):
		return FileOpRename, true
	}
	return 0, false
}

// Paths returns the watched files, sorted.
func (w *LibraryWatcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pathsLocked()
}

func (w *LibraryWatcher) pathsLocked() []string {
	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// IsRunning returns whether the watcher is running
func (w *LibraryWatcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}
