// Package guard 检测源文件在多遍扫描期间是否被改动。
package guard

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hugefile/internal/diag"
	"hugefile/pkg/contract"
)

// Guard 监视单个文件：fsnotify 事件（监视所在目录并按文件名过滤）
// 加上 Check 时的 size/mtime 快照比对。监视器不可用时仅做快照比对。
type Guard struct {
	path    string
	size    int64
	modTime time.Time
	logger  *diag.Logger

	w    *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	changed string
	closed  bool
}

// Watch 记录 path 的当前快照并开始监视。
func Watch(path string, logger *diag.Logger) (*Guard, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	g := &Guard{path: abs, size: st.Size(), modTime: st.ModTime(), logger: logger, done: make(chan struct{})}

	w, err := fsnotify.NewWatcher()
	if err == nil {
		if err = w.Add(filepath.Dir(abs)); err != nil {
			_ = w.Close()
		}
	}
	if err != nil {
		logger.Warn("guard", "file watcher unavailable, falling back to stat checks", map[string]string{"err": err.Error()})
		return g, nil
	}
	g.w = w
	g.wg.Add(1)
	go g.loop()
	return g, nil
}

func (g *Guard) loop() {
	defer g.wg.Done()
	for {
		select {
		case <-g.done:
			return
		case ev, ok := <-g.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != g.path {
				continue
			}
			// 仅权限变化（Chmod）不影响内容
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Create) {
				continue
			}
			g.mark(ev.Op.String())
		case err, ok := <-g.w.Errors:
			if !ok {
				return
			}
			g.logger.Warn("guard", "watcher error", map[string]string{"err": err.Error()})
		}
	}
}

func (g *Guard) mark(reason string) {
	g.mu.Lock()
	if g.changed == "" {
		g.changed = reason
	}
	g.mu.Unlock()
}

// Check 在源文件被写入、删除、替换或 size/mtime 变化时返回 ErrDataConsistency。
func (g *Guard) Check() error {
	g.mu.Lock()
	reason := g.changed
	g.mu.Unlock()
	if reason != "" {
		return fmt.Errorf("source %s modified during run (%s): %w", g.path, reason, contract.ErrDataConsistency)
	}
	st, err := os.Stat(g.path)
	if err != nil {
		return fmt.Errorf("source %s: %v: %w", g.path, err, contract.ErrDataConsistency)
	}
	if st.Size() != g.size || !st.ModTime().Equal(g.modTime) {
		g.mark("size/mtime")
		return fmt.Errorf("source %s modified during run (size %d→%d): %w", g.path, g.size, st.Size(), contract.ErrDataConsistency)
	}
	return nil
}

// Close 停止监视；可重复调用。
func (g *Guard) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()
	close(g.done)
	var err error
	if g.w != nil {
		err = g.w.Close()
	}
	g.wg.Wait()
	return err
}
