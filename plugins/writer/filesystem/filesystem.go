package filesystem

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"hugefile/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// Atomic: 是否使用原子替换（同目录临时文件 + rename）。
	// 默认值：true。未提供该字段时采用原子写；显式 false 可关闭。
	Atomic *bool `toml:"atomic,omitempty"`
	// PermFile: 可选权限；为 0 表示使用默认 0644。
	PermFile os.FileMode `toml:"perm_file,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用实现默认。
	BufSize int `toml:"buf_size,omitempty"`
	// Newline: 行终止符，仅允许 "\n" 或 "\r\n"；空为 "\n"。
	Newline string `toml:"newline,omitempty"`
}

type FS struct {
	atomic  bool
	permF   os.FileMode
	bufSize int
	newline string
	enc     encoding.Encoding
}

// New 创建文件系统 Writer 实现。enc 为 nil 时按 UTF-8 写出（无 BOM）。
func New(opts *Options, enc encoding.Encoding) (*FS, error) {
	if opts == nil {
		opts = &Options{}
	}
	bsz := opts.BufSize
	if bsz <= 0 {
		bsz = 64 * 1024
	}
	pf := opts.PermFile
	if pf == 0 {
		pf = 0o644
	}
	atomic := true
	if opts.Atomic != nil {
		atomic = *opts.Atomic
	}
	nl := opts.Newline
	switch nl {
	case "":
		nl = "\n"
	case "\n", "\r\n":
	default:
		return nil, contract.ErrInvalidInput
	}
	if enc == nil {
		enc = unicode.UTF8
	}
	return &FS{atomic: atomic, permF: pf, bufSize: bsz, newline: nl, enc: enc}, nil
}

var _ contract.Writer = (*FS)(nil)

// Create 打开 dest 的行写入器；输出在 Commit 后才落到 dest。
func (w *FS) Create(ctx context.Context, dest string) (contract.LineWriter, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if strings.TrimSpace(dest) == "" {
		return nil, contract.ErrPathInvalid
	}
	if st, err := os.Stat(dest); err == nil && st.IsDir() {
		return nil, contract.ErrPathInvalid
	}
	dir := filepath.Dir(dest)

	var (
		f   *os.File
		err error
	)
	if w.atomic {
		f, err = os.CreateTemp(dir, ".tmp-*")
		if err == nil {
			// 目标权限：尽量与期望一致
			_ = os.Chmod(f.Name(), w.permF)
		}
	} else {
		f, err = os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	}
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, w.bufSize)
	// 无法表示的字符按编码的替换字符写出，而不是中断整个运行
	tw := transform.NewWriter(bw, encoding.ReplaceUnsupported(w.enc.NewEncoder()))
	return &lineFile{
		ctx:     ctx,
		dest:    dest,
		dir:     dir,
		atomic:  w.atomic,
		f:       f,
		bw:      bw,
		tw:      tw,
		newline: w.newline,
	}, nil
}

// lineFile 为单个输出文件；非并发安全，由单一调用方独占。
type lineFile struct {
	ctx     context.Context
	dest    string
	dir     string
	atomic  bool
	f       *os.File
	bw      *bufio.Writer
	tw      io.WriteCloser
	newline string
	n       int64
	done    bool
}

func (l *lineFile) WriteLine(s string) error {
	if l.done {
		return os.ErrClosed
	}
	if l.n&0xfff == 0 {
		select {
		case <-l.ctx.Done():
			return l.ctx.Err()
		default:
		}
	}
	if _, err := io.WriteString(l.tw, s); err != nil {
		return err
	}
	if _, err := io.WriteString(l.tw, l.newline); err != nil {
		return err
	}
	l.n++
	return nil
}

// Commit 冲刷并落盘；原子模式下以 rename 替换目标。失败时清理残留。
func (l *lineFile) Commit() error {
	if l.done {
		return nil
	}
	l.done = true
	tmpPath := l.f.Name()
	if err := l.tw.Close(); err != nil {
		l.discard(tmpPath)
		return err
	}
	if err := l.bw.Flush(); err != nil {
		l.discard(tmpPath)
		return err
	}
	if err := l.f.Sync(); err != nil {
		l.discard(tmpPath)
		return err
	}
	if err := l.f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if !l.atomic {
		return nil
	}
	// 平台特定的原子替换（或最佳努力）：
	if err := osReplace(tmpPath, l.dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 最佳努力：在部分平台同步父目录，提升崩溃安全性
	_ = syncDir(l.dir)
	return nil
}

// Abort 丢弃已写内容：原子模式删除临时文件，非原子模式删除部分输出。
func (l *lineFile) Abort() error {
	if l.done {
		return nil
	}
	l.done = true
	name := l.f.Name()
	_ = l.f.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *lineFile) discard(name string) {
	_ = l.f.Close()
	_ = os.Remove(name)
}
