package filesystem

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"hugefile/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `toml:"buf_size"`
	// MaxLineBytes 为单行上限（解码后字节）。默认 64MiB；超出时扫描失败。
	MaxLineBytes int `toml:"max_line_bytes"`
}

const (
	defaultBuf     = 64 * 1024
	defaultMaxLine = 64 * 1024 * 1024
)

// FileSystem 基于本地文件的 Reader；编码在构造时显式给定。
type FileSystem struct {
	bufSize int
	maxLine int
	enc     encoding.Encoding
}

// New 创建 FileSystem Reader。enc 为 nil 时按 UTF-8 解码。
func New(opts *Options, enc encoding.Encoding) *FileSystem {
	b := defaultBuf
	m := defaultMaxLine
	if opts != nil {
		if opts.BufSize > 0 {
			b = opts.BufSize
		}
		if opts.MaxLineBytes > 0 {
			m = opts.MaxLineBytes
		}
	}
	if m < b {
		m = b
	}
	if enc == nil {
		enc = unicode.UTF8
	}
	return &FileSystem{bufSize: b, maxLine: m, enc: enc}
}

var _ contract.Reader = (*FileSystem)(nil)

// Source 将路径绑定为可重启的行序列。
func (r *FileSystem) Source(path string) contract.LineSource {
	return &fileSource{r: r, path: path}
}

type fileSource struct {
	r    *FileSystem
	path string
}

// Open 从文件开头开始一次新的顺序扫描。
func (s *fileSource) Open(ctx context.Context) (contract.LineScanner, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, &os.PathError{Op: "open", Path: s.path, Err: fmt.Errorf("is a directory")}
	}
	// BOM 优先于配置编码（与带 BOM 探测的流读取器一致），并剥离 BOM。
	dec := unicode.BOMOverride(s.r.enc.NewDecoder())
	sc := bufio.NewScanner(transform.NewReader(bufio.NewReaderSize(f, s.r.bufSize), dec))
	sc.Buffer(make([]byte, 0, s.r.bufSize), s.r.maxLine)
	sc.Split(ScanLines)
	return &lineScanner{ctx: ctx, f: f, sc: sc, path: s.path}, nil
}

type lineScanner struct {
	ctx  context.Context
	f    *os.File
	sc   *bufio.Scanner
	path string
	err  error
	n    int64
}

func (l *lineScanner) Scan() bool {
	if l.err != nil {
		return false
	}
	// 每 4096 行检查一次取消，避免逐行 select 的开销
	if l.n&0xfff == 0 {
		select {
		case <-l.ctx.Done():
			l.err = l.ctx.Err()
			return false
		default:
		}
	}
	if !l.sc.Scan() {
		if err := l.sc.Err(); err != nil {
			l.err = fmt.Errorf("read %s at line %d: %w", l.path, l.n, err)
		}
		return false
	}
	l.n++
	return true
}

func (l *lineScanner) Text() string { return l.sc.Text() }

func (l *lineScanner) Err() error { return l.err }

func (l *lineScanner) Close() error {
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// ScanLines 是 bufio.SplitFunc：以 "\n"、"\r\n" 或单独的 "\r" 结束一行，
// 返回的行不含终止符；末尾无终止符的残行也算一行。
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// '\r'：需要看下一个字节判断是否为 "\r\n"
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if !atEOF {
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
