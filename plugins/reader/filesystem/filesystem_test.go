package filesystem

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func readAll(t *testing.T, r *FileSystem, path string) []string {
	t.Helper()
	sc, err := r.Source(path).Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sc.Close()
	var out []string
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

// TestScanTerminators 各类行终止符
func TestScanTerminators(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"空文件", "", nil},
		{"LF", "a\nb\n", []string{"a", "b"}},
		{"无尾换行", "a\nb", []string{"a", "b"}},
		{"CRLF", "a\r\nb\r\n", []string{"a", "b"}},
		{"单独CR", "a\rb\r", []string{"a", "b"}},
		{"空行保留", "a\n\n \nb\n", []string{"a", "", " ", "b"}},
		{"仅换行", "\n", []string{""}},
		{"CR后接空行", "a\r\n\r\nb", []string{"a", "", "b"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := writeFile(t, "in.txt", []byte(c.in))
			got := readAll(t, New(nil, nil), p)
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("got %q want %q", got, c.want)
			}
		})
	}
}

// CR 恰好落在缓冲区边界时不能把 "\r\n" 拆成两行
func TestScanCRAtBufferBoundary(t *testing.T) {
	line := strings.Repeat("x", 15)
	p := writeFile(t, "in.txt", []byte(line+"\r\n"+line+"\r\n"))
	got := readAll(t, New(&Options{BufSize: 16}, nil), p)
	if len(got) != 2 || got[0] != line || got[1] != line {
		t.Fatalf("unexpected lines %q", got)
	}
}

// 同一 Source 可多次从头扫描
func TestSourceRestartable(t *testing.T) {
	p := writeFile(t, "in.txt", []byte("1\n2\n3\n"))
	r := New(nil, nil)
	first := readAll(t, r, p)
	second := readAll(t, r, p)
	if !reflect.DeepEqual(first, second) || len(first) != 3 {
		t.Fatalf("restart mismatch %q vs %q", first, second)
	}
}

// 配置编码解码
func TestDecodeCharmap(t *testing.T) {
	enc, err := charmap.Windows1251.NewEncoder().String("привет\nмир\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	p := writeFile(t, "cp1251.txt", []byte(enc))
	got := readAll(t, New(nil, charmap.Windows1251), p)
	if !reflect.DeepEqual(got, []string{"привет", "мир"}) {
		t.Fatalf("decode mismatch %q", got)
	}
}

// BOM 覆盖配置编码并被剥离
func TestBOMOverride(t *testing.T) {
	p := writeFile(t, "bom.txt", append([]byte{0xEF, 0xBB, 0xBF}, []byte("héllo\nx\n")...))
	got := readAll(t, New(nil, charmap.Windows1252), p)
	if len(got) != 2 || got[0] != "héllo" {
		t.Fatalf("bom not honored: %q", got)
	}
	u16, _ := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("ab\ncd\n")
	p = writeFile(t, "u16.txt", []byte(u16))
	got = readAll(t, New(nil, nil), p)
	if !reflect.DeepEqual(got, []string{"ab", "cd"}) {
		t.Fatalf("utf-16 bom not honored: %q", got)
	}
}

// 单行超限
func TestMaxLineBytes(t *testing.T) {
	p := writeFile(t, "long.txt", []byte(strings.Repeat("z", 100)+"\n"))
	sc, err := New(&Options{BufSize: 16, MaxLineBytes: 32}, nil).Source(p).Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sc.Close()
	for sc.Scan() {
	}
	if !errors.Is(sc.Err(), bufio.ErrTooLong) {
		t.Fatalf("expect ErrTooLong, got %v", sc.Err())
	}
}

// TestOpenMissing 文件不存在
func TestOpenMissing(t *testing.T) {
	_, err := New(nil, nil).Source(filepath.Join(t.TempDir(), "nope")).Open(context.Background())
	var perr *os.PathError
	if !errors.As(err, &perr) {
		t.Fatalf("expect *os.PathError, got %v", err)
	}
}

// TestOpenDir 目录不是行源
func TestOpenDir(t *testing.T) {
	_, err := New(nil, nil).Source(t.TempDir()).Open(context.Background())
	if err == nil {
		t.Fatalf("expect error for directory")
	}
}

// TestCtxCancel 上下文取消
func TestCtxCancel(t *testing.T) {
	p := writeFile(t, "in.txt", []byte("a\nb\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil, nil).Source(p).Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expect canceled, got %v", err)
	}
	ctx2, cancel2 := context.WithCancel(context.Background())
	sc, err := New(nil, nil).Source(p).Open(ctx2)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sc.Close()
	cancel2()
	if sc.Scan() {
		t.Fatalf("scan should stop after cancel")
	}
	if !errors.Is(sc.Err(), context.Canceled) {
		t.Fatalf("expect canceled, got %v", sc.Err())
	}
}

func TestScanLinesSplit(t *testing.T) {
	adv, tok, err := ScanLines([]byte("ab\r"), false)
	if adv != 0 || tok != nil || err != nil {
		t.Fatalf("trailing CR must wait for more data: %d %q %v", adv, tok, err)
	}
	adv, tok, _ = ScanLines([]byte("ab\r"), true)
	if adv != 3 || string(tok) != "ab" {
		t.Fatalf("CR at EOF: %d %q", adv, tok)
	}
}
