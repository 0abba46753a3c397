package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"hugefile/pkg/contract"
)

// TestStrictDecode 验证严格解码逻辑。
func TestStrictDecode(t *testing.T) {
	type opt struct {
		A int `toml:"a"`
	}
	var o opt
	if err := strictDecode(nil, &o); err != nil || o.A != 0 {
		t.Fatalf("nil 输入失败: %v", err)
	}
	if err := strictDecode(map[string]any{"a": int64(1)}, &o); err != nil || o.A != 1 {
		t.Fatalf("合法子表解析失败: %v", err)
	}
	if err := strictDecode(map[string]any{"a": int64(1), "b": int64(2)}, &o); err == nil {
		t.Fatalf("未知键应报错")
	}
}

// TestFactories 遍历注册表入口。
func TestFactories(t *testing.T) {
	t.Run("reader", func(t *testing.T) {
		if _, err := Reader["fs"](nil, nil); err != nil {
			t.Fatalf("reader: %v", err)
		}
		if _, err := Reader["fs"](map[string]any{"buf_size": int64(4096), "max_line_bytes": int64(1 << 20)}, nil); err != nil {
			t.Fatalf("reader options: %v", err)
		}
		if _, err := Reader["fs"](map[string]any{"x": int64(1)}, nil); err == nil {
			t.Fatalf("reader 未对未知键报错")
		}
		if _, err := Reader["fs"](map[string]any{"buf_size": int64(-1)}, nil); !errors.Is(err, contract.ErrInvalidInput) {
			t.Fatalf("负缓冲应报参数错误, got %v", err)
		}
	})
	t.Run("writer", func(t *testing.T) {
		if _, err := Writer["fs"](map[string]any{"atomic": false, "newline": "\r\n", "perm_file": int64(0o600)}, nil); err != nil {
			t.Fatalf("writer: %v", err)
		}
		if _, err := Writer["fs"](map[string]any{"x": int64(1)}, nil); err == nil {
			t.Fatalf("writer 未对未知键报错")
		}
		if _, err := Writer["fs"](map[string]any{"newline": "\t"}, nil); !errors.Is(err, contract.ErrInvalidInput) {
			t.Fatalf("非法换行应报参数错误, got %v", err)
		}
	})
}

// 编码经工厂传入 Reader 与 Writer
func TestFactoriesThreadEncoding(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	// cp1251 的 "привет"
	if err := os.WriteFile(src, []byte{0xEF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2, '\n'}, 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Reader["fs"](nil, charmap.Windows1251)
	if err != nil {
		t.Fatal(err)
	}
	sc, err := r.Source(src).Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Close()
	if !sc.Scan() || sc.Text() != "привет" {
		t.Fatalf("解码错误: %q %v", sc.Text(), sc.Err())
	}

	w, err := Writer["fs"](nil, charmap.Windows1251)
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.txt")
	lw, err := w.Create(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	if err := lw.WriteLine(sc.Text()); err != nil {
		t.Fatal(err)
	}
	if err := lw.Commit(); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(out)
	if string(b) != string([]byte{0xEF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2, '\n'}) {
		t.Fatalf("编码错误: % x", b)
	}
}
