package contract

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

// TestNormalizeFileID 验证路径规范化逻辑。
func TestNormalizeFileID(t *testing.T) {
	wpath := filepath.Join("a", "b", "c")
	basicCases := map[string]string{
		wpath:      "a/b/c",
		"./x/../y": "y",
		"":         ".",
	}
	for in, want := range basicCases {
		got := NormalizeFileID(in)
		if string(got) != want {
			t.Fatalf("基础测试 %s -> %s, 预期 %s", in, got, want)
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Windows路径", "C:\\data\\corpus.txt", "C:/data/corpus.txt"},
		{"清理多余斜杠", "path//to///file.txt", "path/to/file.txt"},
		{"处理父目录", "path/to/../from/file.txt", "path/from/file.txt"},
		{"Windows根", "C:\\", "C:"},
		{"混合分隔符", "C:\\Users/test\\Documents/file.txt", "C:/Users/test/Documents/file.txt"},
		{"中文路径", "语料\\训练/全部.txt", "语料/训练/全部.txt"},
		{"复杂父目录", "a\\b\\c\\..\\..\\..\\..\\d", "../d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeFileID(tt.input); string(got) != tt.expected {
				t.Fatalf("NormalizeFileID(%q) = %q, 预期 %q", tt.input, got, tt.expected)
			}
		})
	}
}

// 批大小为闭区间宽度
func TestBatchSize(t *testing.T) {
	cases := []struct {
		b    Batch
		want int
	}{
		{Batch{From: 0, To: 2}, 3},
		{Batch{From: 9, To: 9}, 1},
		{Batch{Index: 3, From: 9, To: 11}, 3},
	}
	for _, c := range cases {
		if got := c.b.Size(); got != c.want {
			t.Fatalf("Size(%+v)=%d, 预期 %d", c.b, got, c.want)
		}
	}
}

func TestPermutationLen(t *testing.T) {
	if got := Permutation(nil).Len(); got != 0 {
		t.Fatalf("nil 排列长度应为 0, got %d", got)
	}
	if got := (Permutation{2, 0, 1}).Len(); got != 3 {
		t.Fatalf("长度应为 3, got %d", got)
	}
}

// 包装后的哨兵仍可被 errors.Is 识别
func TestSentinelWrap(t *testing.T) {
	sentinels := []error{ErrEncoding, ErrInvalidInput, ErrDataConsistency, ErrTooManyLines, ErrPathInvalid, ErrVerifyMismatch}
	for _, s := range sentinels {
		wrapped := fmt.Errorf("layer: %w", fmt.Errorf("inner: %w", s))
		if !errors.Is(wrapped, s) {
			t.Fatalf("errors.Is 丢失哨兵 %v", s)
		}
	}
}
