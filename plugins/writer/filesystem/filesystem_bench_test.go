package filesystem

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// BenchmarkWriteLine 基准测试逐行写入。不同行长下测量写入性能。
func BenchmarkWriteLine(b *testing.B) {
	sizes := []int{16, 1024}
	for _, sz := range sizes {
		b.Run(fmt.Sprintf("line=%d", sz), func(b *testing.B) {
			line := strings.Repeat("a", sz)
			w, err := New(nil, nil)
			if err != nil {
				b.Fatalf("创建 Writer 失败: %v", err)
			}
			lw, err := w.Create(context.Background(), filepath.Join(b.TempDir(), "out.txt"))
			if err != nil {
				b.Fatalf("创建文件失败: %v", err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := lw.WriteLine(line); err != nil {
					b.Fatalf("写入失败: %v", err)
				}
			}
			b.StopTimer()
			if err := lw.Commit(); err != nil {
				b.Fatalf("提交失败: %v", err)
			}
		})
	}
}
