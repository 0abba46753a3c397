package stress

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	cfgpkg "hugefile/internal/config"
	"hugefile/internal/diag"
	"hugefile/internal/pipeline"
)

const stressLines = 200_000

func writeCorpus(t *testing.T, path string, n int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := bufio.NewWriterSize(f, 1<<20)
	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "%08d the quick brown fox jumps over the lazy dog\n", i)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// TestStressShuffle 在不同批大小下乱序同一语料并记录耗时与堆峰值。
func TestStressShuffle(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test skipped in -short mode")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "corpus.txt")
	writeCorpus(t, src, stressLines)

	seed := uint64(20240601)
	yes := true
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Logging.Level = "error"
	cfg.Logging.Dir = filepath.Join(dir, "logs")
	cfg.Shuffle.Seed = &seed
	cfg.Shuffle.Verify = &yes
	cfg.Shuffle.ReclaimBetweenBatches = &yes
	comp, set, _, err := cfgpkg.Assemble(cfg)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	logger := diag.NewLogger("stress", cfg.Logging.Level, cfg.Logging.Dir)
	defer logger.Close()

	var first []byte
	for _, batch := range []int{stressLines / 10, stressLines / 3, stressLines * 2} {
		t.Run(fmt.Sprintf("batch_%d", batch), func(t *testing.T) {
			out := filepath.Join(dir, fmt.Sprintf("out-%d.txt", batch))
			runtime.GC()
			start := time.Now()
			res, err := pipeline.RunShuffle(context.Background(), comp, set, src, batch, out, logger)
			if err != nil {
				t.Fatalf("shuffle: %v", err)
			}
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			t.Logf("batch=%d batches=%d lines=%d dur=%s rate=%.0f lps heap_sys=%dMiB",
				batch, res.Batches, res.Lines, time.Since(start), diag.Rate(res.Lines, res.Elapsed), ms.HeapSys>>20)
			if !res.Verified || res.Lines != stressLines {
				t.Fatalf("result: %+v", res)
			}
			b, err := os.ReadFile(out)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			// 同一种子：输出与批大小无关
			if first == nil {
				first = b
			} else if string(first) != string(b) {
				t.Fatalf("output depends on batch size")
			}
			_ = os.Remove(out)
		})
	}
}
