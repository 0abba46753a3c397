// Package count 对行序列做一遍顺序扫描并计数，不保留任何行。
package count

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hugefile/internal/diag"
	"hugefile/pkg/contract"
)

// DefaultEvery 为进度观测的默认间隔（非空行数）。
const DefaultEvery = 100000

// Options 控制进度观测。
type Options struct {
	// EveryLines: 每累计这么多非空行发出一次观测；<=0 取默认值。
	EveryLines int64
	// Observe: 进度回调（可为 nil）。
	Observe func(diag.Observation)
}

// Result 为一遍计数的结果。
type Result struct {
	// NonBlank: 非空且非全空白的行数。
	NonBlank int64
	// Total: 全部行数（含空行）。
	Total   int64
	Elapsed time.Duration
}

// Count 扫描 src 一遍。对未修改的文件重复调用结果相同。
func Count(ctx context.Context, src contract.LineSource, opts Options) (Result, error) {
	every := opts.EveryLines
	if every <= 0 {
		every = DefaultEvery
	}
	t0 := time.Now()
	sc, err := src.Open(ctx)
	if err != nil {
		return Result{}, err
	}
	defer sc.Close()

	var res Result
	for sc.Scan() {
		res.Total++
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		res.NonBlank++
		if opts.Observe != nil && res.NonBlank%every == 0 {
			opts.Observe(diag.Observe(res.NonBlank, time.Since(t0)))
		}
	}
	if err := sc.Err(); err != nil {
		return Result{}, fmt.Errorf("count: %w", err)
	}
	res.Elapsed = time.Since(t0)
	return res, nil
}
