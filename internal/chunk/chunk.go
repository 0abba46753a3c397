// Package chunk 把源文件切成每份固定行数的编号文件。
package chunk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hugefile/internal/count"
	"hugefile/internal/diag"
	"hugefile/pkg/contract"
)

// Options: Size 为每份行数；Digits < 0 时先计数再推导编号位数。
type Options struct {
	Size       int64
	Digits     int
	EveryLines int64
	Observe    func(diag.Observation)
	// CountObserve: 推导位数时计数遍的进度回调。
	CountObserve func(diag.Observation)
}

// Result: 按编号顺序的输出文件与总行数。
type Result struct {
	Files   []string
	Lines   int64
	Digits  int
	Elapsed time.Duration
}

// ChunkName 返回第 i 份（1 起始）的文件名：去掉扩展名的 src + "." + 补零编号 + 原扩展名。
// 例如 ("data.txt", 7, 3) → "data.007.txt"。
func ChunkName(src string, i int64, digits int) string {
	ext := filepath.Ext(src)
	return fmt.Sprintf("%s.%0*d%s", strings.TrimSuffix(src, ext), digits, i, ext)
}

// Digits 返回 ceil(lines/size) 的十进制位数；0 份时为 0。
func Digits(lines, size int64) int {
	if size <= 0 {
		return 0
	}
	n := (lines + size - 1) / size
	d := 0
	for n > 0 {
		d++
		n /= 10
	}
	return d
}

// Run 一遍扫描写出各份：除最后一份外每份恰好 Size 行；源为空时不产生文件。
// 失败时删除本次已写出的全部分片。
func Run(ctx context.Context, r contract.Reader, w contract.Writer, src string, opts Options) (res Result, err error) {
	if opts.Size <= 0 {
		return Result{}, fmt.Errorf("%w: chunk size must be > 0, got %d", contract.ErrInvalidInput, opts.Size)
	}
	every := opts.EveryLines
	if every <= 0 {
		every = count.DefaultEvery
	}
	res.Digits = opts.Digits
	if res.Digits < 0 {
		cr, cerr := count.Count(ctx, r.Source(src), count.Options{EveryLines: every, Observe: opts.CountObserve})
		if cerr != nil {
			return Result{}, cerr
		}
		res.Digits = Digits(cr.Total, opts.Size)
	}

	t0 := time.Now()
	sc, err := r.Source(src).Open(ctx)
	if err != nil {
		return Result{}, err
	}
	defer sc.Close()

	var cur contract.LineWriter
	var inCur int64
	defer func() {
		if err == nil {
			return
		}
		if cur != nil {
			_ = cur.Abort()
		}
		for _, f := range res.Files {
			_ = os.Remove(f)
		}
		res = Result{}
	}()
	// commit 提交当前分片，成功后才计入 Files
	commit := func() error {
		if cur == nil {
			return nil
		}
		lw := cur
		cur = nil
		if err := lw.Commit(); err != nil {
			_ = lw.Abort()
			return err
		}
		return nil
	}

	for sc.Scan() {
		if cur == nil || inCur == opts.Size {
			if err = commit(); err != nil {
				return res, err
			}
			name := ChunkName(src, int64(len(res.Files))+1, res.Digits)
			if cur, err = w.Create(ctx, name); err != nil {
				cur = nil
				return res, err
			}
			res.Files = append(res.Files, name)
			inCur = 0
		}
		if err = cur.WriteLine(sc.Text()); err != nil {
			return res, err
		}
		inCur++
		res.Lines++
		if opts.Observe != nil && res.Lines%every == 0 {
			opts.Observe(diag.Observe(res.Lines, time.Since(t0)))
		}
	}
	if err = sc.Err(); err != nil {
		return res, fmt.Errorf("chunk: %w", err)
	}
	if err = commit(); err != nil {
		return res, err
	}
	res.Elapsed = time.Since(t0)
	return res, nil
}
