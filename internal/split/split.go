// Package split 以确定性的有理频率把源文件分为 train/test 两份。
package split

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hugefile/internal/count"
	"hugefile/internal/diag"
	"hugefile/pkg/contract"
)

// Options: 第 k 行（0 起始）当 k mod TestDown < TestUp 时进入 test。
type Options struct {
	TestUp   int64
	TestDown int64
	// Limit: 最多处理的行数；-1 表示全部。
	Limit int64
	// EveryLines: 进度观测间隔；<=0 取默认值。
	EveryLines int64
	Observe    func(diag.Observation)
}

// Validate 检查取值：TestDown > 0，0 <= TestUp <= TestDown，Limit >= -1。
func (o Options) Validate() error {
	if o.TestDown <= 0 {
		return fmt.Errorf("%w: fraction denominator must be > 0, got %d", contract.ErrInvalidInput, o.TestDown)
	}
	if o.TestUp < 0 || o.TestUp > o.TestDown {
		return fmt.Errorf("%w: fraction numerator must be in [0,%d], got %d", contract.ErrInvalidInput, o.TestDown, o.TestUp)
	}
	if o.Limit < -1 {
		return fmt.Errorf("%w: line limit must be >= -1, got %d", contract.ErrInvalidInput, o.Limit)
	}
	return nil
}

// Result 为一次分割的结果。TestPath 在 TestUp == 0 时为空。
type Result struct {
	TrainPath string
	TestPath  string
	Train     int64
	Test      int64
	Lines     int64
	Elapsed   time.Duration
}

// ParseFraction 解析 "<up>/<down>"。
func ParseFraction(s string) (up, down int64, err error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: fraction %q must look like <test>/<base>", contract.ErrInvalidInput, s)
	}
	up, err = strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: fraction numerator %q", contract.ErrInvalidInput, a)
	}
	down, err = strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: fraction denominator %q", contract.ErrInvalidInput, b)
	}
	return up, down, nil
}

// Names 返回输出路径：<src>[.<limit>].train 与 <src>[.<limit>].test。
func Names(src string, limit int64) (train, test string) {
	base := src
	if limit >= 0 {
		base += "." + strconv.FormatInt(limit, 10)
	}
	return base + ".train", base + ".test"
}

// Run 对 src 做一遍扫描，把各行按频率写入 train/test。空行原样保留。
// 任一步失败时丢弃两份输出。
func Run(ctx context.Context, r contract.Reader, w contract.Writer, src string, opts Options) (res Result, err error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	every := opts.EveryLines
	if every <= 0 {
		every = count.DefaultEvery
	}
	trainPath, testPath := Names(src, opts.Limit)
	res.TrainPath = trainPath
	t0 := time.Now()

	sc, err := r.Source(src).Open(ctx)
	if err != nil {
		return Result{}, err
	}
	defer sc.Close()

	train, err := w.Create(ctx, trainPath)
	if err != nil {
		return Result{}, err
	}
	var test contract.LineWriter
	defer func() {
		if err != nil {
			_ = train.Abort()
			if test != nil {
				_ = test.Abort()
			}
		}
	}()
	if opts.TestUp > 0 {
		res.TestPath = testPath
		if test, err = w.Create(ctx, testPath); err != nil {
			return Result{}, err
		}
	}

	for (opts.Limit < 0 || res.Lines < opts.Limit) && sc.Scan() {
		k := res.Lines
		res.Lines++
		if k%opts.TestDown < opts.TestUp {
			err = test.WriteLine(sc.Text())
			res.Test++
		} else {
			err = train.WriteLine(sc.Text())
			res.Train++
		}
		if err != nil {
			return Result{}, err
		}
		if opts.Observe != nil && res.Lines%every == 0 {
			opts.Observe(diag.Observe(res.Lines, time.Since(t0)))
		}
	}
	if err = sc.Err(); err != nil {
		return Result{}, fmt.Errorf("split: %w", err)
	}
	if err = train.Commit(); err != nil {
		return Result{}, err
	}
	if test != nil {
		if err = test.Commit(); err != nil {
			return Result{}, err
		}
	}
	res.Elapsed = time.Since(t0)
	return res, nil
}
