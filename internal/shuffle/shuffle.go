// Package shuffle 实现超出内存规模文件的批式乱序：
// 对每批输出位置做一次源文件前向扫描，取回该批所需的行，按槽位回填后追加写出。
package shuffle

import (
	"cmp"
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	"hugefile/internal/diag"
	"hugefile/pkg/contract"
	"hugefile/plugins/batcher/fixed"
)

// Policy 决定源文件行数少于排列所需时的处理方式。
type Policy string

const (
	// PolicyFail: 以 ErrDataConsistency 失败（默认）。
	PolicyFail Policy = "fail"
	// PolicyEmpty: 缺失的槽位写空行。
	PolicyEmpty Policy = "empty"
)

// ParsePolicy 解析策略名；空串为默认 fail。
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyFail:
		return PolicyFail, nil
	case PolicyEmpty:
		return PolicyEmpty, nil
	}
	return "", fmt.Errorf("%w: on_short_source must be fail|empty, got %q", contract.ErrInvalidInput, s)
}

// Guard 在每批开始前检查源文件是否被修改。
type Guard interface {
	Check() error
}

// Options 为引擎的可选行为。
type Options struct {
	OnShortSource Policy
	// Reclaim: 每批结束后提示运行时归还内存。
	Reclaim bool
	Guard   Guard
	// Observe: 每批写出后的进度回调（可为 nil）。
	Observe func(diag.BatchObservation)
	Logger  *diag.Logger
	// FileID: 日志中的源文件标识。
	FileID string
}

// Stats 为一次运行的汇总。
type Stats struct {
	Batches int64
	Lines   int64
	Elapsed time.Duration
}

// Engine 持有跨批复用的工作项与槽位缓冲。单线程使用。
type Engine struct {
	src   contract.LineSource
	opts  Options
	items []contract.WorkItem
	slots []string
}

// New 绑定源行序列。
func New(src contract.LineSource, opts Options) *Engine {
	if opts.OnShortSource == "" {
		opts.OnShortSource = PolicyFail
	}
	return &Engine{src: src, opts: opts}
}

// Run 按宽度 batchSize 依次处理全部批，并把行写入 out。
// out 由调用方打开与提交；Run 失败时 out 中只有已完成批的行。
func (e *Engine) Run(ctx context.Context, perm contract.Permutation, batchSize int, out contract.LineWriter) (Stats, error) {
	plan, err := fixed.New(perm.Len(), batchSize)
	if err != nil {
		return Stats{}, err
	}
	e.reserve(min(int64(batchSize), perm.Len()))

	t0 := time.Now()
	total := plan.Count()
	fileID := e.opts.FileID
	var st Stats
	for i := int64(0); i < total; i++ {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if e.opts.Guard != nil {
			if err := e.opts.Guard.Check(); err != nil {
				return st, fmt.Errorf("batch %d: %w", i, err)
			}
		}
		b := plan.At(i)
		timer := e.opts.Logger.StartBatch("shuffle", fileID, fmt.Sprintf("%d", i), map[string]string{
			"from": fmt.Sprintf("%d", b.From),
			"to":   fmt.Sprintf("%d", b.To),
		})
		if err := e.ProcessBatch(ctx, perm, b, out); err != nil {
			return st, err
		}
		timer.Finish("batch", int64(b.Size()))
		st.Batches++
		st.Lines += int64(b.Size())
		if e.opts.Reclaim {
			debug.FreeOSMemory()
		}
		if e.opts.Observe != nil {
			el := time.Since(t0)
			e.opts.Observe(diag.BatchObservation{
				Done:      i + 1,
				Total:     total,
				Lines:     st.Lines,
				Elapsed:   el,
				Rate:      diag.Rate(st.Lines, el),
				Remaining: diag.Remaining(i+1, total, el),
			})
		}
	}
	st.Elapsed = time.Since(t0)
	return st, nil
}

// ProcessBatch 处理单批：
//  1. 构造工作项 (P[From+i], i)；
//  2. 按源行号升序排序；
//  3. 打开新扫描，游标从 -1 前进到每个工作项的源行号，把该行存入其槽位；
//  4. 关闭扫描，按槽位 0..size-1 顺序写出。
func (e *Engine) ProcessBatch(ctx context.Context, perm contract.Permutation, b contract.Batch, out contract.LineWriter) error {
	size := b.Size()
	if b.From < 0 || int64(b.To) >= perm.Len() || size <= 0 {
		return fmt.Errorf("%w: batch [%d,%d] outside permutation of %d", contract.ErrInvalidInput, b.From, b.To, perm.Len())
	}
	e.reserve(int64(size))
	items := e.items[:0]
	for i := 0; i < size; i++ {
		items = append(items, contract.WorkItem{Source: contract.Index(perm[int64(b.From)+int64(i)]), Slot: i})
	}
	slices.SortFunc(items, func(x, y contract.WorkItem) int { return cmp.Compare(x.Source, y.Source) })
	e.items = items
	slots := e.slots[:size]
	clear(slots)

	if err := e.gather(ctx, b, items, slots); err != nil {
		return err
	}
	for _, s := range slots {
		if err := out.WriteLine(s); err != nil {
			return fmt.Errorf("batch %d: write: %w", b.Index, err)
		}
	}
	clear(slots)
	return nil
}

// gather 以一次前向扫描填充槽位。
func (e *Engine) gather(ctx context.Context, b contract.Batch, items []contract.WorkItem, slots []string) error {
	sc, err := e.src.Open(ctx)
	if err != nil {
		return fmt.Errorf("batch %d: open source: %w", b.Index, err)
	}
	defer sc.Close()

	cursor := contract.Index(-1)
	for _, it := range items {
		for cursor < it.Source {
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return fmt.Errorf("batch %d: %w", b.Index, err)
				}
				if e.opts.OnShortSource == PolicyEmpty {
					// 剩余槽位保持空串
					e.opts.Logger.Warn("shuffle", "source shorter than permutation", map[string]string{
						"batch": fmt.Sprintf("%d", b.Index),
						"index": fmt.Sprintf("%d", it.Source),
						"lines": fmt.Sprintf("%d", cursor+1),
					})
					return nil
				}
				return fmt.Errorf("batch %d: source line %d requested but source has %d lines: %w",
					b.Index, it.Source, cursor+1, contract.ErrDataConsistency)
			}
			cursor++
		}
		slots[it.Slot] = sc.Text()
	}
	return nil
}

// reserve 保证缓冲容量至少为 n；只增不减。
func (e *Engine) reserve(n int64) {
	if int64(cap(e.items)) < n {
		e.items = make([]contract.WorkItem, 0, n)
	}
	if int64(cap(e.slots)) < n {
		e.slots = make([]string, n)
	}
	e.slots = e.slots[:cap(e.slots)]
}
