package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"hugefile/internal/chunk"
	"hugefile/internal/count"
	"hugefile/internal/diag"
	"hugefile/internal/guard"
	"hugefile/internal/perm"
	"hugefile/internal/shuffle"
	"hugefile/internal/split"
	"hugefile/internal/verify"
	"hugefile/pkg/contract"
	"hugefile/plugins/batcher/fixed"
)

// - 单线程：每个命令都是一串同步的顺序扫描；仅 verify 的两侧摘要并发计算。
// - 单写者：输出 LineWriter 由本层打开一次、独占，成功 Commit，任一错误路径 Abort。
// - 旁路观测：日志、指标与终端提示只读取进度，从不影响控制流。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader contract.Reader
	Writer contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// EveryLines: 进度观测间隔（行）；<=0 取默认 100000。
	EveryLines int64
	// Seed: 排列随机种子；0 表示随机。
	Seed uint64
	// Verify: 乱序完成后比对源与输出的行多重集合。
	Verify bool
	// Reclaim: 批间提示运行时归还内存。
	Reclaim bool
	// OnShortSource: 源行数不足时的策略（fail|empty）。
	OnShortSource shuffle.Policy
	// Guard: 乱序期间监视源文件是否被改动。
	Guard bool
}

// ShuffleResult 为一次乱序的汇总。
type ShuffleResult struct {
	Out      string
	Lines    int64
	Batches  int64
	Elapsed  time.Duration
	Verified bool
}

func sanity(comp Components) error {
	if comp.Reader == nil || comp.Writer == nil {
		return fmt.Errorf("%w: reader and writer are required", contract.ErrInvalidInput)
	}
	return nil
}

// fail 记录错误事件与指标后原样返回 err。
func fail(logger *diag.Logger, comp, msg, fileID string, since *time.Time, err error) error {
	code := diag.Classify(err)
	logger.ErrorWithKV(comp, string(code), msg, since, fileID, map[string]string{"err": err.Error()})
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
	return err
}

// passObserver 把单遍进度转发到 debug 日志与终端。
func passObserver(logger *diag.Logger, comp, fileID string) func(diag.Observation) {
	return func(o diag.Observation) {
		logger.Progress(comp, fileID, o.Count, map[string]string{
			"lines":    strconv.FormatInt(o.Count, 10),
			"rate_lps": fmt.Sprintf("%.0f", o.Rate),
		})
		if t := diag.GetTerminal(); t != nil {
			t.PassProgress(o)
		}
	}
}

func passStart(pass, file string) {
	if t := diag.GetTerminal(); t != nil {
		t.PassStart(pass, file)
	}
}

func passFinish(count int64, elapsed time.Duration) {
	if t := diag.GetTerminal(); t != nil {
		t.PassFinish(diag.Observe(count, elapsed))
	}
}

// RunCount 计数一遍，返回非空行数与全部行数。
func RunCount(ctx context.Context, comp Components, set Settings, src string, logger *diag.Logger) (count.Result, error) {
	if comp.Reader == nil {
		return count.Result{}, fmt.Errorf("%w: reader is required", contract.ErrInvalidInput)
	}
	return countPass(ctx, comp, set, src, logger)
}

func countPass(ctx context.Context, comp Components, set Settings, src string, logger *diag.Logger) (count.Result, error) {
	fileID := string(contract.NormalizeFileID(src))
	passStart("count", src)
	t0 := time.Now()
	timer := logger.StartWithKV("count", "pass", fileID, nil)
	res, err := count.Count(ctx, comp.Reader.Source(src), count.Options{
		EveryLines: set.EveryLines,
		Observe:    passObserver(logger, "count", fileID),
	})
	if err != nil {
		return res, fail(logger, "count", "count failed", fileID, &t0, fmt.Errorf("count %s: %w", src, err))
	}
	timer.Finish("pass", res.NonBlank)
	diag.IncOp("count", "finish", "success")
	diag.ObserveDuration("count", "pass", res.Elapsed.Milliseconds())
	diag.AddLines("count", res.Total)
	logger.Info("count", "result", map[string]string{
		"non_blank": strconv.FormatInt(res.NonBlank, 10),
		"total":     strconv.FormatInt(res.Total, 10),
	})
	passFinish(res.NonBlank, res.Elapsed)
	return res, nil
}

// RunSplit 按频率分割为 train/test。
func RunSplit(ctx context.Context, comp Components, set Settings, src string, opts split.Options, logger *diag.Logger) (split.Result, error) {
	if err := sanity(comp); err != nil {
		return split.Result{}, fmt.Errorf("sanity: %w", err)
	}
	fileID := string(contract.NormalizeFileID(src))
	passStart("split", src)
	t0 := time.Now()
	timer := logger.StartWithKV("split", "pass", fileID, map[string]string{
		"fraction": fmt.Sprintf("%d/%d", opts.TestUp, opts.TestDown),
		"limit":    strconv.FormatInt(opts.Limit, 10),
	})
	opts.EveryLines = set.EveryLines
	opts.Observe = passObserver(logger, "split", fileID)
	res, err := split.Run(ctx, comp.Reader, comp.Writer, src, opts)
	if err != nil {
		return res, fail(logger, "split", "split failed", fileID, &t0, fmt.Errorf("split %s: %w", src, err))
	}
	timer.Finish("pass", res.Lines)
	diag.IncOp("split", "finish", "success")
	diag.ObserveDuration("split", "pass", res.Elapsed.Milliseconds())
	diag.AddLines("split", res.Lines)
	logger.Info("split", "result", map[string]string{
		"train":      strconv.FormatInt(res.Train, 10),
		"test":       strconv.FormatInt(res.Test, 10),
		"train_path": res.TrainPath,
		"test_path":  res.TestPath,
	})
	passFinish(res.Lines, res.Elapsed)
	return res, nil
}

// RunChunk 切分为固定行数的编号文件；digits < 0 时先计数推导位数。
func RunChunk(ctx context.Context, comp Components, set Settings, src string, size int64, digits int, logger *diag.Logger) (chunk.Result, error) {
	if err := sanity(comp); err != nil {
		return chunk.Result{}, fmt.Errorf("sanity: %w", err)
	}
	fileID := string(contract.NormalizeFileID(src))
	opts := chunk.Options{Size: size, Digits: digits, EveryLines: set.EveryLines}
	if digits < 0 {
		// 先独立计数以便日志与终端有一遍完整的计数记录
		cr, err := countPass(ctx, comp, set, src, logger)
		if err != nil {
			return chunk.Result{}, err
		}
		opts.Digits = chunk.Digits(cr.Total, size)
		logger.Info("chunk", "digits derived", map[string]string{
			"lines":  strconv.FormatInt(cr.Total, 10),
			"digits": strconv.Itoa(opts.Digits),
		})
	}
	passStart("chunk", src)
	t0 := time.Now()
	timer := logger.StartWithKV("chunk", "pass", fileID, map[string]string{
		"size":   strconv.FormatInt(size, 10),
		"digits": strconv.Itoa(opts.Digits),
	})
	opts.Observe = passObserver(logger, "chunk", fileID)
	res, err := chunk.Run(ctx, comp.Reader, comp.Writer, src, opts)
	if err != nil {
		return res, fail(logger, "chunk", "chunk failed", fileID, &t0, fmt.Errorf("chunk %s: %w", src, err))
	}
	timer.Finish("pass", res.Lines)
	diag.IncOp("chunk", "finish", "success")
	diag.ObserveDuration("chunk", "pass", res.Elapsed.Milliseconds())
	diag.AddLines("chunk", res.Lines)
	logger.Info("chunk", "result", map[string]string{"files": strconv.Itoa(len(res.Files))})
	passFinish(res.Lines, res.Elapsed)
	return res, nil
}

// DefaultShuffleOut 返回乱序的默认输出路径 <src>.shuffled。
func DefaultShuffleOut(src string) string { return src + ".shuffled" }

// RunShuffle 执行：计数 → 生成排列 → 按批扫描写出 →（可选）校验。
// 输出 Writer 只打开一次；任一错误路径都会 Abort，不留下部分输出。
func RunShuffle(ctx context.Context, comp Components, set Settings, src string, batchSize int, out string, logger *diag.Logger) (ShuffleResult, error) {
	var res ShuffleResult
	if err := sanity(comp); err != nil {
		return res, fmt.Errorf("sanity: %w", err)
	}
	if batchSize <= 0 {
		return res, fmt.Errorf("%w: batch size must be > 0, got %d", contract.ErrInvalidInput, batchSize)
	}
	if out == "" {
		out = DefaultShuffleOut(src)
	}
	if same, serr := samePath(src, out); serr != nil || same {
		return res, fmt.Errorf("%w: output %q must differ from source", contract.ErrInvalidInput, out)
	}
	res.Out = out
	fileID := string(contract.NormalizeFileID(src))
	t0 := time.Now()

	// 监视须先于计数开始：计数之后、乱序之前的改动同样要被发现
	var g *guard.Guard
	if set.Guard {
		var gerr error
		if g, gerr = guard.Watch(src, logger); gerr != nil {
			return res, fail(logger, "guard", "watch failed", fileID, &t0, gerr)
		}
		defer g.Close()
	}

	cr, err := countPass(ctx, comp, set, src, logger)
	if err != nil {
		return res, err
	}

	ptimer := logger.StartWithKV("perm", "generate", fileID, map[string]string{
		"n":    strconv.FormatInt(cr.Total, 10),
		"seed": strconv.FormatUint(set.Seed, 10),
	})
	p, err := perm.Generate(cr.Total, perm.NewRand(set.Seed))
	if err != nil {
		return res, fail(logger, "perm", "generate failed", fileID, &t0, err)
	}
	ptimer.Finish("generate", p.Len())
	diag.IncOp("perm", "finish", "success")

	plan, err := fixed.New(p.Len(), batchSize)
	if err != nil {
		return res, fail(logger, "shuffle", "plan failed", fileID, &t0, err)
	}
	// 每批一遍扫描，单遍耗时以计数遍为准
	logger.Info("shuffle", "estimate", map[string]string{
		"batches":  strconv.FormatInt(plan.Count(), 10),
		"per_pass": cr.Elapsed.String(),
		"total":    (time.Duration(plan.Count()) * cr.Elapsed).String(),
	})
	passStart("shuffle", src)
	if t := diag.GetTerminal(); t != nil {
		t.Estimate(plan.Count(), cr.Elapsed)
	}

	opts := shuffle.Options{
		OnShortSource: set.OnShortSource,
		Reclaim:       set.Reclaim,
		Logger:        logger,
		FileID:        fileID,
		Observe: func(o diag.BatchObservation) {
			logger.Progress("shuffle", fileID, o.Lines, map[string]string{
				"batch":     fmt.Sprintf("%d/%d", o.Done, o.Total),
				"rate_lps":  fmt.Sprintf("%.0f", o.Rate),
				"remaining": o.Remaining.String(),
			})
			if t := diag.GetTerminal(); t != nil {
				t.BatchProgress(o)
			}
		},
	}
	if g != nil {
		opts.Guard = g
	}

	lw, err := comp.Writer.Create(ctx, out)
	if err != nil {
		return res, fail(logger, "writer", "create failed", out, &t0, err)
	}
	stimer := logger.StartWithKV("shuffle", "run", fileID, map[string]string{
		"batch_size": strconv.Itoa(batchSize),
		"out":        out,
	})
	st, err := shuffle.New(comp.Reader.Source(src), opts).Run(ctx, p, batchSize, lw)
	if err != nil {
		if aerr := lw.Abort(); aerr != nil {
			logger.Warn("writer", "abort failed", map[string]string{"err": aerr.Error()})
		}
		return res, fail(logger, "shuffle", "run failed", fileID, &t0, fmt.Errorf("shuffle %s: %w", src, err))
	}
	if err := lw.Commit(); err != nil {
		return res, fail(logger, "writer", "commit failed", out, &t0, err)
	}
	stimer.Finish("run", st.Lines)
	diag.IncOp("shuffle", "finish", "success")
	diag.ObserveDuration("shuffle", "run", st.Elapsed.Milliseconds())
	diag.AddLines("shuffle", st.Lines)
	res.Lines = st.Lines
	res.Batches = st.Batches

	if set.Verify {
		if err := verifyPass(ctx, comp, src, out, logger); err != nil {
			return res, err
		}
		res.Verified = true
	}
	res.Elapsed = time.Since(t0)
	return res, nil
}

// RunVerify 比对两个文件的行多重集合。
func RunVerify(ctx context.Context, comp Components, a, b string, logger *diag.Logger) error {
	if comp.Reader == nil {
		return fmt.Errorf("%w: reader is required", contract.ErrInvalidInput)
	}
	return verifyPass(ctx, comp, a, b, logger)
}

func verifyPass(ctx context.Context, comp Components, a, b string, logger *diag.Logger) error {
	fileID := string(contract.NormalizeFileID(a))
	passStart("verify", b)
	t0 := time.Now()
	timer := logger.StartWithKV("verify", "compare", fileID, map[string]string{"other": b})
	fa, fb, err := verify.Compare(ctx, comp.Reader.Source(a), comp.Reader.Source(b))
	if err != nil {
		if errors.Is(err, contract.ErrVerifyMismatch) {
			logger.Warn("verify", "mismatch", map[string]string{
				"lines_a": strconv.FormatInt(fa.Lines, 10),
				"lines_b": strconv.FormatInt(fb.Lines, 10),
			})
		}
		return fail(logger, "verify", "compare failed", fileID, &t0, fmt.Errorf("verify %s vs %s: %w", a, b, err))
	}
	timer.Finish("compare", fa.Lines)
	diag.IncOp("verify", "finish", "success")
	passFinish(fa.Lines, time.Since(t0))
	return nil
}

// LogMetrics 以 debug 级别输出进程内指标快照。
func LogMetrics(logger *diag.Logger) {
	snap := diag.Snapshot()
	kv := make(map[string]string, len(snap))
	for _, k := range diag.SnapshotKeys(snap) {
		kv[k] = strconv.FormatInt(snap[k], 10)
	}
	logger.DebugKV("metrics", "snapshot", kv)
}

func samePath(a, b string) (bool, error) {
	aa, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	bb, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return aa == bb, nil
}
