package fixed

import (
	"fmt"

	"hugefile/pkg/contract"
)

// Plan 将 N 个输出位置切分为宽度 size 的连续批次：
// - 批 i 覆盖 [i*size, min((i+1)*size, N)-1]（闭区间）；
// - 仅最后一批可能更窄；
// - 按需计算，不物化批列表（批数可与 N 同阶）。
type Plan struct {
	n    int64
	size int64
}

var _ contract.Planner = Plan{}

// New 创建批计划。n < 0 或 size <= 0 视为参数错误。
func New(n int64, size int) (Plan, error) {
	if n < 0 {
		return Plan{}, fmt.Errorf("%w: line count must be >= 0, got %d", contract.ErrInvalidInput, n)
	}
	if size <= 0 {
		return Plan{}, fmt.Errorf("%w: batch size must be > 0, got %d", contract.ErrInvalidInput, size)
	}
	return Plan{n: n, size: int64(size)}, nil
}

// Count 返回批数 ceil(N/size)。
func (p Plan) Count() int64 {
	if p.size == 0 {
		return 0
	}
	return (p.n + p.size - 1) / p.size
}

// At 返回第 i 批（0 起始）；i 越界时 panic（调用方按 Count 迭代）。
func (p Plan) At(i int64) contract.Batch {
	if i < 0 || i >= p.Count() {
		panic(fmt.Sprintf("fixed: batch %d out of range [0,%d)", i, p.Count()))
	}
	from := i * p.size
	to := from + p.size - 1
	if to >= p.n {
		to = p.n - 1
	}
	return contract.Batch{Index: i, From: contract.Index(from), To: contract.Index(to)}
}
