package contract

// FileID: 日志中使用的文件标识（规范化路径）。
type FileID string

// Index: 源文件内 0 起始的行号。
type Index int64

// MaxLines: 排列可表示的最大行数（索引以 uint32 存储）。
const MaxLines = 1<<32 - 1

// Permutation: 目标顺序。输出位置 i 接收源行 P[i]。
// 不变量：P 是 [0,N) 上的双射。
// 以 uint32 存储：排列是内存占用的主体，减半即直接放宽可处理文件的上限。
type Permutation []uint32

// Len 返回排列长度 N。
func (p Permutation) Len() int64 { return int64(len(p)) }

// WorkItem: 批内工作项 (源行号, 批内槽位)。
// 先按 Source 升序排序以单次前向扫描读取，再按 Slot 回填输出。
type WorkItem struct {
	Source Index
	Slot   int
}

// Batch: 连续的输出位置区间 [From, To]（闭区间）。
type Batch struct {
	// Index: 批序（0..n-1，严格递增）。
	Index int64
	From  Index
	To    Index
}

// Size 返回批内输出位置数。
func (b Batch) Size() int { return int(b.To - b.From + 1) }
