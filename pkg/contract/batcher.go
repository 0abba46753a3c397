package contract

// Planner: 将 N 个输出位置切分为连续批次。
// 约束：
//  1. 批次按 Index 严格递增、首尾相接、覆盖 [0,N)；
//  2. 除最后一批外，每批恰为配置的宽度；
//  3. 不分配与 N 成正比的内存。
type Planner interface {
	Count() int64
	At(i int64) Batch
}
