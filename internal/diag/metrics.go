package diag

import (
	"sort"
	"sync"
)

// 进程内最小指标：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计）
// - lines_total{comp}
// 运行结束时以 Snapshot 输出到 debug 日志。

var (
	metricsMu sync.Mutex
	counters  = map[string]int64{}
)

func add(key string, n int64) {
	metricsMu.Lock()
	counters[key] += n
	metricsMu.Unlock()
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) { add("op_total{"+comp+","+stage+","+result+"}", 1) }

// IncError 按分类累加错误计数。
func IncError(comp, code string) { add("error_total{"+comp+","+code+"}", 1) }

// ObserveDuration 累计阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	add("op_duration_ms{"+comp+","+stage+"}", durMS)
}

// AddLines 累加某组件处理的行数。
func AddLines(comp string, n int64) { add("lines_total{"+comp+"}", n) }

// Snapshot 返回当前计数的拷贝（键有序，便于日志稳定输出）。
func Snapshot() map[string]int64 {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	out := make(map[string]int64, len(counters))
	for k, v := range counters {
		out[k] = v
	}
	return out
}

// SnapshotKeys 返回有序键列表。
func SnapshotKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResetMetrics 清空计数（测试与多次运行之间使用）。
func ResetMetrics() {
	metricsMu.Lock()
	counters = map[string]int64{}
	metricsMu.Unlock()
}
