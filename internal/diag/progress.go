package diag

import "time"

// Observation: 单遍扫描的进度观测 (count, elapsed, rate)。
type Observation struct {
	Count   int64
	Elapsed time.Duration
	Rate    float64 // lines per second
}

// Observe 由计数与耗时构造观测。
func Observe(count int64, elapsed time.Duration) Observation {
	return Observation{Count: count, Elapsed: elapsed, Rate: Rate(count, elapsed)}
}

// BatchObservation: 乱序引擎每批完成后的观测。
type BatchObservation struct {
	// Done: 已完成批数（1..Total）。
	Done  int64
	Total int64
	// Lines: 已写出的行数。
	Lines     int64
	Elapsed   time.Duration
	Rate      float64
	Remaining time.Duration
}

// Rate 返回每秒行数；elapsed<=0 时为 0。
func Rate(count int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / elapsed.Seconds()
}

// Remaining 以已完成部分的平均耗时外推剩余时间：(total-done) * elapsed / done。
// done<=0 时无法外推，返回 0。
func Remaining(done, total int64, elapsed time.Duration) time.Duration {
	if done <= 0 || total <= done {
		return 0
	}
	return time.Duration(float64(elapsed) * float64(total-done) / float64(done))
}
