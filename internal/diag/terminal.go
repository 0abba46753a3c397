package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Terminal: 终端进度与吞吐提示（非日志）。
// - 输出到提供的 io.Writer（默认 stderr）。
// - TTY: 单行 \r 覆盖并节流；非 TTY: 每个观测一行。
// - 并发安全；写失败后进入禁用态为 no-op。
// 提示只是信息性的，从不影响控制流。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	pass     string
	file     string

	lastLen   int
	lastFlush time.Time

	mu sync.Mutex
}

// 进程级终端（可选，全局设置后供各组件旁路调用）。
var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal 构造终端提示器。enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	// CI 环境视为非 TTY
	if os.Getenv("CI") != "" {
		t.isTTY = false
	} else if f, ok := w.(*os.File); ok {
		if fi, err := f.Stat(); err == nil {
			t.isTTY = fi.Mode()&os.ModeCharDevice != 0
		}
	}
	return t
}

// PassStart 标记一遍扫描开始（count/split/chunk/shuffle/verify）。
func (t *Terminal) PassStart(pass, file string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.pass = pass
	t.file = shortenBase(file, 48)
	t.println(fmt.Sprintf("[%s] %s | 开始", t.pass, t.file))
}

// PassProgress 周期性进度（TTY ≥100ms 节流）。
func (t *Terminal) PassProgress(obs Observation) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	line := fmt.Sprintf("[%s] %s | 行 %d | 用时 %s | 速度 %.0f lps",
		t.pass, t.file, obs.Count, formatDur(obs.Elapsed), obs.Rate)
	t.emit(line)
}

// PassFinish 完成一遍扫描（立即刷新并换行）。
func (t *Terminal) PassFinish(obs Observation) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.clearInline()
	t.println(fmt.Sprintf("[%s] %s | 完成 | 行 %d | 用时 %s | 速度 %.0f lps",
		t.pass, t.file, obs.Count, formatDur(obs.Elapsed), obs.Rate))
}

// Estimate 在乱序开始前提示批数与预计总耗时（批数 × 单遍耗时）。
func (t *Terminal) Estimate(batches int64, perPass time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.println(fmt.Sprintf("[%s] 预计 %d 批 | 约 %s", t.pass, batches, formatDur(time.Duration(batches)*perPass)))
}

// BatchProgress 每批完成后的吞吐与剩余时间。
func (t *Terminal) BatchProgress(obs BatchObservation) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	line := fmt.Sprintf("[%s] %s | 批 %d/%d | 行 %d | 速度 %.0f lps | 剩余 %s",
		t.pass, t.file, obs.Done, obs.Total, obs.Lines, obs.Rate, formatDur(obs.Remaining))
	if obs.Done == obs.Total {
		t.clearInline()
		t.println(line)
		return
	}
	t.emit(line)
}

// RunFinish: 结束总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	t.clearInline()
	t.println(fmt.Sprintf("[%s] 全部完成 | 总用时 %s", tag, formatDur(dur)))
}

// emit: TTY 节流覆盖；非 TTY 直接分行。
func (t *Terminal) emit(line string) {
	if !t.isTTY {
		t.println(line)
		return
	}
	now := time.Now()
	if now.Sub(t.lastFlush) < 100*time.Millisecond {
		return
	}
	t.lastFlush = now
	t.printInline(line)
}

func (t *Terminal) clearInline() {
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
		t.lastLen = 0
		if _, err := io.WriteString(t.w, "\r"); err != nil {
			t.enabled = false
		}
	}
}

func (t *Terminal) println(s string) {
	if !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
	t.lastLen = 0
}

func (t *Terminal) printInline(s string) {
	if !t.enabled {
		return
	}
	// 新行比旧行短时以空格覆盖残尾
	pad := 0
	if l := visLen(s); t.lastLen > l {
		pad = t.lastLen - l
	}
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

// shortenBase: 取基名并按可见宽度截断（尾部省略号）。
func shortenBase(s string, max int) string {
	if max <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	if visLen(base) <= max {
		return safe(base)
	}
	cut := max - 1
	if cut < 1 {
		cut = 1
	}
	rs := []rune(base)
	return safe(string(rs[:cut])) + "…"
}

func visLen(s string) int { return len([]rune(s)) }

func safe(s string) string {
	// 避免换行等控制字符污染终端
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms <= 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	if d >= time.Hour {
		return d.Round(time.Second).String()
	}
	s := float64(d.Milliseconds()) / 1000.0
	return fmt.Sprintf("%.1fs", s)
}
