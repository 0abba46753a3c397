package diag

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// 级别定义
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Logger 为最小结构化日志器：单行 JSON 写入轮转文件；sink 失败时回落到 stderr。
// 所有方法对 nil 接收者安全（等价于关闭日志）。
type Logger struct {
	corrID string
	level  Level
	sink   *RotatingFile
	mu     sync.Mutex
}

// NewLogger 按 level 初始化，日志写入 dir（空则 "logs"），10MiB 轮转。
func NewLogger(corrID, level, dir string) *Logger {
	lvl := parseLevel(strings.TrimSpace(level))
	if strings.TrimSpace(dir) == "" {
		dir = "logs"
	}
	sink := NewRotatingFile(dir, 10*1024*1024)
	return &Logger{corrID: corrID, level: lvl, sink: sink}
}

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// ValidLevel 报告 s 是否为可识别的级别名（空串视为默认 info）。
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug", "info", "warn", "error":
		return true
	}
	return false
}

// Event 为标准事件结构。
type Event struct {
	Level  string            `json:"level"`
	TS     string            `json:"ts"`
	CorrID string            `json:"corr_id"`
	Comp   string            `json:"comp"`
	Stage  string            `json:"stage"` // start|progress|finish|error
	Code   string            `json:"code,omitempty"`
	DurMS  int64             `json:"dur_ms,omitempty"`
	Count  int64             `json:"count,omitempty"`
	FileID string            `json:"file_id,omitempty"`
	Batch  string            `json:"batch_id,omitempty"`
	Msg    string            `json:"msg"`
	KV     map[string]string `json:"kv,omitempty"`
}

func (l *Logger) log(lv Level, ev Event) {
	if l == nil || lv < l.level {
		return
	}
	ev.Level = lv.String()
	ev.TS = NowUTC()
	ev.CorrID = l.corrID
	b, _ := json.Marshal(ev)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink == nil {
		_, _ = os.Stderr.Write(append(b, '\n'))
		return
	}
	if err := l.sink.WriteLine(b); err != nil {
		fmt.Fprintf(os.Stderr, "logger sink error: %v\n", err)
		_, _ = os.Stderr.Write(append(b, '\n'))
	}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now(), level: Info}
}

// StartWithKV 记录带 file_id 与键值的 start。
func (l *Logger) StartWithKV(comp, msg, fileID string, kv map[string]string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", FileID: fileID, Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now(), level: Info}
}

// StartBatch 记录单批 start（debug 级别，批数可能很大）。
func (l *Logger) StartBatch(comp, fileID, batch string, kv map[string]string) *Timer {
	l.log(Debug, Event{Comp: comp, Stage: "start", FileID: fileID, Batch: batch, Msg: "batch", KV: kv})
	return &Timer{l: l, comp: comp, fileID: fileID, batch: batch, t0: time.Now(), level: Debug}
}

// Progress 记录周期性进度观测（debug 级别）。
func (l *Logger) Progress(comp, fileID string, count int64, kv map[string]string) {
	l.log(Debug, Event{Comp: comp, Stage: "progress", FileID: fileID, Count: count, Msg: "progress", KV: kv})
}

// Info 记录普通信息事件。
func (l *Logger) Info(comp, msg string, kv map[string]string) {
	l.log(Info, Event{Comp: comp, Stage: "info", Msg: msg, KV: kv})
}

// Warn 记录警告事件。
func (l *Logger) Warn(comp, msg string, kv map[string]string) {
	l.log(Warn, Event{Comp: comp, Stage: "warn", Msg: msg, KV: kv})
}

// Error 记录 error 事件（不采样）。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", nil)
}

// ErrorWithKV 支持 file_id 与附带键值（例如批序、源行号）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, fileID string, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, FileID: fileID, KV: kv})
}

// DebugKV 输出调试级别事件（仅在 level=debug 时生效）。
func (l *Logger) DebugKV(comp, msg string, kv map[string]string) {
	l.log(Debug, Event{Comp: comp, Stage: "start", Msg: msg, KV: kv})
}

// Close 关闭 sink。
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	batch  string
	t0     time.Time
	level  Level
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(t.level, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, FileID: t.fileID, Batch: t.batch, Msg: msg})
}
