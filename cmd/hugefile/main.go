package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cfgpkg "hugefile/internal/config"
	"hugefile/internal/diag"
	"hugefile/internal/pipeline"
	"hugefile/pkg/contract"
)

// 可替换的流水线入口（测试注入）。
var (
	runCount   = pipeline.RunCount
	runSplit   = pipeline.RunSplit
	runShuffle = pipeline.RunShuffle
	runChunk   = pipeline.RunChunk
	runVerify  = pipeline.RunVerify
)

// 退出码
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
	exitConfig  = 3
)

// usageError: 命令行形状错误（参数个数、数字格式、未知命令）；用法已打印。
type usageError struct {
	msg string
	err error
}

func (e *usageError) Error() string { return e.msg }

func (e *usageError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app 持有一次进程运行的共享状态。
type app struct {
	stdout io.Writer
	stderr io.Writer
	start  time.Time
	corrID string
	logger *diag.Logger
	term   *diag.Terminal
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, start: time.Now(), corrID: genCorrID()}
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(stderr, "提示：.env 读取失败（已跳过）：%v\n", err)
	}
	defer func() {
		diag.SetTerminal(nil)
		pipeline.LogMetrics(a.logger)
		_ = a.logger.Close()
	}()

	err := a.cli().RunContext(ctx, normalizeArgs(args))
	code := exitCode(err)
	if err != nil {
		switch {
		case isUsage(err):
			fmt.Fprintf(stderr, "用法错误: %v\n", err)
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(stderr, "已取消")
		default:
			fmt.Fprintf(stderr, "运行失败: %v\n", err)
		}
		ec := diag.Classify(err)
		a.logger.Error("main", string(ec), "first error", &a.start)
		diag.IncOp("main", "error", "error")
		if ec != diag.CodeUnknown {
			diag.IncError("main", string(ec))
		}
	} else {
		diag.IncOp("main", "finish", "success")
		diag.ObserveDuration("main", "finish", time.Since(a.start).Milliseconds())
	}
	if a.term != nil {
		a.term.RunFinish(err == nil, time.Since(a.start))
	}
	return code
}

// exitCode 将错误映射为退出码：配置/编码 3，用法/参数 2，其余运行期错误 1。
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case isUsage(err):
		return exitUsage
	case errors.Is(err, cfgpkg.ErrConfig), errors.Is(err, contract.ErrEncoding):
		return exitConfig
	case errors.Is(err, contract.ErrInvalidInput), errors.Is(err, contract.ErrPathInvalid):
		return exitUsage
	default:
		return exitRuntime
	}
}

// normalizeArgs 兼容旧式调用：
//
//	-count/-split/-shuffle/-chunk  => 同名子命令
//	-enc X                         => --enc X
//
// 仅改写首个命令位置之前（含）的记号，命令参数原样保留。
func normalizeArgs(args []string) []string {
	if len(args) <= 1 {
		return args
	}
	out := make([]string, 0, len(args))
	out = append(out, args[0])
	for i := 1; i < len(args); i++ {
		a := args[i]
		switch a {
		case "-count", "-split", "-shuffle", "-chunk", "-verify":
			out = append(out, trimLegacy(a))
			return append(out, args[i+1:]...)
		case "-enc":
			out = append(out, "--enc")
			continue
		}
		out = append(out, a)
		if !strings.HasPrefix(a, "-") {
			// 已到命令或其参数
			if i > 1 && isValueFlag(args[i-1]) {
				continue
			}
			return append(out, args[i+1:]...)
		}
	}
	return out
}

// isValueFlag 报告全局旗标是否带独立的值参数。
func isValueFlag(a string) bool {
	switch strings.TrimLeft(a, "-") {
	case "enc", "config", "log-level":
		return !strings.Contains(a, "=")
	}
	return false
}

func genCorrID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}
