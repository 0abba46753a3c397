package diag

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"time"

	"hugefile/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown     Code = "unknown"
	CodeIO          Code = "io"
	CodeEncoding    Code = "encoding"
	CodeArgument    Code = "argument"
	CodeConsistency Code = "consistency"
	CodeMemory      Code = "memory"
	CodeVerify      Code = "verify"
	CodeCancel      Code = "cancel"
)

// Classify 将错误归为最小分类。
// 说明：仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	if errors.Is(err, contract.ErrEncoding) {
		return CodeEncoding
	}
	if errors.Is(err, contract.ErrInvalidInput) || errors.Is(err, contract.ErrPathInvalid) {
		return CodeArgument
	}
	if errors.Is(err, contract.ErrDataConsistency) {
		return CodeConsistency
	}
	if errors.Is(err, contract.ErrTooManyLines) {
		return CodeMemory
	}
	if errors.Is(err, contract.ErrVerifyMismatch) {
		return CodeVerify
	}
	var perr *fs.PathError
	if errors.As(err, &perr) || errors.Is(err, bufio.ErrTooLong) {
		return CodeIO
	}
	return CodeUnknown
}

// NowUTC 返回 RFC3339 UTC 时间字符串（用于结构化日志字段 ts）。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
