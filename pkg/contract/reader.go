package contract

import "context"

// LineScanner: 一次顺序扫描。语义与 bufio.Scanner 一致：
// Scan 前进一行；Text 返回当前行（不含换行符）；扫描结束后 Err 报告首个非 EOF 错误。
type LineScanner interface {
	Scan() bool
	Text() string
	Err() error
	Close() error
}

// LineSource: 单个文件的可重启行序列。
// 约束：
//  1. 每次 Open 都从文件开头开始一次全新的顺序扫描（可重启，不可从中途恢复）；
//  2. 不得缓冲整个文件；
//  3. 按构造时给定的编码解码；
//  4. 不在内部起并发。
type LineSource interface {
	Open(ctx context.Context) (LineScanner, error)
}

// Reader: 将路径绑定为 LineSource 的工厂（实现由 registry 选择）。
type Reader interface {
	Source(path string) LineSource
}
