package contract

import "context"

// LineWriter: 单个输出文件的逐行写入器。
// 约束：
//  1. 单写者，打开一次，由调用方独占；
//  2. 每条记录追加行终止符，按构造时给定的编码写出；
//  3. Commit 成功后输出才可见（或保留）；Abort 丢弃已写内容；
//  4. Commit/Abort 之后的再次调用为 no-op。
type LineWriter interface {
	WriteLine(s string) error
	Commit() error
	Abort() error
}

// Writer: 按路径创建 LineWriter（输出总是覆盖，不追加）。
type Writer interface {
	Create(ctx context.Context, path string) (LineWriter, error)
}
