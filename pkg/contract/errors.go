package contract

import "errors"

// 最小错误分类（哨兵），各层以 %w 包装后上抛。
// I/O 错误不另设哨兵：直接使用标准库的 *fs.PathError。
var (
	// ErrEncoding: 编码名称或代码页无法识别。
	ErrEncoding = errors.New("unknown encoding")
	// ErrInvalidInput: 参数形状/取值非法（命令行或配置）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrDataConsistency: 源文件行数少于排列所需，或运行期间源文件被修改。
	ErrDataConsistency = errors.New("data consistency violation")
	// ErrTooManyLines: 行数超出排列索引可寻址范围。
	ErrTooManyLines = errors.New("too many lines")
	// ErrPathInvalid: 输出路径为空或指向目录。
	ErrPathInvalid = errors.New("path invalid")
	// ErrVerifyMismatch: 校验发现两侧行的多重集合不一致。
	ErrVerifyMismatch = errors.New("verify mismatch")
)
