package config

import "errors"

// ErrConfig: 配置来源（文件/ENV/CLI）解析或校验失败。
var ErrConfig = errors.New("config")

// Config: 运行期只读配置（一次解析，运行期不变）。
// TOML 使用 snake_case；未知键在解析期失败。
// 指针字段区分“未设置”与“显式设为零值”，供 Merge 判断是否覆盖。
type Config struct {
	// Encoding: 编码名或 Windows 代码页；空表示按区域设置推断。
	Encoding   string     `toml:"encoding" comment:"编码名（utf-8、windows-1251、gbk …）或代码页数字；空表示按区域设置推断"`
	Logging    Logging    `toml:"logging"`
	Progress   Progress   `toml:"progress"`
	Shuffle    Shuffle    `toml:"shuffle"`
	Components Components `toml:"components"`
	Options    Options    `toml:"options"`
}

// Logging: 日志级别与目录；轮转策略为固定默认。
type Logging struct {
	Level string `toml:"level" comment:"debug|info|warn|error"`
	Dir   string `toml:"dir" comment:"日志目录（10MiB 轮转）"`
}

// Progress: 进度观测。
type Progress struct {
	EveryLines int64 `toml:"every_lines" comment:"每多少行发出一次进度观测"`
	Status     *bool `toml:"status,omitempty" comment:"终端状态提示（stderr）"`
}

// Shuffle: 乱序行为。
type Shuffle struct {
	Seed                  *uint64 `toml:"seed,omitempty" comment:"排列随机种子；0 或缺省表示随机"`
	Verify                *bool   `toml:"verify,omitempty" comment:"完成后比对源与输出的行多重集合"`
	ReclaimBetweenBatches *bool   `toml:"reclaim_between_batches,omitempty" comment:"批间提示运行时归还内存"`
	OnShortSource         string  `toml:"on_short_source" comment:"源行数少于排列所需时：fail|empty"`
	Guard                 *bool   `toml:"guard,omitempty" comment:"运行期间监视源文件是否被改动"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader string `toml:"reader"`
	Writer string `toml:"writer"`
}

// Options: 各组件的原样选项子表，由注册表工厂严格解码。
type Options struct {
	Reader map[string]any `toml:"reader,omitempty"`
	Writer map[string]any `toml:"writer,omitempty"`
}
