package config

import (
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 编码留空（按区域设置推断）；
// - 组件采用仓库内置实现；
// - 选项给出全部键与安全中性默认值。
func DefaultTemplateConfig() Config {
	cfg := Defaults()
	f := false
	var seed uint64
	cfg.Shuffle.Seed = &seed
	cfg.Shuffle.Verify = &f
	cfg.Shuffle.ReclaimBetweenBatches = &f
	cfg.Options.Reader = map[string]any{
		"buf_size":       int64(65536),
		"max_line_bytes": int64(64 << 20),
	}
	cfg.Options.Writer = map[string]any{
		"atomic":    true,
		"perm_file": int64(0o644),
		"buf_size":  int64(65536),
		"newline":   "\n",
	}
	return cfg
}

// RenderTOML 以带注释的 TOML 输出配置。
func RenderTOML(cfg Config) ([]byte, error) {
	b, err := toml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	head := "# hugefile 配置（由 init-config 生成）\n# 优先级：CLI > ENV(.env) > TOML > 默认值\n\n"
	return append([]byte(head), b...), nil
}

// DotEnvTemplate 返回 .env 模板：列出全部受支持的覆盖键，值为空表示未设置。
func DotEnvTemplate() string {
	var b strings.Builder
	b.WriteString("# hugefile .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > TOML\n")
	b.WriteString("# 空值表示未设置。\n\n")

	b.WriteString("# 配置来源（可二选一）\n")
	b.WriteString(EnvPrefix + "CONFIG_FILE=\n")
	b.WriteString(EnvPrefix + "CONFIG_TOML=\n\n")

	b.WriteString("# 运行参数覆盖\n")
	for _, k := range []string{
		"ENCODING", "LOG_LEVEL", "LOG_DIR", "PROGRESS_EVERY", "PROGRESS_STATUS",
	} {
		b.WriteString(EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 乱序\n")
	for _, k := range []string{
		"SHUFFLE_SEED", "SHUFFLE_VERIFY", "SHUFFLE_RECLAIM", "SHUFFLE_ON_SHORT_SOURCE", "SHUFFLE_GUARD",
	} {
		b.WriteString(EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 组件选择\n")
	b.WriteString(EnvPrefix + "COMPONENTS_READER=\n")
	b.WriteString(EnvPrefix + "COMPONENTS_WRITER=\n")
	return b.String()
}
