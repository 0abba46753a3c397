package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix 为环境变量覆盖的前缀。
const EnvPrefix = "HUGEFILE_"

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	t := true
	return Config{
		Logging:  Logging{Level: "info", Dir: "logs"},
		Progress: Progress{EveryLines: 100000, Status: &t},
		Shuffle:  Shuffle{OnShortSource: "fail", Guard: &t},
		Components: Components{
			Reader: "fs",
			Writer: "fs",
		},
	}
}

// LoadTOML 从文件路径或原始 TOML 解析 Config（严格拒绝未知键）。
func LoadTOML(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		defer f.Close()
		r = f
	default:
		return cfg, fmt.Errorf("%w: no config source provided", ErrConfig)
	}
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var sme *toml.StrictMissingError
		if errors.As(err, &sme) {
			return cfg, fmt.Errorf("%w: unknown keys:\n%s", ErrConfig, sme.String())
		}
		return cfg, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 标量/字符串非零即覆盖；指针非 nil 即覆盖；选项子表按键整体替换，不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if s := strings.TrimSpace(over.Encoding); s != "" {
		out.Encoding = s
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}
	if over.Progress.EveryLines != 0 {
		out.Progress.EveryLines = over.Progress.EveryLines
	}
	if over.Progress.Status != nil {
		out.Progress.Status = over.Progress.Status
	}
	if over.Shuffle.Seed != nil {
		out.Shuffle.Seed = over.Shuffle.Seed
	}
	if over.Shuffle.Verify != nil {
		out.Shuffle.Verify = over.Shuffle.Verify
	}
	if over.Shuffle.ReclaimBetweenBatches != nil {
		out.Shuffle.ReclaimBetweenBatches = over.Shuffle.ReclaimBetweenBatches
	}
	if s := strings.TrimSpace(over.Shuffle.OnShortSource); s != "" {
		out.Shuffle.OnShortSource = s
	}
	if over.Shuffle.Guard != nil {
		out.Shuffle.Guard = over.Shuffle.Guard
	}
	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}
	// Options（完整替换对应子表）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = maps.Clone(over.Options.Reader)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = maps.Clone(over.Options.Writer)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 HUGEFILE_；集合之外的键忽略；空值视为未设置；取值非法时返回错误。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		var err error
		switch strings.TrimPrefix(key, EnvPrefix) {
		case "ENCODING":
			over.Encoding = val
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "PROGRESS_EVERY":
			over.Progress.EveryLines, err = strconv.ParseInt(val, 10, 64)
		case "PROGRESS_STATUS":
			over.Progress.Status, err = parseBool(val)
		case "SHUFFLE_SEED":
			var v uint64
			if v, err = strconv.ParseUint(val, 10, 64); err == nil {
				over.Shuffle.Seed = &v
			}
		case "SHUFFLE_VERIFY":
			over.Shuffle.Verify, err = parseBool(val)
		case "SHUFFLE_RECLAIM":
			over.Shuffle.ReclaimBetweenBatches, err = parseBool(val)
		case "SHUFFLE_ON_SHORT_SOURCE":
			over.Shuffle.OnShortSource = val
		case "SHUFFLE_GUARD":
			over.Shuffle.Guard, err = parseBool(val)
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		}
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s=%q: %v", ErrConfig, key, val, err)
		}
	}
	return over, nil
}

func parseBool(s string) (*bool, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// BoolValue 返回 *bool 的值；nil 取 def。
func BoolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
