package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"hugefile/internal/shuffle"
	"hugefile/pkg/contract"
)

// UT-CFG-01: 解析完整 TOML
func TestLoadTOML(t *testing.T) {
	raw := []byte(`
encoding = "windows-1251"

[logging]
level = "debug"
dir = "var/log"

[progress]
every_lines = 5000
status = false

[shuffle]
seed = 42
verify = true
on_short_source = "empty"

[components]
reader = "fs"

[options.writer]
atomic = false
newline = "\r\n"
`)
	cfg, err := LoadTOML("", raw)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.Encoding != "windows-1251" || cfg.Logging.Level != "debug" || cfg.Progress.EveryLines != 5000 {
		t.Fatalf("字段映射错误: %+v", cfg)
	}
	if cfg.Shuffle.Seed == nil || *cfg.Shuffle.Seed != 42 || !BoolValue(cfg.Shuffle.Verify, false) {
		t.Fatalf("shuffle 映射错误: %+v", cfg.Shuffle)
	}
	if BoolValue(cfg.Progress.Status, true) {
		t.Fatalf("status 应为 false")
	}
	if cfg.Options.Writer["newline"] != "\r\n" {
		t.Fatalf("writer options 映射错误: %v", cfg.Options.Writer)
	}
	if err := Validate(Merge(Defaults(), cfg)); err != nil {
		t.Fatalf("校验失败: %v", err)
	}
}

// UT-CFG-02: 含非法键
func TestLoadTOMLUnknown(t *testing.T) {
	for _, raw := range []string{`unknown = 1`, "[shuffle]\nbatch = 3\n", `encoding = [`} {
		if _, err := LoadTOML("", []byte(raw)); !errors.Is(err, ErrConfig) {
			t.Fatalf("%q 应当返回配置错误, got %v", raw, err)
		}
	}
	if _, err := LoadTOML("", nil); !errors.Is(err, ErrConfig) {
		t.Fatalf("无来源应报错")
	}
	if _, err := LoadTOML(filepath.Join(t.TempDir(), "missing.toml"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("缺失文件应报不存在, got %v", err)
	}
}

// UT-CFG-03: ENV 覆盖部分字段
func TestEnvOverlay(t *testing.T) {
	env := []string{
		"HUGEFILE_ENCODING=cp1252",
		"HUGEFILE_LOG_LEVEL=warn",
		"HUGEFILE_PROGRESS_EVERY=10",
		"HUGEFILE_SHUFFLE_SEED=7",
		"HUGEFILE_SHUFFLE_GUARD=false",
		"HUGEFILE_SHUFFLE_VERIFY=",
		"HUGEFILE_UNKNOWN=1",
		"PATH=/bin",
	}
	over, err := EnvOverlay(env)
	if err != nil {
		t.Fatalf("EnvOverlay 错误: %v", err)
	}
	if over.Encoding != "cp1252" || over.Logging.Level != "warn" || over.Progress.EveryLines != 10 {
		t.Fatalf("覆盖结果不正确: %+v", over)
	}
	if over.Shuffle.Seed == nil || *over.Shuffle.Seed != 7 {
		t.Fatalf("seed 未覆盖")
	}
	if over.Shuffle.Guard == nil || *over.Shuffle.Guard {
		t.Fatalf("guard 应显式为 false")
	}
	if over.Shuffle.Verify != nil {
		t.Fatalf("空值应视为未设置")
	}

	if _, err := EnvOverlay([]string{"HUGEFILE_SHUFFLE_SEED=-1"}); !errors.Is(err, ErrConfig) {
		t.Fatalf("非法 seed 应报错, got %v", err)
	}
	if _, err := EnvOverlay([]string{"HUGEFILE_SHUFFLE_RECLAIM=maybe"}); !errors.Is(err, ErrConfig) {
		t.Fatalf("非法 bool 应报错, got %v", err)
	}
}

// UT-CFG-04: 合并优先级与显式 false
func TestMerge(t *testing.T) {
	f := false
	base := Defaults()
	over := Config{Logging: Logging{Level: "error"}, Shuffle: Shuffle{Guard: &f}}
	got := Merge(base, over)
	if got.Logging.Level != "error" || got.Logging.Dir != "logs" {
		t.Fatalf("logging 合并错误: %+v", got.Logging)
	}
	if BoolValue(got.Shuffle.Guard, true) {
		t.Fatalf("显式 false 应覆盖默认 true")
	}
	if got.Components.Reader != "fs" || got.Shuffle.OnShortSource != "fail" {
		t.Fatalf("未覆盖字段应保留: %+v", got)
	}
	opts := map[string]any{"buf_size": int64(1)}
	got = Merge(got, Config{Options: Options{Reader: opts}})
	opts["buf_size"] = int64(2)
	if got.Options.Reader["buf_size"] != int64(1) {
		t.Fatalf("options 应被复制")
	}
}

// 补充覆盖: Validate 错误分支
func TestValidateErrors(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Logging.Level = "trace" },
		func(c *Config) { c.Progress.EveryLines = -1 },
		func(c *Config) { c.Shuffle.OnShortSource = "skip" },
		func(c *Config) { c.Components.Reader = "s3" },
		func(c *Config) { c.Components.Writer = "kafka" },
	}
	for i, mut := range cases {
		cfg := Defaults()
		mut(&cfg)
		if err := Validate(cfg); !errors.Is(err, ErrConfig) {
			t.Fatalf("case %d 应失败, got %v", i, err)
		}
	}
}

func TestAssemble(t *testing.T) {
	cfg := Defaults()
	seed := uint64(9)
	tr := true
	cfg.Encoding = "utf-8"
	cfg.Shuffle.Seed = &seed
	cfg.Shuffle.ReclaimBetweenBatches = &tr
	cfg.Shuffle.OnShortSource = "empty"
	comp, set, enc, err := Assemble(cfg)
	if err != nil {
		t.Fatalf("装配失败: %v", err)
	}
	if comp.Reader == nil || comp.Writer == nil {
		t.Fatalf("组件未构造")
	}
	if set.Seed != 9 || !set.Reclaim || set.Verify || !set.Guard || set.OnShortSource != shuffle.PolicyEmpty {
		t.Fatalf("settings 错误: %+v", set)
	}
	if enc.Name != "utf-8" {
		t.Fatalf("编码名错误: %s", enc.Name)
	}

	cfg.Encoding = "no-such-charset"
	if _, _, _, err := Assemble(cfg); !errors.Is(err, contract.ErrEncoding) {
		t.Fatalf("未知编码应报编码错误, got %v", err)
	}
	cfg.Encoding = ""
	cfg.Options.Writer = map[string]any{"flat": true}
	if _, _, _, err := Assemble(cfg); !errors.Is(err, ErrConfig) {
		t.Fatalf("未知 writer 选项应报配置错误, got %v", err)
	}
}

// 模板可被严格解析回来且通过校验
func TestTemplateRoundTrip(t *testing.T) {
	b, err := RenderTOML(DefaultTemplateConfig())
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	cfg, err := LoadTOML("", b)
	if err != nil {
		t.Fatalf("模板无法解析: %v\n%s", err, b)
	}
	if _, _, _, err := Assemble(Merge(Defaults(), cfg)); err != nil {
		t.Fatalf("模板无法装配: %v", err)
	}
	env := DotEnvTemplate()
	over, err := EnvOverlay(splitLines(env))
	if err != nil {
		t.Fatalf(".env 模板覆盖失败: %v", err)
	}
	if over.Encoding != "" {
		t.Fatalf("空模板不应产生覆盖")
	}
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
