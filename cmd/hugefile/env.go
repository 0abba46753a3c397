package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	cfgpkg "hugefile/internal/config"
)

// loadDotEnv 读取简单的 KEY=VALUE 文件并写入进程环境（已存在的键不覆盖）。
// 支持注释、export 前缀与成对引号；文件不存在时静默返回。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		key, val, ok := parseEnvLine(s.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

func parseEnvLine(line string) (key, val string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	key, val, ok = strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", false
	}
	val = strings.TrimSpace(val)
	if n := len(val); n >= 2 && (val[0] == '"' || val[0] == '\'') && val[n-1] == val[0] {
		q := val[0]
		val = val[1 : n-1]
		if q == '"' {
			val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`).Replace(val)
		}
	}
	return key, val, true
}

// writeTemplates 在 dir 下写出 hugefile.toml 与 .env；已存在的文件跳过，返回实际写出的路径。
func writeTemplates(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("init-config: %w", err)
	}
	toml, err := cfgpkg.RenderTOML(cfgpkg.DefaultTemplateConfig())
	if err != nil {
		return nil, fmt.Errorf("init-config: %w", err)
	}
	var written []string
	for _, f := range []struct {
		name string
		data []byte
	}{
		{defaultConfigName, toml},
		{".env", []byte(cfgpkg.DotEnvTemplate())},
	} {
		p := filepath.Join(dir, f.name)
		ok, err := writeExclusive(p, f.data)
		if err != nil {
			return written, fmt.Errorf("init-config: %w", err)
		}
		if ok {
			written = append(written, p)
		}
	}
	return written, nil
}

// writeExclusive 仅在文件不存在时创建并写入。
func writeExclusive(path string, data []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return false, err
	}
	return true, f.Close()
}
