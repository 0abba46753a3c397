package registry

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/encoding"

	"hugefile/pkg/contract"
	rfs "hugefile/plugins/reader/filesystem"
	wfs "hugefile/plugins/writer/filesystem"
)

// strictDecode: 把配置中的原样子表重新编码为 TOML 后严格解码，拒绝未知键。
func strictDecode(raw map[string]any, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	b, err := toml.Marshal(raw)
	if err != nil {
		return err
	}
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样选项子表与解码用编码。
type NewReader func(raw map[string]any, enc encoding.Encoding) (contract.Reader, error)

// NewWriter 工厂签名：接收原样选项子表与编码用编码。
type NewWriter func(raw map[string]any, enc encoding.Encoding) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 本地文件 Reader
	"fs": func(raw map[string]any, enc encoding.Encoding) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictDecode(raw, &opts); err != nil {
			return nil, fmt.Errorf("reader fs options: %w", err)
		}
		if opts.BufSize < 0 || opts.MaxLineBytes < 0 {
			return nil, fmt.Errorf("reader fs options: %w: sizes must be >= 0", contract.ErrInvalidInput)
		}
		return rfs.New(&opts, enc), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 本地文件 Writer（默认原子替换）
	"fs": func(raw map[string]any, enc encoding.Encoding) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictDecode(raw, &opts); err != nil {
			return nil, fmt.Errorf("writer fs options: %w", err)
		}
		w, err := wfs.New(&opts, enc)
		if err != nil {
			return nil, fmt.Errorf("writer fs options: %w", err)
		}
		return w, nil
	},
}
