package config

import (
	"fmt"

	"hugefile/internal/diag"
	"hugefile/internal/pipeline"
	"hugefile/internal/shuffle"
	"hugefile/internal/textenc"
	"hugefile/pkg/registry"
)

// Validate 对最小必要边界做静态校验。编码名在 Assemble 中解析。
func Validate(cfg Config) error {
	if !diag.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("%w: logging.level %q must be debug|info|warn|error", ErrConfig, cfg.Logging.Level)
	}
	if cfg.Progress.EveryLines < 0 {
		return fmt.Errorf("%w: progress.every_lines must be >= 0", ErrConfig)
	}
	if _, err := shuffle.ParsePolicy(cfg.Shuffle.OnShortSource); err != nil {
		return fmt.Errorf("%w: shuffle.on_short_source: %w", ErrConfig, err)
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	if name := effName(cfg.Components.Reader, Defaults().Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("%w: reader %q not registered", ErrConfig, name)
	}
	if name := effName(cfg.Components.Writer, Defaults().Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("%w: writer %q not registered", ErrConfig, name)
	}
	return nil
}

// Assemble 解析编码并构造 Components 与 Settings。
// 编码作为显式值传入 Reader 与 Writer 的工厂；严格 Options 解析在 registry（工厂）层进行。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, textenc.Encoding, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, textenc.Encoding{}, err
	}
	enc, err := textenc.Lookup(cfg.Encoding)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, textenc.Encoding{}, err
	}

	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	wn := effName(cfg.Components.Writer, d.Components.Writer)
	r, err := registry.Reader[rn](cfg.Options.Reader, enc.Encoding)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, textenc.Encoding{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	w, err := registry.Writer[wn](cfg.Options.Writer, enc.Encoding)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, textenc.Encoding{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	policy, _ := shuffle.ParsePolicy(cfg.Shuffle.OnShortSource)
	var seed uint64
	if cfg.Shuffle.Seed != nil {
		seed = *cfg.Shuffle.Seed
	}
	set := pipeline.Settings{
		EveryLines:    cfg.Progress.EveryLines,
		Seed:          seed,
		Verify:        BoolValue(cfg.Shuffle.Verify, false),
		Reclaim:       BoolValue(cfg.Shuffle.ReclaimBetweenBatches, false),
		OnShortSource: policy,
		Guard:         BoolValue(cfg.Shuffle.Guard, true),
	}
	return pipeline.Components{Reader: r, Writer: w}, set, enc, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
