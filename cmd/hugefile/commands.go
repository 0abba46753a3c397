package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	cfgpkg "hugefile/internal/config"
	"hugefile/internal/diag"
	"hugefile/internal/pipeline"
	"hugefile/internal/split"
	"hugefile/pkg/contract"
)

// defaultConfigName 为工作目录下自动发现的配置文件名。
const defaultConfigName = "hugefile.toml"

func (a *app) cli() *cli.App {
	return &cli.App{
		Name:      "hugefile",
		Usage:     "超大文本行文件的计数、分割、乱序与切块",
		UsageText: "hugefile [--enc name|codepage] [--config file] <command> <params>",
		Writer:    a.stderr,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "enc", Usage: "文本编码（名称或代码页号）"},
			&cli.StringFlag{Name: "config", Usage: "TOML 配置文件路径"},
			&cli.StringFlag{Name: "log-level", Usage: "日志级别 debug|info|warn|error"},
			&cli.BoolFlag{Name: "status", Value: true, Usage: "在 stderr 显示进度"},
		},
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:         "count",
				Usage:        "统计非空行数",
				ArgsUsage:    "<sourceFile>",
				Action:       a.checked(a.count),
				OnUsageError: a.onUsageError,
			},
			{
				Name:         "split",
				Usage:        "按频率分割为 .train 与 .test",
				ArgsUsage:    "<sourceFile> <testNum>/<testDen> [<lineLimit>]",
				Action:       a.checked(a.split),
				OnUsageError: a.onUsageError,
			},
			{
				Name:      "shuffle",
				Usage:     "分批乱序（内存只持有一批行）",
				ArgsUsage: "<sourceFile> <batchSizeLines> [<outFile>]",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "seed", Usage: "随机种子；0 表示随机"},
					&cli.BoolFlag{Name: "verify", Usage: "完成后比对源与输出的行集合"},
					&cli.BoolFlag{Name: "reclaim", Usage: "批间归还内存"},
					&cli.StringFlag{Name: "on-short-source", Usage: "源行数不足时 fail|empty"},
					&cli.BoolFlag{Name: "guard", Value: true, Usage: "监视源文件改动"},
				},
				Action:       a.checked(a.shuffle),
				OnUsageError: a.onUsageError,
			},
			{
				Name:         "chunk",
				Usage:        "切分为固定行数的编号文件",
				ArgsUsage:    "<sourceFile> <chunkSizeLines> [<numberOfDigits>]",
				Action:       a.checked(a.chunk),
				OnUsageError: a.onUsageError,
			},
			{
				Name:         "verify",
				Usage:        "比对两个文件的行多重集合",
				ArgsUsage:    "<fileA> <fileB>",
				Action:       a.checked(a.verify),
				OnUsageError: a.onUsageError,
			},
			{
				Name:         "init-config",
				Usage:        "写出默认 hugefile.toml 与 .env 模板（不覆盖）",
				ArgsUsage:    "[dir]",
				Action:       a.checked(a.initConfig),
				OnUsageError: a.onUsageError,
			},
		},
		Action: func(c *cli.Context) error {
			_ = cli.ShowAppHelp(c)
			if c.NArg() == 0 {
				return &usageError{msg: "missing command"}
			}
			return &usageError{msg: fmt.Sprintf("unknown command %q", c.Args().First())}
		},
		OnUsageError:   a.onUsageError,
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func (a *app) onUsageError(c *cli.Context, err error, _ bool) error {
	_ = cli.ShowAppHelp(c)
	return &usageError{msg: err.Error()}
}

// checked 把运行期发现的参数错误（如输出与源相同）也按用法错误处理：打印用法，退出码 2。
func (a *app) checked(fn cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		err := fn(c)
		if err == nil || isUsage(err) || errors.Is(err, cfgpkg.ErrConfig) || errors.Is(err, contract.ErrEncoding) {
			return err
		}
		if errors.Is(err, contract.ErrInvalidInput) || errors.Is(err, contract.ErrPathInvalid) {
			_ = cli.ShowAppHelp(c)
			return &usageError{msg: err.Error(), err: err}
		}
		return err
	}
}

// usage 打印用法并返回用法错误。
func (a *app) usage(c *cli.Context, format string, args ...any) error {
	_ = cli.ShowAppHelp(c)
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// setup 合并配置层（默认 < 文件 < ENV < CLI），装配组件并初始化日志与终端。
func (a *app) setup(c *cli.Context) (pipeline.Components, pipeline.Settings, error) {
	cfg := cfgpkg.Defaults()

	path := c.String("config")
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	raw := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_TOML")
	if path == "" && raw == "" {
		if fi, err := os.Stat(defaultConfigName); err == nil && !fi.IsDir() {
			path = defaultConfigName
		}
	}
	if path != "" || raw != "" {
		fc, err := cfgpkg.LoadTOML(path, []byte(raw))
		if err != nil {
			return pipeline.Components{}, pipeline.Settings{}, err
		}
		cfg = cfgpkg.Merge(cfg, fc)
	}

	ec, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	cfg = cfgpkg.Merge(cfg, ec)
	cfg = cfgpkg.Merge(cfg, cliOverlay(c))

	comp, set, enc, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	a.logger = diag.NewLogger(a.corrID, cfg.Logging.Level, cfg.Logging.Dir)
	a.term = diag.NewTerminal(a.stderr, cfgpkg.BoolValue(cfg.Progress.Status, true))
	diag.SetTerminal(a.term)
	a.logger.Info("main", "config", map[string]string{
		"command":  c.Command.Name,
		"encoding": enc.Name,
		"reader":   cfg.Components.Reader,
		"writer":   cfg.Components.Writer,
		"policy":   string(set.OnShortSource),
	})
	return comp, set, nil
}

// cliOverlay 只收集显式给出的旗标。
func cliOverlay(c *cli.Context) cfgpkg.Config {
	var over cfgpkg.Config
	if c.IsSet("enc") {
		over.Encoding = c.String("enc")
	}
	if c.IsSet("log-level") {
		over.Logging.Level = c.String("log-level")
	}
	if c.IsSet("status") {
		v := c.Bool("status")
		over.Progress.Status = &v
	}
	if c.Command == nil || c.Command.Name != "shuffle" {
		return over
	}
	if c.IsSet("seed") {
		v := c.Uint64("seed")
		over.Shuffle.Seed = &v
	}
	if c.IsSet("verify") {
		v := c.Bool("verify")
		over.Shuffle.Verify = &v
	}
	if c.IsSet("reclaim") {
		v := c.Bool("reclaim")
		over.Shuffle.ReclaimBetweenBatches = &v
	}
	if c.IsSet("on-short-source") {
		over.Shuffle.OnShortSource = c.String("on-short-source")
	}
	if c.IsSet("guard") {
		v := c.Bool("guard")
		over.Shuffle.Guard = &v
	}
	return over
}

func (a *app) count(c *cli.Context) error {
	if c.NArg() != 1 {
		return a.usage(c, "count: expected <sourceFile>")
	}
	comp, set, err := a.setup(c)
	if err != nil {
		return err
	}
	res, err := runCount(c.Context, comp, set, c.Args().Get(0), a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, res.NonBlank)
	return nil
}

func (a *app) split(c *cli.Context) error {
	if c.NArg() < 2 || c.NArg() > 3 {
		return a.usage(c, "split: expected <sourceFile> <testNum>/<testDen> [<lineLimit>]")
	}
	up, down, err := split.ParseFraction(c.Args().Get(1))
	if err != nil {
		return a.usage(c, "split: %v", err)
	}
	limit := int64(-1)
	if c.NArg() == 3 {
		if limit, err = strconv.ParseInt(c.Args().Get(2), 10, 64); err != nil {
			return a.usage(c, "split: line limit %q is not a number", c.Args().Get(2))
		}
	}
	opts := split.Options{TestUp: up, TestDown: down, Limit: limit}
	if err := opts.Validate(); err != nil {
		return a.usage(c, "split: %v", err)
	}
	comp, set, err := a.setup(c)
	if err != nil {
		return err
	}
	res, err := runSplit(c.Context, comp, set, c.Args().Get(0), opts, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s\t%d\n", res.TrainPath, res.Train)
	if res.TestPath != "" {
		fmt.Fprintf(a.stdout, "%s\t%d\n", res.TestPath, res.Test)
	}
	return nil
}

func (a *app) shuffle(c *cli.Context) error {
	if c.NArg() < 2 || c.NArg() > 3 {
		return a.usage(c, "shuffle: expected <sourceFile> <batchSizeLines> [<outFile>]")
	}
	batch, err := strconv.Atoi(c.Args().Get(1))
	if err != nil || batch <= 0 {
		return a.usage(c, "shuffle: batch size %q must be a positive integer", c.Args().Get(1))
	}
	src := c.Args().Get(0)
	out := pipeline.DefaultShuffleOut(src)
	if c.NArg() == 3 {
		out = c.Args().Get(2)
	}
	comp, set, err := a.setup(c)
	if err != nil {
		return err
	}
	res, err := runShuffle(c.Context, comp, set, src, batch, out, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s\t%d\n", res.Out, res.Lines)
	return nil
}

func (a *app) chunk(c *cli.Context) error {
	if c.NArg() < 2 || c.NArg() > 3 {
		return a.usage(c, "chunk: expected <sourceFile> <chunkSizeLines> [<numberOfDigits>]")
	}
	size, err := strconv.ParseInt(c.Args().Get(1), 10, 64)
	if err != nil || size <= 0 {
		return a.usage(c, "chunk: chunk size %q must be a positive integer", c.Args().Get(1))
	}
	digits := -1
	if c.NArg() == 3 {
		if digits, err = strconv.Atoi(c.Args().Get(2)); err != nil || digits < 0 {
			return a.usage(c, "chunk: digits %q must be a non-negative integer", c.Args().Get(2))
		}
	}
	comp, set, err := a.setup(c)
	if err != nil {
		return err
	}
	res, err := runChunk(c.Context, comp, set, c.Args().Get(0), size, digits, a.logger)
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		fmt.Fprintln(a.stdout, f)
	}
	return nil
}

func (a *app) verify(c *cli.Context) error {
	if c.NArg() != 2 {
		return a.usage(c, "verify: expected <fileA> <fileB>")
	}
	comp, _, err := a.setup(c)
	if err != nil {
		return err
	}
	return runVerify(c.Context, comp, c.Args().Get(0), c.Args().Get(1), a.logger)
}

func (a *app) initConfig(c *cli.Context) error {
	if c.NArg() > 1 {
		return a.usage(c, "init-config: expected [dir]")
	}
	dir := "."
	if c.NArg() == 1 {
		dir = c.Args().Get(0)
	}
	written, err := writeTemplates(dir)
	for _, p := range written {
		fmt.Fprintf(a.stdout, "已写入 %s\n", p)
	}
	if err != nil {
		return err
	}
	if len(written) == 0 {
		fmt.Fprintln(a.stderr, "提示：hugefile.toml 与 .env 已存在，未覆盖")
	}
	return nil
}

// isUsage 报告 err 是否为命令行形状错误。
func isUsage(err error) bool {
	var ue *usageError
	return errors.As(err, &ue)
}

// trimLegacy 去掉旧式命令前缀的连字符。
func trimLegacy(s string) string { return strings.TrimPrefix(s, "-") }
