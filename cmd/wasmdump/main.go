package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-binfmt/engine"
	"github.com/wippyai/wasm-binfmt/wasm"
	"github.com/wippyai/wasm-binfmt/wasm/features"
)

// presetFlag selects a pre-composed feature set by name.
type presetFlag struct {
	name string
	set  *wasm.Set
}

var _ pflag.Value = (*presetFlag)(nil)

func (p *presetFlag) String() string {
	return p.name
}

func (p *presetFlag) Set(name string) error {
	set, err := features.Preset(name)
	if err != nil {
		return err
	}
	p.name, p.set = name, set
	return nil
}

func (p *presetFlag) Type() string {
	return "preset"
}

type cli struct {
	out      io.Writer
	errOut   io.Writer
	log      *zap.Logger
	decoder  *wasm.Decoder
	preset   presetFlag
	logLevel string
}

func newCLI(out, errOut io.Writer) *cli {
	return &cli{
		out:      out,
		errOut:   errOut,
		log:      zap.NewNop(),
		preset:   presetFlag{name: "default", set: features.Default},
		logLevel: "warn",
	}
}

func newRootCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wasmdump [OPTIONS] COMMAND FILE...",
		Short:         "Inspect and validate WebAssembly binary modules",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	cmd.SetOut(c.out)
	cmd.SetErr(c.errOut)

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.logLevel, "log-level", c.logLevel, "Log level (debug, info, warn, error)")
	flags.Var(&c.preset, "features", "Feature preset (default, mvp)")

	cmd.AddCommand(
		newSectionsCommand(c),
		newGlobalsCommand(c),
		newImportsCommand(c),
		newExportsCommand(c),
		newCheckCommand(c),
		newStripCommand(c),
		newFeaturesCommand(c),
		newCompileCommand(c),
		newBrowseCommand(c),
	)
	return cmd
}

func (c *cli) setup() error {
	level, err := zap.ParseAtomicLevel(c.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	c.log = log
	wasm.SetLogger(log.Named("wasm"))
	engine.SetLogger(log.Named("engine"))
	c.decoder = wasm.NewDecoder(c.preset.set, wasm.WithLogger(log.Named("decode")))
	return nil
}

// load reads and decodes one module file.
func (c *cli) load(path string) (*wasm.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	m, err := c.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func main() {
	c := newCLI(os.Stdout, os.Stderr)
	cmd := newRootCommand(c)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = c.log.Sync()
		os.Exit(1)
	}
	_ = c.log.Sync()
}
