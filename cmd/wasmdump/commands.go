package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/wasm-binfmt/engine"
	"github.com/wippyai/wasm-binfmt/wasm"
	"github.com/wippyai/wasm-binfmt/wasm/constexpr"
)

func newSectionsCommand(c *cli) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "sections FILE",
		Short: "List the sections of a module in input order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.load(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tOFFSET\tSIZE\tENTRIES\tOWNER")
			for _, h := range m.Layout {
				owner := m.Features().SectionOwner(h.ID)
				if h.ID == wasm.SectionCustom {
					owner = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t0x%x\t%d\t%d\t%s\n",
					h.ID, h.Name, h.Offset, h.Span.Len(), entryCount(m, h.ID), owner)
				if verbose {
					for _, row := range describeSection(m, h) {
						fmt.Fprintf(tw, "\t  %s\t\t\t\t\n", row)
					}
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every entry")
	return cmd
}

func newGlobalsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "globals FILE",
		Short: "Print global types and evaluated initializers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.load(args[0])
			if err != nil {
				return err
			}

			// Initializers can only be evaluated when no global is imported,
			// since imported values are supplied by the host.
			var values []constexpr.Value
			if len(m.ImportedGlobals()) == 0 {
				values, err = constexpr.EvalGlobals(m, nil)
				if err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tTYPE\tINIT\tVALUE")
			base := len(m.ImportedGlobals())
			for i, g := range m.Globals.Entries {
				value := "?"
				if values != nil {
					value = values[base+i].String()
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", base+i, describeGlobalType(g.Type), g.Init, value)
			}
			return tw.Flush()
		},
	}
}

func newImportsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "imports FILE",
		Short: "List module imports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.load(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODULE\tNAME\tDESC")
			for _, imp := range m.Imports.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", imp.Module, imp.Name, describeImport(m, imp.Desc))
			}
			return tw.Flush()
		},
	}
}

func newExportsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "exports FILE",
		Short: "List module exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.load(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tINDEX")
			for _, exp := range m.Exports.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", exp.Name, m.Features().KindName(exp.Kind), exp.Index)
			}
			return tw.Flush()
		},
	}
}

func newCheckCommand(c *cli) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Decode every file and report which ones are malformed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]error, len(args))

			var g errgroup.Group
			g.SetLimit(jobs)
			for i, path := range args {
				g.Go(func() error {
					_, results[i] = c.load(path)
					return nil
				})
			}
			_ = g.Wait()

			failed := 0
			for i, path := range args {
				if err := results[i]; err != nil {
					failed++
					fmt.Fprintf(c.out, "FAIL %s: %s\n", path, strings.TrimPrefix(err.Error(), path+": "))
					continue
				}
				fmt.Fprintf(c.out, "ok   %s\n", path)
			}
			c.log.Debug("check finished", zap.Int("files", len(args)), zap.Int("failed", failed))
			if failed > 0 {
				return fmt.Errorf("%d of %d modules failed to decode", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "Number of files decoded in parallel")
	return cmd
}

func newStripCommand(c *cli) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "strip FILE",
		Short: "Remove custom sections from a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			stripped, err := wasm.StripCustomSections(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if output == "" {
				output = args[0]
			}
			if err := os.WriteFile(output, stripped, 0o644); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			fmt.Fprintf(c.out, "%s: %d -> %d bytes\n", output, len(data), len(stripped))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (defaults to overwriting FILE)")
	return cmd
}

func newFeaturesCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Describe the selected feature set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set := c.preset.set
			fmt.Fprintf(c.out, "preset:   %s\n", c.preset.name)
			fmt.Fprintf(c.out, "features: %s\n", strings.Join(set.Names(), ", "))
			fmt.Fprintf(c.out, "core:     %s\n\n", set.CoreFeatures())

			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSECTION\tORDER\tOWNER")
			for _, def := range set.Sections() {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", def.ID, def.Name, def.Order, set.SectionOwner(def.ID))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			ops := set.ConstOps()
			names := make([]string, len(ops))
			for i, op := range ops {
				names[i] = op.Name
			}
			fmt.Fprintf(c.out, "\nconst ops: %s\n", strings.Join(names, ", "))
			return nil
		},
	}
}

func newCompileCommand(c *cli) *cobra.Command {
	var cfg engine.Config
	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Decode a module and compile it with wazero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			m, err := c.load(args[0])
			if err != nil {
				return err
			}

			eng, err := engine.NewWazeroEngineWithConfig(ctx, m.Features(), &cfg)
			if err != nil {
				return err
			}
			defer eng.Close(ctx)

			compiled, err := eng.LoadModule(ctx, m)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			defer compiled.Close(ctx)

			exports := compiled.ExportedFunctions()
			sort.Strings(exports)
			fmt.Fprintf(c.out, "compiled %s (%s)\n", args[0], eng.CoreFeatures())
			fmt.Fprintf(c.out, "imported functions: %s\n", strings.Join(compiled.ImportedFunctions(), ", "))
			fmt.Fprintf(c.out, "exported functions: %s\n", strings.Join(exports, ", "))
			return nil
		},
	}
	cmd.Flags().Uint32Var(&cfg.MemoryLimitPages, "memory-limit", 0, "Maximum memory pages per instance (0 = wazero default)")
	cmd.Flags().BoolVar(&cfg.Interpreter, "interpreter", false, "Use the wazero interpreter instead of the compiler")
	return cmd
}
