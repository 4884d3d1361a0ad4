package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/common"
	"github.com/colorfulnotion/jdcore/config"
	"github.com/colorfulnotion/jdcore/decompiler"
	"github.com/colorfulnotion/jdcore/log"
	"github.com/colorfulnotion/jdcore/printer"
	"github.com/colorfulnotion/jdcore/storage"
	"github.com/spf13/cobra"
)

type decompileFlags struct {
	json     bool
	tree     bool
	blocks   bool
	cacheDir string
}

func newDecompileCmd(g *globalFlags) *cobra.Command {
	f := &decompileFlags{}
	cmd := &cobra.Command{
		Use:   "decompile <class file or directory>...",
		Short: "Reconstruct the methods of class files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}
			if f.cacheDir == "" {
				f.cacheDir = opts.CacheDir
			}
			inputs, err := readInputs(args)
			if err != nil {
				return err
			}
			return runDecompile(cmd.Context(), cmd.OutOrStdout(), opts, f, inputs, !g.noColor)
		},
	}
	cmd.Flags().BoolVar(&f.json, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&f.tree, "tree", false, "print the instruction tree of every method")
	cmd.Flags().BoolVar(&f.blocks, "blocks", false, "print layout blocks")
	cmd.Flags().StringVar(&f.cacheDir, "cache-dir", "", "LevelDB result cache directory (overrides the options)")
	return cmd
}

func runDecompile(ctx context.Context, w io.Writer, opts *config.Options, f *decompileFlags, inputs []*classInput, color bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var cache *storage.ResultCache
	var optBytes []byte
	// trees are not kept in the cache
	if f.cacheDir != "" && !f.tree {
		var err error
		if cache, err = storage.OpenResultCache(f.cacheDir); err != nil {
			return err
		}
		defer cache.Close()
		if optBytes, err = opts.Marshal(); err != nil {
			return err
		}
	}

	results := make([]*decompiler.ClassResult, len(inputs))
	var pending []*classfile.ClassFile
	var pendingIdx []int
	for i, in := range inputs {
		if cache != nil {
			data, ok, err := cache.Get(storage.Key(in.Data, optBytes))
			if err != nil {
				return err
			}
			if ok {
				if results[i], err = decompiler.ParseResult(data); err == nil {
					continue
				}
				log.Warn(log.CacheMonitoring, "cached result unreadable", "class", in.Class.ThisClass, "err", err)
			}
		}
		pending = append(pending, in.Class)
		pendingIdx = append(pendingIdx, i)
	}

	if len(pending) > 0 {
		d := decompiler.New(opts, loaderFor(inputs))
		fresh, errs := d.DecompileClasses(ctx, pending)
		for j, res := range fresh {
			i := pendingIdx[j]
			if errs[j] != nil {
				return fmt.Errorf("%s: %w", inputs[i].Path, errs[j])
			}
			results[i] = res
			if res == nil || cache == nil {
				continue
			}
			data, err := res.JSON()
			if err != nil {
				return err
			}
			if err := cache.Put(storage.Key(inputs[i].Data, optBytes), data); err != nil {
				return err
			}
		}
	}

	for i, res := range results {
		if res == nil {
			continue
		}
		if f.json {
			data, err := res.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(data))
			continue
		}
		writeClass(w, inputs[i].Class, res, f, color)
	}
	return nil
}

func writeClass(w io.Writer, cf *classfile.ClassFile, res *decompiler.ClassResult, f *decompileFlags, color bool) {
	fmt.Fprintf(w, "class %s extends %s {\n", printer.ClassName(res.Class), printer.ClassName(res.Super))
	for _, fr := range res.Fields {
		line := fmt.Sprintf("    %s %s;", printer.TypeName(fr.Descriptor), fr.Name)
		if fr.Synthetic {
			line = common.Colorize(color, common.ColorGray, line+" // synthetic")
		}
		fmt.Fprintln(w, line)
	}
	for _, m := range res.Methods {
		if m.Inlined {
			continue
		}
		fmt.Fprintf(w, "\n    %s%s", m.Name, m.Descriptor)
		switch {
		case m.Failed():
			fmt.Fprintln(w, " {")
			fmt.Fprintln(w, common.Colorize(color, common.ColorRed, "        // "+m.Error))
			if method := cf.FindMethod(m.Name, m.Descriptor); method != nil && method.Code != nil {
				for _, line := range strings.Split(strings.TrimRight(disassemble(cf, method), "\n"), "\n") {
					fmt.Fprintln(w, common.Colorize(color, common.ColorGray, "        "+line))
				}
			}
			fmt.Fprintln(w, "    }")
		case m.Blocks == nil && m.Source == nil:
			fmt.Fprintln(w, ";")
		default:
			fmt.Fprintln(w, " {")
			for _, line := range m.Source {
				fmt.Fprintln(w, "        "+line)
			}
			fmt.Fprintln(w, "    }")
		}
		if f.tree && m.Body() != nil {
			fmt.Fprint(w, indent(printer.Tree(m.Name+m.Descriptor, m.Body().Statements()).String(), "    "))
		}
		if f.blocks {
			for _, b := range m.Blocks {
				fmt.Fprintln(w, common.Colorize(color, common.ColorCyan, "    | "+b.String()))
			}
		}
	}
	fmt.Fprintln(w, "}")
}

func indent(s, pad string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n") + "\n"
}
