package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/colorfulnotion/jdcore/config"
	"github.com/colorfulnotion/jdcore/decompiler"
	"github.com/spf13/cobra"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

func newDiffCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <left> <right>",
		Short: "Compare two decompiled classes",
		Long: `diff compares two results. Each side is either a .class file, decompiled
with the current options, or a JSON result written by "decompile --json".
The exit status is non-zero when the results differ.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}
			left, err := resultJSON(cmd.Context(), opts, args[0])
			if err != nil {
				return err
			}
			right, err := resultJSON(cmd.Context(), opts, args[1])
			if err != nil {
				return err
			}
			same, err := writeDiff(cmd.OutOrStdout(), left, right, !g.noColor)
			if err != nil {
				return err
			}
			if !same {
				return fmt.Errorf("%s and %s differ", args[0], args[1])
			}
			return nil
		},
	}
}

// resultJSON returns the JSON result for a class file or a stored result.
func resultJSON(ctx context.Context, opts *config.Options, path string) ([]byte, error) {
	if filepath.Ext(path) == ".json" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if _, err := decompiler.ParseResult(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return data, nil
	}
	inputs, err := readInputs([]string{path})
	if err != nil {
		return nil, err
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("%s: expected one class, found %d", path, len(inputs))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := decompiler.New(opts, loaderFor(inputs)).DecompileClass(ctx, inputs[0].Class)
	if err != nil {
		return nil, err
	}
	return res.JSON()
}

// writeDiff prints an ascii delta of two JSON documents and reports
// whether they were equal.
func writeDiff(w io.Writer, left, right []byte, color bool) (bool, error) {
	delta, err := gojsondiff.New().Compare(left, right)
	if err != nil {
		return false, err
	}
	if !delta.Modified() {
		fmt.Fprintln(w, "no differences")
		return true, nil
	}
	var leftObj interface{}
	if err := json.Unmarshal(left, &leftObj); err != nil {
		return false, err
	}
	f := formatter.NewAsciiFormatter(leftObj, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       color,
	})
	out, err := f.Format(delta)
	if err != nil {
		return false, err
	}
	fmt.Fprint(w, out)
	return false, nil
}
