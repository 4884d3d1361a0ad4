package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/common"
	"github.com/colorfulnotion/jdcore/config"
	"github.com/colorfulnotion/jdcore/decompiler"
	"github.com/colorfulnotion/jdcore/log"
	"github.com/colorfulnotion/jdcore/printer"
	"github.com/dop251/goja"
	"github.com/spf13/cobra"
)

func newConsoleCmd(g *globalFlags) *cobra.Command {
	var history string
	cmd := &cobra.Command{
		Use:   "console <class file or directory>...",
		Short: "Explore decompiled classes from a JavaScript console",
		Long: `console decompiles the given classes and starts a JavaScript prompt with:
  classes()               names of the loaded classes
  methods(class)          "name+descriptor" of every method
  source(class, method)   reconstructed source lines
  tree(class, method)     instruction tree dump
  blocks(class, method)   layout blocks
  disasm(class, method)   raw byte code
  print(values...)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options()
			if err != nil {
				return err
			}
			inputs, err := readInputs(args)
			if err != nil {
				return err
			}
			s, err := newSession(cmd.Context(), opts, inputs)
			if err != nil {
				return err
			}
			rl, err := readline.NewEx(&readline.Config{
				Prompt:      "jdcore> ",
				HistoryFile: history,
			})
			if err != nil {
				return err
			}
			defer rl.Close()
			return s.repl(rl, cmd.OutOrStdout(), !g.noColor)
		},
	}
	cmd.Flags().StringVar(&history, "history", filepath.Join(os.TempDir(), "jdcore_console_history.txt"), "history file")
	return cmd
}

// session holds decompiled classes and the JavaScript VM exposing them.
type session struct {
	vm      *goja.Runtime
	classes map[string]*classfile.ClassFile
	results map[string]*decompiler.ClassResult
	names   []string
}

func newSession(ctx context.Context, opts *config.Options, inputs []*classInput) (*session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &session{
		vm:      goja.New(),
		classes: make(map[string]*classfile.ClassFile),
		results: make(map[string]*decompiler.ClassResult),
	}
	d := decompiler.New(opts, loaderFor(inputs))
	for _, in := range inputs {
		res, err := d.DecompileClass(ctx, in.Class)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.Path, err)
		}
		s.classes[res.Class] = in.Class
		s.results[res.Class] = res
		s.names = append(s.names, res.Class)
	}
	s.bind()
	return s, nil
}

func (s *session) method(class, method string) (*classfile.ClassFile, *decompiler.MethodResult) {
	res, ok := s.results[class]
	if !ok {
		panic(s.vm.NewGoError(fmt.Errorf("unknown class %q", class)))
	}
	for _, m := range res.Methods {
		if m.Name+m.Descriptor == method || m.Name == method {
			return s.classes[class], m
		}
	}
	panic(s.vm.NewGoError(fmt.Errorf("unknown method %q in %s", method, class)))
}

func (s *session) bind() {
	s.vm.Set("classes", func() []string { return s.names })
	s.vm.Set("methods", func(class string) []string {
		res, ok := s.results[class]
		if !ok {
			return nil
		}
		out := make([]string, 0, len(res.Methods))
		for _, m := range res.Methods {
			out = append(out, m.Name+m.Descriptor)
		}
		return out
	})
	s.vm.Set("source", func(class, method string) string {
		_, m := s.method(class, method)
		if m.Failed() {
			return "// " + m.Error
		}
		return strings.Join(m.Source, "\n")
	})
	s.vm.Set("tree", func(class, method string) string {
		_, m := s.method(class, method)
		if m.Body() == nil {
			return ""
		}
		return printer.Tree(m.Name+m.Descriptor, m.Body().Statements()).String()
	})
	s.vm.Set("blocks", func(class, method string) goja.Value {
		_, m := s.method(class, method)
		data, err := json.Marshal(m.Blocks)
		if err != nil {
			panic(s.vm.NewGoError(err))
		}
		var v interface{}
		_ = json.Unmarshal(data, &v)
		return s.vm.ToValue(v)
	})
	s.vm.Set("disasm", func(class, method string) string {
		cf, m := s.method(class, method)
		cm := cf.FindMethod(m.Name, m.Descriptor)
		if cm == nil || cm.Code == nil {
			return ""
		}
		return disassemble(cf, cm)
	})
}

// eval runs one line of JavaScript and formats its value.
func (s *session) eval(line string) (string, error) {
	v, err := s.vm.RunString(line)
	if err != nil {
		return "", err
	}
	if v == nil || goja.IsUndefined(v) {
		return "", nil
	}
	switch x := v.Export().(type) {
	case string:
		return x, nil
	case nil:
		return "null", nil
	default:
		data, err := json.MarshalIndent(x, "", "  ")
		if err != nil {
			return v.String(), nil
		}
		return string(data), nil
	}
}

func (s *session) repl(rl *readline.Instance, w io.Writer, color bool) error {
	s.vm.Set("print", func(args ...goja.Value) {
		for _, arg := range args {
			fmt.Fprintln(w, arg.Export())
		}
	})
	fmt.Fprintf(w, "%d classes loaded, try classes() or methods(%q)\n", len(s.names), firstOr(s.names, "p/Class"))
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		out, err := s.eval(line)
		if err != nil {
			log.Debug(log.CLIMonitoring, "console eval failed", "line", line, "err", err)
			fmt.Fprintln(w, common.Colorize(color, common.ColorRed, err.Error()))
			continue
		}
		if out != "" {
			fmt.Fprintln(w, out)
		}
	}
}

func firstOr(names []string, def string) string {
	if len(names) > 0 {
		return names[0]
	}
	return def
}
