package main

import (
	"fmt"
	"io"

	"github.com/colorfulnotion/jdcore/bytecode"
	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/spf13/cobra"
)

func newDisasmCmd(g *globalFlags) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "disasm <class file or directory>...",
		Short: "List the byte code of class files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := g.options(); err != nil {
				return err
			}
			inputs, err := readInputs(args)
			if err != nil {
				return err
			}
			for _, in := range inputs {
				writeDisasm(cmd.OutOrStdout(), in.Class, method)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", "", "only list methods with this name")
	return cmd
}

func disassemble(cf *classfile.ClassFile, m *classfile.Method) string {
	return bytecode.Disassemble(m.Code.Bytecode, cf.Pool.Describe)
}

func writeDisasm(w io.Writer, cf *classfile.ClassFile, only string) {
	fmt.Fprintf(w, "class %s\n", cf.ThisClass)
	for _, m := range cf.Methods {
		if m.Code == nil || only != "" && m.Name != only {
			continue
		}
		fmt.Fprintf(w, "\n%s%s  stack=%d locals=%d\n", m.Name, m.Descriptor, m.Code.MaxStack, m.Code.MaxLocals)
		fmt.Fprint(w, disassemble(cf, m))
		for _, e := range m.Code.ExceptionTable {
			catch := "any"
			if e.CatchType != 0 {
				if name, err := cf.Pool.ClassName(e.CatchType); err == nil {
					catch = name
				}
			}
			fmt.Fprintf(w, "  try [%d, %d) -> %d %s\n", e.StartPC, e.EndPC, e.HandlerPC, catch)
		}
	}
}
