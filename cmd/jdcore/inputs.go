package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/colorfulnotion/jdcore/classfile"
	"github.com/colorfulnotion/jdcore/log"
)

// classInput is one class file read from disk.
type classInput struct {
	Path  string
	Data  []byte
	Class *classfile.ClassFile
}

// readInputs reads the .class files named by paths, walking directories.
func readInputs(paths []string) ([]*classInput, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".class") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)

	inputs := make([]*classInput, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		cf, err := classfile.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		log.Debug(log.CLIMonitoring, "class read", "path", f, "class", cf.ThisClass, "methods", len(cf.Methods))
		inputs = append(inputs, &classInput{Path: f, Data: data, Class: cf})
	}
	return inputs, nil
}

// classRoot returns the class path root of in, the directory its package
// hierarchy starts in, or "" when the path does not end with the class name.
func classRoot(in *classInput) string {
	path := filepath.ToSlash(in.Path)
	suffix := in.Class.ThisClass + ".class"
	if !strings.HasSuffix(path, suffix) {
		return ""
	}
	root := strings.TrimSuffix(strings.TrimSuffix(path, suffix), "/")
	if root == "" {
		return "."
	}
	return filepath.FromSlash(root)
}

// loaderFor serves sibling classes from the class path root of the first
// input.
func loaderFor(inputs []*classInput) classfile.Loader {
	for _, in := range inputs {
		if root := classRoot(in); root != "" {
			return classfile.NewDirLoader(root)
		}
	}
	return nil
}
