package classfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/colorfulnotion/jdcore/jderrors"
)

// Loader provides classes by internal name, e.g. "com/acme/Outer$1".
type Loader interface {
	Load(internalName string) (*ClassFile, error)
}

// DirLoader reads <Root>/<internalName>.class and caches parsed classes.
type DirLoader struct {
	Root string

	mu    sync.Mutex
	cache map[string]*ClassFile
}

func NewDirLoader(root string) *DirLoader {
	return &DirLoader{Root: root, cache: make(map[string]*ClassFile)}
}

func (l *DirLoader) Load(internalName string) (*ClassFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cf, ok := l.cache[internalName]; ok {
		return cf, nil
	}
	data, err := os.ReadFile(filepath.Join(l.Root, filepath.FromSlash(internalName)+".class"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", internalName, jderrors.ErrCClassNotFound)
	}
	if err != nil {
		return nil, err
	}
	cf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", internalName, err)
	}
	l.cache[internalName] = cf
	return cf, nil
}

// MapLoader serves classes already in memory.
type MapLoader map[string]*ClassFile

func (m MapLoader) Load(internalName string) (*ClassFile, error) {
	if cf, ok := m[internalName]; ok {
		return cf, nil
	}
	return nil, fmt.Errorf("%s: %w", internalName, jderrors.ErrCClassNotFound)
}
