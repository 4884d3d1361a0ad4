// Package config holds decompilation options and their named presets.
package config

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/colorfulnotion/jdcore/log"
	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var presetFS embed.FS

var presetFile = map[string]string{
	"default": "presets/default.yaml",
	"raw":     "presets/raw.yaml",
	"verbose": "presets/verbose.yaml",
}

type Options struct {
	EscapeUnicode      bool   `yaml:"escape_unicode" json:"escapeUnicode"`
	RealignLineNumbers bool   `yaml:"realign_line_numbers" json:"realignLineNumbers"`
	MergeEmptyLines    bool   `yaml:"merge_empty_lines" json:"mergeEmptyLines"`
	ShowSynthetic      bool   `yaml:"show_synthetic" json:"showSynthetic"`
	MaxRounds          int    `yaml:"max_rounds" json:"maxRounds"`
	Workers            int    `yaml:"workers" json:"workers"`
	LogLevel           string `yaml:"log_level" json:"logLevel"`
	LogModules         string `yaml:"log_modules" json:"logModules"`
	CacheDir           string `yaml:"cache_dir" json:"cacheDir"`
}

// Default returns the "default" preset.
func Default() *Options {
	o, err := Load("default")
	if err != nil {
		panic(err)
	}
	return o
}

// Presets lists the embedded preset names.
func Presets() []string {
	names := make([]string, 0, len(presetFile))
	for name := range presetFile {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load resolves id as a preset name, or else reads it as a YAML or JSON
// file. Keys missing from a file keep their "default" preset values.
func Load(id string) (*Options, error) {
	var data []byte
	var err error
	path, ok := presetFile[id]
	if ok {
		data, err = presetFS.ReadFile(path)
	} else {
		data, err = os.ReadFile(id)
	}
	if err != nil {
		return nil, err
	}

	opts := &Options{}
	if id != "default" {
		base, err := presetFS.ReadFile(presetFile["default"])
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(base, opts); err != nil {
			return nil, fmt.Errorf("default preset: %w", err)
		}
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(opts); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("options %s: %w", id, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("options %s: %w", id, err)
	}
	return opts, nil
}

func (o *Options) Validate() error {
	if o.MaxRounds <= 0 {
		return fmt.Errorf("max_rounds must be positive, got %d", o.MaxRounds)
	}
	if o.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", o.Workers)
	}
	if _, err := log.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	for _, m := range strings.Split(o.LogModules, ",") {
		if m = strings.TrimSpace(m); m != "" && !knownModule(m) {
			return fmt.Errorf("unknown log module %q", m)
		}
	}
	return nil
}

// ApplyLogging initializes the root logger and enables the listed modules.
func (o *Options) ApplyLogging() {
	log.InitLogger(o.LogLevel)
	if o.LogModules != "" {
		log.EnableModules(o.LogModules)
	}
}

// Marshal encodes o as YAML.
func (o *Options) Marshal() ([]byte, error) {
	return yaml.Marshal(o)
}

func knownModule(m string) bool {
	for _, k := range log.KnownModules() {
		if k == m {
			return true
		}
	}
	return false
}
