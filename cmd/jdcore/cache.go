package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/colorfulnotion/jdcore/decompiler"
	"github.com/colorfulnotion/jdcore/storage"
	"github.com/spf13/cobra"
)

func newCacheCmd(g *globalFlags) *cobra.Command {
	var dir string
	cacheDir := func() (string, error) {
		if dir != "" {
			return dir, nil
		}
		opts, err := g.options()
		if err != nil {
			return "", err
		}
		if opts.CacheDir == "" {
			return "", errors.New("no cache directory: pass --cache-dir or set cache_dir in the options")
		}
		return opts.CacheDir, nil
	}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}
	cmd.PersistentFlags().StringVar(&dir, "cache-dir", "", "LevelDB result cache directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List cached results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cacheDir()
			if err != nil {
				return err
			}
			cache, err := storage.OpenResultCache(d)
			if err != nil {
				return err
			}
			defer cache.Close()
			return listCache(cmd.OutOrStdout(), cache)
		},
	}, &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cacheDir()
			if err != nil {
				return err
			}
			cache, err := storage.OpenResultCache(d)
			if err != nil {
				return err
			}
			defer cache.Close()
			n, err := cache.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d results removed\n", n)
			return nil
		},
	})
	return cmd
}

func listCache(w io.Writer, cache *storage.ResultCache) error {
	keys, err := cache.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		data, ok, err := cache.Get(key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		res, err := decompiler.ParseResult(data)
		if err != nil {
			fmt.Fprintf(w, "%s  <unreadable: %v>\n", key.Short(12), err)
			continue
		}
		fmt.Fprintf(w, "%s  %s  methods=%d failures=%d\n", key.Short(12), res.Class, len(res.Methods), res.Failures())
	}
	fmt.Fprintf(w, "%d results\n", len(keys))
	return nil
}
