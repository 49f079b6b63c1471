package main

import (
	"fmt"

	"github.com/spf13/cobra"

	cachepkg "github.com/pario-ai/dimsync/pkg/cache/sqlite"
)

var cacheNamespaces = []string{"handles", "identities"}

func newCacheCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the persistent handle and identity caches",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return eachCache(gf, func(c *cachepkg.Cache) error {
				stats, err := c.Stats()
				if err != nil {
					return err
				}
				fmt.Printf("%s\n  Entries: %d\n", stats.Name, stats.Entries)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget every cached marker handle and identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := eachCache(gf, func(c *cachepkg.Cache) error { return c.Clear() })
			if err != nil {
				return err
			}
			fmt.Println("All cache entries cleared.")
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

// eachCache opens every namespace of the sqlite cache backend in turn.
func eachCache(gf *globalFlags, fn func(*cachepkg.Cache) error) error {
	cfg, err := loadConfig(gf)
	if err != nil {
		return err
	}
	if cfg.Cache.Backend != "sqlite" || cfg.Cache.DBPath == "" {
		return fmt.Errorf("cache commands need cache.backend sqlite with a db_path")
	}
	for _, ns := range cacheNamespaces {
		c, err := cachepkg.New(cfg.Cache.DBPath, ns)
		if err != nil {
			return fmt.Errorf("open %s cache: %w", ns, err)
		}
		err = fn(c)
		_ = c.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
