package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/cuetrack/internal/trackstore"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the persistent track cache",
	Long: `Inspect and maintain the SQLite file that keeps parsed tracks across
runs (cache.db_path in the config file).`,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cached tracks older than a given age",
	Long: `Remove cached tracks older than --older-than. Without the flag the
configured cache TTL is used.

Examples:
  cuetrack cache prune
  cuetrack cache prune --older-than 24h`,
	Args: cobra.NoArgs,
	RunE: runCachePrune,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached track",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show where the cache lives and how many tracks it holds",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePruneCmd, cacheClearCmd, cacheStatsCmd)

	cachePruneCmd.Flags().
		Duration("older-than", 0, "Maximum age to keep (default: cache.ttl)")
}

func openStore() (*trackstore.Store, error) {
	if cfg.Cache.DBPath == "" {
		return nil, fmt.Errorf("persistent cache is disabled (cache.db_path is empty)")
	}
	store, err := trackstore.New(cfg.Cache.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open track cache: %w", err)
	}
	return store, nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")
	if olderThan <= 0 {
		olderThan = cfg.Cache.TTL
	}
	if olderThan <= 0 {
		return fmt.Errorf("no age given: pass --older-than or set cache.ttl")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Prune(context.Background(), olderThan)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	logger.Infow("Pruned track cache", "older_than", olderThan.String(), "removed", removed)
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached tracks older than %s\n", removed, olderThan)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Clear(context.Background())
	if err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached tracks\n", removed)
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Count(context.Background())
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Path:    %s\n", cfg.Cache.DBPath)
	fmt.Fprintf(out, "Tracks:  %d\n", n)
	fmt.Fprintf(out, "TTL:     %s\n", formatTTL(cfg.Cache.TTL))
	return nil
}

func formatTTL(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}
