package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/netmock/pkg/cli/internal/output"
	"github.com/getmockd/netmock/pkg/config"
)

var (
	pruneFlags  archiveFlags
	pruneAll    bool
	pruneDryRun bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune [pattern]",
	Short: "Remove stale entries from archives",
	Long: `Remove stale entries from every archive whose key matches pattern.

By default only stale entries that a newer recording of the same method and
URL supersedes are removed; these are left behind by the refetch strategy.
With --all every stale entry is removed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := pruneFlags.resolve(cmd)
		if err != nil {
			return err
		}
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}
		return runPrune(cmd.Context(), cmd.OutOrStdout(), opts, pattern, time.Now(), pruneAll, pruneDryRun)
	},
}

// PruneResult reports what prune removed from one archive.
type PruneResult struct {
	Key     string `json:"key"`
	Removed int    `json:"removed"`
	Kept    int    `json:"kept"`
}

func runPrune(ctx context.Context, w io.Writer, opts config.Options, pattern string, now time.Time, all, dryRun bool) error {
	store, lister, closer, err := openListable(opts.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	keys, err := matchingKeys(ctx, lister, pattern)
	if err != nil {
		return err
	}

	log := currentLogger()
	results := make([]PruneResult, 0, len(keys))
	for _, key := range keys {
		a, err := store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("read archive %q: %w", key, err)
		}
		pruned, removed := prune(a, now, opts.Staleness(), all)
		results = append(results, PruneResult{Key: key, Removed: removed, Kept: len(pruned.Log.Entries)})
		if removed == 0 || dryRun {
			continue
		}
		if err := store.Save(ctx, key, pruned); err != nil {
			return fmt.Errorf("save archive %q: %w", key, err)
		}
		log.Info("archive pruned", "key", key, "removed", removed)
	}

	if jsonOutput {
		return output.JSON(w, results)
	}

	total := 0
	for _, r := range results {
		if r.Removed > 0 {
			fmt.Fprintf(w, "%s: removed %d, kept %d\n", r.Key, r.Removed, r.Kept)
		}
		total += r.Removed
	}
	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}
	fmt.Fprintf(w, "%s %d stale entries from %d archives\n", verb, total, len(results))
	return nil
}

func init() {
	pruneFlags.register(pruneCmd)
	pruneCmd.Flags().BoolVar(&pruneAll, "all", false, "Remove every stale entry, not only superseded ones")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Report what would be removed without saving")
	rootCmd.AddCommand(pruneCmd)
}
