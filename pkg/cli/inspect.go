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

var inspectFlags archiveFlags

var inspectCmd = &cobra.Command{
	Use:   "inspect [pattern]",
	Short: "List recorded entries and their staleness",
	Long: `List the entries of every archive whose key matches pattern.

Patterns use doublestar syntax ("**" crosses directory separators), for
example "TestChat*" or "api/**". Without a pattern every archive is listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := inspectFlags.resolve(cmd)
		if err != nil {
			return err
		}
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}
		return runInspect(cmd.Context(), cmd.OutOrStdout(), opts, pattern, time.Now())
	},
}

func runInspect(ctx context.Context, w io.Writer, opts config.Options, pattern string, now time.Time) error {
	store, lister, closer, err := openListable(opts.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	keys, err := matchingKeys(ctx, lister, pattern)
	if err != nil {
		return err
	}

	summaries := make([]ArchiveSummary, 0, len(keys))
	for _, key := range keys {
		a, err := store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("read archive %q: %w", key, err)
		}
		summaries = append(summaries, summarize(key, a, now, opts.Staleness()))
	}

	if jsonOutput {
		return output.JSON(w, summaries)
	}
	return printSummaries(w, summaries, opts)
}

func printSummaries(w io.Writer, summaries []ArchiveSummary, opts config.Options) error {
	if len(summaries) == 0 {
		fmt.Fprintf(w, "No archives in %s\n", opts.Store)
		return nil
	}

	tw := output.Table(w)
	fmt.Fprintln(tw, "KEY\t#\tMETHOD\tSTATUS\tAGE\tSTALE\tURL")
	for _, s := range summaries {
		if len(s.Entries) == 0 {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t(empty)\n", s.Key)
			continue
		}
		for _, e := range s.Entries {
			stale := ""
			if e.Stale {
				stale = "yes"
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\t%s\n", s.Key, e.Index, e.Method, e.Status, e.Age, stale, e.URL)
		}
	}
	return tw.Flush()
}

func init() {
	inspectFlags.register(inspectCmd)
	rootCmd.AddCommand(inspectCmd)
}
