package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/getmockd/netmock/pkg/archive"
	"github.com/getmockd/netmock/pkg/config"
	"github.com/getmockd/netmock/pkg/har"
	"github.com/getmockd/netmock/pkg/vcr"
)

// defaultStoreSpec is used by the archive commands when nothing else names a
// store. It matches where library sessions write from a package directory.
const defaultStoreSpec = "file:" + vcr.DefaultArchiveDir

var errNotListable = errors.New("store cannot list its archives")

// archiveFlags are shared by the commands that operate on stored archives.
type archiveFlags struct {
	store  string
	maxAge time.Duration
}

func (f *archiveFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.store, "store", "", "Archive store (file:<dir>, sqlite:<path>); default from MOCKS_STORE, MOCKS_DIR or "+defaultStoreSpec)
	cmd.Flags().DurationVar(&f.maxAge, "max-age", 0, "Staleness threshold (default from MOCKS_MAX_AGE or 1440h)")
}

// resolve layers the flags the user set over the config file and
// environment.
func (f *archiveFlags) resolve(cmd *cobra.Command) (config.Options, error) {
	file, err := config.LoadFile(configPath)
	if err != nil {
		return config.Options{}, err
	}
	env, err := config.LoadEnv()
	if err != nil {
		return config.Options{}, err
	}
	flags := config.Options{Store: f.store}
	if cmd.Flags().Changed("max-age") {
		flags.MaxAge = config.Duration(f.maxAge)
	}
	opts, err := config.Resolve(env, file.Options, flags)
	if err != nil {
		return config.Options{}, err
	}
	if opts.Store == "" {
		opts.Store = defaultStoreSpec
	}
	return opts, nil
}

// openListable opens spec and checks that it can enumerate keys. The returned
// closer releases the store's resources.
func openListable(spec string) (archive.Store, archive.Lister, io.Closer, error) {
	store, err := archive.Open(spec)
	if err != nil {
		return nil, nil, nil, err
	}
	closer, ok := store.(io.Closer)
	if !ok {
		closer = io.NopCloser(nil)
	}
	lister, ok := store.(archive.Lister)
	if !ok {
		_ = closer.Close()
		return nil, nil, nil, fmt.Errorf("%w: %s", errNotListable, spec)
	}
	return store, lister, closer, nil
}

// matchingKeys returns the sorted keys matching a doublestar pattern. An
// empty pattern matches everything.
func matchingKeys(ctx context.Context, l archive.Lister, pattern string) ([]string, error) {
	keys, err := l.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	var out []string
	for _, k := range keys {
		if doublestar.MatchUnvalidated(pattern, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out, nil
}

// EntrySummary describes one recorded entry for inspection.
type EntrySummary struct {
	Index    int       `json:"index"`
	Method   string    `json:"method"`
	URL      string    `json:"url"`
	Status   int       `json:"status"`
	MimeType string    `json:"mimeType,omitempty"`
	Size     int       `json:"size"`
	Recorded time.Time `json:"recorded"`
	Age      string    `json:"age"`
	Stale    bool      `json:"stale"`
}

// ArchiveSummary describes one archive for inspection.
type ArchiveSummary struct {
	Key     string         `json:"key"`
	Entries []EntrySummary `json:"entries"`
	Stale   int            `json:"stale"`
}

func summarize(key string, a *har.Archive, now time.Time, maxAge time.Duration) ArchiveSummary {
	s := ArchiveSummary{Key: key, Entries: make([]EntrySummary, 0, len(a.Log.Entries))}
	for i := range a.Log.Entries {
		e := &a.Log.Entries[i]
		stale := e.IsStale(now, maxAge)
		if stale {
			s.Stale++
		}
		s.Entries = append(s.Entries, EntrySummary{
			Index:    i,
			Method:   e.Request.Method,
			URL:      e.Request.URL,
			Status:   e.Response.Status,
			MimeType: e.Response.Content.MimeType,
			Size:     e.Response.Content.Size,
			Recorded: e.StartedDateTime,
			Age:      formatAge(e.Age(now)),
			Stale:    stale,
		})
	}
	return s
}

// formatAge renders an age in the largest whole unit.
func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "future"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
}

// prune drops stale entries from a. Without all, only stale entries that a
// newer recording of the same method and URL supersedes are dropped, which
// is what a refetch leaves behind. It returns the pruned copy and the number
// of entries removed.
func prune(a *har.Archive, now time.Time, maxAge time.Duration, all bool) (*har.Archive, int) {
	out := a.Clone()
	out.Log.Entries = out.Log.Entries[:0]

	removed := 0
	for i := range a.Log.Entries {
		e := &a.Log.Entries[i]
		if e.IsStale(now, maxAge) && (all || superseded(a.Log.Entries, i)) {
			removed++
			continue
		}
		out.Log.Entries = append(out.Log.Entries, *e)
	}
	return out, removed
}

func superseded(entries []har.Entry, i int) bool {
	e := &entries[i]
	for j := range entries {
		other := &entries[j]
		if j != i &&
			other.Request.Method == e.Request.Method &&
			other.Request.URL == e.Request.URL &&
			other.StartedDateTime.After(e.StartedDateTime) {
			return true
		}
	}
	return false
}
