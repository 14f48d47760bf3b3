package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// DefaultMaxAge is how long a recorded entry stays fresh.
const DefaultMaxAge = 60 * 24 * time.Hour

// Configuration errors
var (
	ErrInvalidStale   = errors.New("invalid stale strategy")
	ErrInvalidNoMatch = errors.New("invalid noMatch strategy")
	ErrInvalidMaxAge  = errors.New("invalid max age")
)

// StaleStrategy decides what happens when the matching entry is stale.
type StaleStrategy string

const (
	// StaleReject answers 400 and reports a failure.
	StaleReject StaleStrategy = "reject"
	// StaleWarn reports a warning and replays the stale entry.
	StaleWarn StaleStrategy = "warn"
	// StaleRefetch performs a real request and records it.
	StaleRefetch StaleStrategy = "refetch"
	// StaleIgnore replays the stale entry silently.
	StaleIgnore StaleStrategy = "ignore"
)

// Valid reports whether s is a known strategy.
func (s StaleStrategy) Valid() bool {
	return slices.Contains([]StaleStrategy{StaleReject, StaleWarn, StaleRefetch, StaleIgnore}, s)
}

// NoMatchStrategy decides what happens when no entry matches.
type NoMatchStrategy string

const (
	// NoMatchReject answers 400 and reports a failure.
	NoMatchReject NoMatchStrategy = "reject"
	// NoMatchWarn reports a warning, then fetches and records.
	NoMatchWarn NoMatchStrategy = "warn"
	// NoMatchFetch fetches and records silently.
	NoMatchFetch NoMatchStrategy = "fetch"
)

// Valid reports whether s is a known strategy.
func (s NoMatchStrategy) Valid() bool {
	return slices.Contains([]NoMatchStrategy{NoMatchReject, NoMatchWarn, NoMatchFetch}, s)
}

// Options tunes a recording session. Zero values inherit.
type Options struct {
	// Key is an explicit archive key. It wins over Out and the
	// context-derived default.
	Key string `json:"key,omitempty" yaml:"key,omitempty"`

	// Out overrides the archive key when Key is not set.
	Out string `json:"out,omitempty" yaml:"out,omitempty"`

	// MaxAge is the staleness window for recorded entries. Zero makes every
	// entry stale; nil inherits.
	MaxAge *time.Duration `json:"maxAge,omitempty" yaml:"maxAge,omitempty"`

	Stale   StaleStrategy   `json:"stale,omitempty" yaml:"stale,omitempty"`
	NoMatch NoMatchStrategy `json:"noMatch,omitempty" yaml:"noMatch,omitempty"`

	// UseTimings replays bodies with their recorded timing.
	UseTimings *bool `json:"useTimings,omitempty" yaml:"useTimings,omitempty"`

	// IncludeKeys lists header, cookie and query names that are stored
	// unredacted and take part in matching.
	IncludeKeys []string `json:"includeKeys,omitempty" yaml:"includeKeys,omitempty"`

	// Store is an archive store spec such as "file:testdata/netmock" or
	// "sqlite:archives.db".
	Store string `json:"store,omitempty" yaml:"store,omitempty"`
}

// Defaults returns the built-in options.
func Defaults() Options {
	return Options{
		MaxAge:      Duration(DefaultMaxAge),
		Stale:       StaleReject,
		NoMatch:     NoMatchReject,
		UseTimings:  Bool(false),
		IncludeKeys: []string{},
	}
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// Duration returns a pointer to d.
func Duration(d time.Duration) *time.Duration {
	return &d
}

// Merge returns base with every non-zero field of override applied.
func Merge(base, override Options) Options {
	out := base
	if override.Key != "" {
		out.Key = override.Key
	}
	if override.Out != "" {
		out.Out = override.Out
	}
	if override.MaxAge != nil {
		out.MaxAge = Duration(*override.MaxAge)
	}
	if override.Stale != "" {
		out.Stale = override.Stale
	}
	if override.NoMatch != "" {
		out.NoMatch = override.NoMatch
	}
	if override.UseTimings != nil {
		out.UseTimings = Bool(*override.UseTimings)
	}
	if override.IncludeKeys != nil {
		out.IncludeKeys = slices.Clone(override.IncludeKeys)
	}
	if override.Store != "" {
		out.Store = override.Store
	}
	return out
}

// Resolve merges layers in increasing precedence on top of Defaults and
// validates the result.
func Resolve(layers ...Options) (Options, error) {
	out := Defaults()
	for _, l := range layers {
		out = Merge(out, l)
	}
	if err := out.Validate(); err != nil {
		return Options{}, err
	}
	return out, nil
}

// Validate checks the strategy values and max age. Empty strategies are
// accepted since they inherit.
func (o Options) Validate() error {
	if o.Stale != "" && !o.Stale.Valid() {
		return fmt.Errorf("%w: %q (expected reject, warn, refetch or ignore)", ErrInvalidStale, o.Stale)
	}
	if o.NoMatch != "" && !o.NoMatch.Valid() {
		return fmt.Errorf("%w: %q (expected reject, warn or fetch)", ErrInvalidNoMatch, o.NoMatch)
	}
	if o.MaxAge != nil && *o.MaxAge < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidMaxAge, *o.MaxAge)
	}
	return nil
}

// Staleness returns the resolved staleness window, or DefaultMaxAge when
// MaxAge is unset.
func (o Options) Staleness() time.Duration {
	if o.MaxAge == nil {
		return DefaultMaxAge
	}
	return *o.MaxAge
}

// Timings reports whether timing-faithful replay is enabled.
func (o Options) Timings() bool {
	return o.UseTimings != nil && *o.UseTimings
}

// ArchiveKey picks the archive key: Key, then Out, then fallback, then
// "archive".
func (o Options) ArchiveKey(fallback string) string {
	switch {
	case o.Key != "":
		return o.Key
	case o.Out != "":
		return o.Out
	case fallback != "":
		return fallback
	}
	return "archive"
}
