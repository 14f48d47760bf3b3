// Package config holds the options that tune a recording session.
//
// Options come from four layers, highest precedence first:
//   - options passed when a session is started
//   - defaults given to the context at construction
//   - MOCKS_* environment variables (optionally from a .env file)
//   - built-in defaults
//
// A zero field means "inherit from the layer below". Strategy values are
// validated eagerly so that a typo fails at session setup rather than at the
// first intercepted request.
//
// The CLI additionally reads a YAML file with the same fields plus proxy and
// logging settings:
//
//	stale: refetch
//	noMatch: fetch
//	maxAge: 720h
//	includeKeys: [x-api-version]
//	store: sqlite:archives.db
//	proxy:
//	  listen: 127.0.0.1:8899
//	  target: https://api.example.com
package config
