// Package vcr records outbound HTTP traffic into archives and replays it.
//
// A Context is created once per process. It owns the interceptor that sees
// outbound requests, the environment defaults and the archive stores. Each
// test (or proxy run) starts a Session, which loads the archive for its key,
// answers matching requests from it and records real responses for requests
// it cannot answer, according to the stale and noMatch strategies:
//
//	nm, err := vcr.NewContext(vcr.ContextOptions{Global: true})
//	...
//	s, err := nm.VCR(vcr.Options{Key: "TestChat", NoMatch: config.NoMatchFetch})
//	defer s.Close()
//
// Policy failures never surface as transport errors. They are reported
// through Hooks.Fail and answered with a 400 response so that clients with
// retry-on-error logic do not loop.
package vcr
