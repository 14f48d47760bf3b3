// Package testing binds netmock sessions to Go tests.
//
// Create one context per test binary, usually in TestMain, and start a
// session per test. The session's archive is keyed by the test name and
// stored under testdata/netmock in the package directory:
//
//	var nm *vcr.Context
//
//	func TestMain(m *testing.M) {
//	    var err error
//	    nm, err = vcr.NewContext(vcr.ContextOptions{Global: true})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    _ = nm.Close()
//	    os.Exit(code)
//	}
//
//	func TestChat(t *testing.T) {
//	    netmocktest.Record(t, nm, vcr.Options{})
//
//	    resp, err := http.Get("https://api.example.com/v1/models")
//	    ...
//	}
//
// Policy failures (a request with no usable recording) mark the test as
// failed without stopping it, and the client receives a 400 response
// explaining what did not match. The archive is saved when the test ends.
//
// Tests calling t.Parallel should use the session's own client instead of
// the global transport, so that requests reach the right archive:
//
//	s := netmocktest.Record(t, nm, vcr.Options{})
//	client := s.Client()
package testing
