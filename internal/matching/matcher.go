package matching

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/getmockd/netmock/pkg/har"
)

// Step identifies a matching stage.
type Step int

// Matching stages in evaluation order.
const (
	StepMethod Step = iota + 1
	StepOrigin
	StepPath
	StepContentType
	StepHeader
	StepQuery
	StepBody
	// StepMatched is reported when every stage passed.
	StepMatched
)

var stepNames = map[Step]string{
	StepMethod:      "method",
	StepOrigin:      "origin",
	StepPath:        "path",
	StepContentType: "content-type",
	StepHeader:      "header",
	StepQuery:       "query",
	StepBody:        "body",
	StepMatched:     "matched",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Result describes the outcome of matching one entry.
type Result struct {
	Matched bool `json:"matched"`

	// Step is the stage that rejected the entry, or StepMatched.
	Step Step `json:"step"`

	// Key names the header or query parameter that differed, if any.
	Key string `json:"key,omitempty"`

	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// Reason renders a one-line explanation of a failed match.
func (r Result) Reason() string {
	if r.Matched {
		return "matched"
	}
	var sb strings.Builder
	sb.WriteString(r.Step.String())
	if r.Key != "" {
		sb.WriteString(" ")
		sb.WriteString(r.Key)
	}
	sb.WriteString(" differs")
	if r.Step != StepBody && (r.Expected != "" || r.Actual != "") {
		sb.WriteString(": recorded ")
		sb.WriteString(quoteOrMissing(r.Expected))
		sb.WriteString(", got ")
		sb.WriteString(quoteOrMissing(r.Actual))
	}
	return sb.String()
}

func quoteOrMissing(s string) string {
	if s == "" {
		return "(missing)"
	}
	return `"` + s + `"`
}

// Matches reports whether req (with its already-drained body) corresponds to
// entry. A nil body skips the body comparison.
func Matches(req *http.Request, body []byte, entry *har.Entry, includeKeys []string) bool {
	return Explain(req, body, entry, includeKeys).Matched
}

// Explain evaluates every stage in order and reports the first failure.
func Explain(req *http.Request, body []byte, entry *har.Entry, includeKeys []string) Result {
	stored := &entry.Request

	if stored.Method != req.Method {
		return fail(StepMethod, "", stored.Method, req.Method)
	}

	storedURL, err := url.Parse(stored.URL)
	if err != nil {
		return fail(StepOrigin, "", stored.URL, req.URL.String())
	}
	if a, b := origin(storedURL), origin(req.URL); a != b {
		return fail(StepOrigin, "", a, b)
	}
	if a, b := storedURL.EscapedPath(), req.URL.EscapedPath(); a != b {
		return fail(StepPath, "", a, b)
	}

	if ct, ok := stored.Header("content-type"); ok {
		if live := req.Header.Get("Content-Type"); ct != live {
			return fail(StepContentType, "", ct, live)
		}
	}

	if r := matchIncludedHeaders(stored, req.Header, includeKeys); !r.Matched {
		return r
	}

	if r := matchIncludedQuery(storedURL.Query(), req.URL.Query(), includeKeys); !r.Matched {
		return r
	}

	// GET bodies are never recorded, so there is nothing to compare.
	unrecorded := stored.PostData == nil && strings.EqualFold(stored.Method, http.MethodGet)
	if body != nil && !unrecorded {
		if !MatchBody(stored.PostData, body) {
			return fail(StepBody, "", "", "")
		}
	}

	return Result{Matched: true, Step: StepMatched}
}

// Find returns the index of the first entry matching req, or -1.
func Find(entries []har.Entry, req *http.Request, body []byte, includeKeys []string) int {
	for i := range entries {
		if Matches(req, body, &entries[i], includeKeys) {
			return i
		}
	}
	return -1
}

func fail(step Step, key, expected, actual string) Result {
	return Result{Step: step, Key: key, Expected: expected, Actual: actual}
}

// origin renders scheme://host[:port] with default ports elided.
func origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host
}
