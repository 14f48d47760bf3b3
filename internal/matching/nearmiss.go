package matching

import (
	"net/http"

	"github.com/getmockd/netmock/pkg/har"
)

// NearMiss is the recorded entry that came closest to matching a request.
type NearMiss struct {
	Index  int    `json:"index"`
	Method string `json:"method"`
	URL    string `json:"url"`
	Result Result `json:"result"`

	// BodyPath locates the first differing JSON node when Step is StepBody.
	BodyPath string `json:"bodyPath,omitempty"`
}

// NearestMiss returns the entry that passed the most matching stages before
// being rejected. Ties go to the earliest entry. Nil is returned for an
// empty archive.
func NearestMiss(entries []har.Entry, req *http.Request, body []byte, includeKeys []string) *NearMiss {
	var best *NearMiss
	for i := range entries {
		r := Explain(req, body, &entries[i], includeKeys)
		if best != nil && r.Step <= best.Result.Step {
			continue
		}
		best = &NearMiss{
			Index:  i,
			Method: entries[i].Request.Method,
			URL:    entries[i].Request.URL,
			Result: r,
		}
		if r.Step == StepBody {
			best.BodyPath, _ = bodyDiff(entries[i].Request.PostData, body)
		}
	}
	return best
}

// Reason renders the near miss as a single diagnostic line.
func (n *NearMiss) Reason() string {
	if n == nil {
		return "archive has no entries"
	}
	reason := n.Method + " " + n.URL + ": " + n.Result.Reason()
	if n.BodyPath != "" {
		reason += " at " + n.BodyPath
	}
	return reason
}
