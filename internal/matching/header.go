package matching

import (
	"net/http"
	"strings"

	"github.com/getmockd/netmock/pkg/har"
)

// matchIncludedHeaders requires every allow-listed header recorded on the
// entry to carry the same value on the live request. content-type is
// compared separately and skipped here.
func matchIncludedHeaders(stored *har.Request, live http.Header, includeKeys []string) Result {
	for _, h := range stored.Headers {
		if strings.EqualFold(h.Name, "content-type") || !containsFold(includeKeys, h.Name) {
			continue
		}
		if actual := live.Get(h.Name); actual != h.Value {
			return fail(StepHeader, h.Name, h.Value, actual)
		}
	}
	return Result{Matched: true}
}

func containsFold(keys []string, name string) bool {
	for _, k := range keys {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
