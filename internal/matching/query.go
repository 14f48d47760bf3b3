package matching

import (
	"net/url"
)

// matchIncludedQuery compares the first value of every allow-listed key.
// A key missing on both sides is equal; missing on one side is not, even
// against an empty value.
func matchIncludedQuery(stored, live url.Values, includeKeys []string) Result {
	for _, key := range includeKeys {
		if key == "" {
			continue
		}
		sv, sok := first(stored, key)
		lv, lok := first(live, key)
		if sok != lok || sv != lv {
			return fail(StepQuery, key, sv, lv)
		}
	}
	return Result{Matched: true}
}

func first(v url.Values, key string) (string, bool) {
	values, ok := v[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
