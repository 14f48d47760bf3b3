package matching

import (
	"bytes"
	"encoding/base64"
	"unicode/utf8"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/getmockd/netmock/pkg/har"
)

// MatchBody compares a live request body against the recorded postData.
// JSON documents are compared structurally so key order and whitespace do
// not matter; everything else is compared as text.
func MatchBody(stored *har.Content, live []byte) bool {
	_, ok := bodyDiff(stored, live)
	return ok
}

// bodyDiff reports the JSONPath of the first structural difference, or "$"
// when the bodies differ as plain text.
func bodyDiff(stored *har.Content, live []byte) (string, bool) {
	if stored == nil {
		if len(live) == 0 {
			return "", true
		}
		return "$", false
	}

	if stored.IsBase64() {
		raw, err := base64.StdEncoding.DecodeString(stored.Text)
		if err != nil || !bytes.Equal(raw, live) {
			return "$", false
		}
		return "", true
	}

	if !utf8.Valid(live) {
		return "$", false
	}
	liveText := string(live)
	if stored.Text == liveText {
		return "", true
	}

	want, werr := oj.ParseString(stored.Text)
	got, gerr := oj.ParseString(liveText)
	if werr != nil || gerr != nil {
		return "$", false
	}
	return jsonDiff(jp.R(), want, got)
}

func jsonDiff(path jp.Expr, a, b any) (string, bool) {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return path.String(), false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok {
				return append(jp.Expr{}, path...).C(k).String(), false
			}
			if p, ok := jsonDiff(append(jp.Expr{}, path...).C(k), v, w); !ok {
				return p, false
			}
		}
		for k := range bv {
			if _, ok := av[k]; !ok {
				return append(jp.Expr{}, path...).C(k).String(), false
			}
		}
		return "", true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return path.String(), false
		}
		for i := range av {
			if p, ok := jsonDiff(append(jp.Expr{}, path...).N(i), av[i], bv[i]); !ok {
				return p, false
			}
		}
		return "", true
	default:
		if x, ok := number(a); ok {
			if y, ok := number(b); ok && x == y {
				return "", true
			}
			return path.String(), false
		}
		if a != b {
			return path.String(), false
		}
		return "", true
	}
}

// number widens the numeric types oj produces so that 1 and 1.0 compare equal.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
