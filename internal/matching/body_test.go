package matching

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getmockd/netmock/pkg/har"
)

func TestMatchBody(t *testing.T) {
	tests := []struct {
		name   string
		stored *har.Content
		live   string
		want   bool
	}{
		{"identical text", &har.Content{Text: "hello"}, "hello", true},
		{"different text", &har.Content{Text: "hello"}, "world", false},
		{"json key order ignored", &har.Content{Text: `{"a":1,"b":[1,2]}`}, `{"b": [1, 2], "a": 1}`, true},
		{"json numeric forms equal", &har.Content{Text: `{"n":1}`}, `{"n":1.0}`, true},
		{"json array order matters", &har.Content{Text: `[1,2]`}, `[2,1]`, false},
		{"json extra key", &har.Content{Text: `{"a":1}`}, `{"a":1,"b":2}`, false},
		{"json null vs missing", &har.Content{Text: `{"a":null}`}, `{"b":null}`, false},
		{"json vs plain text", &har.Content{Text: `{"a":1}`}, `a=1`, false},
		{"no stored body, empty live body", nil, "", true},
		{"no stored body, live body", nil, "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchBody(tt.stored, []byte(tt.live)))
		})
	}
}

func TestMatchBody_Base64(t *testing.T) {
	raw := []byte{0x00, 0x01, 0xfe, 0xff}
	stored := &har.Content{
		Text:     base64.StdEncoding.EncodeToString(raw),
		Encoding: har.EncodingBase64,
	}

	assert.True(t, MatchBody(stored, raw))
	assert.False(t, MatchBody(stored, []byte{0x00}))
}

func TestBodyDiff_ReportsPath(t *testing.T) {
	stored := &har.Content{Text: `{"messages":[{"role":"user","content":"hi"}]}`}

	path, ok := bodyDiff(stored, []byte(`{"messages":[{"role":"user","content":"bye"}]}`))

	assert.False(t, ok)
	assert.Equal(t, "$.messages[0].content", path)
}
