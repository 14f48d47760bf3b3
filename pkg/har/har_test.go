package har

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a := New()

	assert.Equal(t, "1.2", a.Log.Version)
	assert.Equal(t, CreatorName, a.Log.Creator.Name)
	assert.Empty(t, a.Log.Entries)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"log":{"version":"1.2","creator":{"name":"netmock","version":"2025-06-23"},"pages":[],"entries":[]}}`, string(data))
}

func TestEntry_IsStale(t *testing.T) {
	now := time.Date(2025, 6, 23, 12, 0, 0, 0, time.UTC)
	maxAge := 60 * 24 * time.Hour

	tests := []struct {
		name    string
		started time.Time
		want    bool
	}{
		{"recorded an hour ago", now.Add(-time.Hour), false},
		{"exactly at the boundary", now.Add(-maxAge), false},
		{"one millisecond past the boundary", now.Add(-maxAge - time.Millisecond), true},
		{"recorded in the future", now.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entry{StartedDateTime: tt.started}
			assert.Equal(t, tt.want, e.IsStale(now, maxAge))
		})
	}
}

func TestArchive_Clone(t *testing.T) {
	a := New()
	a.Log.Entries = append(a.Log.Entries, Entry{Request: Request{Method: "GET"}})

	c := a.Clone()
	c.Log.Entries = append(c.Log.Entries, Entry{Request: Request{Method: "POST"}})

	assert.Len(t, a.Log.Entries, 1)
	assert.Len(t, c.Log.Entries, 2)
	assert.Nil(t, (*Archive)(nil).Clone())
}

func TestArchive_NormalizeAfterDecode(t *testing.T) {
	var a Archive
	require.NoError(t, json.Unmarshal([]byte(`{"log":{"version":"1.2","entries":null}}`), &a))

	a.Normalize()

	assert.NotNil(t, a.Log.Entries)
	assert.NotNil(t, a.Log.Pages)
}

func TestHeaderLookup(t *testing.T) {
	resp := Response{Headers: []Header{
		{Name: "Content-Type", Value: "text/event-stream"},
		{Name: "x-trace", Value: "<redacted>"},
	}}

	assert.Equal(t, "text/event-stream", resp.ContentType())
	v, ok := resp.Header("X-Trace")
	assert.True(t, ok)
	assert.Equal(t, "<redacted>", v)

	_, ok = resp.Header("missing")
	assert.False(t, ok)
}

func TestTimings_Durations(t *testing.T) {
	tm := Timings{Send: 0, Wait: 12.5, Receive: -1}

	assert.Equal(t, 12500*time.Microsecond, tm.WaitDuration())
	assert.Equal(t, time.Duration(0), tm.ReceiveDuration())
	assert.InDelta(t, 1.5, Milliseconds(1500*time.Microsecond), 1e-9)
}
