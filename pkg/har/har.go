// Package har defines the HTTP Archive (HAR 1.2) data model used to persist
// recorded interactions.
//
// The types follow the HAR 1.2 layout closely enough that archives can be
// opened in browser devtools, with two deliberate extensions: request bodies
// carry the same size/encoding fields as response content, and event-stream
// responses store a JSON-encoded event list (see package sse) as their text.
package har

import (
	"strings"
	"time"
)

// Version is the HAR format version written to every archive.
const Version = "1.2"

// Creator identity written to new archives.
const (
	CreatorName    = "netmock"
	CreatorVersion = "2025-06-23"
)

// EncodingBase64 tags content whose Text holds base64-encoded bytes.
const EncodingBase64 = "base64"

// Archive is the root of an HTTP Archive document.
type Archive struct {
	Log Log `json:"log"`
}

// Log contains the archive metadata and its recorded entries.
type Log struct {
	Version string  `json:"version"`
	Creator Creator `json:"creator"`
	Pages   []Page  `json:"pages"`
	Entries []Entry `json:"entries"`
}

// Creator identifies the tool that produced the archive.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Page is kept for schema compatibility; netmock never writes pages.
type Page struct {
	StartedDateTime time.Time `json:"startedDateTime"`
	ID              string    `json:"id"`
	Title           string    `json:"title"`
}

// Entry is one recorded request/response interaction.
type Entry struct {
	// StartedDateTime is when the request was issued.
	StartedDateTime time.Time `json:"startedDateTime"`

	// Time is the total elapsed time of the interaction in milliseconds.
	Time float64 `json:"time"`

	Request  Request  `json:"request"`
	Response Response `json:"response"`
	Cache    Cache    `json:"cache"`
	Timings  Timings  `json:"timings"`
}

// Request is the recorded request snapshot.
type Request struct {
	Method      string       `json:"method"`
	URL         string       `json:"url"`
	HTTPVersion string       `json:"httpVersion"`
	Cookies     []Cookie     `json:"cookies"`
	Headers     []Header     `json:"headers"`
	QueryString []QueryParam `json:"queryString"`
	PostData    *Content     `json:"postData,omitempty"`
	HeadersSize int          `json:"headersSize"`
	BodySize    int          `json:"bodySize"`
}

// Response is the recorded response snapshot.
type Response struct {
	Status      int      `json:"status"`
	StatusText  string   `json:"statusText"`
	HTTPVersion string   `json:"httpVersion"`
	Cookies     []Cookie `json:"cookies"`
	Headers     []Header `json:"headers"`
	Content     Content  `json:"content"`
	RedirectURL string   `json:"redirectURL"`
	HeadersSize int      `json:"headersSize"`
	BodySize    int      `json:"bodySize"`
}

// Header is a single name/value header pair.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Cookie is a single name/value cookie pair.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// QueryParam is a single query string parameter.
type QueryParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Content is a request or response body payload.
type Content struct {
	// Size is the length of Text as stored, not the original byte length.
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// IsBase64 reports whether Text holds base64-encoded bytes.
func (c Content) IsBase64() bool {
	return c.Encoding == EncodingBase64
}

// Cache is the HAR cache-info placeholder. netmock never populates it.
type Cache struct {
	Comment string `json:"comment,omitempty"`
}

// Timings is the round-trip breakdown in milliseconds. -1 marks a phase as unset.
type Timings struct {
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

// WaitDuration returns the wait phase as a duration; unset phases are zero.
func (t Timings) WaitDuration() time.Duration {
	return msDuration(t.Wait)
}

// ReceiveDuration returns the receive phase as a duration; unset phases are zero.
func (t Timings) ReceiveDuration() time.Duration {
	return msDuration(t.Receive)
}

func msDuration(ms float64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// Milliseconds converts a duration to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// New returns an empty archive ready to receive entries.
func New() *Archive {
	return &Archive{
		Log: Log{
			Version: Version,
			Creator: Creator{Name: CreatorName, Version: CreatorVersion},
			Pages:   []Page{},
			Entries: []Entry{},
		},
	}
}

// Clone returns a copy of the archive whose entry slice can be appended to
// without affecting the original. Entries themselves are immutable once
// recorded, so they are copied shallowly.
func (a *Archive) Clone() *Archive {
	if a == nil {
		return nil
	}
	out := *a
	out.Log.Pages = append([]Page{}, a.Log.Pages...)
	out.Log.Entries = append([]Entry{}, a.Log.Entries...)
	return &out
}

// Normalize fills nil slices so that the archive always serializes with
// arrays rather than nulls.
func (a *Archive) Normalize() {
	if a.Log.Version == "" {
		a.Log.Version = Version
	}
	if a.Log.Pages == nil {
		a.Log.Pages = []Page{}
	}
	if a.Log.Entries == nil {
		a.Log.Entries = []Entry{}
	}
}

// IsStale reports whether the entry is older than maxAge at time now.
// An entry exactly maxAge old is not stale.
func (e *Entry) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.StartedDateTime) > maxAge
}

// Age returns how long ago the entry was recorded.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StartedDateTime)
}

// Header returns the first value of the named header, matched case-insensitively.
func (r *Request) Header(name string) (string, bool) {
	return lookup(r.Headers, name)
}

// Header returns the first value of the named header, matched case-insensitively.
func (r *Response) Header(name string) (string, bool) {
	return lookup(r.Headers, name)
}

// ContentType returns the recorded content-type header of the response.
func (r *Response) ContentType() string {
	v, _ := lookup(r.Headers, "content-type")
	return v
}

func lookup(headers []Header, name string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}
