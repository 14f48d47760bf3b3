// Package codec converts live HTTP requests and responses into archive
// entries.
//
// Encoding is lossy: header and cookie values whose names are not
// allow-listed are replaced with RedactedValue, and that replacement cannot be
// reversed. Bodies with a textual MIME type are stored as UTF-8 text; all
// other bodies are stored base64-encoded.
package codec

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/getmockd/netmock/pkg/har"
	"github.com/getmockd/netmock/pkg/sse"
)

const (
	// RedactedValue replaces every header or cookie value that is not allow-listed.
	RedactedValue = "<redacted>"

	// PassthroughHeader marks a request that must reach the network without
	// being intercepted again. It is never written to an archive.
	PassthroughHeader = "x-mock-passthrough"

	// DefaultHTTPVersion is recorded when the live message carries no protocol.
	DefaultHTTPVersion = "HTTP/1.1"
)

// wellKnownHeaders are stored verbatim regardless of the allow-list.
var wellKnownHeaders = []string{"accept", "accept-encoding", "content-type"}

// textMimeTypes are MIME type prefixes whose bodies are stored as text.
var textMimeTypes = []string{
	"application/json",
	"application/xml",
	"application/x-www-form-urlencoded",
	"application/javascript",
	"text/",
}

// IsTextMimeType reports whether a body with this MIME type is stored as text.
// A missing MIME type is treated as text.
func IsTextMimeType(mimeType string) bool {
	if mimeType == "" {
		return true
	}
	mimeType = strings.ToLower(mimeType)
	for _, prefix := range textMimeTypes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

// IsWellKnownHeader reports whether a header is exempt from redaction.
func IsWellKnownHeader(name string) bool {
	return slices.Contains(wellKnownHeaders, strings.ToLower(name))
}

// EncodeRequest snapshots a live request. It drains and closes the request
// body, so callers that still need the body must pass a clone with its own
// body reader.
func EncodeRequest(req *http.Request, includeKeys []string) (har.Request, error) {
	out := har.Request{
		Method:      req.Method,
		URL:         req.URL.String(),
		HTTPVersion: httpVersion(req.Proto),
		Cookies:     EncodeCookies(req.Cookies(), includeKeys),
		Headers:     EncodeHeaders(req.Header, includeKeys),
		QueryString: EncodeQuery(req.URL.RawQuery),
		HeadersSize: -1,
	}

	if req.Method != http.MethodGet && hasBody(req.Body) {
		content, err := EncodeContent(req.Body, req.Header.Get("Content-Type"))
		_ = req.Body.Close()
		if err != nil {
			return har.Request{}, fmt.Errorf("failed to encode request body: %w", err)
		}
		out.PostData = &content
		out.BodySize = content.Size
	}

	return out, nil
}

// EncodeResponse snapshots a live response and drains its body. Event-stream
// bodies are recorded event by event with their arrival timings and stored as
// an EncodedEventStream; the stored MIME type stays text/event-stream.
func EncodeResponse(resp *http.Response, includeKeys []string) (har.Response, error) {
	contentType := resp.Header.Get("Content-Type")

	var content har.Content
	switch {
	case !hasBody(resp.Body):
		content = har.Content{MimeType: contentType}
	case sse.IsEventStream(contentType):
		stream, err := sse.Encode(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return har.Response{}, fmt.Errorf("failed to record event stream: %w", err)
		}
		text, err := stream.Marshal()
		if err != nil {
			return har.Response{}, err
		}
		content = har.Content{Size: textSize(text), MimeType: contentType, Text: text}
	default:
		var err error
		content, err = EncodeContent(resp.Body, contentType)
		_ = resp.Body.Close()
		if err != nil {
			return har.Response{}, fmt.Errorf("failed to encode response body: %w", err)
		}
	}

	return har.Response{
		Status:      resp.StatusCode,
		StatusText:  statusText(resp),
		HTTPVersion: httpVersion(resp.Proto),
		Cookies:     EncodeCookies(resp.Cookies(), includeKeys),
		Headers:     EncodeHeaders(resp.Header, includeKeys),
		Content:     content,
		RedirectURL: resp.Header.Get("Location"),
		HeadersSize: -1,
		BodySize:    content.Size,
	}, nil
}

// EncodeContent drains body into a content blob. Size is the length of the
// stored text (after base64 encoding, if any), counted in UTF-16 code units
// so that archives agree with those written by browser tooling.
func EncodeContent(body io.Reader, mimeType string) (har.Content, error) {
	if body == nil {
		return har.Content{MimeType: mimeType}, nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return har.Content{}, err
	}

	if IsTextMimeType(mimeType) {
		text := string(data)
		return har.Content{Size: textSize(text), MimeType: mimeType, Text: text}, nil
	}

	text := base64.StdEncoding.EncodeToString(data)
	return har.Content{
		Size:     len(text),
		MimeType: mimeType,
		Text:     text,
		Encoding: har.EncodingBase64,
	}, nil
}

// DecodeContent returns the original body bytes of a stored content blob.
func DecodeContent(c har.Content) ([]byte, error) {
	if c.IsBase64() {
		data, err := base64.StdEncoding.DecodeString(c.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 content: %w", err)
		}
		return data, nil
	}
	return []byte(c.Text), nil
}

// EncodeHeaders converts headers to archive form, sorted by lower-cased name.
// The passthrough marker is dropped; values of headers that are neither
// allow-listed nor well known are redacted.
func EncodeHeaders(h http.Header, includeKeys []string) []har.Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	headers := make([]har.Header, 0, len(h))
	for _, name := range names {
		lower := strings.ToLower(name)
		if lower == PassthroughHeader {
			continue
		}
		keep := IsWellKnownHeader(lower) || includesFold(includeKeys, lower)
		for _, value := range h[name] {
			if !keep {
				value = RedactedValue
			}
			headers = append(headers, har.Header{Name: lower, Value: value})
		}
	}
	return headers
}

// EncodeCookies converts cookies to archive form. Cookies with empty values
// are skipped; values of cookies that are not allow-listed are redacted.
func EncodeCookies(cookies []*http.Cookie, includeKeys []string) []har.Cookie {
	out := make([]har.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Value == "" {
			continue
		}
		value := c.Value
		if !slices.Contains(includeKeys, c.Name) {
			value = RedactedValue
		}
		out = append(out, har.Cookie{Name: c.Name, Value: value})
	}
	return out
}

// EncodeQuery splits a raw query string into ordered name/value pairs.
// Malformed escapes are kept verbatim.
func EncodeQuery(rawQuery string) []har.QueryParam {
	params := make([]har.QueryParam, 0)
	for part := range strings.SplitSeq(rawQuery, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		params = append(params, har.QueryParam{
			Name:  unescapeQuery(name),
			Value: unescapeQuery(value),
		})
	}
	return params
}

func unescapeQuery(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

func includesFold(keys []string, name string) bool {
	for _, k := range keys {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func hasBody(body io.ReadCloser) bool {
	return body != nil && body != http.NoBody
}

func httpVersion(proto string) string {
	if proto == "" {
		return DefaultHTTPVersion
	}
	return proto
}

func statusText(resp *http.Response) string {
	if text, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok {
		return text
	}
	if resp.Status != "" && resp.Status != strconv.Itoa(resp.StatusCode) {
		return resp.Status
	}
	return http.StatusText(resp.StatusCode)
}

// textSize counts UTF-16 code units.
func textSize(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
