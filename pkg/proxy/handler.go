package proxy

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var errNoHost = errors.New("request has no host")

// handleHTTP forwards a plain HTTP request, through the session when it is
// in scope and directly otherwise. The response body is streamed
// and flushed chunk by chunk so event streams arrive as they are replayed.
func (p *Proxy) handleHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	outReq, err := p.outboundRequest(r)
	if err != nil {
		p.logger.Warn("bad proxy request", "method", r.Method, "uri", r.RequestURI, "error", err)
		http.Error(w, "Bad proxy request: "+err.Error(), http.StatusBadRequest)
		return
	}

	route, rt := "direct", p.passthrough
	if p.Scope().Records(outReq) {
		route, rt = "vcr", p.session
	}

	resp, err := rt.RoundTrip(outReq)
	if err != nil {
		p.logger.Error("forward failed", "method", outReq.Method, "url", outReq.URL.String(), "route", route, "error", err)
		http.Error(w, "Error forwarding request: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	removeHopByHopHeaders(resp.Header)
	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	n, err := copyFlush(w, resp.Body)
	if err != nil {
		p.logger.Warn("response copy interrupted", "url", outReq.URL.String(), "bytes", n, "error", err)
	}

	p.logger.Info("proxied",
		"method", outReq.Method,
		"url", outReq.URL.String(),
		"status", resp.StatusCode,
		"route", route,
		"duration", time.Since(start),
	)
}

// outboundRequest builds the request sent upstream: the absolute URL from a
// forward-proxy request line, or the configured target in reverse mode.
func (p *Proxy) outboundRequest(r *http.Request) (*http.Request, error) {
	target, err := p.targetURL(r)
	if err != nil {
		return nil, err
	}

	body := r.Body
	if r.ContentLength == 0 {
		body = http.NoBody
	}
	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	outReq.ContentLength = r.ContentLength

	copyHeaders(outReq.Header, r.Header)
	removeHopByHopHeaders(outReq.Header)
	return outReq, nil
}

func (p *Proxy) targetURL(r *http.Request) (*url.URL, error) {
	if p.target != nil {
		u := *p.target
		u.Path = joinPath(p.target.Path, r.URL.Path)
		u.RawPath = ""
		u.RawQuery = r.URL.RawQuery
		return &u, nil
	}

	if r.URL.IsAbs() {
		u := *r.URL
		return &u, nil
	}
	if r.Host == "" {
		return nil, errNoHost
	}
	return url.Parse("http://" + r.Host + r.URL.RequestURI())
}

func joinPath(base, path string) string {
	switch {
	case base == "" || base == "/":
		if path == "" {
			return "/"
		}
		return path
	case path == "" || path == "/":
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

// copyFlush copies body to w, flushing after every chunk.
func copyFlush(w http.ResponseWriter, body io.Reader) (int64, error) {
	rc := http.NewResponseController(w)
	buf := make([]byte, 32*1024)
	var total int64
	for {
		n, err := body.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, werr
			}
			_ = rc.Flush()
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// copyHeaders copies headers from src to dst.
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

// removeHopByHopHeaders removes headers that should not be forwarded.
func removeHopByHopHeaders(h http.Header) {
	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}
