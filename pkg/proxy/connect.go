package proxy

import (
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const dialTimeout = 30 * time.Second

// handleConnect tunnels CONNECT requests to their destination. Tunnelled
// traffic is encrypted end to end and is never recorded.
func (p *Proxy) handleConnect(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if !strings.Contains(host, ":") {
		host += ":443"
	}

	d := net.Dialer{Timeout: dialTimeout}
	targetConn, err := d.DialContext(r.Context(), "tcp", host)
	if err != nil {
		p.logger.Error("connect failed", "host", host, "error", err)
		http.Error(w, "Error connecting to target", http.StatusBadGateway)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		_ = targetConn.Close()
		http.Error(w, "HTTP server does not support hijacking", http.StatusInternalServerError)
		return
	}

	clientConn, _, err := hijacker.Hijack()
	if err != nil {
		p.logger.Error("hijack failed", "error", err)
		_ = targetConn.Close()
		return
	}

	if _, err := clientConn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		p.logger.Error("connect response failed", "host", host, "error", err)
		_ = clientConn.Close()
		_ = targetConn.Close()
		return
	}

	p.logger.Debug("tunnel opened, traffic is not recorded", "host", host)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = io.Copy(targetConn, clientConn)
		_ = targetConn.Close()
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(clientConn, targetConn)
		_ = clientConn.Close()
	}()
	wg.Wait()
}
