// Package netdiag runs DNS/TCP/TLS preflight checks against a feed host.
// It is operational tooling only, invoked under explicit configuration, and
// never affects pipeline results.
package netdiag

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"
)

const (
	dialTimeout = 5 * time.Second
	maxErrLen   = 140
)

// Result captures the outcome of one preflight probe
type Result struct {
	DNS      string
	IPCount  int
	FirstIP  string
	DNSErr   string
	TCP      string
	TCPErr   string
	TLS      string
	TLSErr   string
}

// Preflight resolves the host, opens a TCP connection to port 443 and
// completes a TLS handshake, recording how far it got.
func Preflight(ctx context.Context, host string) Result {
	result := Result{DNS: "fail", TCP: "fail", TLS: "fail"}

	ips, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		result.DNSErr = shortText(err.Error())
	} else {
		sort.Strings(ips)
		result.DNS = "ok"
		result.IPCount = len(ips)
		if len(ips) > 0 {
			result.FirstIP = ips[0]
		}
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		result.TCPErr = shortText(err.Error())
		return result
	}
	defer conn.Close()
	result.TCP = "ok"

	tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
	defer tlsConn.Close()
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		result.TLSErr = shortText(err.Error())
		return result
	}
	result.TLS = "ok"
	return result
}

// Format renders the probe as a single diagnostic line.
func (r Result) Format(label string) string {
	parts := []string{
		"GN_PREFLIGHT " + label,
		"dns=" + r.DNS,
		fmt.Sprintf("ips=%d", r.IPCount),
	}
	if r.FirstIP != "" {
		parts = append(parts, "ip="+r.FirstIP)
	}
	if r.DNS != "ok" && r.DNSErr != "" {
		parts = append(parts, "dns_err="+r.DNSErr)
	}
	parts = append(parts, "tcp="+r.TCP)
	if r.TCP != "ok" && r.TCPErr != "" {
		parts = append(parts, "tcp_err="+r.TCPErr)
	}
	parts = append(parts, "tls="+r.TLS)
	if r.TLS != "ok" && r.TLSErr != "" {
		parts = append(parts, "tls_err="+r.TLSErr)
	}
	return strings.Join(parts, " ")
}

func shortText(value string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
	if len(cleaned) <= maxErrLen {
		return cleaned
	}
	return cleaned[:maxErrLen-3] + "..."
}
