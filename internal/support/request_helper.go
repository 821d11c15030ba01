package support

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/proxy"

	"github.com/woedy/ProxyHome/internal/domain"
)

// CreateTransport builds a single-use transport that routes requests through
// the candidate proxy. Keep-alives are disabled so each probe dials fresh.
func CreateTransport(target domain.Candidate, timeout time.Duration) (*http.Transport, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 0,
		}).DialContext,
		DisableKeepAlives:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   0,
		IdleConnTimeout:       0,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	switch target.Protocol {
	case ProtocolHTTP:
		proxyURL := &url.URL{
			Scheme: "http",
			Host:   target.GetFullProxy(),
		}
		if target.HasAuth() {
			proxyURL.User = url.UserPassword(target.Username, target.Password)
		}
		transport.Proxy = http.ProxyURL(proxyURL)

	case ProtocolSOCKS5:
		var auth *proxy.Auth
		if target.HasAuth() {
			auth = &proxy.Auth{User: target.Username, Password: target.Password}
		}
		socksDialer, err := proxy.SOCKS5("tcp", target.GetFullProxy(), auth, &net.Dialer{
			Timeout: timeout,
		})
		if err != nil {
			return nil, err
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return socksDialer.Dial(network, addr)
		}

	case ProtocolSOCKS4:
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialSOCKS4(ctx, target, addr, timeout)
		}

	default:
		return nil, fmt.Errorf("unsupported proxy protocol %q", target.Protocol)
	}

	return transport, nil
}

func dialSOCKS4(ctx context.Context, target domain.Candidate, destination string, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target.GetFullProxy())
	if err != nil {
		return nil, err
	}

	host, portStr, err := net.SplitHostPort(destination)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		_ = conn.Close()
		return nil, fmt.Errorf("invalid destination port %q", portStr)
	}

	ip := net.ParseIP(host)
	ipBytes := ip.To4()
	var domainName string
	if ipBytes == nil {
		ipBytes = []byte{0x00, 0x00, 0x00, 0x01} // SOCKS4a
		domainName = host
	}

	userField := ""
	if target.Username != "" {
		userField = target.Username
		if target.Password != "" {
			userField = fmt.Sprintf("%s:%s", target.Username, target.Password)
		}
	}

	req := []byte{0x04, 0x01, byte(port >> 8), byte(port)}
	req = append(req, ipBytes...)
	req = append(req, []byte(userField)...)
	req = append(req, 0x00)
	if domainName != "" {
		req = append(req, []byte(domainName)...)
		req = append(req, 0x00)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	if _, err := conn.Write(req); err != nil {
		_ = conn.Close()
		return nil, err
	}

	resp := make([]byte, 8)
	if _, err := io.ReadFull(conn, resp); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if len(resp) < 2 || resp[1] != 0x5A {
		_ = conn.Close()
		return nil, fmt.Errorf("socks4 connect failed with code %d", resp[1])
	}

	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}
