package process

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Target is the fixed host and scheme every endpoint is resolved against.
type Target struct {
	Host   string
	Port   int
	Secure bool
}

// URL returns the WebSocket URL for endpoint: {ws|wss}://host:port/ws/<endpoint>.
// Leading "/" and "ws/" segments on endpoint are tolerated.
func (t Target) URL(endpoint string) string {
	scheme := "ws"
	if t.Secure {
		scheme = "wss"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(t.Host, strconv.Itoa(t.Port)),
		Path:   "/ws/" + normalizeEndpoint(endpoint),
	}
	return u.String()
}

// ParseTarget builds a Target from a URL such as "ws://localhost:8000" or
// "https://gpu-box". http/https are accepted and mapped to ws/wss.
func ParseTarget(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("parse backend url: %w", err)
	}

	var t Target
	switch u.Scheme {
	case "ws", "http":
		t.Port = 80
	case "wss", "https":
		t.Secure = true
		t.Port = 443
	default:
		return Target{}, fmt.Errorf("unsupported backend scheme %q", u.Scheme)
	}

	t.Host = u.Hostname()
	if t.Host == "" {
		return Target{}, fmt.Errorf("backend url %q has no host", raw)
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Target{}, fmt.Errorf("backend port %q: %w", p, err)
		}
		t.Port = port
	}
	return t, nil
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return strings.TrimPrefix(endpoint, "ws/")
}
