package route

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// Hostname strips the port from a Host header value and normalizes the rest.
// Invalid names are returned lower-cased but otherwise untouched.
func Hostname(host string) string {
	name, err := normalizeHostname(host)
	if err != nil {
		return strings.ToLower(host)
	}
	return name
}

func normalizeHostname(host string) (string, error) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return "", nil
	}
	return idna.Lookup.ToASCII(host)
}
