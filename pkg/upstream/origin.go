package upstream

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrNotFound      = errors.New("origin not found")
	ErrInvalidOrigin = errors.New("invalid origin")
)

type Origin struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// parse checks that the origin URL is a bare base URL: scheme and host only.
func (o Origin) parse() (*url.URL, error) {
	u, err := url.Parse(o.URL)
	if err != nil {
		return nil, fmt.Errorf("origin %q: %w: %s", o.Name, ErrInvalidOrigin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("origin %q: %w: scheme must be http or https", o.Name, ErrInvalidOrigin)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("origin %q: %w: missing host", o.Name, ErrInvalidOrigin)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return nil, fmt.Errorf("origin %q: %w: url must not carry a path, query, fragment or userinfo", o.Name, ErrInvalidOrigin)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}
