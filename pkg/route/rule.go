package route

import (
	"errors"
	"fmt"
	"strings"
)

type MatchKind string

const (
	// MatchExact matches the path literally, ignoring a single trailing slash.
	MatchExact MatchKind = "exact"
	// MatchPrefix matches any path starting with the literal.
	MatchPrefix MatchKind = "prefix"
	// MatchFile matches a single well-known file path exactly.
	MatchFile MatchKind = "file"
)

var (
	ErrUnknownMatch     = errors.New("unknown match kind")
	ErrInvalidPath      = errors.New("rule path must start with /")
	ErrDuplicateRule    = errors.New("duplicate rule name")
	ErrMissingOrigin    = errors.New("rule has no origin")
	ErrMissingName      = errors.New("rule has no name")
	ErrUnreachableHosts = errors.New("rule hosts are all outside the marketing hosts")
)

type Rule struct {
	Name     string    `yaml:"name"`
	Match    MatchKind `yaml:"match"`
	Path     string    `yaml:"path"`
	Hosts    []string  `yaml:"hosts"`
	Origin   string    `yaml:"origin"`
	Priority int       `yaml:"priority"`
}

// EffectivePriority is the explicit priority when set, otherwise a specificity
// score that places exact and file rules before prefixes and longer prefixes
// before shorter ones.
func (r Rule) EffectivePriority() int {
	if r.Priority != 0 {
		return r.Priority
	}
	switch r.Match {
	case MatchExact, MatchFile:
		return 2000 + len(r.Path)
	default:
		return 1000 + len(r.Path)
	}
}

func (r Rule) validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule for path %q: %w", r.Path, ErrMissingName)
	}
	if r.Origin == "" {
		return fmt.Errorf("rule %q: %w", r.Name, ErrMissingOrigin)
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("rule %q: %w", r.Name, ErrInvalidPath)
	}
	switch r.Match {
	case MatchExact, MatchPrefix, MatchFile:
		return nil
	default:
		return fmt.Errorf("rule %q: %w %q", r.Name, ErrUnknownMatch, r.Match)
	}
}

// compiled is a rule with its hostname set normalized for lookup.
type compiled struct {
	Rule
	hosts map[string]struct{}
	order int
}

func compile(r Rule, order int) (compiled, error) {
	c := compiled{Rule: r, order: order}
	if len(r.Hosts) == 0 {
		return c, nil
	}
	c.hosts = make(map[string]struct{}, len(r.Hosts))
	for _, h := range r.Hosts {
		name, err := normalizeHostname(h)
		if err != nil {
			return c, fmt.Errorf("rule %q: invalid host %q: %w", r.Name, h, err)
		}
		c.hosts[name] = struct{}{}
	}
	return c, nil
}

func (c compiled) matches(hostname, path string) bool {
	if c.hosts != nil {
		if _, ok := c.hosts[hostname]; !ok {
			return false
		}
	}

	switch c.Match {
	case MatchExact:
		return trimTrailingSlash(path) == trimTrailingSlash(c.Path)
	case MatchPrefix:
		return strings.HasPrefix(path, c.Path)
	case MatchFile:
		return path == c.Path
	}
	return false
}

// covers reports whether every request matched by other is also matched by c.
func (c compiled) covers(other compiled) bool {
	if c.hosts != nil {
		if other.hosts == nil {
			return false
		}
		for h := range other.hosts {
			if _, ok := c.hosts[h]; !ok {
				return false
			}
		}
	}

	switch c.Match {
	case MatchPrefix:
		switch other.Match {
		case MatchPrefix, MatchFile:
			return strings.HasPrefix(other.Path, c.Path)
		case MatchExact:
			return strings.HasPrefix(trimTrailingSlash(other.Path), c.Path)
		}
	case MatchExact:
		switch other.Match {
		case MatchExact, MatchFile:
			return trimTrailingSlash(other.Path) == trimTrailingSlash(c.Path)
		}
	case MatchFile:
		return other.Match == MatchFile && other.Path == c.Path
	}
	return false
}

func trimTrailingSlash(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	return strings.TrimSuffix(path, "/")
}
