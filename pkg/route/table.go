package route

import (
	"fmt"
	"sort"
)

type Action string

const (
	ActionProxy       Action = "proxy"
	ActionPassThrough Action = "passthrough"
)

type Reason string

const (
	ReasonRule       Reason = "rule"
	ReasonTenantHost Reason = "tenant_host"
	ReasonNoMatch    Reason = "no_match"
)

// Decision is the outcome of classifying a single request.
type Decision struct {
	Action Action
	Origin string
	Rule   string
	Reason Reason
}

// ShadowError is returned when a rule can never match because an earlier rule
// routing elsewhere already matches every request it would.
type ShadowError struct {
	Rule       string
	ShadowedBy string
}

func (e *ShadowError) Error() string {
	return fmt.Sprintf("rule %q is shadowed by higher priority rule %q", e.Rule, e.ShadowedBy)
}

// Table is an immutable, ordered rule set. It is safe for concurrent use.
type Table struct {
	marketingHosts map[string]struct{}
	rules          []compiled
}

// NewTable builds a table from the marketing host allow-list and rules. An
// empty allow-list disables the tenant gate.
func NewTable(marketingHosts []string, rules []Rule) (*Table, error) {
	t := &Table{}

	if len(marketingHosts) > 0 {
		t.marketingHosts = make(map[string]struct{}, len(marketingHosts))
		for _, h := range marketingHosts {
			name, err := normalizeHostname(h)
			if err != nil {
				return nil, fmt.Errorf("invalid marketing host %q: %w", h, err)
			}
			t.marketingHosts[name] = struct{}{}
		}
	}

	names := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if _, ok := names[r.Name]; ok {
			return nil, fmt.Errorf("rule %q: %w", r.Name, ErrDuplicateRule)
		}
		names[r.Name] = struct{}{}

		c, err := compile(r, i)
		if err != nil {
			return nil, err
		}
		if !t.reachable(c) {
			return nil, fmt.Errorf("rule %q: %w", r.Name, ErrUnreachableHosts)
		}
		t.rules = append(t.rules, c)
	}

	sort.SliceStable(t.rules, func(i, j int) bool {
		return t.rules[i].EffectivePriority() > t.rules[j].EffectivePriority()
	})

	for j := range t.rules {
		for i := 0; i < j; i++ {
			if t.rules[i].Origin != t.rules[j].Origin && t.rules[i].covers(t.rules[j]) {
				return nil, &ShadowError{Rule: t.rules[j].Name, ShadowedBy: t.rules[i].Name}
			}
		}
	}

	return t, nil
}

// reachable reports whether a host restricted rule names at least one host
// that gets past the marketing host gate.
func (t *Table) reachable(c compiled) bool {
	if c.hosts == nil || t.marketingHosts == nil {
		return true
	}
	for h := range c.hosts {
		if _, ok := t.marketingHosts[h]; ok {
			return true
		}
	}
	return false
}

// Decide classifies a request by hostname and escaped path. Hostname may
// carry a port. The path is passed through NormalizePath before matching.
func (t *Table) Decide(host, path string) Decision {
	hostname, err := normalizeHostname(host)
	if err != nil {
		// Not a name any allow-list can contain.
		hostname = ""
	}

	if t.marketingHosts != nil {
		if _, ok := t.marketingHosts[hostname]; !ok {
			return Decision{Action: ActionPassThrough, Reason: ReasonTenantHost}
		}
	}

	path = NormalizePath(path)

	for _, r := range t.rules {
		if r.matches(hostname, path) {
			return Decision{Action: ActionProxy, Origin: r.Origin, Rule: r.Name, Reason: ReasonRule}
		}
	}

	return Decision{Action: ActionPassThrough, Reason: ReasonNoMatch}
}

// Rules returns the rules in evaluation order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, 0, len(t.rules))
	for _, r := range t.rules {
		out = append(out, r.Rule)
	}
	return out
}

// MarketingHosts returns the normalized allow-list, sorted.
func (t *Table) MarketingHosts() []string {
	out := make([]string, 0, len(t.marketingHosts))
	for h := range t.marketingHosts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Origins returns the distinct origin names referenced by rules, sorted.
func (t *Table) Origins() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.rules {
		if _, ok := seen[r.Origin]; ok {
			continue
		}
		seen[r.Origin] = struct{}{}
		out = append(out, r.Origin)
	}
	sort.Strings(out)
	return out
}
