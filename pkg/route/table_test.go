package route

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var marketingHosts = []string{"heartbeatintel.com", "www.heartbeatintel.com"}

func siteRules() []Rule {
	return []Rule{
		{Name: "root", Match: MatchExact, Path: "/", Origin: "static"},
		{Name: "exchange-index", Match: MatchExact, Path: "/exchange", Origin: "static"},
		{Name: "exchange", Match: MatchPrefix, Path: "/exchange/", Origin: "static"},
		{Name: "exchange-publisher", Match: MatchPrefix, Path: "/exchange/publisher/", Origin: "ssr"},
		{Name: "astro-assets", Match: MatchPrefix, Path: "/_astro/", Origin: "static"},
		{Name: "images", Match: MatchPrefix, Path: "/images/", Origin: "static"},
		{Name: "fonts", Match: MatchPrefix, Path: "/fonts/", Origin: "static"},
		{Name: "favicon", Match: MatchFile, Path: "/favicon.ico", Origin: "static"},
	}
}

func TestDecide(t *testing.T) {
	table, err := NewTable(marketingHosts, siteRules())
	require.Nil(t, err)

	tt := []struct {
		description string
		host        string
		path        string
		expected    Decision
	}{
		{
			description: "Root on marketing host goes to static origin",
			host:        "www.heartbeatintel.com",
			path:        "/",
			expected:    Decision{Action: ActionProxy, Origin: "static", Rule: "root", Reason: ReasonRule},
		},
		{
			description: "Empty path is treated as root",
			host:        "heartbeatintel.com",
			path:        "",
			expected:    Decision{Action: ActionProxy, Origin: "static", Rule: "root", Reason: ReasonRule},
		},
		{
			description: "Exact rule matches without trailing slash",
			host:        "heartbeatintel.com",
			path:        "/exchange",
			expected:    Decision{Action: ActionProxy, Origin: "static", Rule: "exchange-index", Reason: ReasonRule},
		},
		{
			description: "Exact rule matches with trailing slash",
			host:        "heartbeatintel.com",
			path:        "/exchange/",
			expected:    Decision{Action: ActionProxy, Origin: "static", Rule: "exchange-index", Reason: ReasonRule},
		},
		{
			description: "Publisher page under the exchange prefix is carved out to ssr",
			host:        "heartbeatintel.com",
			path:        "/exchange/publisher/acme/article/42",
			expected:    Decision{Action: ActionProxy, Origin: "ssr", Rule: "exchange-publisher", Reason: ReasonRule},
		},
		{
			description: "Other exchange pages stay on static",
			host:        "heartbeatintel.com",
			path:        "/exchange/pricing",
			expected:    Decision{Action: ActionProxy, Origin: "static", Rule: "exchange", Reason: ReasonRule},
		},
		{
			description: "Built assets go to static",
			host:        "heartbeatintel.com",
			path:        "/_astro/app.abc123.js",
			expected:    Decision{Action: ActionProxy, Origin: "static", Rule: "astro-assets", Reason: ReasonRule},
		},
		{
			description: "Favicon goes to static",
			host:        "heartbeatintel.com",
			path:        "/favicon.ico",
			expected:    Decision{Action: ActionProxy, Origin: "static", Rule: "favicon", Reason: ReasonRule},
		},
		{
			description: "Favicon with trailing slash does not match a file rule",
			host:        "heartbeatintel.com",
			path:        "/favicon.ico/",
			expected:    Decision{Action: ActionPassThrough, Reason: ReasonNoMatch},
		},
		{
			description: "Tenant host passes through regardless of path",
			host:        "acme.example.com",
			path:        "/",
			expected:    Decision{Action: ActionPassThrough, Reason: ReasonTenantHost},
		},
		{
			description: "Tenant host passes through for static prefixes too",
			host:        "pirque.heartbeatintel.com",
			path:        "/_astro/app.js",
			expected:    Decision{Action: ActionPassThrough, Reason: ReasonTenantHost},
		},
		{
			description: "Unknown path on marketing host passes through",
			host:        "heartbeatintel.com",
			path:        "/unknown/path",
			expected:    Decision{Action: ActionPassThrough, Reason: ReasonNoMatch},
		},
		{
			description: "Host is normalized before the allow-list check",
			host:        "WWW.HeartbeatIntel.com.:443",
			path:        "/fonts/inter.woff2",
			expected:    Decision{Action: ActionProxy, Origin: "static", Rule: "fonts", Reason: ReasonRule},
		},
		{
			description: "Dot segments cannot smuggle a publisher page past the carve-out",
			host:        "heartbeatintel.com",
			path:        "/_astro/../exchange/publisher/acme",
			expected:    Decision{Action: ActionProxy, Origin: "ssr", Rule: "exchange-publisher", Reason: ReasonRule},
		},
		{
			description: "Encoded dot segments are resolved before matching",
			host:        "heartbeatintel.com",
			path:        "/images/%2e%2e/exchange/publisher/acme",
			expected:    Decision{Action: ActionProxy, Origin: "ssr", Rule: "exchange-publisher", Reason: ReasonRule},
		},
		{
			description: "Encoded slash does not open the publisher prefix",
			host:        "heartbeatintel.com",
			path:        "/exchange/publisher%2Facme",
			expected:    Decision{Action: ActionProxy, Origin: "static", Rule: "exchange", Reason: ReasonRule},
		},
		{
			description: "Escaped letters are matched as written",
			host:        "heartbeatintel.com",
			path:        "/exchange/%70ublisher/x",
			expected:    Decision{Action: ActionProxy, Origin: "static", Rule: "exchange", Reason: ReasonRule},
		},
		{
			description: "Prefix without trailing slash is not matched by a slash prefix",
			host:        "heartbeatintel.com",
			path:        "/images",
			expected:    Decision{Action: ActionPassThrough, Reason: ReasonNoMatch},
		},
	}

	for _, tr := range tt {
		t.Run(tr.description, func(t *testing.T) {
			require.Equal(t, tr.expected, table.Decide(tr.host, tr.path))
		})
	}
}

func TestDecideIsStable(t *testing.T) {
	table, err := NewTable(marketingHosts, siteRules())
	require.Nil(t, err)

	first := table.Decide("heartbeatintel.com", "/exchange/publisher/acme")
	second := table.Decide("heartbeatintel.com", "/exchange/publisher/acme")
	require.Equal(t, first, second)
}

func TestDecideWithoutTenantGate(t *testing.T) {
	table, err := NewTable(nil, siteRules())
	require.Nil(t, err)

	require.Equal(t,
		Decision{Action: ActionProxy, Origin: "static", Rule: "root", Reason: ReasonRule},
		table.Decide("anything.example.com", "/"),
	)
	require.Equal(t,
		Decision{Action: ActionPassThrough, Reason: ReasonNoMatch},
		table.Decide("anything.example.com", "/checkout"),
	)
}

func TestDecideWithHostRestrictedRule(t *testing.T) {
	rules := []Rule{
		{Name: "www-root", Match: MatchExact, Path: "/", Hosts: []string{"www.heartbeatintel.com"}, Origin: "ssr"},
		{Name: "root", Match: MatchExact, Path: "/", Origin: "static", Priority: 1},
	}
	table, err := NewTable(nil, rules)
	require.Nil(t, err)

	require.Equal(t, "ssr", table.Decide("www.heartbeatintel.com", "/").Origin)
	require.Equal(t, "static", table.Decide("heartbeatintel.com", "/").Origin)
}

func TestExplicitPriorityOverridesSpecificity(t *testing.T) {
	rules := []Rule{
		{Name: "checkout", Match: MatchPrefix, Path: "/checkout", Origin: "ssr", Priority: 5000},
		{Name: "checkout-success", Match: MatchExact, Path: "/checkout/success", Origin: "ssr"},
	}
	table, err := NewTable(nil, rules)
	require.Nil(t, err)

	ordered := table.Rules()
	require.Equal(t, "checkout", ordered[0].Name)
	require.Equal(t, "checkout", table.Decide("example.com", "/checkout/success").Rule)
}

func TestRulesEvaluationOrder(t *testing.T) {
	table, err := NewTable(marketingHosts, siteRules())
	require.Nil(t, err)

	var names []string
	for _, r := range table.Rules() {
		names = append(names, r.Name)
	}

	require.Equal(t, []string{
		"favicon",
		"exchange-index",
		"root",
		"exchange-publisher",
		"exchange",
		"astro-assets",
		"images",
		"fonts",
	}, names)
	require.Equal(t, []string{"ssr", "static"}, table.Origins())
	require.Equal(t, []string{"heartbeatintel.com", "www.heartbeatintel.com"}, table.MarketingHosts())
}

func TestNewTableErrors(t *testing.T) {
	tt := []struct {
		description string
		rules       []Rule
		expectedErr error
	}{
		{
			description: "When a rule has an unknown match kind returns error",
			rules:       []Rule{{Name: "a", Match: "regex", Path: "/", Origin: "static"}},
			expectedErr: ErrUnknownMatch,
		},
		{
			description: "When a rule path has no leading slash returns error",
			rules:       []Rule{{Name: "a", Match: MatchPrefix, Path: "images/", Origin: "static"}},
			expectedErr: ErrInvalidPath,
		},
		{
			description: "When a rule has no origin returns error",
			rules:       []Rule{{Name: "a", Match: MatchPrefix, Path: "/images/"}},
			expectedErr: ErrMissingOrigin,
		},
		{
			description: "When two rules share a name returns error",
			rules: []Rule{
				{Name: "a", Match: MatchPrefix, Path: "/images/", Origin: "static"},
				{Name: "a", Match: MatchPrefix, Path: "/fonts/", Origin: "static"},
			},
			expectedErr: ErrDuplicateRule,
		},
	}

	for _, tr := range tt {
		t.Run(tr.description, func(t *testing.T) {
			_, err := NewTable(nil, tr.rules)
			require.NotNil(t, err)
			require.True(t, errors.Is(err, tr.expectedErr))
		})
	}
}

func TestNewTableRejectsRulesOutsideMarketingHosts(t *testing.T) {
	tt := []struct {
		description    string
		marketingHosts []string
		rules          []Rule
		expectedError  bool
	}{
		{
			description:    "When a rule only names tenant hosts returns error",
			marketingHosts: marketingHosts,
			rules:          []Rule{{Name: "tenant-root", Match: MatchExact, Path: "/", Hosts: []string{"pirque.heartbeatintel.com"}, Origin: "ssr"}},
			expectedError:  true,
		},
		{
			description:    "When a rule names at least one marketing host is accepted",
			marketingHosts: marketingHosts,
			rules:          []Rule{{Name: "www-root", Match: MatchExact, Path: "/", Hosts: []string{"pirque.heartbeatintel.com", "WWW.heartbeatintel.com"}, Origin: "ssr"}},
			expectedError:  false,
		},
		{
			description:    "When the tenant gate is off any host is accepted",
			marketingHosts: nil,
			rules:          []Rule{{Name: "tenant-root", Match: MatchExact, Path: "/", Hosts: []string{"pirque.heartbeatintel.com"}, Origin: "ssr"}},
			expectedError:  false,
		},
	}

	for _, tr := range tt {
		t.Run(tr.description, func(t *testing.T) {
			_, err := NewTable(tr.marketingHosts, tr.rules)
			if tr.expectedError {
				require.True(t, errors.Is(err, ErrUnreachableHosts))
				return
			}
			require.Nil(t, err)
		})
	}
}

func TestNewTableRejectsShadowedRules(t *testing.T) {
	tt := []struct {
		description        string
		rules              []Rule
		expectedRule       string
		expectedShadowedBy string
	}{
		{
			description: "Broad prefix with raised priority hides a carve-out",
			rules: []Rule{
				{Name: "exchange", Match: MatchPrefix, Path: "/exchange/", Origin: "static", Priority: 9000},
				{Name: "exchange-publisher", Match: MatchPrefix, Path: "/exchange/publisher/", Origin: "ssr"},
			},
			expectedRule:       "exchange-publisher",
			expectedShadowedBy: "exchange",
		},
		{
			description: "Prefix with raised priority hides an exact rule below it",
			rules: []Rule{
				{Name: "exchange", Match: MatchPrefix, Path: "/exchange", Origin: "ssr", Priority: 9000},
				{Name: "exchange-index", Match: MatchExact, Path: "/exchange/", Origin: "static"},
			},
			expectedRule:       "exchange-index",
			expectedShadowedBy: "exchange",
		},
		{
			description: "Same exact path routed to two origins",
			rules: []Rule{
				{Name: "root-static", Match: MatchExact, Path: "/", Origin: "static"},
				{Name: "root-ssr", Match: MatchExact, Path: "/", Origin: "ssr"},
			},
			expectedRule:       "root-ssr",
			expectedShadowedBy: "root-static",
		},
	}

	for _, tr := range tt {
		t.Run(tr.description, func(t *testing.T) {
			_, err := NewTable(nil, tr.rules)
			require.NotNil(t, err)

			var shadowErr *ShadowError
			require.True(t, errors.As(err, &shadowErr))
			require.Equal(t, tr.expectedRule, shadowErr.Rule)
			require.Equal(t, tr.expectedShadowedBy, shadowErr.ShadowedBy)
		})
	}
}

func TestNewTableAllowsOverlapToSameOrigin(t *testing.T) {
	rules := []Rule{
		{Name: "exchange", Match: MatchPrefix, Path: "/exchange/", Origin: "static", Priority: 9000},
		{Name: "exchange-deep", Match: MatchPrefix, Path: "/exchange/lists/", Origin: "static"},
	}
	_, err := NewTable(nil, rules)
	require.Nil(t, err)
}

func TestNewTableAllowsHostScopedCarveOut(t *testing.T) {
	rules := []Rule{
		{Name: "www-exchange", Match: MatchPrefix, Path: "/exchange/", Hosts: []string{"www.heartbeatintel.com"}, Origin: "ssr", Priority: 9000},
		{Name: "exchange", Match: MatchPrefix, Path: "/exchange/", Origin: "static"},
	}
	_, err := NewTable(nil, rules)
	require.Nil(t, err)
}

func TestHostname(t *testing.T) {
	tt := []struct {
		description string
		host        string
		expected    string
	}{
		{description: "Strips port", host: "heartbeatintel.com:8443", expected: "heartbeatintel.com"},
		{description: "Lower cases", host: "WWW.HeartbeatIntel.COM", expected: "www.heartbeatintel.com"},
		{description: "Strips trailing dot", host: "heartbeatintel.com.", expected: "heartbeatintel.com"},
		{description: "Converts unicode to punycode", host: "bücher.example", expected: "xn--bcher-kva.example"},
		{description: "Keeps IPv4 addresses", host: "127.0.0.1:9876", expected: "127.0.0.1"},
	}

	for _, tr := range tt {
		t.Run(tr.description, func(t *testing.T) {
			require.Equal(t, tr.expected, Hostname(tr.host))
		})
	}
}
