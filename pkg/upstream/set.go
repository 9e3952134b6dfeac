package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"

	"gitlab.com/heartbeat-intel/edge-router/internal/logz"
	"go.uber.org/zap"
)

// PassThroughName is the name under which the pass-through origin is logged
// and counted. It cannot be used by a named origin.
const PassThroughName = "passthrough"

var forwardingHeaders = []string{
	"Forwarded",
	"X-Forwarded-For",
	"X-Forwarded-Host",
	"X-Forwarded-Proto",
}

type Options struct {
	// Transport used for every origin. Defaults to a clone of
	// http.DefaultTransport with compression disabled.
	Transport http.RoundTripper
	// XForwarded appends the router's own X-Forwarded-* values.
	XForwarded bool
	// OnError is called with the origin name when a round trip fails.
	OnError func(origin string)
}

// Backend is an origin together with the reverse proxy that serves it.
type Backend struct {
	Origin
	Target       *url.URL
	PreserveHost bool
	proxy        *httputil.ReverseProxy
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.proxy.ServeHTTP(w, r)
}

// Set holds the configured origins. It is built once and never mutated.
type Set struct {
	logger      *zap.Logger
	backends    map[string]*Backend
	passThrough *Backend
}

func NewSet(logger *zap.Logger, origins []Origin, passThrough Origin, opts Options) (*Set, error) {
	if opts.Transport == nil {
		opts.Transport = defaultTransport()
	}

	s := &Set{
		logger:   logger,
		backends: make(map[string]*Backend, len(origins)),
	}

	for _, o := range origins {
		if o.Name == "" {
			return nil, fmt.Errorf("%w: origin with url %q has no name", ErrInvalidOrigin, o.URL)
		}
		if o.Name == PassThroughName {
			return nil, fmt.Errorf("%w: origin name %q is reserved", ErrInvalidOrigin, PassThroughName)
		}
		if _, ok := s.backends[o.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate origin name %q", ErrInvalidOrigin, o.Name)
		}
		b, err := s.newBackend(o, false, opts)
		if err != nil {
			return nil, err
		}
		s.backends[o.Name] = b
		logger.Info("Origin configured", logz.OriginName(o.Name), logz.OriginURL(b.Target.String()))
	}

	passThrough.Name = PassThroughName
	b, err := s.newBackend(passThrough, true, opts)
	if err != nil {
		return nil, err
	}
	s.passThrough = b
	logger.Info("Pass-through origin configured", logz.OriginURL(b.Target.String()))

	return s, nil
}

func (s *Set) Get(name string) (*Backend, error) {
	if b, ok := s.backends[name]; ok {
		return b, nil
	}
	return nil, ErrNotFound
}

func (s *Set) PassThrough() *Backend {
	return s.passThrough
}

// Names returns the named origins, sorted. The pass-through origin is not included.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.backends))
	for name := range s.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Set) newBackend(o Origin, preserveHost bool, opts Options) (*Backend, error) {
	target, err := o.parse()
	if err != nil {
		return nil, err
	}

	b := &Backend{
		Origin:       o,
		Target:       target,
		PreserveHost: preserveHost,
	}
	b.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Scheme = target.Scheme
			pr.Out.URL.Host = target.Host
			if preserveHost {
				pr.Out.Host = pr.In.Host
			} else {
				pr.Out.Host = ""
			}

			// Rewrite strips inbound forwarding headers; relay them as received.
			for _, h := range forwardingHeaders {
				if v, ok := pr.In.Header[h]; ok {
					pr.Out.Header[h] = v
				}
			}
			if opts.XForwarded {
				pr.SetXForwarded()
			}
		},
		Transport:     opts.Transport,
		FlushInterval: -1,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.Canceled) {
				s.logger.Debug("Client went away before origin answered", logz.OriginName(o.Name), logz.HTTPPath(r.URL.Path))
			} else {
				s.logger.Error("Origin round trip failed",
					logz.Error(err),
					logz.OriginName(o.Name),
					logz.OriginURL(target.String()),
					logz.HTTPHost(r.Host),
					logz.HTTPPath(r.URL.Path),
				)
			}
			if opts.OnError != nil {
				opts.OnError(o.Name)
			}
			w.WriteHeader(http.StatusBadGateway)
		},
		ErrorLog: zap.NewStdLog(s.logger),
	}

	return b, nil
}

func defaultTransport() http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	// The client's own Accept-Encoding is forwarded; never decode bodies in transit.
	t.DisableCompression = true
	return t
}
